// Package server is the local JSON view of the ranked station list.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/httprate"

	"github.com/rubiojr/evcharger/internal/locate"
	"github.com/rubiojr/evcharger/internal/refresh"
	"github.com/rubiojr/evcharger/pkg/station"
)

const (
	DefaultPort               = 8080
	DefaultRateLimitPerMinute = 20

	shutdownTimeout = 5 * time.Second
)

// SearchLogger records the positions searched from.
type SearchLogger interface {
	LogSearchLocation(ctx context.Context, latitude, longitude, distance float64) error
}

type Options struct {
	Refresher          *refresh.Refresher
	Locator            *locate.Locator
	Logger             *httplog.Logger
	RateLimitPerMinute int

	// Searches is optional.
	Searches SearchLogger

	// DefaultRange is used when the request has no range parameter.
	DefaultRange float64
}

type Server struct {
	refresher    *refresh.Refresher
	locator      *locate.Locator
	searches     SearchLogger
	logger       *httplog.Logger
	log          *slog.Logger
	rateLimit    int
	defaultRange float64
}

// StationsResponse is the body of GET /stations.
type StationsResponse struct {
	Position    station.Position `json:"position"`
	Source      locate.Source    `json:"source"`
	Range       float64          `json:"range"`
	Filter      station.Filter   `json:"filter"`
	Stations    []station.Ranked `json:"stations"`
	Recommended []station.Ranked `json:"recommended"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = httplog.NewLogger("evcharger", httplog.Options{
			JSON:     false,
			LogLevel: slog.LevelInfo,
			Concise:  true,
		})
	}
	locator := opts.Locator
	if locator == nil {
		locator = locate.New(locate.Options{Logger: logger.Logger})
	}
	rateLimit := opts.RateLimitPerMinute
	if rateLimit <= 0 {
		rateLimit = DefaultRateLimitPerMinute
	}

	return &Server{
		refresher:    opts.Refresher,
		locator:      locator,
		searches:     opts.Searches,
		logger:       logger,
		log:          logger.Logger,
		rateLimit:    rateLimit,
		defaultRange: opts.DefaultRange,
	}
}

// Handler returns the router with logging, recovery and per-IP rate limits.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(httprate.LimitByIP(s.rateLimit, time.Minute))

	r.Get("/healthz", s.handleHealth)
	r.Get("/stations", s.handleStations)
	r.Get("/stations/current", s.handleCurrent)

	return r
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Starting server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("error serving: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down: %w", err)
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStations(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	q, err := parseLocation(query.Get("lat"), query.Get("lng"), query.Get("location"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	userRange := s.defaultRange
	if rangeStr := query.Get("range"); rangeStr != "" {
		userRange, err = strconv.ParseFloat(rangeStr, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid range value"})
			return
		}
	}

	status, err := station.ParseStatusFilter(query.Get("status"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	connector := strings.ToLower(strings.TrimSpace(query.Get("connector")))
	if connector == "" {
		connector = station.ConnectorAll
	}
	filter := station.Filter{Status: status, Connector: connector}

	pos, source := s.locator.Resolve(r.Context(), q)

	if s.searches != nil {
		if err := s.searches.LogSearchLocation(r.Context(), pos.Lat, pos.Lng, userRange); err != nil {
			s.log.Error("Failed to log search location", "error", err)
		}
	}

	res, err := s.refresher.Trigger(r.Context(), refresh.Params{Position: pos, Range: userRange, Filter: filter})
	if err != nil {
		// client went away
		s.log.Debug("Refresh cancelled", "error", err)
		return
	}

	writeJSON(w, http.StatusOK, StationsResponse{
		Position:    pos,
		Source:      source,
		Range:       userRange,
		Filter:      filter,
		Stations:    res.Stations,
		Recommended: res.Recommended,
		UpdatedAt:   res.UpdatedAt,
	})
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	res := s.refresher.Current()
	writeJSON(w, http.StatusOK, StationsResponse{
		Position:    res.Params.Position,
		Range:       res.Params.Range,
		Filter:      res.Params.Filter,
		Stations:    res.Stations,
		Recommended: res.Recommended,
		UpdatedAt:   res.UpdatedAt,
	})
}

func parseLocation(latStr, lngStr, name string) (locate.Query, error) {
	if latStr == "" && lngStr == "" {
		return locate.Query{Name: name}, nil
	}
	if latStr == "" || lngStr == "" {
		return locate.Query{}, errors.New("both lat and lng are required")
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return locate.Query{}, errors.New("invalid latitude value")
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return locate.Query{}, errors.New("invalid longitude value")
	}
	return locate.Query{Coords: &station.Position{Lat: lat, Lng: lng}}, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
