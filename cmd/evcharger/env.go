package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/rubiojr/evcharger/internal/config"
	"github.com/rubiojr/evcharger/internal/evdb"
	"github.com/rubiojr/evcharger/internal/locate"
	"github.com/rubiojr/evcharger/pkg/api"
	"github.com/rubiojr/evcharger/pkg/station"
)

// appEnv bundles what every command needs.
type appEnv struct {
	cfg     *config.Config
	log     *slog.Logger
	storage *evdb.Storage
	client  *api.Client
}

func newEnv(c *cli.Context) (*appEnv, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if v := c.String("db"); v != "" {
		cfg.Storage.DB = v
	}
	if v := c.String("api-url"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := c.String("token"); v != "" {
		cfg.API.Token = v
	}

	logger := newLogger(c.Bool("debug"))

	storage, err := evdb.NewStorage(c.Context, cfg.Storage.DB, logger)
	if err != nil {
		return nil, fmt.Errorf("error initializing storage: %w", err)
	}

	client := api.NewClient(api.Options{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		Token:   cfg.API.Token,
	})

	return &appEnv{
		cfg:     cfg,
		log:     logger,
		storage: storage,
		client:  client,
	}, nil
}

func (e *appEnv) Close() {
	if err := e.storage.Close(); err != nil {
		e.log.Error("error closing storage", "error", err)
	}
}

func newLogger(debug bool) *slog.Logger {
	if !debug {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func (e *appEnv) locator() *locate.Locator {
	return locate.New(locate.Options{
		Geocoder: locate.NewNominatim(e.cfg.Location.GeocoderURL),
		Store:    e.storage,
		Fallback: station.Position{Lat: e.cfg.Location.FallbackLat, Lng: e.cfg.Location.FallbackLng},
		Logger:   e.log,
	})
}

// locationFlags select the user position.
func locationFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "location",
			Aliases: []string{"l"},
			Usage:   "Place name to search from",
		},
		&cli.Float64Flag{
			Name:  "lat",
			Usage: "Latitude of the location",
		},
		&cli.Float64Flag{
			Name:  "lng",
			Usage: "Longitude of the location",
		},
		&cli.Float64Flag{
			Name:    "range",
			Aliases: []string{"r"},
			Usage:   "Vehicle range in kilometers, 0 for unlimited (defaults to the saved vehicle)",
		},
	}
}

func filterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "status",
			Usage: "Station status: all, available, busy or maintenance",
			Value: string(station.StatusAll),
		},
		&cli.StringFlag{
			Name:  "connector",
			Usage: "Connector type, or all",
			Value: station.ConnectorAll,
		},
	}
}

func locationQuery(c *cli.Context) (locate.Query, error) {
	latSet, lngSet := c.IsSet("lat"), c.IsSet("lng")
	if latSet != lngSet {
		return locate.Query{}, errors.New("both --lat and --lng are required")
	}
	if latSet {
		return locate.Query{Coords: &station.Position{Lat: c.Float64("lat"), Lng: c.Float64("lng")}}, nil
	}
	return locate.Query{Name: c.String("location")}, nil
}

// resolvePosition resolves the user position and remembers it when the user
// gave one.
func (e *appEnv) resolvePosition(c *cli.Context) (station.Position, locate.Source, error) {
	q, err := locationQuery(c)
	if err != nil {
		return station.Position{}, "", err
	}

	pos, source := e.locator().Resolve(c.Context, q)
	if source == locate.SourceExplicit || source == locate.SourceGeocoded {
		if err := e.storage.SavePosition(c.Context, pos, q.Name); err != nil {
			e.log.Error("Failed to save position", "error", err)
		}
	}
	return pos, source, nil
}

// userRange is the --range flag, else the saved vehicle range, else
// unlimited.
func (e *appEnv) userRange(c *cli.Context) float64 {
	if c.IsSet("range") {
		return c.Float64("range")
	}
	v, err := e.storage.Vehicle(c.Context)
	if err != nil {
		return 0
	}
	return v.RangeKm
}

func parseFilter(c *cli.Context) (station.Filter, error) {
	status, err := station.ParseStatusFilter(c.String("status"))
	if err != nil {
		return station.Filter{}, err
	}
	connector := strings.ToLower(strings.TrimSpace(c.String("connector")))
	if connector == "" {
		connector = station.ConnectorAll
	}
	return station.Filter{Status: status, Connector: connector}, nil
}

func signalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}
