// Package locate resolves the user position used for ranking.
package locate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/muesli/gominatim"
	"github.com/patrickmn/go-cache"

	"github.com/rubiojr/evcharger/pkg/station"
)

const (
	DefaultGeocoderURL = "https://nominatim.openstreetmap.org/"

	geocodeCacheExpiry  = 24 * time.Hour
	geocodeCacheCleanup = time.Hour
)

// Fallback is used when nothing else yields a position (Mumbai).
var Fallback = station.Position{Lat: 19.0760, Lng: 72.8777}

// ErrNoResults is returned when the geocoder finds nothing.
var ErrNoResults = errors.New("no results found")

// Source tells where a resolved position came from.
type Source string

const (
	SourceExplicit Source = "explicit"
	SourceGeocoded Source = "geocoded"
	SourceStored   Source = "stored"
	SourceFallback Source = "fallback"
)

// Geocoder turns a place name into a position.
type Geocoder interface {
	Geocode(ctx context.Context, name string) (station.Position, string, error)
}

// PositionStore returns the last known user position.
type PositionStore interface {
	LastPosition(ctx context.Context) (station.Position, error)
}

// Query describes what the user asked for. Coords wins over Name.
type Query struct {
	Coords *station.Position
	Name   string
}

// Locator resolves the user position from a Query.
type Locator struct {
	geocoder Geocoder
	store    PositionStore
	fallback station.Position
	log      *slog.Logger
}

// Options configures a Locator. Geocoder and Store may be nil.
type Options struct {
	Geocoder Geocoder
	Store    PositionStore
	Logger   *slog.Logger

	// Fallback overrides the default fallback position when non-zero.
	Fallback station.Position
}

// New returns a Locator. A nil logger discards output.
func New(opts Options) *Locator {
	l := &Locator{
		geocoder: opts.Geocoder,
		store:    opts.Store,
		fallback: opts.Fallback,
		log:      opts.Logger,
	}
	if l.fallback == (station.Position{}) {
		l.fallback = Fallback
	}
	if l.log == nil {
		l.log = slog.New(slog.DiscardHandler)
	}
	return l
}

// Resolve picks the position in order: explicit coordinates, geocoded place
// name, the stored last position, the fallback. Failures fall through to the
// next step and are only logged.
func (l *Locator) Resolve(ctx context.Context, q Query) (station.Position, Source) {
	if q.Coords != nil {
		return *q.Coords, SourceExplicit
	}

	if name := strings.TrimSpace(q.Name); name != "" && l.geocoder != nil {
		pos, display, err := l.geocoder.Geocode(ctx, name)
		if err == nil {
			l.log.Debug("Location found", "query", name, "display_name", display)
			return pos, SourceGeocoded
		}
		l.log.Error("Error geocoding location", "query", name, "error", err)
	}

	if l.store != nil {
		pos, err := l.store.LastPosition(ctx)
		if err == nil {
			return pos, SourceStored
		}
		l.log.Debug("No stored position", "error", err)
	}

	return l.fallback, SourceFallback
}

// Nominatim geocodes with an OpenStreetMap Nominatim server. Results are
// cached by query.
type Nominatim struct {
	server string
	cache  *cache.Cache
}

func NewNominatim(server string) *Nominatim {
	if server == "" {
		server = DefaultGeocoderURL
	}
	return &Nominatim{
		server: server,
		cache:  cache.New(geocodeCacheExpiry, geocodeCacheCleanup),
	}
}

// gominatim keeps the server in a package variable.
var serverMu sync.Mutex

func (n *Nominatim) Geocode(ctx context.Context, name string) (station.Position, string, error) {
	if cached, ok := n.cache.Get(name); ok {
		return resultToPosition(cached.(gominatim.SearchResult))
	}
	if err := ctx.Err(); err != nil {
		return station.Position{}, "", err
	}

	serverMu.Lock()
	gominatim.SetServer(n.server)
	query := gominatim.SearchQuery{
		Q: name,
	}
	results, err := query.Get()
	serverMu.Unlock()
	if err != nil {
		return station.Position{}, "", fmt.Errorf("geocoding error: %w", err)
	}

	if len(results) == 0 {
		return station.Position{}, "", fmt.Errorf("%w for location: %s", ErrNoResults, name)
	}
	n.cache.Set(name, results[0], cache.DefaultExpiration)

	return resultToPosition(results[0])
}

func resultToPosition(result gominatim.SearchResult) (station.Position, string, error) {
	lat, err := strconv.ParseFloat(result.Lat, 64)
	if err != nil {
		return station.Position{}, "", fmt.Errorf("error parsing latitude: %w", err)
	}

	lng, err := strconv.ParseFloat(result.Lon, 64)
	if err != nil {
		return station.Position{}, "", fmt.Errorf("error parsing longitude: %w", err)
	}

	return station.Position{Lat: lat, Lng: lng}, result.DisplayName, nil
}
