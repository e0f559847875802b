package locate

import (
	"context"
	"errors"
	"testing"

	"github.com/muesli/gominatim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubiojr/evcharger/pkg/station"
)

type fakeGeocoder struct {
	pos   station.Position
	err   error
	calls int
}

func (f *fakeGeocoder) Geocode(_ context.Context, name string) (station.Position, string, error) {
	f.calls++
	if f.err != nil {
		return station.Position{}, "", f.err
	}
	return f.pos, name, nil
}

type fakeStore struct {
	pos station.Position
	err error
}

func (f fakeStore) LastPosition(context.Context) (station.Position, error) {
	return f.pos, f.err
}

var (
	pune   = station.Position{Lat: 18.5204, Lng: 73.8567}
	delhi  = station.Position{Lat: 28.6139, Lng: 77.2090}
	stored = station.Position{Lat: 12.9716, Lng: 77.5946}
)

func TestResolve(t *testing.T) {
	failing := errors.New("unavailable")

	tests := []struct {
		name     string
		geocoder Geocoder
		store    PositionStore
		query    Query
		want     station.Position
		source   Source
	}{
		{
			name:     "explicit coordinates win",
			geocoder: &fakeGeocoder{pos: delhi},
			store:    fakeStore{pos: stored},
			query:    Query{Coords: &pune, Name: "Delhi"},
			want:     pune,
			source:   SourceExplicit,
		},
		{
			name:     "geocoded name",
			geocoder: &fakeGeocoder{pos: delhi},
			store:    fakeStore{pos: stored},
			query:    Query{Name: "Delhi"},
			want:     delhi,
			source:   SourceGeocoded,
		},
		{
			name:     "geocoder failure falls back to store",
			geocoder: &fakeGeocoder{err: failing},
			store:    fakeStore{pos: stored},
			query:    Query{Name: "Nowhere"},
			want:     stored,
			source:   SourceStored,
		},
		{
			name:   "no query uses store",
			store:  fakeStore{pos: stored},
			want:   stored,
			source: SourceStored,
		},
		{
			name:     "everything fails",
			geocoder: &fakeGeocoder{err: failing},
			store:    fakeStore{err: failing},
			query:    Query{Name: "Nowhere"},
			want:     Fallback,
			source:   SourceFallback,
		},
		{
			name:   "nothing configured",
			want:   Fallback,
			source: SourceFallback,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(Options{Geocoder: tt.geocoder, Store: tt.store})
			got, source := l.Resolve(context.Background(), tt.query)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.source, source)
		})
	}
}

func TestResolveBlankNameSkipsGeocoder(t *testing.T) {
	g := &fakeGeocoder{pos: delhi}
	l := New(Options{Geocoder: g})

	got, source := l.Resolve(context.Background(), Query{Name: "   "})
	assert.Equal(t, Fallback, got)
	assert.Equal(t, SourceFallback, source)
	assert.Zero(t, g.calls)
}

func TestCustomFallback(t *testing.T) {
	l := New(Options{Fallback: delhi})

	got, source := l.Resolve(context.Background(), Query{})
	assert.Equal(t, delhi, got)
	assert.Equal(t, SourceFallback, source)
}

func TestNominatimCached(t *testing.T) {
	n := NewNominatim("")
	n.cache.Set("Pune", gominatim.SearchResult{Lat: "18.5204", Lon: "73.8567", DisplayName: "Pune, Maharashtra, India"}, 0)

	pos, display, err := n.Geocode(context.Background(), "Pune")
	require.NoError(t, err)
	assert.Equal(t, pune, pos)
	assert.Equal(t, "Pune, Maharashtra, India", display)
}

func TestResultToPosition(t *testing.T) {
	_, _, err := resultToPosition(gominatim.SearchResult{Lat: "x", Lon: "73.8"})
	assert.Error(t, err)

	_, _, err = resultToPosition(gominatim.SearchResult{Lat: "18.5", Lon: ""})
	assert.Error(t, err)
}
