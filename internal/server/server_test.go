package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/httplog/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubiojr/evcharger/internal/locate"
	"github.com/rubiojr/evcharger/internal/refresh"
	"github.com/rubiojr/evcharger/pkg/station"
)

type searchLog struct {
	mu    sync.Mutex
	calls []station.Position
}

func (l *searchLog) LogSearchLocation(_ context.Context, lat, lng, _ float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, station.Position{Lat: lat, Lng: lng})
	return nil
}

func testRecords() []station.Record {
	return []station.Record{
		{ID: 1, Name: "Far", Position: station.Position{Lat: 18.5204, Lng: 73.8567}, AvailableSlots: 2, TotalSlots: 2},
		{ID: 2, Name: "Busy", Position: station.Position{Lat: 19.10, Lng: 72.90}, AvailableSlots: 0, TotalSlots: 4, ConnectorTypes: []string{"Type2"}},
		{ID: 3, Name: "Near", Position: station.Position{Lat: 19.08, Lng: 72.88}, AvailableSlots: 1, TotalSlots: 4, ConnectorTypes: []string{"CCS"}},
	}
}

func newTestServer(t *testing.T, fetch refresh.FetcherFunc, rateLimit int) (*httptest.Server, *searchLog) {
	t.Helper()
	logger := httplog.NewLogger("evcharger-test", httplog.Options{LogLevel: slog.LevelError, Concise: true})
	searches := &searchLog{}
	s := New(Options{
		Refresher:          refresh.New(fetch, logger.Logger),
		Locator:            locate.New(locate.Options{Logger: logger.Logger}),
		Searches:           searches,
		Logger:             logger,
		RateLimitPerMinute: rateLimit,
		DefaultRange:       50,
	})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts, searches
}

func getStations(t *testing.T, url string) (int, StationsResponse) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body StationsResponse
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	}
	return resp.StatusCode, body
}

func okFetcher(context.Context) ([]station.Record, error) {
	return testRecords(), nil
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t, okFetcher, 1000)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStations(t *testing.T) {
	ts, searches := newTestServer(t, okFetcher, 1000)

	status, body := getStations(t, ts.URL+"/stations?lat=19.0760&lng=72.8777&range=50")
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, locate.SourceExplicit, body.Source)
	assert.Equal(t, 50.0, body.Range)
	require.Len(t, body.Stations, 3)
	assert.Equal(t, int64(3), body.Stations[0].ID)
	assert.Equal(t, station.PriorityRecommended, body.Stations[0].Priority)
	assert.Equal(t, int64(2), body.Stations[1].ID)
	assert.Equal(t, int64(1), body.Stations[2].ID)
	assert.Equal(t, station.PriorityOutOfRange, body.Stations[2].Priority)
	require.Len(t, body.Recommended, 1)
	assert.Equal(t, int64(3), body.Recommended[0].ID)

	require.Len(t, searches.calls, 1)
	assert.Equal(t, station.Position{Lat: 19.0760, Lng: 72.8777}, searches.calls[0])
}

func TestStationsFilters(t *testing.T) {
	ts, _ := newTestServer(t, okFetcher, 1000)

	status, body := getStations(t, ts.URL+"/stations?lat=19.0760&lng=72.8777&status=busy")
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body.Stations, 1)
	assert.Equal(t, int64(2), body.Stations[0].ID)

	status, body = getStations(t, ts.URL+"/stations?lat=19.0760&lng=72.8777&connector=CCS")
	require.Equal(t, http.StatusOK, status)
	// stations without connectors default to ccs
	require.Len(t, body.Stations, 2)
	assert.Equal(t, int64(3), body.Stations[0].ID)
	assert.Equal(t, int64(1), body.Stations[1].ID)
}

func TestStationsFallbackPosition(t *testing.T) {
	ts, _ := newTestServer(t, okFetcher, 1000)

	status, body := getStations(t, ts.URL+"/stations")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, locate.SourceFallback, body.Source)
	assert.Equal(t, locate.Fallback, body.Position)
}

func TestStationsBadRequest(t *testing.T) {
	ts, _ := newTestServer(t, okFetcher, 1000)

	for _, q := range []string{
		"lat=abc&lng=72.8",
		"lat=19.0",
		"lat=19.0&lng=72.8&range=far",
		"lat=19.0&lng=72.8&status=broken",
	} {
		t.Run(q, func(t *testing.T) {
			status, _ := getStations(t, ts.URL+"/stations?"+q)
			assert.Equal(t, http.StatusBadRequest, status)
		})
	}
}

func TestStationsDirectoryFailure(t *testing.T) {
	ts, _ := newTestServer(t, func(context.Context) ([]station.Record, error) {
		return nil, errors.New("directory down")
	}, 1000)

	status, body := getStations(t, ts.URL+"/stations?lat=19.0760&lng=72.8777")
	require.Equal(t, http.StatusOK, status)
	assert.NotNil(t, body.Stations)
	assert.Empty(t, body.Stations)
	assert.Empty(t, body.Recommended)
}

func TestCurrent(t *testing.T) {
	ts, _ := newTestServer(t, okFetcher, 1000)

	status, body := getStations(t, ts.URL+"/stations/current")
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body.Stations)

	status, _ = getStations(t, ts.URL+"/stations?lat=19.0760&lng=72.8777&range=50")
	require.Equal(t, http.StatusOK, status)

	status, body = getStations(t, ts.URL+"/stations/current")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body.Stations, 3)
	assert.Equal(t, 50.0, body.Range)
}

func TestRateLimit(t *testing.T) {
	ts, _ := newTestServer(t, okFetcher, 2)

	for range 2 {
		resp, err := http.Get(ts.URL + "/healthz")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}
