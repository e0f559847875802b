package refresh

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubiojr/evcharger/pkg/station"
)

var mumbai = station.Position{Lat: 19.0760, Lng: 72.8777}

func records() []station.Record {
	return []station.Record{
		{ID: 1, Name: "Near", Position: station.Position{Lat: 19.08, Lng: 72.88}, AvailableSlots: 2, TotalSlots: 4, ConnectorTypes: []string{"CCS"}},
		{ID: 2, Name: "Busy", Position: station.Position{Lat: 19.10, Lng: 72.90}, AvailableSlots: 0, TotalSlots: 4, ConnectorTypes: []string{"Type2"}},
		{ID: 3, Name: "Pune", Position: station.Position{Lat: 18.5204, Lng: 73.8567}, AvailableSlots: 3, TotalSlots: 4},
	}
}

func TestTrigger(t *testing.T) {
	r := New(FetcherFunc(func(context.Context) ([]station.Record, error) {
		return records(), nil
	}), nil)

	res, err := r.Trigger(context.Background(), Params{Position: mumbai, Range: 50})
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, uint64(1), res.Seq)
	require.Len(t, res.Stations, 3)
	assert.Equal(t, int64(1), res.Stations[0].ID)
	assert.Equal(t, int64(2), res.Stations[1].ID)
	assert.Equal(t, int64(3), res.Stations[2].ID)
	require.Len(t, res.Recommended, 1)
	assert.Equal(t, int64(1), res.Recommended[0].ID)

	assert.Equal(t, res.Seq, r.Current().Seq)
}

func TestTriggerFilter(t *testing.T) {
	r := New(FetcherFunc(func(context.Context) ([]station.Record, error) {
		return records(), nil
	}), nil)

	res, err := r.Trigger(context.Background(), Params{
		Position: mumbai,
		Range:    50,
		Filter:   station.Filter{Status: station.StatusBusy},
	})
	require.NoError(t, err)
	require.Len(t, res.Stations, 1)
	assert.Equal(t, int64(2), res.Stations[0].ID)
	assert.Empty(t, res.Recommended)
}

func TestTriggerFetchError(t *testing.T) {
	boom := errors.New("boom")
	r := New(FetcherFunc(func(context.Context) ([]station.Record, error) {
		return nil, boom
	}), nil)

	res, err := r.Trigger(context.Background(), Params{Position: mumbai, Range: 50})
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.ErrorIs(t, res.Err, boom)
	assert.NotNil(t, res.Stations)
	assert.Empty(t, res.Stations)
	assert.Empty(t, r.Current().Stations)
}

// A slow cycle finishing after a newer one must not replace its result.
func TestTriggerSuperseded(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32

	r := New(FetcherFunc(func(context.Context) ([]station.Record, error) {
		if calls.Add(1) == 1 {
			close(started)
			<-release
			return records()[:1], nil
		}
		return records(), nil
	}), nil)

	slow := make(chan Result, 1)
	go func() {
		res, err := r.Trigger(context.Background(), Params{Position: mumbai, Range: 50})
		assert.NoError(t, err)
		slow <- res
	}()
	<-started

	fast, err := r.Trigger(context.Background(), Params{Position: mumbai, Range: 50})
	require.NoError(t, err)
	assert.True(t, fast.Applied)
	assert.Equal(t, uint64(2), fast.Seq)

	close(release)
	old := <-slow
	assert.Equal(t, uint64(1), old.Seq)
	assert.False(t, old.Applied)

	cur := r.Current()
	assert.Equal(t, uint64(2), cur.Seq)
	assert.Len(t, cur.Stations, 3)
}

func TestTriggerCancelled(t *testing.T) {
	r := New(FetcherFunc(func(ctx context.Context) ([]station.Record, error) {
		return nil, ctx.Err()
	}), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Trigger(ctx, Params{Position: mumbai})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, uint64(0), r.Current().Seq)
}

// An abandoned newer cycle must not keep an older one from applying.
func TestTriggerNewerCancelled(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32

	r := New(FetcherFunc(func(ctx context.Context) ([]station.Record, error) {
		if calls.Add(1) == 1 {
			close(started)
			<-release
			return records(), nil
		}
		return nil, ctx.Err()
	}), nil)

	slow := make(chan Result, 1)
	go func() {
		res, err := r.Trigger(context.Background(), Params{Position: mumbai, Range: 50})
		assert.NoError(t, err)
		slow <- res
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Trigger(ctx, Params{Position: mumbai})
	require.ErrorIs(t, err, context.Canceled)

	close(release)
	old := <-slow
	assert.Equal(t, uint64(1), old.Seq)
	assert.True(t, old.Applied)

	cur := r.Current()
	assert.Equal(t, uint64(1), cur.Seq)
	assert.Len(t, cur.Stations, 3)
}

func TestCurrentBeforeTrigger(t *testing.T) {
	r := New(FetcherFunc(func(context.Context) ([]station.Record, error) { return nil, nil }), nil)

	cur := r.Current()
	assert.False(t, cur.Applied)
	assert.NotNil(t, cur.Stations)
	assert.Empty(t, cur.Stations)
}

func TestPoll(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32

	done := make(chan struct{})
	go func() {
		Poll(ctx, 10*time.Millisecond, func(context.Context) {
			if calls.Add(1) == 3 {
				cancel()
			}
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Poll did not stop after cancel")
	}
	assert.Equal(t, int32(3), calls.Load())
}
