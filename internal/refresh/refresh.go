// Package refresh recomputes the ranked station list. Each recompute is a
// numbered cycle and a cycle is never applied over a newer one, so a slow
// fetch can't overwrite the result of a newer request.
package refresh

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rubiojr/evcharger/pkg/station"
)

// Fetcher returns the station directory.
type Fetcher interface {
	Stations(ctx context.Context) ([]station.Record, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) ([]station.Record, error)

func (f FetcherFunc) Stations(ctx context.Context) ([]station.Record, error) {
	return f(ctx)
}

// Params are the inputs of a cycle.
type Params struct {
	Position station.Position
	Range    float64
	Filter   station.Filter
}

// Result is the outcome of a cycle.
type Result struct {
	Seq         uint64
	Params      Params
	Stations    []station.Ranked
	Recommended []station.Ranked

	// Applied is false when a newer cycle was running or applied when this
	// one finished.
	Applied bool

	// Err is the fetch error, if any. Stations is empty when set.
	Err       error
	UpdatedAt time.Time
}

// Refresher runs refresh cycles and keeps the last applied result.
type Refresher struct {
	fetcher Fetcher
	log     *slog.Logger

	mu      sync.RWMutex
	issued  uint64
	pending map[uint64]struct{}
	current Result
}

// New returns a Refresher reading stations from fetcher. A nil logger
// discards output.
func New(fetcher Fetcher, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Refresher{
		fetcher: fetcher,
		log:     logger,
		pending: make(map[uint64]struct{}),
		current: Result{Stations: []station.Ranked{}, Recommended: []station.Ranked{}},
	}
}

// Trigger runs a cycle: fetch, rank, and apply the result unless a newer
// cycle is still running or has already been applied. A fetch failure yields
// an empty list, not an error; the returned error is only the context's.
// A cycle abandoned because its context ended applies nothing and no longer
// holds back older cycles.
func (r *Refresher) Trigger(ctx context.Context, p Params) (Result, error) {
	seq := r.issue()
	r.log.Debug("Refresh issued", "seq", seq, "lat", p.Position.Lat, "lng", p.Position.Lng, "range", p.Range)

	res := Result{Seq: seq, Params: p}
	records, err := r.fetcher.Stations(ctx)
	if err != nil {
		r.log.Error("Error fetching stations", "seq", seq, "error", err)
		res.Err = err
		records = nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		r.mu.Lock()
		delete(r.pending, seq)
		r.mu.Unlock()
		r.log.Debug("Refresh abandoned", "seq", seq, "error", ctxErr)
		return res, ctxErr
	}

	res.Stations = station.Rank(records, p.Position, p.Range, p.Filter)
	res.Recommended = station.Recommended(res.Stations)
	res.UpdatedAt = time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, seq)
	if r.supersededLocked(seq) {
		r.log.Debug("Refresh superseded", "seq", seq, "latest", r.issued)
		return res, nil
	}
	res.Applied = true
	r.current = res
	r.log.Debug("Refresh applied", "seq", seq, "stations", len(res.Stations))
	return res, nil
}

func (r *Refresher) issue() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.issued++
	r.pending[r.issued] = struct{}{}
	return r.issued
}

// supersededLocked reports whether a cycle newer than seq was applied or is
// still running.
func (r *Refresher) supersededLocked(seq uint64) bool {
	if r.current.Seq > seq {
		return true
	}
	for other := range r.pending {
		if other > seq {
			return true
		}
	}
	return false
}

// Current returns the last applied result.
func (r *Refresher) Current() Result {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Poll calls fn right away and then every interval until ctx is done.
// fn is not called once ctx is done.
func Poll(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for ctx.Err() == nil {
		fn(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
