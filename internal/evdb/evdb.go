// Package evdb is the local sqlite store: bookings, the saved vehicle, the
// last search position and the search log.
package evdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/patrickmn/go-cache"
)

const (
	decimalBase                        = 10
	defaultCacheExpirationMinutes      = 10
	defaultCacheCleanupMinutes         = 30
	defaultReducePrecisionDecimalPlace = 2
	defaultBusyTimeoutMs               = 10000
	timeLayout                         = time.RFC3339Nano
)

// DefaultPath is the database file used when none is configured.
const DefaultPath = "evcharger.db"

// Keys of the persisted state blobs.
const (
	KeyBookings = "userBookings"
	KeyVehicle  = "savedVehicleData"
	KeyLocation = "userLocation"
)

var ErrNotFound = errors.New("not found")

// Storage owns the local state. All writes go through Update, which runs the
// whole read-modify-write cycle in one transaction.
type Storage struct {
	db    *sql.DB
	cache *cache.Cache
	log   *slog.Logger

	// serializes writers in this process; other processes queue on the
	// immediate transaction lock
	mu sync.Mutex
}

type blob struct {
	version int64
	data    []byte
}

func NewStorage(ctx context.Context, dbPath string, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_pragma=busy_timeout(%d)", dbPath, defaultBusyTimeoutMs)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := configureSQLitePragmas(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	if err := createTables(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating tables: %w", err)
	}

	s := &Storage{
		db:    db,
		cache: cache.New(defaultCacheExpirationMinutes*time.Minute, defaultCacheCleanupMinutes*time.Minute),
		log:   logger,
	}

	if err := s.CreateLocationLogsTable(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating location_logs table: %w", err)
	}

	return s, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS state (
		key TEXT PRIMARY KEY,
		version INTEGER NOT NULL,
		data BLOB NOT NULL,
		updated_at TEXT NOT NULL
	);
	`

	_, err := db.ExecContext(ctx, createTableSQL)
	if err != nil {
		return fmt.Errorf("error creating table: %w", err)
	}
	return nil
}

func configureSQLitePragmas(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("error setting journal mode: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA synchronous = NORMAL;"); err != nil {
		return fmt.Errorf("error setting synchronous: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA temp_store = FILE;"); err != nil {
		return fmt.Errorf("error setting temp store: %w", err)
	}
	return nil
}

func (s *Storage) Close() error {
	if s.cache != nil {
		s.cache.Flush()
	}
	return s.db.Close()
}

// Get returns the raw blob stored under key and its version. A missing key
// returns ErrNotFound.
func (s *Storage) Get(ctx context.Context, key string) ([]byte, int64, error) {
	if cached, found := s.cache.Get(key); found {
		s.log.Debug("Using cached data", "key", key)
		b := cached.(blob)
		return b.data, b.version, nil
	}

	var b blob
	err := s.db.QueryRowContext(ctx, "SELECT version, data FROM state WHERE key = ?", key).Scan(&b.version, &b.data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return nil, 0, fmt.Errorf("error querying database: %w", err)
	}

	s.cache.Set(key, b, cache.DefaultExpiration)
	return b.data, b.version, nil
}

// Update replaces the blob under key with the result of fn. fn gets the
// current blob (nil when the key is missing) and runs inside the write
// transaction, so no other writer can interleave. Returning an error from fn
// leaves the stored value untouched.
func (s *Storage) Update(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			s.log.Error("rollback error", "error", err)
		}
	}()

	var current blob
	err = tx.QueryRowContext(ctx, "SELECT version, data FROM state WHERE key = ?", key).Scan(&current.version, &current.data)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("error reading %s: %w", key, err)
	}

	next, err := fn(current.data)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO state (key, version, data, updated_at) VALUES (?, ?, ?, ?)",
		key, current.version+1, next, time.Now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("error writing %s: %w", key, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}

	s.cache.Delete(key)
	s.log.Debug("State updated", "key", key, "version", current.version+1)
	return nil
}

func (s *Storage) getJSON(ctx context.Context, key string, out any) error {
	data, _, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("error unmarshaling %s: %w", key, err)
	}
	return nil
}

func (s *Storage) putJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("error marshaling %s: %w", key, err)
	}
	return s.Update(ctx, key, func([]byte) ([]byte, error) {
		return data, nil
	})
}

func reduceLocationPrecision(lat, lng float64, decimalPlaces int) (roundedLat, roundedLng float64) {
	factor := math.Pow(decimalBase, float64(decimalPlaces))
	roundedLat = math.Round(lat*factor) / factor
	roundedLng = math.Round(lng*factor) / factor
	return
}
