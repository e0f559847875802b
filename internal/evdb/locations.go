package evdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const defaultLocationLogsLimit = 10

// LocationLog is an aggregated search position.
type LocationLog struct {
	Latitude    float64
	Longitude   float64
	Distance    float64
	SearchCount int
	LastSearch  time.Time
}

func (s *Storage) CreateLocationLogsTable(ctx context.Context) error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS location_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		latitude REAL NOT NULL,
		longitude REAL NOT NULL,
		distance REAL NOT NULL,
		search_count INTEGER NOT NULL DEFAULT 1,
		last_search TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_location_logs_coordinates ON location_logs (latitude, longitude);
	`

	_, err := s.db.ExecContext(ctx, createTableSQL)
	if err != nil {
		return fmt.Errorf("error creating location_logs table: %w", err)
	}

	s.log.Debug("Location logs table created or verified")
	return nil
}

// LogSearchLocation records a search. Positions are rounded to two decimals
// so nearby searches share a row.
func (s *Storage) LogSearchLocation(ctx context.Context, latitude, longitude, distance float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id int64
	newLat, newLng := reduceLocationPrecision(latitude, longitude, defaultReducePrecisionDecimalPlace)
	now := time.Now().UTC().Format(timeLayout)

	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM location_logs
		WHERE latitude = ? AND longitude = ?
		LIMIT 1
	`, newLat, newLng).Scan(&id)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("error checking for existing location: %w", err)
	}

	if errors.Is(err, sql.ErrNoRows) {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO location_logs (latitude, longitude, distance, last_search)
			VALUES (?, ?, ?, ?)
		`, newLat, newLng, distance, now)
		if err != nil {
			return fmt.Errorf("error logging search location: %w", err)
		}
		return nil
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE location_logs
		SET search_count = search_count + 1, last_search = ?, distance = ?
		WHERE id = ?
	`, now, distance, id)
	if err != nil {
		return fmt.Errorf("error updating search location: %w", err)
	}
	return nil
}

// LocationLogs returns the most searched positions. A limit of zero or less
// means the default of 10.
func (s *Storage) LocationLogs(ctx context.Context, limit int) ([]LocationLog, error) {
	if limit <= 0 {
		limit = defaultLocationLogsLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT latitude, longitude, distance, search_count, last_search
		FROM location_logs
		ORDER BY search_count DESC, last_search DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying location logs: %w", err)
	}
	defer rows.Close()

	logs := []LocationLog{}
	for rows.Next() {
		var l LocationLog
		var lastSearch string
		if err := rows.Scan(&l.Latitude, &l.Longitude, &l.Distance, &l.SearchCount, &lastSearch); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		if t, err := time.Parse(timeLayout, lastSearch); err == nil {
			l.LastSearch = t
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return logs, nil
}
