// Package store provides a best-effort SQLite archive of usage snapshots.
// The archive backs the `ccline history` subcommand; a failed write never
// affects the rendered line.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ccline/ccline/internal/api"
)

// Store provides SQLite storage for archived snapshots.
type Store struct {
	db *sql.DB
}

// DailyPeak is the highest utilization observed per window on one day.
// Null columns mean the window was never reported that day.
type DailyPeak struct {
	Day            string // YYYY-MM-DD, UTC
	FiveHour       sql.NullFloat64
	SevenDay       sql.NullFloat64
	SevenDayOpus   sql.NullFloat64
	SevenDaySonnet sql.NullFloat64
}

// New opens (or creates) the archive at the given path.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One short-lived process writes at a time; a single connection keeps
	// the page cache footprint small.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// createTables creates the archive schema.
func (s *Store) createTables() error {
	schema := `
		CREATE TABLE IF NOT EXISTS snapshots (
			id TEXT PRIMARY KEY,
			captured_at INTEGER NOT NULL,
			five_hour REAL,
			seven_day REAL,
			seven_day_opus REAL,
			seven_day_sonnet REAL
		);
		CREATE INDEX IF NOT EXISTS idx_snapshots_captured_at ON snapshots(captured_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// InsertSnapshot archives one snapshot, returning the row ID. Absent
// windows are stored as NULL so they stay distinguishable from 0%.
func (s *Store) InsertSnapshot(snapshot *api.UsageSnapshot, capturedAt time.Time) (string, error) {
	id := uuid.New().String()
	_, err := s.db.Exec(
		`INSERT INTO snapshots (id, captured_at, five_hour, seven_day, seven_day_opus, seven_day_sonnet)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id,
		capturedAt.UTC().UnixMilli(),
		windowPercent(snapshot.FiveHour),
		windowPercent(snapshot.SevenDay),
		windowPercent(snapshot.SevenDayOpus),
		windowPercent(snapshot.SevenDaySonnet),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return id, nil
}

func windowPercent(w *api.Window) any {
	if w == nil {
		return nil
	}
	return w.PercentUsed
}

// QueryDailyPeaks returns per-day peak utilization for the last `days`
// days, oldest day first.
func (s *Store) QueryDailyPeaks(days int) ([]DailyPeak, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days).UnixMilli()
	rows, err := s.db.Query(
		`SELECT date(captured_at / 1000, 'unixepoch') AS day,
		        MAX(five_hour), MAX(seven_day), MAX(seven_day_opus), MAX(seven_day_sonnet)
		 FROM snapshots
		 WHERE captured_at >= ?
		 GROUP BY day
		 ORDER BY day ASC`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily peaks: %w", err)
	}
	defer rows.Close()

	var peaks []DailyPeak
	for rows.Next() {
		var p DailyPeak
		if err := rows.Scan(&p.Day, &p.FiveHour, &p.SevenDay, &p.SevenDayOpus, &p.SevenDaySonnet); err != nil {
			return nil, fmt.Errorf("failed to scan daily peak: %w", err)
		}
		peaks = append(peaks, p)
	}
	return peaks, rows.Err()
}

// Prune deletes snapshots older than the retention window.
func (s *Store) Prune(retention time.Duration) error {
	cutoff := time.Now().UTC().Add(-retention).UnixMilli()
	_, err := s.db.Exec(`DELETE FROM snapshots WHERE captured_at < ?`, cutoff)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
