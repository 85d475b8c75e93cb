// Package sqlite persists observations and health transitions to a local
// SQLite database so recent history survives restarts and is queryable over
// the HTTP API.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/couchcryptid/marine-weather-service/internal/domain"
)

// Store is the history database. It implements poller.Historian.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore opens (creating if needed) the history database at path and
// ensures the schema exists.
func NewStore(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	// modernc.org/sqlite allows one writer at a time.
	db.SetMaxOpenConns(1)
	_, _ = db.Exec("PRAGMA journal_mode=WAL")
	_, _ = db.Exec("PRAGMA synchronous=NORMAL")

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS observations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			location_id TEXT NOT NULL,
			location_name TEXT NOT NULL,
			wave_height REAL,
			wave_direction REAL,
			wave_period REAL,
			wind_wave_height REAL,
			wind_wave_direction REAL,
			wind_wave_period REAL,
			wind_wave_peak_period REAL,
			swell_wave_height REAL,
			swell_wave_direction REAL,
			swell_wave_period REAL,
			swell_wave_peak_period REAL,
			timezone TEXT NOT NULL,
			model TEXT NOT NULL,
			retrieved_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_observations_location
			ON observations(location_id, retrieved_at);
	`); err != nil {
		return fmt.Errorf("creating observations table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS health_transitions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			from_status TEXT NOT NULL,
			to_status TEXT NOT NULL,
			consecutive_failures INTEGER NOT NULL,
			total_checks INTEGER NOT NULL,
			error_count INTEGER NOT NULL,
			success_rate REAL NOT NULL,
			occurred_at TEXT NOT NULL
		);
	`); err != nil {
		return fmt.Errorf("creating health_transitions table: %w", err)
	}
	return nil
}

const insertObservationSQL = `
INSERT INTO observations (
	location_id, location_name,
	wave_height, wave_direction, wave_period,
	wind_wave_height, wind_wave_direction, wind_wave_period, wind_wave_peak_period,
	swell_wave_height, swell_wave_direction, swell_wave_period, swell_wave_peak_period,
	timezone, model, retrieved_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// RecordObservation appends one observation row. Nil readings are stored as
// NULL, never as zero.
func (s *Store) RecordObservation(ctx context.Context, loc domain.Location, obs domain.Observation) error {
	_, err := s.db.ExecContext(ctx, insertObservationSQL,
		loc.ID(), loc.Name,
		obs.WaveHeight, obs.WaveDirection, obs.WavePeriod,
		obs.WindWaveHeight, obs.WindWaveDirection, obs.WindWavePeriod, obs.WindWavePeakPeriod,
		obs.SwellWaveHeight, obs.SwellWaveDirection, obs.SwellWavePeriod, obs.SwellWavePeakPeriod,
		obs.Timezone, obs.Model, obs.RetrievedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting observation: %w", err)
	}
	return nil
}

// RecordTransition appends one health-transition row.
func (s *Store) RecordTransition(ctx context.Context, tr domain.HealthTransition) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO health_transitions (
			from_status, to_status, consecutive_failures, total_checks, error_count, success_rate, occurred_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(tr.From), string(tr.To),
		tr.Metrics.ConsecutiveFailures, tr.Metrics.TotalChecks, tr.Metrics.ErrorCount,
		tr.Metrics.SuccessRate(), tr.At.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting health transition: %w", err)
	}
	return nil
}

// ObservationRecord is one stored observation row.
type ObservationRecord struct {
	LocationID   string             `json:"location_id"`
	LocationName string             `json:"location_name"`
	Observation  domain.Observation `json:"observation"`
}

const selectObservationsSQL = `
SELECT location_id, location_name,
	wave_height, wave_direction, wave_period,
	wind_wave_height, wind_wave_direction, wind_wave_period, wind_wave_peak_period,
	swell_wave_height, swell_wave_direction, swell_wave_period, swell_wave_peak_period,
	timezone, model, retrieved_at
FROM observations
WHERE location_id = ?
ORDER BY retrieved_at DESC, id DESC
LIMIT ?`

// RecentObservations returns up to limit rows for a location, newest first.
func (s *Store) RecentObservations(ctx context.Context, locationID string, limit int) ([]ObservationRecord, error) {
	rows, err := s.db.QueryContext(ctx, selectObservationsSQL, locationID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying observations: %w", err)
	}
	defer rows.Close()

	records := make([]ObservationRecord, 0, limit)
	for rows.Next() {
		var (
			rec       ObservationRecord
			fields    [11]sql.NullFloat64
			retrieved string
		)
		if err := rows.Scan(
			&rec.LocationID, &rec.LocationName,
			&fields[0], &fields[1], &fields[2],
			&fields[3], &fields[4], &fields[5], &fields[6],
			&fields[7], &fields[8], &fields[9], &fields[10],
			&rec.Observation.Timezone, &rec.Observation.Model, &retrieved,
		); err != nil {
			return nil, fmt.Errorf("scanning observation: %w", err)
		}
		rec.Observation.WaveHeight = nullToPtr(fields[0])
		rec.Observation.WaveDirection = nullToPtr(fields[1])
		rec.Observation.WavePeriod = nullToPtr(fields[2])
		rec.Observation.WindWaveHeight = nullToPtr(fields[3])
		rec.Observation.WindWaveDirection = nullToPtr(fields[4])
		rec.Observation.WindWavePeriod = nullToPtr(fields[5])
		rec.Observation.WindWavePeakPeriod = nullToPtr(fields[6])
		rec.Observation.SwellWaveHeight = nullToPtr(fields[7])
		rec.Observation.SwellWaveDirection = nullToPtr(fields[8])
		rec.Observation.SwellWavePeriod = nullToPtr(fields[9])
		rec.Observation.SwellWavePeakPeriod = nullToPtr(fields[10])
		rec.Observation.RetrievedAt, err = time.Parse(time.RFC3339Nano, retrieved)
		if err != nil {
			return nil, fmt.Errorf("parsing retrieved_at: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading observations: %w", err)
	}
	return records, nil
}

// TransitionRecord is one stored health-transition row.
type TransitionRecord struct {
	From                domain.Status `json:"from"`
	To                  domain.Status `json:"to"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	TotalChecks         int           `json:"total_checks"`
	ErrorCount          int           `json:"error_count"`
	SuccessRate         float64       `json:"success_rate"`
	At                  time.Time     `json:"at"`
}

// RecentTransitions returns up to limit health transitions, newest first.
func (s *Store) RecentTransitions(ctx context.Context, limit int) ([]TransitionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT from_status, to_status, consecutive_failures, total_checks, error_count, success_rate, occurred_at
		FROM health_transitions
		ORDER BY occurred_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying health transitions: %w", err)
	}
	defer rows.Close()

	records := make([]TransitionRecord, 0, limit)
	for rows.Next() {
		var (
			rec      TransitionRecord
			from, to string
			occurred string
		)
		if err := rows.Scan(&from, &to, &rec.ConsecutiveFailures, &rec.TotalChecks, &rec.ErrorCount, &rec.SuccessRate, &occurred); err != nil {
			return nil, fmt.Errorf("scanning health transition: %w", err)
		}
		rec.From = domain.Status(from)
		rec.To = domain.Status(to)
		rec.At, err = time.Parse(time.RFC3339Nano, occurred)
		if err != nil {
			return nil, fmt.Errorf("parsing occurred_at: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading health transitions: %w", err)
	}
	return records, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func nullToPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}
