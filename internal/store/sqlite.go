package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// SQLite is the archive's writable backend. A single connection plus a
// write mutex keeps the pure-Go driver out of SQLITE_BUSY territory.
type SQLite struct {
	conn    *sql.DB
	writeMu sync.Mutex
}

// Open opens or creates the archive database at path.
func Open(path string) (*SQLite, error) {
	dsn := path + "?_journal=WAL&_fk=1&_busy_timeout=5000"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}
	return &SQLite{conn: conn}, nil
}

func (db *SQLite) Close() error { return db.conn.Close() }

func (db *SQLite) Ping(ctx context.Context) error { return db.conn.PingContext(ctx) }

// EnsureSchema creates the archive tables if they do not exist yet.
func (db *SQLite) EnsureSchema(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// CreateRun registers a run and returns its id, minting a fresh one when
// rec.RunID is empty. Re-importing an existing id updates the record.
func (db *SQLite) CreateRun(ctx context.Context, rec *RunRecord) (string, error) {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	if rec.RunID == "" {
		rec.RunID = uuid.New().String()
	}
	if rec.ImportedAt == "" {
		rec.ImportedAt = time.Now().UTC().Format(time.RFC3339)
	}

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO runs (run_id, network_dir, demand_dir, output_dir, reference_date, iterations, workers, imported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			network_dir = excluded.network_dir,
			demand_dir = excluded.demand_dir,
			output_dir = excluded.output_dir,
			reference_date = excluded.reference_date,
			iterations = excluded.iterations,
			workers = excluded.workers,
			imported_at = excluded.imported_at`,
		rec.RunID, rec.NetworkDir, rec.DemandDir, rec.OutputDir,
		rec.ReferenceDate, rec.Iterations, rec.Workers, rec.ImportedAt)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}
	return rec.RunID, nil
}

// ReplacePathsets swaps in the full pathset table for one run.
func (db *SQLite) ReplacePathsets(ctx context.Context, runID string, rows []PathRow) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM pathsets WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("failed to clear pathsets: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO pathsets (run_id, seq, iteration, passenger_id_num, trip_list_id_num,
			path_cost, path_probability, path_board_stops, path_trips, path_alight_stops)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range rows {
		_, err := stmt.ExecContext(ctx, runID, i+1, r.Iteration, r.PassengerIDNum, r.TripListIDNum,
			r.Cost, r.Probability, r.BoardStops, r.Trips, r.AlightStops)
		if err != nil {
			return fmt.Errorf("failed to insert pathset row %d: %w", i+1, err)
		}
	}
	return tx.Commit()
}

// ReplacePerformance swaps in the performance report for one run.
func (db *SQLite) ReplacePerformance(ctx context.Context, runID string, rows []PerfRow) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM performance WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("failed to clear performance: %w", err)
	}
	for _, r := range rows {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO performance (run_id, step, samples, mean_seconds, stddev_seconds, total_seconds, max_memory_bytes)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID, r.Step, r.Samples, r.MeanSeconds, r.StdDevSeconds, r.TotalSeconds, r.MaxMemoryBytes)
		if err != nil {
			return fmt.Errorf("failed to insert performance row: %w", err)
		}
	}
	return tx.Commit()
}

// ListRuns returns all archived runs, most recently imported first.
func (db *SQLite) ListRuns(ctx context.Context) ([]RunRecord, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT run_id, network_dir, demand_dir, output_dir, reference_date, iterations, workers, imported_at
		FROM runs ORDER BY imported_at DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.RunID, &r.NetworkDir, &r.DemandDir, &r.OutputDir,
			&r.ReferenceDate, &r.Iterations, &r.Workers, &r.ImportedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (db *SQLite) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	var r RunRecord
	err := db.conn.QueryRowContext(ctx, `
		SELECT run_id, network_dir, demand_dir, output_dir, reference_date, iterations, workers, imported_at
		FROM runs WHERE run_id = ?`, runID).
		Scan(&r.RunID, &r.NetworkDir, &r.DemandDir, &r.OutputDir,
			&r.ReferenceDate, &r.Iterations, &r.Workers, &r.ImportedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	return &r, nil
}

// Pathsets returns a run's pathset rows in file order. A negative iteration
// returns every iteration.
func (db *SQLite) Pathsets(ctx context.Context, runID string, iteration int) ([]PathRow, error) {
	query := `
		SELECT seq, iteration, passenger_id_num, trip_list_id_num,
			path_cost, path_probability, path_board_stops, path_trips, path_alight_stops
		FROM pathsets WHERE run_id = ?`
	args := []any{runID}
	if iteration >= 0 {
		query += ` AND iteration = ?`
		args = append(args, iteration)
	}
	query += ` ORDER BY seq`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pathsets: %w", err)
	}
	defer rows.Close()

	var out []PathRow
	for rows.Next() {
		var r PathRow
		if err := rows.Scan(&r.Seq, &r.Iteration, &r.PassengerIDNum, &r.TripListIDNum,
			&r.Cost, &r.Probability, &r.BoardStops, &r.Trips, &r.AlightStops); err != nil {
			return nil, fmt.Errorf("failed to scan pathset row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (db *SQLite) Performance(ctx context.Context, runID string) ([]PerfRow, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT step, samples, mean_seconds, stddev_seconds, total_seconds, max_memory_bytes
		FROM performance WHERE run_id = ? ORDER BY step`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query performance: %w", err)
	}
	defer rows.Close()

	var out []PerfRow
	for rows.Next() {
		var r PerfRow
		if err := rows.Scan(&r.Step, &r.Samples, &r.MeanSeconds, &r.StdDevSeconds,
			&r.TotalSeconds, &r.MaxMemoryBytes); err != nil {
			return nil, fmt.Errorf("failed to scan performance row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
