package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is the read-only backend a shared deployment serves the results
// API from. Imports still happen through SQLite; the tables here are kept in
// sync by whatever ships archives to the central database.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() { p.pool.Close() }

func (p *Postgres) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

func (p *Postgres) ListRuns(ctx context.Context) ([]RunRecord, error) {
	rows, err := p.pool.Query(ctx, `
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

func (p *Postgres) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	var r RunRecord
	err := p.pool.QueryRow(ctx, `
		SELECT run_id, network_dir, demand_dir, output_dir, reference_date, iterations, workers, imported_at
		FROM runs WHERE run_id = $1`, runID).
		Scan(&r.RunID, &r.NetworkDir, &r.DemandDir, &r.OutputDir,
			&r.ReferenceDate, &r.Iterations, &r.Workers, &r.ImportedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	return &r, nil
}

func (p *Postgres) Pathsets(ctx context.Context, runID string, iteration int) ([]PathRow, error) {
	query := `
		SELECT seq, iteration, passenger_id_num, trip_list_id_num,
			path_cost, path_probability, path_board_stops, path_trips, path_alight_stops
		FROM pathsets WHERE run_id = $1`
	args := []any{runID}
	if iteration >= 0 {
		query += ` AND iteration = $2`
		args = append(args, iteration)
	}
	query += ` ORDER BY seq`

	rows, err := p.pool.Query(ctx, query, args...)
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

func (p *Postgres) Performance(ctx context.Context, runID string) ([]PerfRow, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT step, samples, mean_seconds, stddev_seconds, total_seconds, max_memory_bytes
		FROM performance WHERE run_id = $1 ORDER BY step`, runID)
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
