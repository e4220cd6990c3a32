// Package store archives finished runs so their pathsets and performance
// reports outlive the output directory.
//
// Imports always go to SQLite. Reading works against either the same SQLite
// file or a Postgres database with the equivalent tables, which is what a
// shared deployment serves the results API from.
package store

import "errors"

// ErrNotFound is returned when a run id does not exist in the archive.
// Both backends translate their driver's no-rows error into it.
var ErrNotFound = errors.New("run not found")

// RunRecord is one archived run.
type RunRecord struct {
	RunID         string `json:"run_id"`
	NetworkDir    string `json:"network_dir"`
	DemandDir     string `json:"demand_dir"`
	OutputDir     string `json:"output_dir"`
	ReferenceDate string `json:"reference_date"`
	Iterations    int    `json:"iterations"`
	Workers       int    `json:"workers"`
	ImportedAt    string `json:"imported_at"`
}

// PathRow is one row of a run's canonical pathset file, with the numeric
// columns parsed. Seq preserves the file's row order.
type PathRow struct {
	Seq            int     `json:"seq"`
	Iteration      int     `json:"iteration"`
	PassengerIDNum int     `json:"passenger_id_num"`
	TripListIDNum  int     `json:"trip_list_id_num"`
	Cost           float64 `json:"path_cost"`
	Probability    float64 `json:"path_probability"`
	BoardStops     string  `json:"path_board_stops"`
	Trips          string  `json:"path_trips"`
	AlightStops    string  `json:"path_alight_stops"`
}

// PerfRow is one step of a run's performance report.
type PerfRow struct {
	Step           string  `json:"step"`
	Samples        int64   `json:"samples"`
	MeanSeconds    float64 `json:"mean_seconds"`
	StdDevSeconds  float64 `json:"stddev_seconds"`
	TotalSeconds   float64 `json:"total_seconds"`
	MaxMemoryBytes int64   `json:"max_memory_bytes"`
}
