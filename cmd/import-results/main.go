// import-results archives one finished run into the results database: the
// canonical pathset file, the performance report, and the run's metadata.
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/bricegnichols/fast-trips/internal/config"
	"github.com/bricegnichols/fast-trips/internal/pathset"
	"github.com/bricegnichols/fast-trips/internal/perf"
	"github.com/bricegnichols/fast-trips/internal/store"
)

func main() {
	godotenv.Load()

	var (
		dbPath     = flag.String("db", config.EnvOr("FT_SQLITE_DATABASE", "results.db"), "archive database path")
		outputDir  = flag.String("output", "", "run output directory to import")
		networkDir = flag.String("network", "", "network directory the run was built from (for metadata)")
		demandDir  = flag.String("demand", "", "demand directory the run was built from (for metadata)")
		runID      = flag.String("run-id", "", "reuse an existing run id instead of minting one")
	)
	flag.Parse()

	if *outputDir == "" {
		flag.Usage()
		os.Exit(2)
	}

	rows, err := pathset.ReadFile(filepath.Join(*outputDir, pathset.Filename("")))
	if err != nil {
		log.Fatalf("Failed to read pathset file: %v", err)
	}
	paths, err := toPathRows(rows)
	if err != nil {
		log.Fatalf("Failed to parse pathset rows: %v", err)
	}

	perfRows, err := readPerformance(filepath.Join(*outputDir, perf.ReportFile))
	if err != nil {
		log.Fatalf("Failed to read performance report: %v", err)
	}

	rec := &store.RunRecord{
		RunID:      *runID,
		NetworkDir: *networkDir,
		DemandDir:  *demandDir,
		OutputDir:  *outputDir,
	}
	if *networkDir != "" {
		cfg, err := config.Read(*networkDir, *demandDir)
		if err != nil {
			log.Fatalf("Failed to read run configuration: %v", err)
		}
		rec.ReferenceDate = cfg.ReferenceDate.Format("2006-01-02")
		rec.Iterations = cfg.Iterations
		rec.Workers = cfg.Workers
	}

	db, err := store.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open archive database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	id, err := db.CreateRun(ctx, rec)
	if err != nil {
		log.Fatalf("Failed to create run record: %v", err)
	}
	if err := db.ReplacePathsets(ctx, id, paths); err != nil {
		log.Fatalf("Failed to import pathsets: %v", err)
	}
	if err := db.ReplacePerformance(ctx, id, perfRows); err != nil {
		log.Fatalf("Failed to import performance report: %v", err)
	}

	log.Printf("Imported run %s: %d pathset rows, %d performance steps", id, len(paths), len(perfRows))
}

// toPathRows parses the numeric columns the archive stores typed.
func toPathRows(rows []pathset.Row) ([]store.PathRow, error) {
	out := make([]store.PathRow, 0, len(rows))
	for i, r := range rows {
		passengerID, err := strconv.Atoi(r.Fields[1])
		if err != nil {
			return nil, fmt.Errorf("row %d: bad passenger_id_num %q", i+1, r.Fields[1])
		}
		cost, err := strconv.ParseFloat(r.Fields[3], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: bad path_cost %q", i+1, r.Fields[3])
		}
		prob, err := strconv.ParseFloat(r.Fields[4], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: bad path_probability %q", i+1, r.Fields[4])
		}
		out = append(out, store.PathRow{
			Iteration:      r.Iteration,
			PassengerIDNum: passengerID,
			TripListIDNum:  r.TripListIDNum,
			Cost:           cost,
			Probability:    prob,
			BoardStops:     r.Fields[5],
			Trips:          r.Fields[6],
			AlightStops:    r.Fields[7],
		})
	}
	return out, nil
}

// readPerformance loads the run's performance report. A missing report is
// fine; not every run gets that far.
func readPerformance(path string) ([]store.PerfRow, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, nil
	}

	out := make([]store.PerfRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) != 6 {
			return nil, fmt.Errorf("performance row has %d columns, want 6", len(rec))
		}
		samples, err1 := strconv.ParseInt(rec[1], 10, 64)
		mean, err2 := strconv.ParseFloat(rec[2], 64)
		stddev, err3 := strconv.ParseFloat(rec[3], 64)
		total, err4 := strconv.ParseFloat(rec[4], 64)
		mem, err5 := strconv.ParseInt(rec[5], 10, 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
			return nil, fmt.Errorf("performance row for step %q has non-numeric values", rec[0])
		}
		out = append(out, store.PerfRow{
			Step:           rec[0],
			Samples:        samples,
			MeanSeconds:    mean,
			StdDevSeconds:  stddev,
			TotalSeconds:   total,
			MaxMemoryBytes: mem,
		})
	}
	return out, nil
}
