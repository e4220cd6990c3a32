package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bricegnichols/fast-trips/internal/assign"
	"github.com/bricegnichols/fast-trips/internal/config"
	"github.com/bricegnichols/fast-trips/internal/logging"
	"github.com/bricegnichols/fast-trips/internal/run"
)

func main() {
	godotenv.Load()

	var (
		networkDir = flag.String("network", "", "network directory (GTFS tables, zones.txt, access_links.txt)")
		demandDir  = flag.String("demand", "", "demand directory (trip_list.txt)")
		outputDir  = flag.String("output", "output", "output directory for pathsets, logs and the performance report")
		appendLogs = flag.Bool("append-logs", false, "extend existing pathset and log files instead of replacing them")
		workers    = flag.Int("workers", -1, "override the configured worker count")
	)
	flag.Parse()

	if *networkDir == "" || *demandDir == "" {
		flag.Usage()
		os.Exit(2)
	}

	log.Println("═══════════════════════════════════════════")
	log.Println("  Fast-Trips Assignment Runner")
	log.Println("═══════════════════════════════════════════")

	cfg, err := config.Read(*networkDir, *demandDir)
	if err != nil {
		log.Fatalf("Failed to read run configuration: %v", err)
	}
	if *workers >= 0 {
		cfg.Workers = *workers
	}
	log.Printf("Reference date %s, %d iterations, %d workers",
		cfg.ReferenceDate.Format("2006-01-02"), cfg.Iterations, cfg.Workers)

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}
	runLog, err := logging.Open(*outputDir, "", *appendLogs, true)
	if err != nil {
		log.Fatalf("Failed to open run logs: %v", err)
	}
	defer runLog.Close()
	log.SetOutput(runLog.Writer())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine := &assign.ExternalEngine{
		Command: cfg.Engine.Command,
		Workers: cfg.Workers,
	}
	ctrl := run.New(cfg, *networkDir, *demandDir, engine)
	ctrl.AppendLogs = *appendLogs

	start := time.Now()
	if err := ctrl.Run(ctx, *outputDir); err != nil {
		log.Printf("Run failed in state %s: %v", ctrl.State(), err)
		runLog.Close()
		os.Exit(1)
	}

	stats := ctrl.CombineStats()
	log.Printf("Completed in %s: %d pathset rows from %d worker files",
		time.Since(start).Round(time.Millisecond), stats.RowsMerged, stats.FilesMerged)
	if len(stats.Orphans) > 0 {
		log.Printf("WARNING: %d worker files were left unmerged", len(stats.Orphans))
	}
}
