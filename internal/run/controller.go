// Package run sequences one complete assignment run: build the model, drive
// the engine, merge the pathset files, write the performance report.
package run

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/bricegnichols/fast-trips/internal/assign"
	"github.com/bricegnichols/fast-trips/internal/config"
	"github.com/bricegnichols/fast-trips/internal/model"
	"github.com/bricegnichols/fast-trips/internal/pathset"
	"github.com/bricegnichols/fast-trips/internal/perf"
)

// State tracks how far a run has progressed. Any step failing moves the
// controller to Failed and no later step runs.
type State int

const (
	NotStarted State = iota
	ModelBuilt
	AssignmentRunning
	PathsetsCombined
	PerformanceWritten
	Failed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case ModelBuilt:
		return "model_built"
	case AssignmentRunning:
		return "assignment_running"
	case PathsetsCombined:
		return "pathsets_combined"
	case PerformanceWritten:
		return "performance_written"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Controller owns one run from start to finish. It is not reusable; build a
// new one per run.
type Controller struct {
	// AppendLogs keeps existing pathset rows so a new run extends the
	// previous one instead of replacing it.
	AppendLogs bool

	cfg        *config.Run
	networkDir string
	demandDir  string
	engine     assign.Engine

	state    State
	model    *model.Model
	recorder *perf.Recorder
	combined *pathset.CombineStats
}

func New(cfg *config.Run, networkDir, demandDir string, engine assign.Engine) *Controller {
	return &Controller{
		cfg:        cfg,
		networkDir: networkDir,
		demandDir:  demandDir,
		engine:     engine,
		state:      NotStarted,
	}
}

func (c *Controller) State() State { return c.state }

// Model returns the built model, nil before the build step finishes.
func (c *Controller) Model() *model.Model { return c.model }

// CombineStats reports the merge outcome, nil before the combine step.
func (c *Controller) CombineStats() *pathset.CombineStats { return c.combined }

// Run executes the full sequence into outputDir, creating it if needed.
// The first failing step aborts the run and everything a later step would
// have produced is simply absent.
func (c *Controller) Run(ctx context.Context, outputDir string) error {
	c.recorder = perf.NewRecorder()

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return c.fail(fmt.Errorf("failed to create output directory: %w", err))
	}
	if err := pathset.Initialize(outputDir, "", c.AppendLogs); err != nil {
		return c.fail(err)
	}

	c.recorder.Start("build_model")
	m, err := model.BuildWithConfig(c.networkDir, c.demandDir, c.cfg)
	if err != nil {
		return c.fail(err)
	}
	c.recorder.End("build_model")
	c.model = m
	c.state = ModelBuilt

	c.state = AssignmentRunning
	c.recorder.Start("assignment")
	if err := c.engine.Run(ctx, outputDir, m); err != nil {
		return c.fail(fmt.Errorf("assignment failed: %w", err))
	}
	c.recorder.End("assignment")

	c.recorder.Start("combine_pathsets")
	stats, err := pathset.Combine(outputDir)
	if err != nil {
		return c.fail(err)
	}
	c.recorder.End("combine_pathsets")
	c.combined = stats
	c.state = PathsetsCombined

	if err := c.recorder.Write(outputDir); err != nil {
		return c.fail(err)
	}
	c.state = PerformanceWritten

	log.Printf("Run finished: %d pathset rows from %d workers", stats.RowsMerged, stats.FilesMerged)
	return nil
}

func (c *Controller) fail(err error) error {
	c.state = Failed
	return err
}
