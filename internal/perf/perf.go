// Package perf times the steps of an assignment run and writes the summary
// report.
package perf

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"
)

// ReportFile is the name of the summary written into the output directory.
const ReportFile = "performance.csv"

// Step is the accumulated timing of one named run step.
type Step struct {
	Name           string
	Stats          Welford
	Total          time.Duration
	MaxMemoryBytes uint64
}

// Recorder collects step timings for one run. Steps keep the order they
// were first started in. Safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	steps   map[string]*Step
	order   []string
	started map[string]time.Time
}

func NewRecorder() *Recorder {
	return &Recorder{
		steps:   make(map[string]*Step),
		started: make(map[string]time.Time),
	}
}

// Start marks the beginning of a step.
func (r *Recorder) Start(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started[name] = time.Now()
}

// End closes the step opened by Start and returns its duration. Ending a
// step that was never started records nothing.
func (r *Recorder) End(name string) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	begin, ok := r.started[name]
	if !ok {
		return 0
	}
	delete(r.started, name)
	d := time.Since(begin)
	r.observe(name, d)
	return d
}

// Observe records one already-measured duration for a step.
func (r *Recorder) Observe(name string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observe(name, d)
}

func (r *Recorder) observe(name string, d time.Duration) {
	s, ok := r.steps[name]
	if !ok {
		s = &Step{Name: name}
		r.steps[name] = s
		r.order = append(r.order, name)
	}
	s.Stats.Update(d.Seconds())
	s.Total += d

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	if ms.Sys > s.MaxMemoryBytes {
		s.MaxMemoryBytes = ms.Sys
	}
}

// Steps returns the recorded steps in first-start order.
func (r *Recorder) Steps() []Step {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Step, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, *r.steps[name])
	}
	return out
}

// Write renders the report into outputDir as CSV, one row per step.
func (r *Recorder) Write(outputDir string) error {
	f, err := os.Create(filepath.Join(outputDir, ReportFile))
	if err != nil {
		return fmt.Errorf("failed to create performance report: %w", err)
	}

	w := csv.NewWriter(f)
	w.Write([]string{"step", "samples", "mean_seconds", "stddev_seconds", "total_seconds", "max_memory_bytes"})
	for _, s := range r.Steps() {
		w.Write([]string{
			s.Name,
			strconv.FormatInt(s.Stats.Count, 10),
			strconv.FormatFloat(s.Stats.Mean, 'f', 6, 64),
			strconv.FormatFloat(s.Stats.StdDev(), 'f', 6, 64),
			strconv.FormatFloat(s.Total.Seconds(), 'f', 6, 64),
			strconv.FormatUint(s.MaxMemoryBytes, 10),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write performance report: %w", err)
	}
	return f.Close()
}
