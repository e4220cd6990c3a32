package perf

import (
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWelfordMeanAndStdDev(t *testing.T) {
	w := &Welford{}
	for _, v := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		w.Update(v)
	}
	if w.Count != 8 {
		t.Errorf("Count = %d, want 8", w.Count)
	}
	if math.Abs(w.Mean-5.0) > 1e-9 {
		t.Errorf("Mean = %v, want 5.0", w.Mean)
	}
	if math.Abs(w.StdDev()-2.0) > 1e-9 {
		t.Errorf("StdDev = %v, want 2.0", w.StdDev())
	}
}

func TestWelfordSingleSample(t *testing.T) {
	w := &Welford{}
	w.Update(3.5)
	if w.StdDev() != 0 {
		t.Errorf("StdDev with one sample = %v, want 0", w.StdDev())
	}
	if w.Mean != 3.5 {
		t.Errorf("Mean = %v, want 3.5", w.Mean)
	}
}

func TestRecorderObserve(t *testing.T) {
	r := NewRecorder()
	r.Observe("read_network", 2*time.Second)
	r.Observe("assignment", 10*time.Second)
	r.Observe("read_network", 4*time.Second)

	steps := r.Steps()
	if len(steps) != 2 {
		t.Fatalf("got %d steps, want 2", len(steps))
	}
	if steps[0].Name != "read_network" || steps[1].Name != "assignment" {
		t.Errorf("step order = %q, %q; want first-start order", steps[0].Name, steps[1].Name)
	}
	if steps[0].Stats.Count != 2 {
		t.Errorf("read_network samples = %d, want 2", steps[0].Stats.Count)
	}
	if steps[0].Total != 6*time.Second {
		t.Errorf("read_network total = %v, want 6s", steps[0].Total)
	}
	if math.Abs(steps[0].Stats.Mean-3.0) > 1e-9 {
		t.Errorf("read_network mean = %v, want 3.0", steps[0].Stats.Mean)
	}
}

func TestRecorderStartEnd(t *testing.T) {
	r := NewRecorder()
	r.Start("combine")
	time.Sleep(10 * time.Millisecond)
	d := r.End("combine")
	if d < 10*time.Millisecond {
		t.Errorf("End returned %v, want at least 10ms", d)
	}

	steps := r.Steps()
	if len(steps) != 1 || steps[0].Stats.Count != 1 {
		t.Fatalf("steps = %+v, want one step with one sample", steps)
	}
	if steps[0].MaxMemoryBytes == 0 {
		t.Error("MaxMemoryBytes = 0, want a live reading")
	}
}

func TestRecorderEndWithoutStart(t *testing.T) {
	r := NewRecorder()
	if d := r.End("never_started"); d != 0 {
		t.Errorf("End without Start = %v, want 0", d)
	}
	if len(r.Steps()) != 0 {
		t.Error("End without Start must not record a step")
	}
}

func TestRecorderWrite(t *testing.T) {
	dir := t.TempDir()
	r := NewRecorder()
	r.Observe("read_network", 2*time.Second)
	r.Observe("assignment", 8*time.Second)

	if err := r.Write(dir); err != nil {
		t.Fatalf("Write: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, ReportFile))
	if err != nil {
		t.Fatalf("opening report: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("report has %d rows, want header plus 2", len(records))
	}
	if records[0][0] != "step" || records[0][5] != "max_memory_bytes" {
		t.Errorf("header = %v", records[0])
	}
	if records[1][0] != "read_network" || records[1][1] != "1" {
		t.Errorf("first row = %v", records[1])
	}
	if records[2][4] != "8.000000" {
		t.Errorf("assignment total_seconds = %q, want 8.000000", records[2][4])
	}
}
