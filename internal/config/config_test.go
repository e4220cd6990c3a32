package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeYAML(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", FileName, err)
	}
}

func TestReadNetworkOnly(t *testing.T) {
	net := t.TempDir()
	demand := t.TempDir()
	writeYAML(t, net, `
reference_date: 2016-03-07
prepend_route_to_trip: true
iterations: 2
workers: 3
engine:
  command: ["ft-worker", "--quiet"]
  time_window_min: 45
`)

	cfg, err := Read(net, demand)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got := cfg.ReferenceDate.Format("2006-01-02"); got != "2016-03-07" {
		t.Errorf("ReferenceDate = %s, want 2016-03-07", got)
	}
	if !cfg.PrependRouteToTrip {
		t.Error("PrependRouteToTrip = false, want true")
	}
	if cfg.Iterations != 2 {
		t.Errorf("Iterations = %d, want 2", cfg.Iterations)
	}
	if cfg.Workers != 3 {
		t.Errorf("Workers = %d, want 3", cfg.Workers)
	}
	if len(cfg.Engine.Command) != 2 || cfg.Engine.Command[0] != "ft-worker" {
		t.Errorf("Engine.Command = %v, want [ft-worker --quiet]", cfg.Engine.Command)
	}
	if cfg.Engine.TimeWindowMin != 45 {
		t.Errorf("Engine.TimeWindowMin = %v, want 45", cfg.Engine.TimeWindowMin)
	}
}

func TestReadDemandOverridesNetwork(t *testing.T) {
	net := t.TempDir()
	demand := t.TempDir()
	writeYAML(t, net, `
reference_date: 2016-03-07
iterations: 1
workers: 4
`)
	writeYAML(t, demand, `
iterations: 3
`)

	cfg, err := Read(net, demand)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if cfg.Iterations != 3 {
		t.Errorf("Iterations = %d, want demand override 3", cfg.Iterations)
	}
	if cfg.Workers != 4 {
		t.Errorf("Workers = %d, want network value 4 to survive overlay", cfg.Workers)
	}
	if got := cfg.ReferenceDate.Format("2006-01-02"); got != "2016-03-07" {
		t.Errorf("ReferenceDate = %s, want network value to survive overlay", got)
	}
}

func TestReadDefaults(t *testing.T) {
	net := t.TempDir()
	writeYAML(t, net, `reference_date: 2016-03-07`)

	cfg, err := Read(net, t.TempDir())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if cfg.Iterations != 1 {
		t.Errorf("Iterations default = %d, want 1", cfg.Iterations)
	}
	if cfg.Workers != 0 {
		t.Errorf("Workers default = %d, want 0", cfg.Workers)
	}
	if cfg.Engine.PathsetSize != 100 {
		t.Errorf("Engine.PathsetSize default = %d, want 100", cfg.Engine.PathsetSize)
	}
	if cfg.Engine.Dispersion != 1.0 {
		t.Errorf("Engine.Dispersion default = %v, want 1.0", cfg.Engine.Dispersion)
	}
}

func TestReadNoFileAnywhere(t *testing.T) {
	_, err := Read(t.TempDir(), t.TempDir())
	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("Read with no config = %v, want *config.Error", err)
	}
}

func TestReadMissingReferenceDate(t *testing.T) {
	net := t.TempDir()
	writeYAML(t, net, `iterations: 2`)

	_, err := Read(net, t.TempDir())
	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("Read without reference_date = %v, want *config.Error", err)
	}
	if cerr.Key != "reference_date" {
		t.Errorf("Error.Key = %q, want reference_date", cerr.Key)
	}
}

func TestReadBadDate(t *testing.T) {
	net := t.TempDir()
	writeYAML(t, net, `reference_date: 03/07/2016`)

	if _, err := Read(net, t.TempDir()); err == nil {
		t.Fatal("Read with malformed date succeeded, want error")
	}
}

func TestReadNegativeWorkers(t *testing.T) {
	net := t.TempDir()
	writeYAML(t, net, "reference_date: 2016-03-07\nworkers: -1\n")

	_, err := Read(net, t.TempDir())
	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("Read with workers=-1 = %v, want *config.Error", err)
	}
	if cerr.Key != "workers" {
		t.Errorf("Error.Key = %q, want workers", cerr.Key)
	}
}

func TestEnvOr(t *testing.T) {
	t.Setenv("FT_TEST_KEY", "set")
	if got := EnvOr("FT_TEST_KEY", "fallback"); got != "set" {
		t.Errorf("EnvOr = %q, want set", got)
	}
	if got := EnvOr("FT_TEST_KEY_UNSET", "fallback"); got != "fallback" {
		t.Errorf("EnvOr = %q, want fallback", got)
	}

	t.Setenv("FT_TEST_INT", "42")
	if got := EnvIntOr("FT_TEST_INT", 7); got != 42 {
		t.Errorf("EnvIntOr = %d, want 42", got)
	}
	t.Setenv("FT_TEST_INT", "nope")
	if got := EnvIntOr("FT_TEST_INT", 7); got != 7 {
		t.Errorf("EnvIntOr with garbage = %d, want fallback 7", got)
	}
}
