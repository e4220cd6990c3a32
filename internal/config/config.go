// Package config reads the run configuration that governs an assignment run.
//
// Configuration lives in a run.yaml file. The network directory holds the
// base file and the demand directory may hold a second file whose keys
// override the base. Both files are optional individually but at least one
// must exist, and a reference date must be set somewhere.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in the network and demand
// directories.
const FileName = "run.yaml"

// Run is the global configuration for one assignment run. It is read once,
// before any network entity is built.
type Run struct {
	// ReferenceDate anchors all service-day arithmetic. Required.
	ReferenceDate Date `yaml:"reference_date"`

	// PrependRouteToTrip namespaces trip identifiers with their route
	// identifier when trip ids are only unique within a route.
	PrependRouteToTrip bool `yaml:"prepend_route_to_trip"`

	// Iterations is the number of assignment iterations the engine runs.
	Iterations int `yaml:"iterations"`

	// Workers is the number of pathfinding worker processes.
	Workers int `yaml:"workers"`

	Engine Engine `yaml:"engine"`
}

// Engine configures the external pathfinding engine.
type Engine struct {
	// Command is the argv of the worker process. Empty means no external
	// engine is launched.
	Command []string `yaml:"command"`

	TimeWindowMin       float64 `yaml:"time_window_min"`
	PathsetSize         int     `yaml:"pathset_size"`
	Dispersion          float64 `yaml:"dispersion"`
	MaxStopProcessCount int     `yaml:"max_stop_process_count"`
}

// Date is a calendar day in YYYY-MM-DD form.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	d.Time = t
	return nil
}

// Error reports a missing or invalid run configuration.
type Error struct {
	Path   string // file the error was found in, empty if none applies
	Key    string // configuration key, empty if the whole file is bad
	Reason string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Path != "" && e.Key != "":
		return fmt.Sprintf("config %s: key %q: %s", e.Path, e.Key, e.Reason)
	case e.Path != "":
		return fmt.Sprintf("config %s: %s", e.Path, e.Reason)
	default:
		return fmt.Sprintf("config: %s", e.Reason)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Read loads run.yaml from the network directory and overlays it with
// run.yaml from the demand directory if one exists there. Keys absent from
// the demand file keep their network-file values.
func Read(networkDir, demandDir string) (*Run, error) {
	cfg := &Run{
		Iterations: 1,
		Engine: Engine{
			TimeWindowMin:       30,
			PathsetSize:         100,
			Dispersion:          1.0,
			MaxStopProcessCount: 20,
		},
	}

	found := 0
	for _, dir := range []string{networkDir, demandDir} {
		if dir == "" {
			continue
		}
		path := filepath.Join(dir, FileName)
		ok, err := readFile(path, cfg)
		if err != nil {
			return nil, err
		}
		if ok {
			found++
		}
	}
	if found == 0 {
		return nil, &Error{Reason: fmt.Sprintf("no %s found in network or demand directory", FileName)}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readFile(path string, cfg *Run) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, &Error{Path: path, Reason: "cannot read file", Err: err}
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return false, &Error{Path: path, Reason: err.Error(), Err: err}
	}
	return true, nil
}

func (c *Run) validate() error {
	if c.ReferenceDate.IsZero() {
		return &Error{Key: "reference_date", Reason: "required but not set"}
	}
	if c.Iterations < 1 {
		return &Error{Key: "iterations", Reason: fmt.Sprintf("must be >= 1, got %d", c.Iterations)}
	}
	if c.Workers < 0 {
		return &Error{Key: "workers", Reason: fmt.Sprintf("must be >= 0, got %d", c.Workers)}
	}
	return nil
}

// EnvOr returns the value of the environment variable key, or fallback if
// it is unset or empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// EnvIntOr returns the integer value of the environment variable key, or
// fallback if it is unset or not an integer.
func EnvIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
