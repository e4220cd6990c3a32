// Package model builds the in-memory transit model an assignment run
// operates on.
//
// Construction order is fixed by the references between collections: routes
// and stops depend on nothing, transfers stand alone, trips resolve against
// stops and routes, zones resolve against stops, transfers and routes, and
// passengers resolve against stops and routes. Each stage receives exactly
// the collections built before it, and any unresolved reference aborts the
// whole build so no partial model escapes.
package model

import (
	"log"

	"github.com/bricegnichols/fast-trips/internal/config"
	"github.com/bricegnichols/fast-trips/internal/gtfs"
)

// Model is the complete set of entity collections for one run. Passengers
// is nil on models built by worker processes.
type Model struct {
	NetworkDir string
	DemandDir  string
	Config     *config.Run

	Routes     map[string]*Route
	Stops      map[string]*Stop
	Transfers  map[StopPair]*Transfer
	Trips      map[string]*Trip
	TAZs       map[string]*TAZ
	Passengers map[string]*Passenger
}

// Build constructs the full model for the primary process: it reads the run
// configuration, loads and validates the network feed, builds every network
// collection and then loads the demand.
func Build(networkDir, demandDir string) (*Model, error) {
	cfg, err := config.Read(networkDir, demandDir)
	if err != nil {
		return nil, err
	}
	return BuildWithConfig(networkDir, demandDir, cfg)
}

// BuildWithConfig is Build with an already-read configuration.
func BuildWithConfig(networkDir, demandDir string, cfg *config.Run) (*Model, error) {
	feed, err := gtfs.Load(networkDir)
	if err != nil {
		return nil, err
	}
	if err := gtfs.Validate(feed, cfg.ReferenceDate.Time); err != nil {
		return nil, err
	}

	m, err := buildNetwork(networkDir, feed, cfg)
	if err != nil {
		return nil, err
	}
	m.DemandDir = demandDir
	m.Passengers, err = loadPassengers(demandDir, m.Stops, m.Routes)
	if err != nil {
		return nil, err
	}
	log.Printf("Read %d passenger trip requests", len(m.Passengers))
	return m, nil
}

// BuildWorker constructs the network-only model for a worker process. It
// reads the same configuration as the primary but never opens the demand
// file and never validates the feed; the primary already accepted both.
func BuildWorker(networkDir, demandDir string) (*Model, error) {
	cfg, err := config.Read(networkDir, demandDir)
	if err != nil {
		return nil, err
	}
	feed, err := gtfs.Load(networkDir)
	if err != nil {
		return nil, err
	}
	return buildNetwork(networkDir, feed, cfg)
}

// buildNetwork runs the network stages in dependency order.
func buildNetwork(networkDir string, feed *gtfs.Feed, cfg *config.Run) (*Model, error) {
	m := &Model{NetworkDir: networkDir, Config: cfg}
	var err error

	if m.Routes, err = buildRoutes(feed); err != nil {
		return nil, err
	}
	log.Printf("Built %d routes", len(m.Routes))

	if m.Stops, err = buildStops(feed); err != nil {
		return nil, err
	}
	log.Printf("Built %d stops", len(m.Stops))

	if m.Transfers, err = buildTransfers(feed); err != nil {
		return nil, err
	}
	log.Printf("Built %d transfers", len(m.Transfers))

	if m.Trips, err = buildTrips(feed, m.Stops, m.Routes, cfg.PrependRouteToTrip); err != nil {
		return nil, err
	}
	log.Printf("Built %d trips", len(m.Trips))

	if m.TAZs, err = buildTAZs(networkDir, m.Stops, m.Transfers, m.Routes); err != nil {
		return nil, err
	}
	log.Printf("Built %d zones", len(m.TAZs))

	return m, nil
}
