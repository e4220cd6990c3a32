package model

import (
	"fmt"
	"path/filepath"

	"github.com/bricegnichols/fast-trips/internal/gtfs"
)

// Passenger is one trip request from the demand file. PathID is the
// "<person_id>_<trip_list_id_num>" key used to label computed paths; IDNum
// is the 1-based position of the request in the file, which is how result
// rows refer back to it.
type Passenger struct {
	PathID        string
	PersonID      string
	IDNum         int
	TripListIDNum int
	OriginStopID  string
	DestStopID    string
	TimeTarget    string // "departure" or "arrival"
	PreferredSec  int    // seconds since midnight
	RouteID       string // restricts the request to one route when set
}

// loadPassengers is the final build stage, run by the primary process only.
// It reads trip_list.txt from the demand directory and resolves each request
// against the stop and route collections.
func loadPassengers(demandDir string, stops map[string]*Stop, routes map[string]*Route) (map[string]*Passenger, error) {
	t, err := gtfs.OpenTable(filepath.Join(demandDir, "trip_list.txt"))
	if err != nil {
		return nil, err
	}
	defer t.Close()
	if !t.RequireColumns("person_id", "trip_list_id_num", "origin_stop_id", "destination_stop_id", "time_target", "preferred_time") {
		return nil, t.Err()
	}

	passengers := make(map[string]*Passenger)
	seenNum := make(map[int]bool)
	idNum := 0
	for t.Next() {
		idNum++
		p := &Passenger{
			PersonID:      t.Field("person_id"),
			IDNum:         idNum,
			TripListIDNum: t.IntField("trip_list_id_num", -1),
			OriginStopID:  t.Field("origin_stop_id"),
			DestStopID:    t.Field("destination_stop_id"),
			TimeTarget:    t.Field("time_target"),
			PreferredSec:  t.TimeField("preferred_time"),
			RouteID:       t.Field("route_id"),
		}
		if t.Err() != nil {
			return nil, t.Err()
		}
		if p.PersonID == "" {
			return nil, &gtfs.FeedError{File: t.Name(), Line: t.Line(), Column: "person_id", Reason: "empty identifier"}
		}
		if p.TripListIDNum < 0 {
			return nil, &gtfs.FeedError{File: t.Name(), Line: t.Line(), Column: "trip_list_id_num", Reason: "missing or negative"}
		}
		if seenNum[p.TripListIDNum] {
			return nil, &gtfs.FeedError{
				File: t.Name(), Line: t.Line(), Column: "trip_list_id_num",
				Reason: fmt.Sprintf("duplicate value %d", p.TripListIDNum),
			}
		}
		seenNum[p.TripListIDNum] = true
		if p.TimeTarget != "departure" && p.TimeTarget != "arrival" {
			return nil, &gtfs.FeedError{
				File: t.Name(), Line: t.Line(), Column: "time_target",
				Reason: fmt.Sprintf("unknown value %q: want departure or arrival", p.TimeTarget),
			}
		}

		if _, ok := stops[p.OriginStopID]; !ok {
			return nil, &IntegrityError{
				Entity: "passenger", ID: p.PersonID,
				Field: "origin_stop_id", Ref: p.OriginStopID, Collection: "stops",
			}
		}
		if _, ok := stops[p.DestStopID]; !ok {
			return nil, &IntegrityError{
				Entity: "passenger", ID: p.PersonID,
				Field: "destination_stop_id", Ref: p.DestStopID, Collection: "stops",
			}
		}
		if p.RouteID != "" {
			if _, ok := routes[p.RouteID]; !ok {
				return nil, &IntegrityError{
					Entity: "passenger", ID: p.PersonID,
					Field: "route_id", Ref: p.RouteID, Collection: "routes",
				}
			}
		}

		p.PathID = fmt.Sprintf("%s_%d", p.PersonID, p.TripListIDNum)
		passengers[p.PathID] = p
	}
	return passengers, t.Err()
}
