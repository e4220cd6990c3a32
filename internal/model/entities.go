package model

import (
	"slices"

	"github.com/bricegnichols/fast-trips/internal/gtfs"
)

// Route is one transit line.
type Route struct {
	RouteID   string
	AgencyID  string
	ShortName string
	LongName  string
	Type      int
}

// Stop is one boarding or alighting location.
type Stop struct {
	StopID string
	Name   string
	ZoneID string
	Lat    float64
	Lon    float64
}

// StopPair keys a transfer by its endpoints.
type StopPair struct {
	From string
	To   string
}

// Transfer is a walk connection between two stops. Its endpoints are not
// resolved against the stop collection; feeds routinely carry transfers at
// stations the run never touches.
type Transfer struct {
	From           string
	To             string
	Type           int
	MinTransferSec int
}

// StopTime is one scheduled call of a trip at a stop. Times are seconds
// since midnight of the service day, -1 when the feed leaves them blank.
type StopTime struct {
	StopID       string
	Seq          int
	ArrivalSec   int
	DepartureSec int
}

// Trip is one scheduled vehicle run. TripID is the run-wide key, which is
// the feed's trip id prefixed with the route id when the run is configured
// to namespace trips by route.
type Trip struct {
	TripID       string
	SourceTripID string // trip id as it appears in the feed
	RouteID      string
	ServiceID    string
	DirectionID  int
	StopTimes    []StopTime // ordered by Seq
}

// buildRoutes is the first build stage; it depends on nothing.
func buildRoutes(feed *gtfs.Feed) (map[string]*Route, error) {
	routes := make(map[string]*Route, len(feed.Routes))
	for _, r := range feed.Routes {
		routes[r.RouteID] = &Route{
			RouteID:   r.RouteID,
			AgencyID:  r.AgencyID,
			ShortName: r.ShortName,
			LongName:  r.LongName,
			Type:      r.Type,
		}
	}
	return routes, nil
}

func buildStops(feed *gtfs.Feed) (map[string]*Stop, error) {
	stops := make(map[string]*Stop, len(feed.Stops))
	for _, s := range feed.Stops {
		stops[s.StopID] = &Stop{
			StopID: s.StopID,
			Name:   s.Name,
			ZoneID: s.ZoneID,
			Lat:    s.Lat,
			Lon:    s.Lon,
		}
	}
	return stops, nil
}

func buildTransfers(feed *gtfs.Feed) (map[StopPair]*Transfer, error) {
	transfers := make(map[StopPair]*Transfer, len(feed.Transfers))
	for _, tr := range feed.Transfers {
		key := StopPair{From: tr.FromStopID, To: tr.ToStopID}
		transfers[key] = &Transfer{
			From:           tr.FromStopID,
			To:             tr.ToStopID,
			Type:           tr.Type,
			MinTransferSec: tr.MinTransferSec,
		}
	}
	return transfers, nil
}

// buildTrips resolves every trip against the route collection and every stop
// time against the stop collection. Stop times are grouped per trip and
// ordered by sequence. When prependRoute is set the run-wide trip key
// becomes "<route_id>_<trip_id>"; stop times keep joining on the feed's id.
func buildTrips(feed *gtfs.Feed, stops map[string]*Stop, routes map[string]*Route, prependRoute bool) (map[string]*Trip, error) {
	bySource := make(map[string]*Trip, len(feed.Trips))
	trips := make(map[string]*Trip, len(feed.Trips))
	for _, t := range feed.Trips {
		if _, ok := routes[t.RouteID]; !ok {
			return nil, &IntegrityError{
				Entity: "trip", ID: t.TripID,
				Field: "route_id", Ref: t.RouteID, Collection: "routes",
			}
		}
		key := t.TripID
		if prependRoute {
			key = t.RouteID + "_" + t.TripID
		}
		trip := &Trip{
			TripID:       key,
			SourceTripID: t.TripID,
			RouteID:      t.RouteID,
			ServiceID:    t.ServiceID,
			DirectionID:  t.DirectionID,
		}
		bySource[t.TripID] = trip
		trips[key] = trip
	}

	for _, st := range feed.StopTimes {
		trip, ok := bySource[st.TripID]
		if !ok {
			return nil, &IntegrityError{
				Entity: "stop_time", ID: st.StopID,
				Field: "trip_id", Ref: st.TripID, Collection: "trips",
			}
		}
		if _, ok := stops[st.StopID]; !ok {
			return nil, &IntegrityError{
				Entity: "stop_time", ID: trip.SourceTripID,
				Field: "stop_id", Ref: st.StopID, Collection: "stops",
			}
		}
		trip.StopTimes = append(trip.StopTimes, StopTime{
			StopID:       st.StopID,
			Seq:          st.Seq,
			ArrivalSec:   st.ArrivalSec,
			DepartureSec: st.DepartureSec,
		})
	}
	for _, trip := range trips {
		slices.SortFunc(trip.StopTimes, func(a, b StopTime) int { return a.Seq - b.Seq })
	}
	return trips, nil
}
