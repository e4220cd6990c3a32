package gtfs

import (
	"fmt"
	"time"
)

// Validate checks feed well-formedness beyond what loading enforces:
// identifier uniqueness, usable trip stop patterns, and that at least one
// service is active on the reference date. Only the primary process
// validates; workers trust the feed the primary already accepted.
func Validate(f *Feed, referenceDate time.Time) error {
	if err := uniqueIDs("routes.txt", "route_id", routeIDs(f)); err != nil {
		return err
	}
	if err := uniqueIDs("stops.txt", "stop_id", stopIDs(f)); err != nil {
		return err
	}
	if err := uniqueIDs("trips.txt", "trip_id", tripIDs(f)); err != nil {
		return err
	}

	stopsPerTrip := make(map[string]int, len(f.Trips))
	seqSeen := make(map[string]map[int]bool)
	for _, st := range f.StopTimes {
		stopsPerTrip[st.TripID]++
		seen := seqSeen[st.TripID]
		if seen == nil {
			seen = make(map[int]bool)
			seqSeen[st.TripID] = seen
		}
		if seen[st.Seq] {
			return &FeedError{
				File: "stop_times.txt", Column: "stop_sequence",
				Reason: fmt.Sprintf("trip %q repeats sequence %d", st.TripID, st.Seq),
			}
		}
		seen[st.Seq] = true
		if st.ArrivalSec >= 0 && st.DepartureSec >= 0 && st.DepartureSec < st.ArrivalSec {
			return &FeedError{
				File: "stop_times.txt",
				Reason: fmt.Sprintf("trip %q departs stop %q before arriving", st.TripID, st.StopID),
			}
		}
	}
	for _, tr := range f.Trips {
		if stopsPerTrip[tr.TripID] < 2 {
			return &FeedError{
				File:   "stop_times.txt",
				Reason: fmt.Sprintf("trip %q serves %d stops, want at least 2", tr.TripID, stopsPerTrip[tr.TripID]),
			}
		}
	}

	if len(f.Services) > 0 {
		active := 0
		for _, s := range f.Services {
			if s.ActiveOn(referenceDate) {
				active++
			}
		}
		if active == 0 {
			return &FeedError{
				File:   "calendar.txt",
				Reason: fmt.Sprintf("no service active on reference date %s", referenceDate.Format("2006-01-02")),
			}
		}
	}
	return nil
}

func uniqueIDs(file, column string, ids []string) error {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return &FeedError{File: file, Column: column, Reason: fmt.Sprintf("duplicate identifier %q", id)}
		}
		seen[id] = true
	}
	return nil
}

func routeIDs(f *Feed) []string {
	ids := make([]string, len(f.Routes))
	for i, r := range f.Routes {
		ids[i] = r.RouteID
	}
	return ids
}

func stopIDs(f *Feed) []string {
	ids := make([]string, len(f.Stops))
	for i, s := range f.Stops {
		ids[i] = s.StopID
	}
	return ids
}

func tripIDs(f *Feed) []string {
	ids := make([]string, len(f.Trips))
	for i, t := range f.Trips {
		ids[i] = t.TripID
	}
	return ids
}
