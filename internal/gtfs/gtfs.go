// Package gtfs loads the transit network feed that a run is built from.
//
// A feed is a directory of CSV tables following GTFS naming: routes.txt,
// stops.txt, trips.txt and stop_times.txt are required, transfers.txt and
// calendar.txt are optional. Loading keeps rows close to their file form;
// cross-table identifier checks belong to the model builder, not here.
package gtfs

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"
)

// Feed holds the raw rows of one network directory.
type Feed struct {
	Dir string

	Routes    []Route
	Stops     []Stop
	Transfers []Transfer
	Trips     []Trip
	StopTimes []StopTime
	Services  []Service
}

type Route struct {
	RouteID   string
	AgencyID  string
	ShortName string
	LongName  string
	Type      int
}

type Stop struct {
	StopID string
	Code   string
	Name   string
	ZoneID string
	Lat    float64
	Lon    float64
}

type Transfer struct {
	FromStopID     string
	ToStopID       string
	Type           int
	MinTransferSec int
}

type Trip struct {
	TripID      string
	RouteID     string
	ServiceID   string
	Headsign    string
	DirectionID int
}

type StopTime struct {
	TripID       string
	StopID       string
	Seq          int
	ArrivalSec   int
	DepartureSec int
}

// Service is one calendar.txt row: a service id active on certain weekdays
// between two dates, both inclusive.
type Service struct {
	ServiceID string
	Weekdays  [7]bool // indexed by time.Weekday, Sunday first
	StartDate time.Time
	EndDate   time.Time
}

// ActiveOn reports whether the service runs on the given day.
func (s Service) ActiveOn(day time.Time) bool {
	if day.Before(s.StartDate) || day.After(s.EndDate) {
		return false
	}
	return s.Weekdays[int(day.Weekday())]
}

// Load reads all tables of the feed in dir. Missing required tables and
// malformed rows return a *FeedError; optional tables that are absent load
// as empty.
func Load(dir string) (*Feed, error) {
	f := &Feed{Dir: dir}
	steps := []func() error{
		f.loadRoutes,
		f.loadStops,
		f.loadTransfers,
		f.loadTrips,
		f.loadStopTimes,
		f.loadServices,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (f *Feed) loadRoutes() error {
	t, err := OpenTable(filepath.Join(f.Dir, "routes.txt"))
	if err != nil {
		return err
	}
	defer t.Close()
	if !t.RequireColumns("route_id") {
		return t.Err()
	}
	for t.Next() {
		r := Route{
			RouteID:   t.Field("route_id"),
			AgencyID:  t.Field("agency_id"),
			ShortName: t.Field("route_short_name"),
			LongName:  t.Field("route_long_name"),
			Type:      t.IntField("route_type", 3),
		}
		if r.RouteID == "" {
			return &FeedError{File: t.Name(), Line: t.Line(), Column: "route_id", Reason: "empty identifier"}
		}
		f.Routes = append(f.Routes, r)
	}
	return t.Err()
}

func (f *Feed) loadStops() error {
	t, err := OpenTable(filepath.Join(f.Dir, "stops.txt"))
	if err != nil {
		return err
	}
	defer t.Close()
	if !t.RequireColumns("stop_id") {
		return t.Err()
	}
	for t.Next() {
		s := Stop{
			StopID: t.Field("stop_id"),
			Code:   t.Field("stop_code"),
			Name:   t.Field("stop_name"),
			ZoneID: t.Field("zone_id"),
			Lat:    t.FloatField("stop_lat", 0),
			Lon:    t.FloatField("stop_lon", 0),
		}
		if s.StopID == "" {
			return &FeedError{File: t.Name(), Line: t.Line(), Column: "stop_id", Reason: "empty identifier"}
		}
		f.Stops = append(f.Stops, s)
	}
	return t.Err()
}

func (f *Feed) loadTransfers() error {
	t, err := OpenTable(filepath.Join(f.Dir, "transfers.txt"))
	if err != nil {
		if isMissing(err) {
			return nil
		}
		return err
	}
	defer t.Close()
	if !t.RequireColumns("from_stop_id", "to_stop_id") {
		return t.Err()
	}
	for t.Next() {
		tr := Transfer{
			FromStopID:     t.Field("from_stop_id"),
			ToStopID:       t.Field("to_stop_id"),
			Type:           t.IntField("transfer_type", 0),
			MinTransferSec: t.IntField("min_transfer_time", 0),
		}
		if tr.FromStopID == "" || tr.ToStopID == "" {
			return &FeedError{File: t.Name(), Line: t.Line(), Reason: "empty stop identifier"}
		}
		f.Transfers = append(f.Transfers, tr)
	}
	return t.Err()
}

func (f *Feed) loadTrips() error {
	t, err := OpenTable(filepath.Join(f.Dir, "trips.txt"))
	if err != nil {
		return err
	}
	defer t.Close()
	if !t.RequireColumns("trip_id", "route_id") {
		return t.Err()
	}
	for t.Next() {
		tr := Trip{
			TripID:      t.Field("trip_id"),
			RouteID:     t.Field("route_id"),
			ServiceID:   t.Field("service_id"),
			Headsign:    t.Field("trip_headsign"),
			DirectionID: t.IntField("direction_id", 0),
		}
		if tr.TripID == "" {
			return &FeedError{File: t.Name(), Line: t.Line(), Column: "trip_id", Reason: "empty identifier"}
		}
		f.Trips = append(f.Trips, tr)
	}
	return t.Err()
}

func (f *Feed) loadStopTimes() error {
	t, err := OpenTable(filepath.Join(f.Dir, "stop_times.txt"))
	if err != nil {
		return err
	}
	defer t.Close()
	if !t.RequireColumns("trip_id", "stop_id", "stop_sequence") {
		return t.Err()
	}
	for t.Next() {
		st := StopTime{
			TripID:       t.Field("trip_id"),
			StopID:       t.Field("stop_id"),
			Seq:          t.IntField("stop_sequence", -1),
			ArrivalSec:   t.TimeField("arrival_time"),
			DepartureSec: t.TimeField("departure_time"),
		}
		if t.Err() != nil {
			return t.Err()
		}
		if st.TripID == "" || st.StopID == "" {
			return &FeedError{File: t.Name(), Line: t.Line(), Reason: "empty identifier"}
		}
		if st.Seq < 0 {
			return &FeedError{File: t.Name(), Line: t.Line(), Column: "stop_sequence", Reason: "missing or negative"}
		}
		f.StopTimes = append(f.StopTimes, st)
	}
	return t.Err()
}

func (f *Feed) loadServices() error {
	t, err := OpenTable(filepath.Join(f.Dir, "calendar.txt"))
	if err != nil {
		if isMissing(err) {
			return nil
		}
		return err
	}
	defer t.Close()
	if !t.RequireColumns("service_id", "start_date", "end_date") {
		return t.Err()
	}
	days := []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}
	for t.Next() {
		s := Service{ServiceID: t.Field("service_id")}
		if s.ServiceID == "" {
			return &FeedError{File: t.Name(), Line: t.Line(), Column: "service_id", Reason: "empty identifier"}
		}
		for i, day := range days {
			s.Weekdays[i] = t.Field(day) == "1"
		}
		s.StartDate, err = parseDate(t, "start_date")
		if err != nil {
			return err
		}
		s.EndDate, err = parseDate(t, "end_date")
		if err != nil {
			return err
		}
		f.Services = append(f.Services, s)
	}
	return t.Err()
}

func parseDate(t *Table, column string) (time.Time, error) {
	v := t.Field(column)
	d, err := time.Parse("20060102", v)
	if err != nil {
		return time.Time{}, &FeedError{
			File: t.Name(), Line: t.Line(), Column: column,
			Reason: fmt.Sprintf("bad date %q: want YYYYMMDD", v),
		}
	}
	return d, nil
}

func isMissing(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
