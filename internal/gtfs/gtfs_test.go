package gtfs

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeFeed lays out a feed directory from file name to CSV content.
func writeFeed(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
	return dir
}

func minimalFeed() map[string]string {
	return map[string]string{
		"routes.txt": "route_id,agency_id,route_short_name,route_long_name,route_type\n" +
			"B1,MTA,B1,Broadway Local,3\n" +
			"G2,MTA,G2,Green Express,3\n",
		"stops.txt": "stop_id,stop_name,stop_lat,stop_lon,zone_id\n" +
			"S1,First St,47.60,-122.33,Z1\n" +
			"S2,Second St,47.61,-122.34,Z1\n" +
			"S3,Third St,47.62,-122.35,Z2\n",
		"transfers.txt": "from_stop_id,to_stop_id,transfer_type,min_transfer_time\n" +
			"S1,S2,2,120\n",
		"trips.txt": "trip_id,route_id,service_id,direction_id\n" +
			"T1,B1,WKDY,0\n" +
			"T2,G2,WKDY,1\n",
		"stop_times.txt": "trip_id,arrival_time,departure_time,stop_id,stop_sequence\n" +
			"T1,08:00:00,08:00:30,S1,1\n" +
			"T1,08:10:00,08:10:30,S2,2\n" +
			"T2,25:00:00,25:01:00,S2,1\n" +
			"T2,25:30:00,25:30:00,S3,2\n",
		"calendar.txt": "service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date\n" +
			"WKDY,1,1,1,1,1,0,0,20160101,20161231\n",
	}
}

func TestLoadFullFeed(t *testing.T) {
	dir := writeFeed(t, minimalFeed())
	f, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(f.Routes) != 2 || len(f.Stops) != 3 || len(f.Trips) != 2 {
		t.Fatalf("loaded %d routes, %d stops, %d trips; want 2, 3, 2",
			len(f.Routes), len(f.Stops), len(f.Trips))
	}
	if len(f.Transfers) != 1 || f.Transfers[0].MinTransferSec != 120 {
		t.Errorf("Transfers = %+v, want one with MinTransferSec=120", f.Transfers)
	}
	if len(f.StopTimes) != 4 {
		t.Fatalf("loaded %d stop times, want 4", len(f.StopTimes))
	}
	// 25:00:00 is a next-day time and must parse past 24 hours.
	if got := f.StopTimes[2].ArrivalSec; got != 25*3600 {
		t.Errorf("ArrivalSec = %d, want %d", got, 25*3600)
	}
	if f.Stops[0].Lat != 47.60 {
		t.Errorf("Lat = %v, want 47.60", f.Stops[0].Lat)
	}
}

func TestLoadMissingRequiredFile(t *testing.T) {
	files := minimalFeed()
	delete(files, "stop_times.txt")
	dir := writeFeed(t, files)

	_, err := Load(dir)
	var ferr *FeedError
	if !errors.As(err, &ferr) {
		t.Fatalf("Load = %v, want *FeedError", err)
	}
	if ferr.File != "stop_times.txt" {
		t.Errorf("FeedError.File = %q, want stop_times.txt", ferr.File)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Error("missing file error should wrap fs.ErrNotExist")
	}
}

func TestLoadOptionalFilesAbsent(t *testing.T) {
	files := minimalFeed()
	delete(files, "transfers.txt")
	delete(files, "calendar.txt")
	dir := writeFeed(t, files)

	f, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(f.Transfers) != 0 || len(f.Services) != 0 {
		t.Errorf("optional tables should load empty, got %d transfers, %d services",
			len(f.Transfers), len(f.Services))
	}
}

func TestLoadEmptyIdentifier(t *testing.T) {
	files := minimalFeed()
	files["routes.txt"] = "route_id,route_type\nB1,3\n,3\n"
	dir := writeFeed(t, files)

	_, err := Load(dir)
	var ferr *FeedError
	if !errors.As(err, &ferr) {
		t.Fatalf("Load = %v, want *FeedError", err)
	}
	if ferr.Line != 3 || ferr.Column != "route_id" {
		t.Errorf("FeedError at %s:%d column %q, want routes.txt:3 column route_id",
			ferr.File, ferr.Line, ferr.Column)
	}
}

func TestLoadBadTime(t *testing.T) {
	files := minimalFeed()
	files["stop_times.txt"] = "trip_id,arrival_time,departure_time,stop_id,stop_sequence\n" +
		"T1,8am,08:00:30,S1,1\n"
	dir := writeFeed(t, files)

	_, err := Load(dir)
	var ferr *FeedError
	if !errors.As(err, &ferr) {
		t.Fatalf("Load = %v, want *FeedError", err)
	}
	if ferr.Column != "arrival_time" {
		t.Errorf("FeedError.Column = %q, want arrival_time", ferr.Column)
	}
}

func TestParseClock(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"00:00:00", 0, true},
		{"08:30:15", 8*3600 + 30*60 + 15, true},
		{"25:01:00", 25*3600 + 60, true},
		{"08:30", 0, false},
		{"08:61:00", 0, false},
		{"-1:00:00", 0, false},
	}
	for _, c := range cases {
		got, err := parseClock(c.in)
		if c.ok && (err != nil || got != c.want) {
			t.Errorf("parseClock(%q) = %d, %v; want %d", c.in, got, err, c.want)
		}
		if !c.ok && err == nil {
			t.Errorf("parseClock(%q) succeeded, want error", c.in)
		}
	}
}

func TestValidateAcceptsGoodFeed(t *testing.T) {
	dir := writeFeed(t, minimalFeed())
	f, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	// 2016-03-07 is a Monday inside the service window.
	day := time.Date(2016, 3, 7, 0, 0, 0, 0, time.UTC)
	if err := Validate(f, day); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateDuplicateStopID(t *testing.T) {
	files := minimalFeed()
	files["stops.txt"] = "stop_id,stop_name\nS1,First\nS1,First again\n"
	dir := writeFeed(t, files)
	f, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	err = Validate(f, time.Date(2016, 3, 7, 0, 0, 0, 0, time.UTC))
	var ferr *FeedError
	if !errors.As(err, &ferr) {
		t.Fatalf("Validate = %v, want *FeedError", err)
	}
	if ferr.File != "stops.txt" {
		t.Errorf("FeedError.File = %q, want stops.txt", ferr.File)
	}
}

func TestValidateTripWithOneStop(t *testing.T) {
	files := minimalFeed()
	files["stop_times.txt"] = "trip_id,arrival_time,departure_time,stop_id,stop_sequence\n" +
		"T1,08:00:00,08:00:30,S1,1\n" +
		"T1,08:10:00,08:10:30,S2,2\n" +
		"T2,09:00:00,09:00:00,S2,1\n"
	dir := writeFeed(t, files)
	f, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := Validate(f, time.Date(2016, 3, 7, 0, 0, 0, 0, time.UTC)); err == nil {
		t.Fatal("Validate accepted a trip serving one stop")
	}
}

func TestValidateNoServiceOnReferenceDate(t *testing.T) {
	dir := writeFeed(t, minimalFeed())
	f, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// A Saturday: the WKDY service does not run.
	day := time.Date(2016, 3, 5, 0, 0, 0, 0, time.UTC)
	err = Validate(f, day)
	var ferr *FeedError
	if !errors.As(err, &ferr) {
		t.Fatalf("Validate = %v, want *FeedError", err)
	}
	if ferr.File != "calendar.txt" {
		t.Errorf("FeedError.File = %q, want calendar.txt", ferr.File)
	}
}

func TestTableAbsentColumn(t *testing.T) {
	dir := writeFeed(t, map[string]string{"small.txt": "a,b\n1,2\n"})
	tab, err := OpenTable(filepath.Join(dir, "small.txt"))
	if err != nil {
		t.Fatalf("OpenTable: %v", err)
	}
	defer tab.Close()

	if !tab.Next() {
		t.Fatalf("Next = false, err %v", tab.Err())
	}
	if got := tab.Field("c"); got != "" {
		t.Errorf("Field(absent) = %q, want empty", got)
	}
	if tab.HasColumn("c") {
		t.Error("HasColumn(absent) = true")
	}
}
