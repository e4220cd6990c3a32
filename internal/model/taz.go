package model

import (
	"fmt"
	"path/filepath"

	"github.com/bricegnichols/fast-trips/internal/gtfs"
)

// TAZ is a traffic analysis zone: the demand-side origin and destination
// unit, connected to the network through access links.
type TAZ struct {
	TAZID string
	Name  string
	Links []AccessLink
}

// AccessLink connects a zone to a stop. Derived links are walk links
// extended over a stop-to-stop transfer and do not appear in the input file.
type AccessLink struct {
	StopID  string
	Mode    string // "walk" or "drive"
	TimeMin float64
	DistM   float64
	RouteID string // restricts the link to one route when set
	Derived bool
}

// buildTAZs is the fifth build stage. It reads zones.txt and
// access_links.txt from the network directory and resolves every link
// against the stop, transfer and route collections built before it. Each
// walk access link is additionally extended across outgoing transfers so a
// zone can reach every stop one transfer away from its entry stop.
func buildTAZs(networkDir string, stops map[string]*Stop, transfers map[StopPair]*Transfer, routes map[string]*Route) (map[string]*TAZ, error) {
	tazs, err := loadZones(networkDir)
	if err != nil {
		return nil, err
	}
	if err := loadAccessLinks(networkDir, tazs, stops, routes); err != nil {
		return nil, err
	}

	byFrom := make(map[string][]*Transfer, len(transfers))
	for _, tr := range transfers {
		byFrom[tr.From] = append(byFrom[tr.From], tr)
	}
	for _, taz := range tazs {
		taz.Links = append(taz.Links, deriveLinks(taz.Links, byFrom)...)
	}
	return tazs, nil
}

func loadZones(networkDir string) (map[string]*TAZ, error) {
	t, err := gtfs.OpenTable(filepath.Join(networkDir, "zones.txt"))
	if err != nil {
		return nil, err
	}
	defer t.Close()
	if !t.RequireColumns("taz_id") {
		return nil, t.Err()
	}

	tazs := make(map[string]*TAZ)
	for t.Next() {
		id := t.Field("taz_id")
		if id == "" {
			return nil, &gtfs.FeedError{File: t.Name(), Line: t.Line(), Column: "taz_id", Reason: "empty identifier"}
		}
		if _, ok := tazs[id]; ok {
			return nil, &gtfs.FeedError{File: t.Name(), Line: t.Line(), Column: "taz_id", Reason: fmt.Sprintf("duplicate identifier %q", id)}
		}
		tazs[id] = &TAZ{TAZID: id, Name: t.Field("name")}
	}
	return tazs, t.Err()
}

func loadAccessLinks(networkDir string, tazs map[string]*TAZ, stops map[string]*Stop, routes map[string]*Route) error {
	t, err := gtfs.OpenTable(filepath.Join(networkDir, "access_links.txt"))
	if err != nil {
		return err
	}
	defer t.Close()
	if !t.RequireColumns("taz_id", "stop_id", "mode", "time_min") {
		return t.Err()
	}

	for t.Next() {
		tazID := t.Field("taz_id")
		taz, ok := tazs[tazID]
		if !ok {
			return &IntegrityError{
				Entity: "access_link", ID: tazID,
				Field: "taz_id", Ref: tazID, Collection: "tazs",
			}
		}
		link := AccessLink{
			StopID:  t.Field("stop_id"),
			Mode:    t.Field("mode"),
			TimeMin: t.FloatField("time_min", 0),
			DistM:   t.FloatField("dist_m", 0),
			RouteID: t.Field("route_id"),
		}
		if t.Err() != nil {
			return t.Err()
		}
		if _, ok := stops[link.StopID]; !ok {
			return &IntegrityError{
				Entity: "access_link", ID: tazID,
				Field: "stop_id", Ref: link.StopID, Collection: "stops",
			}
		}
		if link.RouteID != "" {
			if _, ok := routes[link.RouteID]; !ok {
				return &IntegrityError{
					Entity: "access_link", ID: tazID,
					Field: "route_id", Ref: link.RouteID, Collection: "routes",
				}
			}
		}
		if link.Mode != "walk" && link.Mode != "drive" {
			return &gtfs.FeedError{
				File: t.Name(), Line: t.Line(), Column: "mode",
				Reason: fmt.Sprintf("unknown mode %q: want walk or drive", link.Mode),
			}
		}
		taz.Links = append(taz.Links, link)
	}
	return t.Err()
}

// deriveLinks extends each walk link across the transfers leaving its stop.
// A derived link is skipped when the zone already reaches the far stop
// directly.
func deriveLinks(direct []AccessLink, byFrom map[string][]*Transfer) []AccessLink {
	reached := make(map[string]bool, len(direct))
	for _, l := range direct {
		if l.Mode == "walk" {
			reached[l.StopID] = true
		}
	}

	var derived []AccessLink
	for _, l := range direct {
		if l.Mode != "walk" {
			continue
		}
		for _, tr := range byFrom[l.StopID] {
			if reached[tr.To] {
				continue
			}
			reached[tr.To] = true
			derived = append(derived, AccessLink{
				StopID:  tr.To,
				Mode:    "walk",
				TimeMin: l.TimeMin + float64(tr.MinTransferSec)/60,
				DistM:   l.DistM,
				Derived: true,
			})
		}
	}
	return derived
}
