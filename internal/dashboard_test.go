package internal

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/micutio/trackspottr/internal/track"
)

func TestOperatorCode(t *testing.T) {
	tests := []struct {
		callsign string
		expected string
	}{
		{callsign: "BAW123 ", expected: "BAW"},
		{callsign: "ryr12ab", expected: "RYR"},
		{callsign: "EZY", expected: "EZY"},
		{callsign: "  ", expected: "n/a"},
		{callsign: "4CA7B5", expected: "n/a"},
	}

	for _, test := range tests {
		t.Run(test.callsign, func(t *testing.T) {
			if got := OperatorCode(test.callsign); got != test.expected {
				t.Errorf("OperatorCode(%q) = %q, want %q", test.callsign, got, test.expected)
			}
		})
	}
}

func sighting(id string, tt track.TrackType, desc, name string, alt, speed float64) track.Track {
	return track.Track{
		ID:       id,
		Type:     tt,
		TypeDesc: desc,
		Name:     name,
		Altitude: f64(alt),
		Speed:    f64(speed),
		Lat:      f64(50.8),
		Lon:      f64(-1.8),
	}
}

func TestDashboardProcessTracks(t *testing.T) {
	now := time.Date(2024, 3, 5, 14, 32, 0, 0, time.UTC)
	db := NewDashboard(track.Position{Lat: 50.72, Lon: -1.88}, quietLogger())

	tracks := []track.Track{
		sighting("a1", track.Aircraft, "A320", "EZY12", 37000, 450),
		sighting("a2", track.Aircraft, "B738", "RYR3", 39000, 430),
		sighting("s1", track.Ship, "Cargo", "EVER GIVEN", 0, 12),
		{ID: "base", Type: track.BaseStation, Fixed: true},
	}
	db.ProcessTracks(tracks, now)

	if db.SeenCount() != 3 {
		t.Errorf("want 3 tracks seen, fixed ones excluded, got %d", db.SeenCount())
	}
	if db.Highest == nil || db.Highest.ID != "a2" {
		t.Errorf("want a2 highest, got %v", db.Highest)
	}
	if db.Fastest == nil || db.Fastest.ID != "a1" {
		t.Errorf("want a1 fastest, got %v", db.Fastest)
	}
	if db.SeenOperatorCount["EZY"] != 1 || db.SeenOperatorCount["RYR"] != 1 {
		t.Errorf("unexpected operator counts %v", db.SeenOperatorCount)
	}
	if len(db.SeenOperatorCount) != 2 {
		t.Errorf("ships must not count as operators, got %v", db.SeenOperatorCount)
	}
	if len(db.RareSightings) != 0 {
		t.Errorf("want no rare sightings reported during warmup, got %d", len(db.RareSightings))
	}

	// the same tracks again within a day are not new sightings
	db.ProcessTracks(tracks, now.Add(time.Minute))
	if db.SeenDescCount["A320"] != 1 {
		t.Errorf("want A320 counted once, got %d", db.SeenDescCount["A320"])
	}
}

func TestDashboardReportsRareSightings(t *testing.T) {
	now := time.Date(2024, 3, 5, 14, 32, 0, 0, time.UTC)
	db := NewDashboard(track.Position{Lat: 50.72, Lon: -1.88}, quietLogger())

	common := make([]track.Track, 0, 300)
	for i := range 300 {
		common = append(common, sighting(fmt.Sprintf("c%03d", i), track.Aircraft, "A320", "EZY1", 35000, 400))
	}
	db.ProcessTracks(common, now)
	db.FinishWarmupPeriod()

	db.ProcessTracks([]track.Track{sighting("rare", track.Aircraft, "A400", "RCH871", 20000, 300)}, now)

	if len(db.RareSightings) != 1 {
		t.Fatalf("want 1 rare sighting, got %d", len(db.RareSightings))
	}
	got := db.RareSightings[0]
	if got.Track.ID != "rare" {
		t.Errorf("want rare track reported, got %s", got.Track.ID)
	}
	if !got.Rarities.Has(RareDescription) || !got.Rarities.Has(RareOperator) {
		t.Errorf("want rare type and operator, got %s", got.Rarities)
	}
	if got.Rarities.Has(RareCategory) {
		t.Errorf("aircraft are common, got %s", got.Rarities)
	}
}

func TestTrackToString(t *testing.T) {
	home := track.Position{Lat: 50, Lon: 0}

	if got := TrackToString(nil, home); got != "none" {
		t.Errorf("want none, got %q", got)
	}

	tr := track.Track{
		ID:       "4ca7b5",
		Type:     track.Aircraft,
		Name:     "RYR12AB",
		TypeDesc: "B738",
		Lat:      f64(51),
		Lon:      f64(0),
		Altitude: f64(37000),
		Speed:    f64(450),
		Heading:  f64(5),
	}
	got := TrackToString(&tr, home)
	for _, part := range []string{"RYR12AB", "AIRCRAFT", " 60.0 nm N ", "ALT 37000", "SPD 450", "HDG 005", `"B738"`} {
		if !strings.Contains(got, part) {
			t.Errorf("want %q in %q", part, got)
		}
	}

	bare := track.Track{ID: "x", Type: track.Ship}
	got = TrackToString(&bare, home)
	if !strings.Contains(got, "DST   n/a") || !strings.Contains(got, "SPD n/a") {
		t.Errorf("want placeholders for missing values, got %q", got)
	}
}
