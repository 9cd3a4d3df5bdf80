// Package internal provides the sync scheduler, server client, configuration and the session
// Dashboard shared by the TUI and ticker apps.
package internal

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/micutio/trackspottr/internal/track"
)

const (
	// resightingInterval is how long a track must be gone before it counts as a new sighting.
	resightingInterval = 24 * time.Hour
	// altitudeUnknown is what we use for tracks without a given altitude.
	altitudeUnknown = "  n/a"
	// descriptionUnknown is what we use for tracks without a type description.
	descriptionUnknown = "unknown"
	// operatorUnknown is what we use for aircraft without a usable callsign.
	operatorUnknown = "n/a"
)

// RareSighting combines a sighting with its rarity flags.
type RareSighting struct {
	Rarities RarityFlag
	Track    track.Track
}

// Dashboard keeps statistics over every track seen during this session and reports sightings of
// rarely seen types, operators and categories.
type Dashboard struct {
	isWarmup          bool
	home              track.Position
	totalSightings    int
	totalOperators    int
	Fastest           *track.Track
	Highest           *track.Track
	RareSightings     []RareSighting
	seenTracks        map[string]time.Time // all seen tracks, mapped to last seen time
	SeenDescCount     map[string]int       // type descriptions mapped to how often seen
	SeenOperatorCount map[string]int       // aircraft operators mapped to how often seen
	SeenCategoryCount map[string]int       // track types mapped to how often seen
	logger            *slog.Logger
}

func NewDashboard(home track.Position, logger *slog.Logger) *Dashboard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dashboard{
		isWarmup:          true,
		home:              home,
		seenTracks:        make(map[string]time.Time),
		SeenDescCount:     make(map[string]int),
		SeenOperatorCount: make(map[string]int),
		SeenCategoryCount: make(map[string]int),
		logger:            logger,
	}
}

func (db *Dashboard) FinishWarmupPeriod() {
	db.isWarmup = false
}

// ProcessTracks updates the statistics from the current picture. RareSightings is replaced by the
// rare sightings found in this call; nothing is reported during warmup.
func (db *Dashboard) ProcessTracks(tracks []track.Track, now time.Time) {
	db.RareSightings = db.RareSightings[:0]

	for i := range tracks {
		t := &tracks[i]
		if t.Fixed {
			continue
		}

		db.checkHighest(t)
		db.checkFastest(t)

		lastSeen := t.BestTime()
		if lastSeen.IsZero() {
			lastSeen = now
		}
		previous, exists := db.seenTracks[t.ID]
		db.seenTracks[t.ID] = lastSeen

		// Already counted recently, no need to report this sighting again.
		if exists && lastSeen.Sub(previous) < resightingInterval {
			continue
		}

		rarities := db.recordSighting(t)
		if rarities == NoRarity {
			continue
		}

		db.logger.Info("found rare sighting",
			slog.String("rarity", rarities.String()),
			slog.String("track", TrackToString(t, db.home)))

		if !db.isWarmup {
			db.RareSightings = append(db.RareSightings, RareSighting{Rarities: rarities, Track: *t})
		}
	}
}

// recordSighting counts a new sighting and returns which of its properties are rare.
func (db *Dashboard) recordSighting(t *track.Track) RarityFlag {
	rarities := NoRarity
	db.totalSightings++

	desc := t.TypeDesc
	if desc == "" {
		desc = descriptionUnknown
	}
	db.SeenDescCount[desc]++
	if desc != descriptionUnknown &&
		float64(db.SeenDescCount[desc])/float64(db.totalSightings) < descriptionRarityThreshold {
		rarities |= RareDescription
	}

	category := t.Type.String()
	db.SeenCategoryCount[category]++
	if float64(db.SeenCategoryCount[category])/float64(db.totalSightings) < categoryRarityThreshold {
		rarities |= RareCategory
	}

	if t.Type == track.Aircraft {
		if operator := OperatorCode(t.Name); operator != operatorUnknown {
			db.SeenOperatorCount[operator]++
			db.totalOperators++
			if float64(db.SeenOperatorCount[operator])/float64(db.totalOperators) < operatorRarityThreshold {
				rarities |= RareOperator
			}
		}
	}

	return rarities
}

func (db *Dashboard) checkHighest(t *track.Track) {
	if t.Altitude == nil {
		return
	}
	if db.Highest != nil && *db.Highest.Altitude > *t.Altitude {
		return
	}
	highest := *t
	db.Highest = &highest
}

func (db *Dashboard) checkFastest(t *track.Track) {
	if t.Speed == nil {
		return
	}
	if db.Fastest != nil && *db.Fastest.Speed > *t.Speed {
		return
	}
	fastest := *t
	db.Fastest = &fastest
}

// SeenCount returns the number of distinct tracks seen this session.
func (db *Dashboard) SeenCount() int {
	return len(db.seenTracks)
}

// OperatorCode extracts the operator prefix of an aircraft callsign, e.g. "BAW" from "BAW123 ".
func OperatorCode(callsign string) string {
	code := strings.TrimSpace(callsign)
	if i := strings.IndexFunc(code, func(r rune) bool { return !unicode.IsLetter(r) }); i >= 0 {
		code = code[:i]
	}
	if code == "" {
		return operatorUnknown
	}
	return strings.ToUpper(code)
}

// TrackToString generates a one-liner consisting of the most relevant information about the
// given track.
func TrackToString(t *track.Track, home track.Position) string {
	if t == nil {
		return "none"
	}

	rangeBearing := "DST   n/a"
	if pos, ok := t.Position(); ok {
		dist, brg := track.RangeAndBearing(home, pos)
		rangeBearing = fmt.Sprintf("DST %5.1f nm %-3s", dist, track.CompassPoint(brg))
	}

	altitude := altitudeUnknown
	if t.Altitude != nil {
		altitude = fmt.Sprintf("%5.0f", *t.Altitude)
	}

	speed, heading := "n/a", "n/a"
	if t.Speed != nil {
		speed = fmt.Sprintf("%3.0f", *t.Speed)
	}
	if t.Heading != nil {
		heading = fmt.Sprintf("%03.0f", *t.Heading)
	} else if t.Course != nil {
		heading = fmt.Sprintf("%03.0f", *t.Course)
	}

	desc := t.TypeDesc
	if desc == "" {
		desc = t.Type.String()
	}

	return fmt.Sprintf("%-10s %-17s %s ALT %s SPD %s HDG %s %q",
		t.DisplayName(), t.Type, rangeBearing, altitude, speed, heading, desc)
}
