package track

import (
	"math"
	"time"
)

const (
	// knotsToMetersPerSecond converts international knots.
	knotsToMetersPerSecond = 1852.0 / 3600.0
	// MinDeadReckonSpeed is the speed in knots at or below which a track counts as stationary.
	// Anchored or parked objects report small non-zero speeds that would otherwise drift forever.
	MinDeadReckonSpeed = 1.0
)

// Staleness is the display state of a track's data age.
type Staleness int

const (
	// Live tracks have been updated within their anticipation threshold.
	Live Staleness = iota
	// Anticipated tracks are shown at a dead-reckoned position with an anticipated symbol.
	Anticipated
	// Expired tracks are past the age at which the server would normally drop them.
	Expired
)

func (s Staleness) String() string {
	switch s {
	case Live:
		return "live"
	case Anticipated:
		return "anticipated"
	case Expired:
		return "expired"
	}
	return "unknown"
}

// Thresholds are the data ages at which tracks change staleness state.
type Thresholds struct {
	AirAnticipated     time.Duration `yaml:"airAnticipated" validate:"gt=0"`
	SurfaceAnticipated time.Duration `yaml:"surfaceAnticipated" validate:"gt=0"`
	AirExpired         time.Duration `yaml:"airExpired" validate:"gtfield=AirAnticipated"`
	SurfaceExpired     time.Duration `yaml:"surfaceExpired" validate:"gtfield=SurfaceAnticipated"`
}

// DefaultThresholds returns the standard staleness ages.
func DefaultThresholds() Thresholds {
	return Thresholds{
		AirAnticipated:     60 * time.Second,
		SurfaceAnticipated: 5 * time.Minute,
		AirExpired:         5 * time.Minute,
		SurfaceExpired:     time.Hour,
	}
}

// Kinematics computes dead-reckoned positions and staleness against server reference time.
type Kinematics struct {
	Thresholds Thresholds
}

// elapsedSince returns the non-negative seconds from then to now. Clock skew can make then lie in
// the future, which counts as no time at all.
func elapsedSince(then, now time.Time) float64 {
	return math.Max(0, now.Sub(then).Seconds())
}

// DRPosition extrapolates the track's last fix along its course at its speed. It returns false if
// position, position time, course or speed is unknown, or the track is effectively stationary.
func (k Kinematics) DRPosition(t *Track, now time.Time) (Position, bool) {
	pos, ok := t.Position()
	if !ok || t.PosTime.IsZero() || t.Course == nil || t.Speed == nil {
		return Position{}, false
	}
	if *t.Speed <= MinDeadReckonSpeed {
		return Position{}, false
	}

	distance := elapsedSince(t.PosTime, now) * *t.Speed * knotsToMetersPerSecond
	lat, lon := DestinationPoint(pos.Lat, pos.Lon, *t.Course, distance)

	return Position{Lat: lat, Lon: lon}, true
}

// IconPosition returns where the track's symbol should be drawn: the dead-reckoned position when
// enabled and possible, otherwise the last known position. It returns false when no position is
// known at all.
func (k Kinematics) IconPosition(t *Track, now time.Time, deadReckoning bool) (Position, bool) {
	if deadReckoning && !t.Fixed {
		if dr, ok := k.DRPosition(t, now); ok {
			return dr, true
		}
	}

	return t.Position()
}

// State classifies the age of the track's newest timestamp. Fixed tracks and tracks without any
// timestamp are always live.
func (k Kinematics) State(t *Track, now time.Time) Staleness {
	if t.Fixed {
		return Live
	}
	best := t.BestTime()
	if best.IsZero() {
		return Live
	}

	anticipated, expired := k.Thresholds.SurfaceAnticipated, k.Thresholds.SurfaceExpired
	if t.Type.Airborne() {
		anticipated, expired = k.Thresholds.AirAnticipated, k.Thresholds.AirExpired
	}

	age := now.Sub(best)
	switch {
	case age > expired:
		return Expired
	case age > anticipated:
		return Anticipated
	default:
		return Live
	}
}

// IsAnticipated reports whether the track should be shown with an anticipated symbol.
func (k Kinematics) IsAnticipated(t *Track, now time.Time, deadReckoning bool) bool {
	if !deadReckoning || t.Fixed {
		return false
	}
	return k.State(t, now) >= Anticipated
}

// DRAltitude extrapolates altitude using the climb rate, rounded to the nearest 100 ft and never
// below zero. Without a climb rate it returns the rounded reported altitude.
func (k Kinematics) DRAltitude(t *Track, now time.Time) (float64, bool) {
	if t.Altitude == nil {
		return 0, false
	}

	alt := *t.Altitude
	if t.AltRate != nil && !t.PosTime.IsZero() {
		alt += *t.AltRate / 60 * elapsedSince(t.PosTime, now) //nolint:mnd // feet per minute
	}

	return math.Max(0, math.Round(alt/100)*100), true //nolint:mnd // nearest hundred feet
}
