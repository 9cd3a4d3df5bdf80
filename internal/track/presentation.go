package track

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Minimum map zoom levels at which unselected tracks get a label. Maritime tracks cluster in
// harbours and need more zoom before labels stop overlapping.
const (
	LabelMinZoom     = 10
	ShipLabelMinZoom = 12
)

// VisibleTypes is the user-controlled set of track types shown on the display.
type VisibleTypes map[TrackType]bool

// AllVisible returns a set with every type shown.
func AllVisible() VisibleTypes {
	v := make(VisibleTypes)
	for _, tt := range AllTypes() {
		v[tt] = true
	}
	return v
}

// Toggle flips the visibility of a type and returns the new value.
func (v VisibleTypes) Toggle(tt TrackType) bool {
	v[tt] = !v[tt]
	return v[tt]
}

// TrailMode selects which tracks draw snail trails.
type TrailMode int

const (
	TrailNone TrailMode = iota
	TrailSelectedOnly
	TrailAll
)

func (m TrailMode) String() string {
	switch m {
	case TrailNone:
		return "none"
	case TrailSelectedOnly:
		return "selected"
	case TrailAll:
		return "all"
	}
	return "unknown"
}

// Next cycles none, selected, all.
func (m TrailMode) Next() TrailMode {
	return (m + 1) % (TrailAll + 1)
}

// ParseTrailMode reads a trail mode name as produced by String.
func ParseTrailMode(s string) (TrailMode, error) {
	for _, m := range []TrailMode{TrailNone, TrailSelectedOnly, TrailAll} {
		if strings.EqualFold(s, m.String()) {
			return m, nil
		}
	}
	return TrailNone, fmt.Errorf("ParseTrailMode: unknown trail mode %q", s)
}

// EffectiveSymbolCode returns the manual override for the track if there is one, else the
// server's code with its status rewritten to anticipated when requested. Overrides always keep the
// present status they were stored with. The stored code is never changed.
func EffectiveSymbolCode(t *Track, overrides *Overrides, anticipated bool) string {
	if code, ok := overrides.Lookup(t.ID); ok {
		return code
	}

	code := t.SymbolCode
	if code == "" {
		code = defaultSymbol(t.Type)
	}
	if anticipated {
		code = Anticipate(code)
	}
	return code
}

// ShouldShowIcon reports whether the track's type is visible.
func ShouldShowIcon(t *Track, visible VisibleTypes) bool {
	return visible[t.Type]
}

// ShouldShowTrail reports whether a snail trail is drawn for the track.
func ShouldShowTrail(t *Track, visible VisibleTypes, mode TrailMode, selected bool) bool {
	if !ShouldShowIcon(t, visible) {
		return false
	}
	if first, ok := t.History.First(); !ok || !first.Valid() {
		return false
	}
	return mode == TrailAll || (mode == TrailSelectedOnly && selected)
}

// ShouldShowLabel reports whether the track's label is drawn at the given zoom level.
func ShouldShowLabel(t *Track, zoom int, selected bool) bool {
	if selected {
		return true
	}
	if t.Type.Maritime() {
		return zoom >= ShipLabelMinZoom
	}
	return zoom >= LabelMinZoom
}

// View is the display state the resolver depends on besides the tracks themselves.
type View struct {
	Selected      string
	Zoom          int
	Visible       VisibleTypes
	Trails        TrailMode
	DeadReckoning bool
}

// Details are the text fields shown next to a selected track.
type Details struct {
	TypeDesc string `json:"typeDesc,omitempty"`
	Info1    string `json:"info1,omitempty"`
	Info2    string `json:"info2,omitempty"`
	Altitude string `json:"altitude,omitempty"`
	Speed    string `json:"speed,omitempty"`
	DTG      string `json:"dtg,omitempty"`
	Location string `json:"location,omitempty"`
}

// Display is the read-only presentation of one track at one instant.
type Display struct {
	ID           string    `json:"id"`
	Type         TrackType `json:"-"`
	TypeName     string    `json:"type"`
	Name         string    `json:"name"`
	Position     *Position `json:"position,omitempty"`
	DeadReckoned bool      `json:"deadReckoned"`
	SymbolCode   string    `json:"symbolCode"`
	State        Staleness `json:"-"`
	StateName    string    `json:"state"`
	Anticipated  bool      `json:"anticipated"`
	Visible      bool      `json:"visible"`
	Selected     bool      `json:"selected"`
	ShowLabel    bool      `json:"showLabel"`
	Heading      *float64  `json:"heading,omitempty"`
	Speed        *float64  `json:"speed,omitempty"`
	Altitude     *float64  `json:"altitude,omitempty"`
	LastSeen     time.Time `json:"lastSeen"`

	Trail   []Position `json:"trail,omitempty"`
	DRTrail []Position `json:"drTrail,omitempty"`
	Details *Details   `json:"details,omitempty"`
}

// Resolver turns tracks into displays.
type Resolver struct {
	Kinematics Kinematics
	Overrides  *Overrides
}

// Resolve computes the display of every track. The result follows the order of tracks, which the
// store's Snapshot already sorts by id.
func (r *Resolver) Resolve(tracks []Track, view View, now time.Time) []Display {
	out := make([]Display, 0, len(tracks))
	for i := range tracks {
		out = append(out, r.resolveOne(&tracks[i], view, now))
	}
	return out
}

func (r *Resolver) resolveOne(t *Track, view View, now time.Time) Display {
	selected := view.Selected != "" && t.ID == view.Selected
	state := r.Kinematics.State(t, now)
	anticipated := r.Kinematics.IsAnticipated(t, now, view.DeadReckoning)

	d := Display{
		ID:          t.ID,
		Type:        t.Type,
		TypeName:    t.Type.String(),
		Name:        t.DisplayName(),
		SymbolCode:  EffectiveSymbolCode(t, r.Overrides, anticipated),
		State:       state,
		StateName:   state.String(),
		Anticipated: anticipated,
		Visible:     ShouldShowIcon(t, view.Visible),
		Selected:    selected,
		ShowLabel:   ShouldShowLabel(t, view.Zoom, selected),
		Heading:     t.Heading,
		Speed:       t.Speed,
		Altitude:    t.Altitude,
		LastSeen:    t.BestTime(),
	}

	if pos, ok := r.Kinematics.IconPosition(t, now, view.DeadReckoning); ok {
		d.Position = &pos
		if view.DeadReckoning && !t.Fixed {
			_, d.DeadReckoned = r.Kinematics.DRPosition(t, now)
		}
	}

	if ShouldShowTrail(t, view.Visible, view.Trails, selected) {
		d.Trail = append([]Position(nil), t.History...)
		if d.DeadReckoned {
			last, _ := t.Position()
			d.DRTrail = []Position{last, *d.Position}
		}
	}

	if selected {
		d.Details = r.details(t, d.Position, now, view.DeadReckoning)
	}

	return d
}

func (r *Resolver) details(t *Track, pos *Position, now time.Time, deadReckoning bool) *Details {
	det := &Details{
		TypeDesc: strings.ToUpper(t.TypeDesc),
		Info1:    strings.ToUpper(t.Info1),
		Info2:    strings.ToUpper(t.Info2),
	}

	alt, ok := r.Kinematics.DRAltitude(t, now)
	if !deadReckoning && t.Altitude != nil {
		alt, ok = math.Max(0, math.Round(*t.Altitude/100)*100), true //nolint:mnd // nearest hundred feet
	}
	if ok {
		det.Altitude = FlightLevel(alt)
	}
	if t.Speed != nil {
		det.Speed = fmt.Sprintf("%.0fKTS", *t.Speed)
	}
	if !t.Fixed && !t.PosTime.IsZero() {
		det.DTG = DateTimeGroup(t.PosTime)
	}
	if pos != nil {
		det.Location = FormatLocation(*pos)
	}

	return det
}

// FlightLevel formats an altitude in feet as hundreds of feet, e.g. FL350.
func FlightLevel(feet float64) string {
	return fmt.Sprintf("FL%.0f", feet/100) //nolint:mnd // hundreds of feet
}

// DateTimeGroup formats a time as a military date-time group in UTC, e.g. "05 1432Z MAR24".
func DateTimeGroup(t time.Time) string {
	return strings.ToUpper(t.UTC().Format("02 1504Z Jan06"))
}

// FormatLocation formats a position as e.g. "50.7200N 001.8800W".
func FormatLocation(p Position) string {
	ns, ew := "N", "E"
	if p.Lat < 0 {
		ns = "S"
	}
	if p.Lon < 0 {
		ew = "W"
	}
	return fmt.Sprintf("%07.4f%s %08.4f%s", math.Abs(p.Lat), ns, math.Abs(p.Lon), ew)
}
