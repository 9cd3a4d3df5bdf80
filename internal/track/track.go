// Package track holds the client-side track table and everything derived from it: reconciliation
// of server snapshots, dead reckoning, staleness and the presentation state handed to the display.
package track

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// TrackType is the kind of object a track represents. It never changes after a track is created.
type TrackType int

const (
	TypeUnknown TrackType = iota
	Aircraft
	Ship
	AISShoreStation
	AISAtoN
	APRSMobile
	APRSBaseStation
	BaseStation
	Airport
	Seaport
)

var errUnknownTrackType = errors.New("unknown track type")

var trackTypeNames = map[TrackType]string{ //nolint: gochecknoglobals // lookup table
	Aircraft:        "AIRCRAFT",
	Ship:            "SHIP",
	AISShoreStation: "AIS_SHORE_STATION",
	AISAtoN:         "AIS_ATON",
	APRSMobile:      "APRS_MOBILE",
	APRSBaseStation: "APRS_BASE_STATION",
	BaseStation:     "BASE_STATION",
	Airport:         "AIRPORT",
	Seaport:         "SEAPORT",
}

// AllTypes lists every known track type in display order.
func AllTypes() []TrackType {
	return []TrackType{
		Aircraft, Ship, AISShoreStation, AISAtoN, APRSMobile, APRSBaseStation, BaseStation, Airport, Seaport,
	}
}

func (tt TrackType) String() string {
	if name, ok := trackTypeNames[tt]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseTrackType converts the server's enum string, case-insensitively.
func ParseTrackType(s string) (TrackType, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	for tt, name := range trackTypeNames {
		if name == norm {
			return tt, nil
		}
	}
	return TypeUnknown, fmt.Errorf("ParseTrackType: %w: %q", errUnknownTrackType, s)
}

// Airborne reports whether tracks of this type are expected to update at aircraft rates.
func (tt TrackType) Airborne() bool {
	return tt == Aircraft
}

// Maritime reports whether tracks of this type cluster in harbour areas.
func (tt TrackType) Maritime() bool {
	return tt == Ship || tt == AISShoreStation || tt == AISAtoN || tt == Seaport
}

// StaticType reports whether the type can never move.
func (tt TrackType) StaticType() bool {
	return tt == BaseStation || tt == Airport || tt == Seaport
}

// Track is one tracked object or fixed reference point.
// Nil pointers and zero times mean "not known yet".
type Track struct {
	ID              string    `json:"id" msgpack:"id"`
	Type            TrackType `json:"type" msgpack:"type"`
	Fixed           bool      `json:"fixed" msgpack:"fixed"`
	CreatedByConfig bool      `json:"createdByConfig" msgpack:"createdByConfig"`

	Lat      *float64  `json:"lat,omitempty" msgpack:"lat"`
	Lon      *float64  `json:"lon,omitempty" msgpack:"lon"`
	PosTime  time.Time `json:"posTime" msgpack:"posTime"`
	DataTime time.Time `json:"dataTime" msgpack:"dataTime"`

	Course   *float64 `json:"course,omitempty" msgpack:"course"`     // degrees
	Heading  *float64 `json:"heading,omitempty" msgpack:"heading"`   // degrees
	Speed    *float64 `json:"speed,omitempty" msgpack:"speed"`       // knots
	Altitude *float64 `json:"altitude,omitempty" msgpack:"altitude"` // feet
	AltRate  *float64 `json:"altRate,omitempty" msgpack:"altRate"`   // feet per minute

	SymbolCode string          `json:"symbolCode" msgpack:"symbolCode"`
	History    PositionHistory `json:"history" msgpack:"history"`

	Name     string `json:"name,omitempty" msgpack:"name"`
	Info1    string `json:"info1,omitempty" msgpack:"info1"`
	Info2    string `json:"info2,omitempty" msgpack:"info2"`
	TypeDesc string `json:"typeDesc,omitempty" msgpack:"typeDesc"`
}

// Position returns the last known position, if any.
func (t *Track) Position() (Position, bool) {
	if t.Lat == nil || t.Lon == nil {
		return Position{}, false
	}
	return Position{Lat: *t.Lat, Lon: *t.Lon}, true
}

// BestTime is the position time, falling back to the data time.
func (t *Track) BestTime() time.Time {
	if !t.PosTime.IsZero() {
		return t.PosTime
	}
	return t.DataTime
}

// DisplayName prefers the name and falls back to the id.
func (t *Track) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.ID
}
