package track

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Errors for records that cannot be applied. Each rejects one record, never the whole batch.
var (
	ErrMissingID        = errors.New("record has no id")
	ErrUnknownTrackType = errors.New("record has an unknown track type")
	ErrInvalidPosition  = errors.New("record has an invalid position")
	ErrInvalidKinematic = errors.New("record has an invalid kinematic value")
)

// Record is one track as reported by the server. Every field except ID is optional; fields that
// are absent leave the stored value untouched when merged, fields sent as null clear it.
type Record struct {
	ID              string   `json:"id"`
	TrackType       string   `json:"tracktype"`
	Fixed           *bool    `json:"fixed"`
	CreatedByConfig *bool    `json:"createdByConfig"`
	Lat             *float64 `json:"lat"`
	Lon             *float64 `json:"lon"`
	PosTime         *int64   `json:"postime"`  // epoch milliseconds
	DataTime        *int64   `json:"datatime"` // epoch milliseconds
	Course          *float64 `json:"course"`
	Heading         *float64 `json:"heading"`
	Speed           *float64 `json:"speed"`
	Altitude        *float64 `json:"altitude"`
	AltRate         *float64 `json:"altrate"`
	SymbolCode      *string  `json:"symbolcode"`
	Name            *string  `json:"name"`
	TypeDesc        *string  `json:"typeDesc"`
	Info1           *string  `json:"info1"`
	Info2           *string  `json:"info2"`
	// PosHistory is only sent with full snapshots.
	PosHistory []Position `json:"poshistory"`

	// nulls holds the lowercased keys that were present with an explicit null.
	nulls map[string]struct{}
}

// clearableKeys are the fields an explicit null resets. The flags and the id are never cleared.
var clearableKeys = map[string]struct{}{ //nolint: gochecknoglobals // lookup table
	"lat": {}, "lon": {}, "postime": {}, "datatime": {},
	"course": {}, "heading": {}, "speed": {}, "altitude": {}, "altrate": {},
	"symbolcode": {}, "name": {}, "typedesc": {}, "info1": {}, "info2": {},
}

var jsonNull = []byte("null") //nolint: gochecknoglobals // constant bytes

// UnmarshalJSON decodes a record and remembers which keys were sent as null, since a nil pointer
// alone cannot tell a null from a missing key.
func (r *Record) UnmarshalJSON(data []byte) error {
	type plain Record
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = Record(p)
	r.nulls = nil
	for key, value := range raw {
		key = strings.ToLower(key)
		if _, ok := clearableKeys[key]; !ok || !bytes.Equal(bytes.TrimSpace(value), jsonNull) {
			continue
		}
		if r.nulls == nil {
			r.nulls = make(map[string]struct{})
		}
		r.nulls[key] = struct{}{}
	}
	return nil
}

// IsNull reports whether key was sent with an explicit null.
func (r *Record) IsNull(key string) bool {
	_, ok := r.nulls[strings.ToLower(key)]
	return ok
}

// Validate checks the fields that would corrupt a track if merged.
func (r *Record) Validate() error {
	if r.ID == "" {
		return ErrMissingID
	}

	if r.IsNull("lat") != r.IsNull("lon") {
		return fmt.Errorf("Validate %s: %w: only one coordinate cleared", r.ID, ErrInvalidPosition)
	}
	if (r.Lat == nil) != (r.Lon == nil) {
		return fmt.Errorf("Validate %s: %w: only one coordinate given", r.ID, ErrInvalidPosition)
	}
	if pos, ok := r.position(); ok && !pos.Valid() {
		return fmt.Errorf("Validate %s: %w: %v,%v", r.ID, ErrInvalidPosition, pos.Lat, pos.Lon)
	}

	for name, value := range map[string]*float64{
		"course": r.Course, "heading": r.Heading, "speed": r.Speed, "altitude": r.Altitude, "altrate": r.AltRate,
	} {
		if value != nil && (math.IsNaN(*value) || math.IsInf(*value, 0)) {
			return fmt.Errorf("Validate %s: %w: %s", r.ID, ErrInvalidKinematic, name)
		}
	}
	if r.Speed != nil && *r.Speed < 0 {
		return fmt.Errorf("Validate %s: %w: negative speed", r.ID, ErrInvalidKinematic)
	}

	return nil
}

// parseType resolves the record's type. An empty type is only acceptable when merging.
func (r *Record) parseType() (TrackType, error) {
	tt, err := ParseTrackType(r.TrackType)
	if err != nil {
		return TypeUnknown, fmt.Errorf("%w: %w", ErrUnknownTrackType, err)
	}
	return tt, nil
}

func (r *Record) position() (Position, bool) {
	if r.Lat == nil || r.Lon == nil {
		return Position{}, false
	}
	return Position{Lat: *r.Lat, Lon: *r.Lon}, true
}

func epochMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
