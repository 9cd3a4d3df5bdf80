package track

import "time"

// newTrack builds a track from a validated record. The initial position, if any, starts the trail
// after any history supplied by a full snapshot.
func newTrack(r *Record, tt TrackType, historyLength int) *Track {
	t := &Track{
		ID:      r.ID,
		Type:    tt,
		Fixed:   tt.StaticType(),
		History: make(PositionHistory, 0),
	}
	t.mergeFlags(r)

	if !t.Fixed {
		for _, p := range r.PosHistory {
			if p.Valid() {
				t.History.Append(p, historyLength)
			}
		}
	}

	t.merge(r, historyLength)

	return t
}

// merge overwrites every field present in r, clears every field sent as null and appends the reported
// position to the trail when the track can move. The id and type are never touched. Returns whether
// the trail grew.
func (t *Track) merge(r *Record, historyLength int) bool {
	t.mergeFlags(r)

	mergeFloat(&t.Lat, r.Lat, r.IsNull("lat"))
	mergeFloat(&t.Lon, r.Lon, r.IsNull("lon"))
	mergeFloat(&t.Course, r.Course, r.IsNull("course"))
	mergeFloat(&t.Heading, r.Heading, r.IsNull("heading"))
	mergeFloat(&t.Speed, r.Speed, r.IsNull("speed"))
	mergeFloat(&t.Altitude, r.Altitude, r.IsNull("altitude"))
	mergeFloat(&t.AltRate, r.AltRate, r.IsNull("altrate"))

	mergeTime(&t.PosTime, r.PosTime, r.IsNull("postime"))
	mergeTime(&t.DataTime, r.DataTime, r.IsNull("datatime"))

	mergeString(&t.SymbolCode, r.SymbolCode, r.IsNull("symbolcode"))
	mergeString(&t.Name, r.Name, r.IsNull("name"))
	mergeString(&t.TypeDesc, r.TypeDesc, r.IsNull("typedesc"))
	mergeString(&t.Info1, r.Info1, r.IsNull("info1"))
	mergeString(&t.Info2, r.Info2, r.IsNull("info2"))

	if t.Fixed {
		return false
	}
	if pos, ok := r.position(); ok {
		return t.History.Append(pos, historyLength)
	}

	return false
}

// mergeFlags applies fixed and createdByConfig. A config track is always fixed.
func (t *Track) mergeFlags(r *Record) {
	if r.CreatedByConfig != nil {
		t.CreatedByConfig = *r.CreatedByConfig
	}
	if r.Fixed != nil {
		t.Fixed = *r.Fixed
	}
	if t.CreatedByConfig {
		t.Fixed = true
	}
}

func mergeFloat(dst **float64, src *float64, null bool) {
	switch {
	case null:
		*dst = nil
	case src != nil:
		v := *src
		*dst = &v
	}
}

func mergeTime(dst *time.Time, src *int64, null bool) {
	switch {
	case null:
		*dst = time.Time{}
	case src != nil:
		*dst = epochMillis(*src)
	}
}

func mergeString(dst *string, src *string, null bool) {
	switch {
	case null:
		*dst = ""
	case src != nil:
		*dst = *src
	}
}
