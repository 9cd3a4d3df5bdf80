package track

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"
)

func f64(v float64) *float64 { return &v }
func str(v string) *string   { return &v }
func flag(v bool) *bool      { return &v }
func millis(t time.Time) *int64 {
	ms := t.UnixMilli()
	return &ms
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func aircraftRecord(id string, lat, lon float64) Record {
	return Record{
		ID:        id,
		TrackType: "AIRCRAFT",
		Lat:       f64(lat),
		Lon:       f64(lon),
		PosTime:   millis(time.Date(2024, 3, 5, 14, 32, 0, 0, time.UTC)),
		Speed:     f64(420),
		Course:    f64(90),
	}
}

func TestApplyFullSnapshotIsIdempotent(t *testing.T) {
	records := []Record{
		aircraftRecord("a1", 50, -1),
		aircraftRecord("a2", 51, -2),
		{ID: "base", TrackType: "BASE_STATION", Lat: f64(50.7), Lon: f64(-1.8), CreatedByConfig: flag(true)},
	}

	s := NewStore(DefaultHistoryLength, quietLogger())
	s.ApplyFullSnapshot(records)
	first := s.Snapshot()

	res := s.ApplyFullSnapshot(records)
	second := s.Snapshot()

	if res.Created != 0 || res.Updated != 3 || res.Removed != 0 || res.Rejected != 0 {
		t.Errorf("unexpected result %+v", res)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("second full snapshot changed the store\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestApplyFullSnapshotSeedsHistory(t *testing.T) {
	rec := aircraftRecord("a1", 50.2, -1)
	rec.PosHistory = []Position{{Lat: 50, Lon: -1}, {Lat: 50.1, Lon: -1}, {Lat: 50.2, Lon: -1}}

	s := NewStore(DefaultHistoryLength, quietLogger())
	s.ApplyFullSnapshot([]Record{rec})

	got, ok := s.Get("a1")
	if !ok {
		t.Fatal("track not created")
	}
	// the current position equals the last history entry and must not be duplicated
	if len(got.History) != 3 {
		t.Errorf("want 3 history entries, got %d: %v", len(got.History), got.History)
	}
}

func TestIncrementalUpdateTrimsHistory(t *testing.T) {
	const limit = 4
	s := NewStore(limit, quietLogger())

	for i := range 10 {
		s.ApplyIncrementalUpdate([]Record{aircraftRecord("a1", 50+float64(i)*0.01, -1)})
	}

	got, _ := s.Get("a1")
	if len(got.History) != limit {
		t.Fatalf("want %d history entries, got %d", limit, len(got.History))
	}
	oldestKept := 6.0
	if first, _ := got.History.First(); first.Lat != 50+oldestKept*0.01 {
		t.Errorf("oldest entries not dropped first, first is %v", first)
	}
}

func TestIncrementalUpdateSkipsDuplicatePositions(t *testing.T) {
	s := NewStore(DefaultHistoryLength, quietLogger())
	for range 3 {
		s.ApplyIncrementalUpdate([]Record{aircraftRecord("a1", 50, -1)})
	}

	got, _ := s.Get("a1")
	if len(got.History) != 1 {
		t.Errorf("want 1 history entry, got %d", len(got.History))
	}
}

func TestConfigTracksPersist(t *testing.T) {
	s := NewStore(DefaultHistoryLength, quietLogger())
	s.ApplyFullSnapshot([]Record{
		{ID: "home", TrackType: "BASE_STATION", Lat: f64(50.7), Lon: f64(-1.8), CreatedByConfig: flag(true)},
		aircraftRecord("a1", 50, -1),
	})

	res := s.ApplyIncrementalUpdate(nil)

	if _, ok := s.Get("home"); !ok {
		t.Error("config track removed by empty update")
	}
	if _, ok := s.Get("a1"); ok {
		t.Error("live track survived an update that did not name it")
	}
	if res.Removed != 1 {
		t.Errorf("want 1 removal, got %d", res.Removed)
	}
}

func TestLiveTrackExpiry(t *testing.T) {
	s := NewStore(DefaultHistoryLength, quietLogger())
	s.ApplyIncrementalUpdate([]Record{aircraftRecord("a1", 50, -1), aircraftRecord("a2", 51, -1)})

	res := s.ApplyIncrementalUpdate([]Record{aircraftRecord("a2", 51.1, -1)})

	if _, ok := s.Get("a1"); ok {
		t.Error("a1 should have been removed")
	}
	got, ok := s.Get("a2")
	if !ok {
		t.Fatal("a2 should have been kept")
	}
	if *got.Lat != 51.1 {
		t.Errorf("a2 not merged, lat %v", *got.Lat)
	}
	if res.Updated != 1 || res.Removed != 1 || res.Created != 0 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestMergeKeepsAbsentFields(t *testing.T) {
	s := NewStore(DefaultHistoryLength, quietLogger())
	rec := aircraftRecord("a1", 50, -1)
	rec.Name = str("BAW123")
	rec.Altitude = f64(35000)
	s.ApplyIncrementalUpdate([]Record{rec})

	s.ApplyIncrementalUpdate([]Record{{ID: "a1", Speed: f64(430)}})

	got, _ := s.Get("a1")
	if got.Name != "BAW123" || *got.Altitude != 35000 || *got.Speed != 430 {
		t.Errorf("merge lost or ignored fields: %+v", got)
	}
	if got.Type != Aircraft {
		t.Errorf("want type %v, got %v", Aircraft, got.Type)
	}
}

func TestTypeIsImmutable(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s := NewStore(DefaultHistoryLength, logger)
	s.ApplyIncrementalUpdate([]Record{aircraftRecord("x", 50, -1)})

	rec := aircraftRecord("x", 50.1, -1)
	rec.TrackType = "SHIP"
	s.ApplyIncrementalUpdate([]Record{rec})

	if got, _ := s.Get("x"); got.Type != Aircraft {
		t.Errorf("type changed to %v", got.Type)
	}
	if !strings.Contains(logs.String(), `level=DEBUG msg="ignoring track type change"`) {
		t.Errorf("want the ignored type change logged at debug, got %q", logs.String())
	}
}

func decodeRecord(t *testing.T, body string) Record {
	t.Helper()
	var rec Record
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		t.Fatalf("Unmarshal(%s) error: %v", body, err)
	}
	return rec
}

func TestNullClearsField(t *testing.T) {
	s := NewStore(DefaultHistoryLength, quietLogger())
	s.ApplyFullSnapshot([]Record{decodeRecord(t,
		`{"id":"a1","tracktype":"AIRCRAFT","lat":50,"lon":0,"postime":1709640000000,`+
			`"course":90,"speed":400,"name":"BAW123"}`)})

	s.ApplyIncrementalUpdate([]Record{decodeRecord(t,
		`{"id":"a1","tracktype":"AIRCRAFT","lat":50,"lon":0.1,"postime":1709640060000,`+
			`"course":null,"speed":null,"name":null}`)})

	got, ok := s.Get("a1")
	if !ok {
		t.Fatal("a1 removed")
	}
	if got.Course != nil || got.Speed != nil {
		t.Errorf("want course and speed cleared, got course %v speed %v", got.Course, got.Speed)
	}
	if got.Name != "" {
		t.Errorf("want name cleared, got %q", got.Name)
	}
	if *got.Lon != 0.1 {
		t.Errorf("want lon merged, got %v", *got.Lon)
	}

	k := Kinematics{Thresholds: DefaultThresholds()}
	if _, ok := k.DRPosition(&got, got.PosTime.Add(60*time.Second)); ok {
		t.Error("track without course and speed is still dead-reckoned")
	}
}

func TestNullIsNotAbsent(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantNull bool
	}{
		{"absent", `{"id":"a1"}`, false},
		{"null", `{"id":"a1","course":null}`, true},
		{"value", `{"id":"a1","course":12}`, false},
		{"key case", `{"id":"a1","Course":null}`, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rec := decodeRecord(t, test.body)
			if got := rec.IsNull("course"); got != test.wantNull {
				t.Errorf("IsNull(course) = %v, want %v", got, test.wantNull)
			}
		})
	}
}

func TestNullSingleCoordinateIsRejected(t *testing.T) {
	rec := decodeRecord(t, `{"id":"a1","lat":null,"lon":1}`)
	if err := rec.Validate(); !errors.Is(err, ErrInvalidPosition) {
		t.Errorf("want ErrInvalidPosition, got %v", err)
	}
}

func TestFullSnapshotCountsOnlyDroppedAsRemoved(t *testing.T) {
	s := NewStore(DefaultHistoryLength, quietLogger())
	s.ApplyFullSnapshot([]Record{aircraftRecord("a1", 50, -1), aircraftRecord("a2", 51, -1)})

	res := s.ApplyFullSnapshot([]Record{aircraftRecord("a2", 51.1, -1), aircraftRecord("a3", 52, -1)})

	if res.Created != 1 || res.Updated != 1 || res.Removed != 1 {
		t.Errorf("want 1 created, 1 updated, 1 removed, got %+v", res)
	}
}

func TestExplicitlyFixedTrackIgnoresHistory(t *testing.T) {
	rec := aircraftRecord("pinned", 50.2, -1)
	rec.Fixed = flag(true)
	rec.PosHistory = []Position{{Lat: 50, Lon: -1}, {Lat: 50.1, Lon: -1}}

	s := NewStore(DefaultHistoryLength, quietLogger())
	s.ApplyFullSnapshot([]Record{rec})

	got, _ := s.Get("pinned")
	if !got.Fixed {
		t.Fatal("want fixed")
	}
	if len(got.History) != 0 {
		t.Errorf("fixed track seeded with history %v", got.History)
	}
}

func TestFixedTracksHaveNoTrail(t *testing.T) {
	s := NewStore(DefaultHistoryLength, quietLogger())
	s.ApplyIncrementalUpdate([]Record{
		{ID: "egll", TrackType: "AIRPORT", Lat: f64(51.47), Lon: f64(-0.45)},
		{ID: "pinned", TrackType: "APRS_BASE_STATION", Lat: f64(51), Lon: f64(-1), Fixed: flag(true)},
	})

	for _, id := range []string{"egll", "pinned"} {
		got, _ := s.Get(id)
		if !got.Fixed {
			t.Errorf("%s: want fixed", id)
		}
		if len(got.History) != 0 {
			t.Errorf("%s: fixed track has history %v", id, got.History)
		}
	}
}

func TestMalformedRecordsAreSkipped(t *testing.T) {
	s := NewStore(DefaultHistoryLength, quietLogger())
	s.ApplyIncrementalUpdate([]Record{aircraftRecord("keep", 50, -1)})

	bad := aircraftRecord("keep", 95, -1)
	res := s.ApplyIncrementalUpdate([]Record{
		bad,
		{TrackType: "SHIP"},
		{ID: "mystery", TrackType: "SUBMARINE"},
		{ID: "lonely", TrackType: "SHIP", Lat: f64(50)},
		aircraftRecord("new", 52, -1),
	})

	if res.Rejected != 4 || res.Created != 1 {
		t.Errorf("unexpected result %+v", res)
	}
	for _, target := range []error{ErrInvalidPosition, ErrMissingID, ErrUnknownTrackType} {
		if !errors.Is(res.Err, target) {
			t.Errorf("joined error does not contain %v: %v", target, res.Err)
		}
	}
	got, ok := s.Get("keep")
	if !ok {
		t.Fatal("track with a rejected update was removed")
	}
	if *got.Lat != 50 {
		t.Errorf("rejected update was merged, lat %v", *got.Lat)
	}
	if s.Len() != 2 {
		t.Errorf("want 2 tracks, got %d", s.Len())
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewStore(DefaultHistoryLength, quietLogger())
	s.ApplyIncrementalUpdate([]Record{aircraftRecord("a1", 50, -1)})

	snap := s.Snapshot()
	*snap[0].Lat = 10
	snap[0].History[0].Lat = 10

	got, _ := s.Get("a1")
	if *got.Lat != 50 || got.History[0].Lat != 50 {
		t.Error("modifying a snapshot changed the store")
	}
}

func TestRestoreAndCountByType(t *testing.T) {
	s := NewStore(2, quietLogger())
	restored := s.Restore([]Track{
		{ID: "a", Type: Aircraft, History: PositionHistory{{Lat: 1}, {Lat: 2}, {Lat: 3}}},
		{ID: "b", Type: Ship},
		{ID: "c", Type: Ship},
		{Type: Ship},
	})

	if restored != 3 {
		t.Errorf("want 3 restored, got %d", restored)
	}
	if got, _ := s.Get("a"); len(got.History) != 2 || got.History[0].Lat != 2 {
		t.Errorf("restored history not trimmed: %v", got.History)
	}
	counts := s.CountByType()
	if counts[Aircraft] != 1 || counts[Ship] != 2 {
		t.Errorf("unexpected counts %v", counts)
	}
}
