package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/micutio/trackspottr/internal/track"
)

var errMalformedEnvelope = errors.New("malformed snapshot envelope")

// envelope is the server's reply to both the full and the incremental call.
type envelope struct {
	Time    int64                      `json:"time"`
	Version string                     `json:"version"`
	Tracks  map[string]json.RawMessage `json:"tracks"`
}

// Snapshot is a decoded server reply.
type Snapshot struct {
	ServerTime time.Time
	Version    string
	Records    []track.Record
	// DecodeErr joins the errors of records that could not be decoded at all.
	DecodeErr error
}

// DecodeSnapshot parses a full or incremental reply. Records are decoded one by one so a single
// malformed record does not lose the batch. A record that fails to decode is kept as an id-only
// record, which leaves the stored track untouched instead of dropping it.
func DecodeSnapshot(body []byte) (Snapshot, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Snapshot{}, fmt.Errorf("DecodeSnapshot: %w: %w", errMalformedEnvelope, err)
	}
	if env.Time <= 0 {
		return Snapshot{}, fmt.Errorf("DecodeSnapshot: %w: missing server time", errMalformedEnvelope)
	}

	ids := make([]string, 0, len(env.Tracks))
	for id := range env.Tracks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	snap := Snapshot{
		ServerTime: time.UnixMilli(env.Time).UTC(),
		Version:    env.Version,
		Records:    make([]track.Record, 0, len(ids)),
	}

	var decodeErrs []error
	for _, id := range ids {
		var rec track.Record
		if err := json.Unmarshal(env.Tracks[id], &rec); err != nil {
			decodeErrs = append(decodeErrs, fmt.Errorf("record %q: %w", id, err))
			rec = track.Record{}
		}
		if rec.ID == "" {
			rec.ID = id
		}
		snap.Records = append(snap.Records, rec)
	}
	snap.DecodeErr = errors.Join(decodeErrs...)

	return snap, nil
}

// Telemetry is the server's health report. The server formats every number as a string.
type Telemetry struct {
	CPULoad         string            `json:"cpuLoad"`
	MemUsed         string            `json:"memUsed"`
	DiskUsed        string            `json:"diskUsed"`
	Uptime          string            `json:"uptime"`
	Temp            string            `json:"temp,omitempty"`
	WebServerStatus string            `json:"webServerStatus"`
	FeederStatus    map[string]string `json:"feederStatus"`
}

// DecodeTelemetry parses a telemetry reply.
func DecodeTelemetry(body []byte) (Telemetry, error) {
	var tel Telemetry
	if err := json.Unmarshal(body, &tel); err != nil {
		return Telemetry{}, fmt.Errorf("DecodeTelemetry: %w", err)
	}
	return tel, nil
}

// UptimeDuration converts the uptime field, in milliseconds, to a duration.
func (t Telemetry) UptimeDuration() (time.Duration, bool) {
	ms, err := strconv.ParseInt(t.Uptime, 10, 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(ms) * time.Millisecond, true
}

// Summary renders the telemetry as a single status line.
func (t Telemetry) Summary() string {
	line := fmt.Sprintf("server %s, cpu %s%%, mem %s%%, disk %s%%", t.WebServerStatus, t.CPULoad, t.MemUsed, t.DiskUsed)
	if t.Temp != "" {
		line += fmt.Sprintf(", temp %s°C", t.Temp)
	}
	if up, ok := t.UptimeDuration(); ok {
		line += ", up " + up.Truncate(time.Minute).String()
	}

	feeders := make([]string, 0, len(t.FeederStatus))
	for name := range t.FeederStatus {
		feeders = append(feeders, name)
	}
	sort.Strings(feeders)
	for _, name := range feeders {
		line += fmt.Sprintf(", %s %s", name, t.FeederStatus[name])
	}

	return line
}
