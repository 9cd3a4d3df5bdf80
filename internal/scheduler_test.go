package internal

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/micutio/trackspottr/internal/track"
)

var errServerDown = errors.New("connection refused")

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func f64(v float64) *float64 { return &v }
func flag(v bool) *bool      { return &v }

// fakeFetcher replies with canned snapshots and counts the calls per kind.
type fakeFetcher struct {
	mu        sync.Mutex
	first     Snapshot
	update    Snapshot
	err       error
	telemetry Telemetry
	telErr    error
	calls     map[string]int
}

func newFakeFetcher(serverTime time.Time) *fakeFetcher {
	return &fakeFetcher{
		first: Snapshot{
			ServerTime: serverTime,
			Version:    "3.1.0",
			Records: []track.Record{
				{ID: "a1", TrackType: "AIRCRAFT", Lat: f64(50), Lon: f64(-1)},
				{ID: "base", TrackType: "BASE_STATION", Lat: f64(50.7), Lon: f64(-1.8), CreatedByConfig: flag(true)},
			},
		},
		update: Snapshot{
			ServerTime: serverTime,
			Records:    []track.Record{{ID: "a1", Lat: f64(50.01), Lon: f64(-1)}},
		},
		calls: make(map[string]int),
	}
}

func (f *fakeFetcher) First(context.Context) (Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["first"]++
	return f.first, f.err
}

func (f *fakeFetcher) Update(context.Context) (Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["update"]++
	return f.update, f.err
}

func (f *fakeFetcher) Telemetry(context.Context) (Telemetry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["telemetry"]++
	return f.telemetry, f.telErr
}

func (f *fakeFetcher) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type transition struct{ from, to SyncState }

func newTestScheduler(fetcher Fetcher, clock *fakeClock, transitions *[]transition) *Scheduler {
	return NewScheduler(fetcher, track.NewStore(track.DefaultHistoryLength, quietLogger()), SchedulerOptions{
		UpdateInterval: 10 * time.Second,
		StaleMultiple:  6,
		Logger:         quietLogger(),
		Now:            clock.Now,
		OnStateChange: func(from, to SyncState) {
			if transitions != nil {
				*transitions = append(*transitions, transition{from, to})
			}
		},
	})
}

var schedulerEpoch = time.Date(2024, 3, 5, 14, 32, 0, 0, time.UTC)

func TestSchedulerStateTransitions(t *testing.T) {
	clock := &fakeClock{now: schedulerEpoch}
	fetcher := newFakeFetcher(schedulerEpoch)
	var transitions []transition
	s := newTestScheduler(fetcher, clock, &transitions)
	ctx := context.Background()

	if s.State() != Uninitialized {
		t.Fatalf("want UNINITIALIZED, got %s", s.State())
	}

	// a failure before the first success keeps the scheduler uninitialised
	fetcher.setErr(errServerDown)
	if _, err := s.Tick(ctx); !errors.Is(err, errServerDown) {
		t.Errorf("want errServerDown, got %v", err)
	}
	if s.State() != Uninitialized {
		t.Errorf("want UNINITIALIZED after failed first fetch, got %s", s.State())
	}

	fetcher.setErr(nil)
	clock.Advance(10 * time.Second)
	if _, err := s.Tick(ctx); err != nil {
		t.Fatalf("Tick() error: %v", err)
	}
	if s.State() != Synced {
		t.Errorf("want SYNCED, got %s", s.State())
	}
	if s.Store().Len() != 2 {
		t.Errorf("want 2 tracks, got %d", s.Store().Len())
	}
	if s.Version() != "3.1.0" {
		t.Errorf("want version 3.1.0, got %q", s.Version())
	}

	fetcher.setErr(errServerDown)
	clock.Advance(10 * time.Second)
	s.Tick(ctx) //nolint:errcheck // failure expected
	if s.State() != Degraded {
		t.Errorf("want DEGRADED, got %s", s.State())
	}
	if s.Store().Len() != 2 {
		t.Errorf("degraded scheduler must keep the picture, got %d tracks", s.Store().Len())
	}

	fetcher.setErr(nil)
	clock.Advance(10 * time.Second)
	if _, err := s.Tick(ctx); err != nil {
		t.Fatalf("Tick() error: %v", err)
	}
	if s.State() != Synced {
		t.Errorf("want SYNCED after recovery, got %s", s.State())
	}

	want := []transition{{Uninitialized, Synced}, {Synced, Degraded}, {Degraded, Synced}}
	if len(transitions) != len(want) {
		t.Fatalf("want transitions %v, got %v", want, transitions)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("want transition %v, got %v", want[i], transitions[i])
		}
	}
}

func TestSchedulerNextKind(t *testing.T) {
	clock := &fakeClock{now: schedulerEpoch}
	fetcher := newFakeFetcher(schedulerEpoch)
	s := newTestScheduler(fetcher, clock, nil)
	ctx := context.Background()

	if s.NextKind() != FetchFull {
		t.Errorf("want full fetch before the first success")
	}
	s.Tick(ctx) //nolint:errcheck // checked by state

	tests := []struct {
		name    string
		elapsed time.Duration
		want    FetchKind
	}{
		{name: "fresh", elapsed: 10 * time.Second, want: FetchUpdate},
		{name: "at stale limit", elapsed: 60 * time.Second, want: FetchUpdate},
		{name: "stale", elapsed: 61 * time.Second, want: FetchFull},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			clock.mu.Lock()
			clock.now = schedulerEpoch.Add(test.elapsed)
			clock.mu.Unlock()

			if got := s.NextKind(); got != test.want {
				t.Errorf("want %s, got %s", test.want, got)
			}
		})
	}
}

func TestSchedulerDegradedGoesStaleAndRefetchesFull(t *testing.T) {
	clock := &fakeClock{now: schedulerEpoch}
	fetcher := newFakeFetcher(schedulerEpoch)
	s := newTestScheduler(fetcher, clock, nil)
	ctx := context.Background()

	s.Tick(ctx) //nolint:errcheck // first full fetch
	fetcher.setErr(errServerDown)
	for range 7 {
		clock.Advance(10 * time.Second)
		s.Tick(ctx) //nolint:errcheck // failures expected
	}
	if s.NextKind() != FetchFull {
		t.Fatal("want a full fetch once the last success is stale")
	}

	fetcher.setErr(nil)
	clock.Advance(10 * time.Second)
	if _, err := s.Tick(ctx); err != nil {
		t.Fatalf("Tick() error: %v", err)
	}
	if s.NextKind() != FetchUpdate {
		t.Error("want incremental updates after the full refetch")
	}
}

func TestSchedulerDropsLateResponse(t *testing.T) {
	clock := &fakeClock{now: schedulerEpoch}
	fetcher := newFakeFetcher(schedulerEpoch)
	s := newTestScheduler(fetcher, clock, nil)
	ctx := context.Background()

	early := s.Fetch(ctx, FetchFull)
	late := s.Fetch(ctx, FetchFull)
	late.Snapshot.Records = late.Snapshot.Records[:1]

	if _, err := s.Apply(late); err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	if _, err := s.Apply(early); !errors.Is(err, ErrLateResponse) {
		t.Errorf("want ErrLateResponse, got %v", err)
	}
	if s.Store().Len() != 1 {
		t.Errorf("late response changed the store, got %d tracks", s.Store().Len())
	}
}

func TestSchedulerClockOffset(t *testing.T) {
	// the local clock runs 90 s ahead of the server
	clock := &fakeClock{now: schedulerEpoch.Add(90 * time.Second)}
	fetcher := newFakeFetcher(schedulerEpoch)
	s := newTestScheduler(fetcher, clock, nil)

	if _, err := s.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error: %v", err)
	}

	if got := s.ClockOffset().Seconds(); math.Abs(got-90) > 1e-9 {
		t.Errorf("want clock offset 90s, got %vs", got)
	}
	if !s.ServerNow().Equal(schedulerEpoch) {
		t.Errorf("want server now %v, got %v", schedulerEpoch, s.ServerNow())
	}
}

func TestSchedulerTelemetryDoesNotChangeState(t *testing.T) {
	clock := &fakeClock{now: schedulerEpoch}
	fetcher := newFakeFetcher(schedulerEpoch)
	fetcher.telErr = errServerDown
	s := newTestScheduler(fetcher, clock, nil)
	ctx := context.Background()

	s.Tick(ctx) //nolint:errcheck // sync first
	if _, err := s.PollTelemetry(ctx); !errors.Is(err, errServerDown) {
		t.Errorf("want errServerDown, got %v", err)
	}
	if s.State() != Synced {
		t.Errorf("telemetry failure changed state to %s", s.State())
	}
	if _, _, err := s.Telemetry(); !errors.Is(err, errServerDown) {
		t.Errorf("want recorded telemetry error, got %v", err)
	}

	fetcher.mu.Lock()
	fetcher.telErr = nil
	fetcher.telemetry = Telemetry{WebServerStatus: "OK"}
	fetcher.mu.Unlock()

	if _, err := s.PollTelemetry(ctx); err != nil {
		t.Fatalf("PollTelemetry() error: %v", err)
	}
	tel, at, err := s.Telemetry()
	if err != nil || tel.WebServerStatus != "OK" || !at.Equal(schedulerEpoch) {
		t.Errorf("unexpected telemetry %+v at %v (%v)", tel, at, err)
	}
}

func TestSchedulerStartRestoresCache(t *testing.T) {
	cache := NewFileCache(t.TempDir() + "/picture.cache")
	cached := Picture{
		SavedAt: schedulerEpoch.Add(-time.Hour),
		Tracks: []track.Track{
			{ID: "old", Type: track.Ship, Lat: f64(50.5), Lon: f64(-1.5)},
		},
	}
	if err := cache.Save(context.Background(), cached); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	clock := &fakeClock{now: schedulerEpoch}
	fetcher := newFakeFetcher(schedulerEpoch)
	fetcher.setErr(errServerDown)
	s := NewScheduler(fetcher, track.NewStore(track.DefaultHistoryLength, quietLogger()), SchedulerOptions{
		Cache:  cache,
		Logger: quietLogger(),
		Now:    clock.Now,
	})

	if err := s.Start(context.Background()); !errors.Is(err, errServerDown) {
		t.Errorf("want errServerDown from Start, got %v", err)
	}
	if _, ok := s.Store().Get("old"); !ok {
		t.Error("want cached track restored while the server is down")
	}
	if s.State() != Uninitialized {
		t.Errorf("want UNINITIALIZED, got %s", s.State())
	}

	// the first full snapshot replaces the restored picture
	fetcher.setErr(nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if _, ok := s.Store().Get("old"); ok {
		t.Error("full snapshot kept a restored track the server no longer reports")
	}
}

func TestSchedulerSaveWithoutCache(t *testing.T) {
	s := newTestScheduler(newFakeFetcher(schedulerEpoch), &fakeClock{now: schedulerEpoch}, nil)
	if err := s.Save(context.Background()); err != nil {
		t.Errorf("want nil error without cache, got %v", err)
	}
}
