package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/micutio/trackspottr/internal/track"
)

// ErrLateResponse marks a reply that arrived after a newer one had already been applied.
var ErrLateResponse = errors.New("late response dropped")

// SyncState is the connection state towards the server.
type SyncState int

const (
	Uninitialized SyncState = iota
	Synced
	Degraded
)

func (s SyncState) String() string {
	switch s {
	case Uninitialized:
		return "UNINITIALIZED"
	case Synced:
		return "SYNCED"
	case Degraded:
		return "DEGRADED"
	}
	return "UNKNOWN"
}

// FetchKind selects the server call.
type FetchKind int

const (
	FetchFull FetchKind = iota
	FetchUpdate
)

func (k FetchKind) String() string {
	if k == FetchFull {
		return "full"
	}
	return "update"
}

// Fetcher is the I/O side of the scheduler, implemented by Client.
type Fetcher interface {
	First(ctx context.Context) (Snapshot, error)
	Update(ctx context.Context) (Snapshot, error)
	Telemetry(ctx context.Context) (Telemetry, error)
}

// FetchResult is a completed request waiting to be applied.
type FetchResult struct {
	Seq      uint64
	Kind     FetchKind
	Snapshot Snapshot
	Received time.Time
	Err      error
}

// SchedulerOptions configure a Scheduler.
type SchedulerOptions struct {
	UpdateInterval    time.Duration
	TelemetryInterval time.Duration
	StaleMultiple     int
	Cache             SnapshotCache
	Logger            *slog.Logger
	// OnStateChange is called after every state transition, with the scheduler unlocked.
	OnStateChange func(from, to SyncState)
	// OnApply is called after every applied snapshot, with the scheduler unlocked.
	OnApply func(kind FetchKind, result track.ApplyResult)
	// Now replaces the local clock in tests.
	Now func() time.Time
}

// Scheduler keeps the track store in sync with the server.
//
// Fetch performs I/O only and may run on any goroutine; Apply mutates the store and the sync
// state. Callers that run both from one loop can use Tick.
type Scheduler struct {
	mu sync.Mutex

	fetcher Fetcher
	store   *track.Store
	opts    SchedulerOptions
	logger  *slog.Logger

	state       SyncState
	nextSeq     uint64
	lastApplied uint64
	lastSuccess time.Time
	clockOffset time.Duration
	version     string

	telemetry     Telemetry
	telemetryTime time.Time
	telemetryErr  error
}

// NewScheduler creates a scheduler in the UNINITIALIZED state.
func NewScheduler(fetcher Fetcher, store *track.Store, opts SchedulerOptions) *Scheduler {
	if opts.UpdateInterval <= 0 {
		opts.UpdateInterval = DefaultUpdateInterval
	}
	if opts.TelemetryInterval <= 0 {
		opts.TelemetryInterval = DefaultTelemetryInterval
	}
	if opts.StaleMultiple <= 0 {
		opts.StaleMultiple = DefaultStaleMultiple
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		fetcher: fetcher,
		store:   store,
		opts:    opts,
		logger:  logger,
	}
}

// NextKind decides the next call: a full snapshot until the first success and whenever the last
// success is older than StaleMultiple update intervals, otherwise an incremental update.
func (s *Scheduler) NextKind() FetchKind {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.nextKindLocked()
}

func (s *Scheduler) nextKindLocked() FetchKind {
	if s.state == Uninitialized || s.lastSuccess.IsZero() {
		return FetchFull
	}
	staleAfter := time.Duration(s.opts.StaleMultiple) * s.opts.UpdateInterval
	if s.opts.Now().Sub(s.lastSuccess) > staleAfter {
		return FetchFull
	}
	return FetchUpdate
}

// Fetch performs one request. It never touches the store.
func (s *Scheduler) Fetch(ctx context.Context, kind FetchKind) FetchResult {
	s.mu.Lock()
	s.nextSeq++
	seq := s.nextSeq
	s.mu.Unlock()

	var snap Snapshot
	var err error
	if kind == FetchFull {
		snap, err = s.fetcher.First(ctx)
	} else {
		snap, err = s.fetcher.Update(ctx)
	}

	return FetchResult{Seq: seq, Kind: kind, Snapshot: snap, Received: s.opts.Now(), Err: err}
}

// Apply reconciles a fetched snapshot into the store and advances the sync state. Replies older
// than the newest applied one are dropped with ErrLateResponse and change nothing.
func (s *Scheduler) Apply(res FetchResult) (track.ApplyResult, error) {
	s.mu.Lock()

	if res.Seq <= s.lastApplied {
		s.mu.Unlock()
		s.logger.Debug("dropping late response",
			slog.Uint64("seq", res.Seq), slog.Uint64("lastApplied", s.lastApplied))
		return track.ApplyResult{}, fmt.Errorf("Apply %s #%d: %w", res.Kind, res.Seq, ErrLateResponse)
	}

	from := s.state
	if res.Err != nil {
		if s.state == Synced {
			s.state = Degraded
		}
		to := s.state
		s.mu.Unlock()

		s.logger.Warn("fetch failed", slog.String("kind", res.Kind.String()), slog.Any("error", res.Err))
		s.notifyState(from, to)
		return track.ApplyResult{}, res.Err
	}

	if res.Snapshot.DecodeErr != nil {
		s.logger.Warn("undecodable track records", slog.Any("error", res.Snapshot.DecodeErr))
	}

	var result track.ApplyResult
	if res.Kind == FetchFull {
		result = s.store.ApplyFullSnapshot(res.Snapshot.Records)
	} else {
		result = s.store.ApplyIncrementalUpdate(res.Snapshot.Records)
	}

	s.lastApplied = res.Seq
	s.lastSuccess = res.Received
	s.clockOffset = res.Received.Sub(res.Snapshot.ServerTime)
	if res.Snapshot.Version != "" {
		s.version = res.Snapshot.Version
	}
	s.state = Synced
	s.mu.Unlock()

	s.logger.Debug("applied snapshot",
		slog.String("kind", res.Kind.String()),
		slog.Int("created", result.Created),
		slog.Int("updated", result.Updated),
		slog.Int("removed", result.Removed),
		slog.Int("rejected", result.Rejected))

	s.notifyState(from, Synced)
	if s.opts.OnApply != nil {
		s.opts.OnApply(res.Kind, result)
	}

	return result, nil
}

func (s *Scheduler) notifyState(from, to SyncState) {
	if from == to {
		return
	}
	s.logger.Info("sync state changed", slog.String("from", from.String()), slog.String("to", to.String()))
	if s.opts.OnStateChange != nil {
		s.opts.OnStateChange(from, to)
	}
}

// Tick fetches whatever NextKind asks for and applies it.
func (s *Scheduler) Tick(ctx context.Context) (track.ApplyResult, error) {
	return s.Apply(s.Fetch(ctx, s.NextKind()))
}

// Restore loads the cached picture into the store. A missing cache is not an error.
func (s *Scheduler) Restore(ctx context.Context) (int, error) {
	if s.opts.Cache == nil {
		return 0, nil
	}

	pic, err := s.opts.Cache.Load(ctx)
	if errors.Is(err, ErrNoCachedPicture) {
		s.logger.Info("no cached picture to restore")
		return 0, nil
	} else if err != nil {
		return 0, fmt.Errorf("Restore: %w", err)
	}

	n := s.store.Restore(pic.Tracks)
	s.logger.Info("restored cached picture",
		slog.Int("tracks", n), slog.Time("savedAt", pic.SavedAt))
	return n, nil
}

// Start restores the cache and performs the first full fetch. A failed fetch leaves the scheduler
// UNINITIALIZED and is retried by the next tick.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.Restore(ctx); err != nil {
		s.logger.Warn("ignoring unreadable cache", slog.Any("error", err))
	}

	if _, err := s.Apply(s.Fetch(ctx, FetchFull)); err != nil {
		return fmt.Errorf("Start: %w", err)
	}
	return nil
}

// Save writes the current picture to the cache, if one is configured.
func (s *Scheduler) Save(ctx context.Context) error {
	if s.opts.Cache == nil {
		return nil
	}

	pic := Picture{
		SavedAt:    s.opts.Now(),
		ServerTime: s.ServerNow(),
		Version:    s.Version(),
		Tracks:     s.store.Snapshot(),
	}
	if err := s.opts.Cache.Save(ctx, pic); err != nil {
		return fmt.Errorf("Save: %w", err)
	}
	return nil
}

// PollTelemetry refreshes the server telemetry. Failures are recorded and logged but never affect
// the sync state.
func (s *Scheduler) PollTelemetry(ctx context.Context) (Telemetry, error) {
	tel, err := s.fetcher.Telemetry(ctx)

	s.mu.Lock()
	s.telemetryErr = err
	if err == nil {
		s.telemetry = tel
		s.telemetryTime = s.opts.Now()
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("telemetry poll failed", slog.Any("error", err))
	}
	return tel, err
}

// Run starts the scheduler and keeps polling until ctx is cancelled. The cache is saved on the
// way out.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		s.logger.Warn("initial fetch failed", slog.Any("error", err))
	}
	s.PollTelemetry(ctx) //nolint:errcheck // logged

	updateTicker := time.NewTicker(s.opts.UpdateInterval)
	defer updateTicker.Stop()
	telemetryTicker := time.NewTicker(s.opts.TelemetryInterval)
	defer telemetryTicker.Stop()

	for {
		select {
		case <-updateTicker.C:
			s.Tick(ctx) //nolint:errcheck // logged in Apply
		case <-telemetryTicker.C:
			s.PollTelemetry(ctx) //nolint:errcheck // logged
		case <-ctx.Done():
			s.logger.Info("stopping sync loop")
			saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second) //nolint:mnd // shutdown grace
			defer cancel()
			if err := s.Save(saveCtx); err != nil {
				s.logger.Error("saving picture failed", slog.Any("error", err))
			}
			return nil
		}
	}
}

// State returns the current sync state.
func (s *Scheduler) State() SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ClockOffset is local receive time minus server time of the newest applied snapshot.
func (s *Scheduler) ClockOffset() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clockOffset
}

// ServerNow estimates the current time in the server's reference frame. All track ages are
// measured against it.
func (s *Scheduler) ServerNow() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts.Now().Add(-s.clockOffset)
}

// LastSuccess returns the local time of the newest applied snapshot.
func (s *Scheduler) LastSuccess() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSuccess
}

// Version returns the server software version reported by the last full snapshot.
func (s *Scheduler) Version() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Telemetry returns the last good telemetry, when it arrived and the error of the latest poll.
func (s *Scheduler) Telemetry() (Telemetry, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.telemetry, s.telemetryTime, s.telemetryErr
}

// Store returns the track store the scheduler feeds.
func (s *Scheduler) Store() *track.Store {
	return s.store
}
