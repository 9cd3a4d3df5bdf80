package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/micutio/trackspottr/internal/track"
)

// Session holds everything both apps share: the logger, the track store, the server client, the
// picture cache and the presentation resolver.
type Session struct {
	AppName   string
	Config    Config
	LogParams LogParams
	Logger    *slog.Logger
	Store     *track.Store
	Resolver  *track.Resolver
	Client    *Client
	Cache     SnapshotCache

	closeCache func() error
}

// SyncHooks observe the scheduler. Both are optional.
type SyncHooks struct {
	OnStateChange func(from, to SyncState)
	OnApply       func(kind FetchKind, result track.ApplyResult)
}

// NewSession builds the shared components from a validated configuration.
func NewSession(appName string, cfg Config, params LogParams) (*Session, error) {
	level, err := ParseLogLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("NewSession: %w", err)
	}
	logger := NewLogger(params, level)

	cache, closeCache, err := NewCache(cfg.Cache)
	if errors.Is(err, ErrCacheUnavailable) {
		logger.Warn("cache unreachable, running without a cache", slog.Any("error", err))
	} else if err != nil {
		return nil, fmt.Errorf("NewSession: %w", err)
	}

	overrides, err := track.NewOverrides(cfg.Display.OverrideCapacity)
	if err != nil {
		_ = closeCache()
		return nil, fmt.Errorf("NewSession: %w", err)
	}

	logger.Info("session configured",
		slog.String("server", cfg.BaseURL()),
		slog.String("cache", cfg.Cache.Backend),
		slog.Duration("updateInterval", cfg.Sync.UpdateInterval))

	return &Session{
		AppName:    appName,
		Config:     cfg,
		LogParams:  params,
		Logger:     logger,
		Store:      track.NewStore(cfg.Display.HistoryLength, logger.With(slog.String("component", "store"))),
		Resolver:   &track.Resolver{Kinematics: track.Kinematics{Thresholds: cfg.Thresholds}, Overrides: overrides},
		Client:     NewClient(cfg.BaseURL(), cfg.Server.Timeout, &http.Client{}),
		Cache:      cache,
		closeCache: closeCache,
	}, nil
}

// NewScheduler creates the sync scheduler for this session.
func (s *Session) NewScheduler(hooks SyncHooks) *Scheduler {
	return NewScheduler(s.Client, s.Store, SchedulerOptions{
		UpdateInterval:    s.Config.Sync.UpdateInterval,
		TelemetryInterval: s.Config.Sync.TelemetryInterval,
		StaleMultiple:     s.Config.Sync.StaleMultiple,
		Cache:             s.Cache,
		Logger:            s.Logger.With(slog.String("component", "sync")),
		OnStateChange:     hooks.OnStateChange,
		OnApply:           hooks.OnApply,
	})
}

// NewNotify creates the notifier writing to the session's console.
func (s *Session) NewNotify() *Notify {
	return NewNotify(s.AppName, s.LogParams.ConsoleOut, s.Config.Notifications, s.Config.HomePosition(), s.Logger)
}

// Close releases the cache and the log file.
func (s *Session) Close() error {
	var errs []error
	if err := s.closeCache(); err != nil {
		errs = append(errs, err)
	}
	if s.LogParams.Closer != nil {
		if err := s.LogParams.Closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
