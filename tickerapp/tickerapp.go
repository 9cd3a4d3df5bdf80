// Package tickerapp launches the ticker application which writes out all updates to stdout and
// can be piped into other programs and processed further.
// This is in contrast to the TUI app, which works more like htop.
package tickerapp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/micutio/trackspottr/internal"
	"github.com/micutio/trackspottr/internal/track"
)

// applied is a reconciled snapshot handed from the sync loop to the report loop.
type applied struct {
	kind   internal.FetchKind
	result track.ApplyResult
}

// Run keeps the picture in sync and reports to stdout until ctx is cancelled.
func Run(ctx context.Context, session *internal.Session) error {
	cfg := session.Config
	logger := session.Logger
	home := cfg.HomePosition()

	fmt.Fprintf(session.LogParams.ConsoleOut, "%s launching at Lat: %.3f, Lon: %.3f, server %s\n",
		session.AppName, home.Lat, home.Lon, cfg.BaseURL())

	notify := session.NewNotify()
	dashboard := internal.NewDashboard(home, logger.With(slog.String("component", "dashboard")))

	// buffered so a slow console never holds up the sync loop
	updates := make(chan applied, 8) //nolint:mnd // a few ticks of slack
	sched := session.NewScheduler(internal.SyncHooks{
		OnStateChange: notify.SyncStateChanged,
		OnApply: func(kind internal.FetchKind, result track.ApplyResult) {
			select {
			case updates <- applied{kind: kind, result: result}:
			default:
				logger.Warn("report loop is behind, skipping update report")
			}
		},
	})

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return sched.Run(ctx)
	})

	if cfg.Listen != "" {
		server := internal.NewDisplayServer(sched, session.Resolver, func() track.View { return cfg.View() }, logger)
		group.Go(func() error {
			return server.ListenAndServe(ctx, cfg.Listen)
		})
	}

	group.Go(func() error {
		report(ctx, sched, dashboard, notify, updates)
		return nil
	})

	err := group.Wait()
	logger.Info("ticker stopped")
	return err
}

// report prints every applied update, rare sightings and the periodic summary.
func report(
	ctx context.Context,
	sched *internal.Scheduler,
	dashboard *internal.Dashboard,
	notify *internal.Notify,
	updates <-chan applied,
) {
	// Set a timeout for the warmup period. After that point in time we will show rare tracks immediately
	warmup := time.NewTimer(internal.DashboardWarmup)
	defer warmup.Stop()

	summaryTicker := time.NewTicker(internal.SummaryInterval)
	defer summaryTicker.Stop()

	for {
		select {
		case upd := <-updates:
			now := sched.ServerNow()
			dashboard.ProcessTracks(sched.Store().Snapshot(), now)
			notify.Stdout.Printf("%s %s: %d tracks, +%d ~%d -%d, %d rejected\n",
				now.Format(time.TimeOnly), upd.kind, sched.Store().Len(),
				upd.result.Created, upd.result.Updated, upd.result.Removed, upd.result.Rejected)
			notify.EmitRarityNotifications(dashboard.RareSightings)
		case <-warmup.C:
			dashboard.FinishWarmupPeriod()
		case <-summaryTicker.C:
			notify.PrintSummary(dashboard)
			if tel, at, err := sched.Telemetry(); err == nil && !at.IsZero() {
				notify.Stdout.Println(tel.Summary())
			}
		case <-ctx.Done():
			notify.PrintSummary(dashboard)
			return
		}
	}
}
