// Package tuiapp provides the TUI app which displays the track picture, updates continuously
// and can be interacted with.
// Layout:
// +-------------------------------------------------+
// | app  SYNCED  server ...  version ...  14:32:05Z |
// | offline banner / last update                    |
// | trails, dead reckoning, zoom, hidden types      |
// |  ____________________________________________   |
// | | track table sorted by range                |  |
// | | ...                                        |  |
// |  --------------------------------------------   |
// | details of the selected track (enter)           |
// +-------------------------------------------------+
// .
package tuiapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/micutio/trackspottr/internal"
)

const saveTimeout = 5 * time.Second

// Run shows the TUI until the user quits or ctx is cancelled. The local HTTP endpoint, if
// configured, runs alongside and serves the same view.
func Run(ctx context.Context, session *internal.Session) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shared := newSharedView(session.Config.View())
	notify := session.NewNotify()
	sched := session.NewScheduler(internal.SyncHooks{OnStateChange: notify.SyncStateChanged})

	group, groupCtx := errgroup.WithContext(ctx)

	m := newModel(groupCtx, session, sched, notify, shared)
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(groupCtx))

	group.Go(func() error {
		// the endpoint stops with the TUI
		defer cancel()
		if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("tuiapp.Run: %w", err)
		}
		return nil
	})

	if listen := session.Config.Listen; listen != "" {
		server := internal.NewDisplayServer(sched, session.Resolver, shared.Load, session.Logger)
		group.Go(func() error {
			return server.ListenAndServe(groupCtx, listen)
		})
	}

	err := group.Wait()

	saveCtx, cancelSave := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancelSave()
	if saveErr := sched.Save(saveCtx); saveErr != nil {
		session.Logger.Error("saving picture failed", slog.Any("error", saveErr))
	}

	return err
}
