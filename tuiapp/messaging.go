package tuiapp

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/micutio/trackspottr/internal"
)

// renderInterval is how often the picture is re-resolved, independent of the network.
const renderInterval = time.Second

type renderTickMsg time.Time

func renderTick() tea.Cmd {
	return tea.Tick(renderInterval, func(t time.Time) tea.Msg {
		return renderTickMsg(t)
	})
}

type syncTickMsg time.Time

func syncTick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return syncTickMsg(t)
	})
}

type telemetryTickMsg time.Time

func telemetryTick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return telemetryTickMsg(t)
	})
}

type warmupDoneMsg struct{}

func warmupTimer() tea.Cmd {
	return tea.Tick(internal.DashboardWarmup, func(time.Time) tea.Msg {
		return warmupDoneMsg{}
	})
}

// fetchedMsg carries a completed request back to Update, where it is applied.
type fetchedMsg internal.FetchResult

func fetchCmd(ctx context.Context, sched *internal.Scheduler, kind internal.FetchKind) tea.Cmd {
	return func() tea.Msg {
		return fetchedMsg(sched.Fetch(ctx, kind))
	}
}

type telemetryMsg struct {
	telemetry internal.Telemetry
	err       error
}

func telemetryCmd(ctx context.Context, sched *internal.Scheduler) tea.Cmd {
	return func() tea.Msg {
		tel, err := sched.PollTelemetry(ctx)
		return telemetryMsg{telemetry: tel, err: err}
	}
}

type restoredMsg struct {
	count int
	err   error
}

func restoreCmd(ctx context.Context, sched *internal.Scheduler) tea.Cmd {
	return func() tea.Msg {
		n, err := sched.Restore(ctx)
		return restoredMsg{count: n, err: err}
	}
}
