package tuiapp

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/micutio/trackspottr/internal"
	"github.com/micutio/trackspottr/internal/track"
)

const helpLine = "↑/↓ select  esc unselect  enter details  tab stats  t trails  d dead reckoning  " +
	"f affiliation  c clear  +/- zoom  1-9 types  q quit"

func (m *model) View() string {
	// Sets the width of the column to the width of the terminal (m.width).
	column := m.baseStyle.Width(m.width).Render

	var body string
	switch m.page {
	case mainPage:
		body = m.viewTracks()
	case detailsPage:
		body = lipgloss.JoinVertical(lipgloss.Left, m.viewTracks(), m.viewDetails())
	case statsPage:
		body = m.viewStats()
	}

	// Set the content to match the terminal dimensions (m.width and m.height).
	return m.baseStyle.
		Width(m.width).
		Height(m.height).
		Render(
			lipgloss.JoinVertical(lipgloss.Left,
				column(m.viewHeader()),
				column(body),
				column(m.baseStyle.Foreground(m.theme.Secondary).Render(helpLine)),
			),
		)
}

// viewHeader shows the sync state, the offline banner and the display settings.
func (m *model) viewHeader() string {
	state := m.sched.State()
	stateStyle := m.baseStyle.Bold(true)
	switch state {
	case internal.Synced:
		stateStyle = stateStyle.Foreground(m.theme.Green)
	case internal.Uninitialized:
		stateStyle = stateStyle.Foreground(m.theme.Amber)
	case internal.Degraded:
		stateStyle = stateStyle.Foreground(m.theme.Red)
	}

	version := m.sched.Version()
	if version == "" {
		version = "n/a"
	}
	title := fmt.Sprintf("%s  %s  server %s  version %s  %s",
		m.baseStyle.Bold(true).Render(m.session.AppName),
		stateStyle.Render(state.String()),
		m.session.Config.BaseURL(),
		version,
		m.serverNow.UTC().Format("15:04:05Z"))

	banner := ""
	switch state {
	case internal.Degraded:
		banner = m.banner(fmt.Sprintf("OFFLINE: showing last known picture, last update %s ago",
			sinceString(m.sched.LastSuccess())))
	case internal.Uninitialized:
		banner = m.banner("CONNECTING to " + m.session.Config.BaseURL())
	case internal.Synced:
		banner = m.baseStyle.Foreground(m.theme.Secondary).Render(
			fmt.Sprintf("last update %s ago", sinceString(m.sched.LastSuccess())))
	}

	dr := "off"
	if m.view.DeadReckoning {
		dr = "on"
	}
	settings := fmt.Sprintf("trails %s | dead reckoning %s | zoom %d | tracks %d shown of %d | hidden: %s",
		m.view.Trails, dr, m.view.Zoom, len(m.displays), m.sched.Store().Len(), m.hiddenTypes())

	lines := []string{title, banner, settings}
	if m.statusLine != "" {
		lines = append(lines, m.baseStyle.Foreground(m.theme.Amber).Render(m.statusLine))
	}
	return m.viewStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m *model) banner(text string) string {
	return m.baseStyle.
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(m.theme.Red).
		Padding(0, 1).
		Render(text)
}

func (m *model) hiddenTypes() string {
	var hidden []string
	for i, tt := range track.AllTypes() {
		if !m.view.Visible[tt] {
			hidden = append(hidden, fmt.Sprintf("%d:%s", i+1, tt))
		}
	}
	if len(hidden) == 0 {
		return "none"
	}
	return strings.Join(hidden, " ")
}

func (m *model) viewTracks() string {
	return m.viewStyle.Render(m.trackTbl.table.View())
}

// viewDetails shows the detail panel of the selected track.
func (m *model) viewDetails() string {
	d := m.selectedDisplay()
	list := m.baseStyle.
		Border(lipgloss.NormalBorder(), true, false, false, false).
		BorderForeground(m.theme.Border).
		Height(detailsHeight - 1).
		Padding(0, 1)

	if d == nil || d.Details == nil {
		return list.Render("no track selected")
	}

	det := d.Details
	trail := "hidden"
	if d.Trail != nil {
		trail = fmt.Sprintf("%d fixes", len(d.Trail))
		if d.DeadReckoned {
			trail += " + dead-reckoned leg"
		}
	}

	listHeader := m.baseStyle.Bold(true).Render
	return list.Render(lipgloss.JoinVertical(lipgloss.Left,
		listHeader(fmt.Sprintf("%s  %s  %s", d.Name, d.TypeName, d.SymbolCode)),
		lipgloss.JoinHorizontal(lipgloss.Left,
			listItem("TYPE", det.TypeDesc), "  ",
			listItem("INFO", strings.TrimSpace(det.Info1+" "+det.Info2)),
		),
		lipgloss.JoinHorizontal(lipgloss.Left,
			listItem("ALT", det.Altitude), "  ",
			listItem("SPD", det.Speed), "  ",
			listItem("DTG", det.DTG),
		),
		lipgloss.JoinHorizontal(lipgloss.Left,
			listItem("LOC", det.Location), "  ",
			listItem("STATE", d.StateName), "  ",
			listItem("TRAIL", trail),
		),
	))
}

// viewStats shows the highest and fastest tracks, the track count per type and the server
// telemetry.
func (m *model) viewStats() string {
	list := m.baseStyle.
		Border(lipgloss.NormalBorder(), false, true, false, false).
		BorderForeground(m.theme.Border).
		Padding(0, 1)
	listHeader := m.baseStyle.Bold(true).Render

	telemetry := m.telemetry
	if telemetry == "" {
		telemetry = "waiting for telemetry"
	}

	left := list.Render(lipgloss.JoinVertical(lipgloss.Left,
		listHeader("Highest"),
		internal.TrackToString(m.dashboard.Highest, m.home),
		"",
		listHeader("Fastest"),
		internal.TrackToString(m.dashboard.Fastest, m.home),
		"",
		listHeader("Session"),
		fmt.Sprintf("%d tracks seen", m.dashboard.SeenCount()),
		"",
		listHeader("Server"),
		telemetry,
	))

	return m.viewStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		left,
		m.typeCountTbl.table.View(),
	))
}

// listItem formats a key-value pair.
func listItem(key string, value string) string {
	if value == "" {
		value = "n/a"
	}
	return fmt.Sprintf("%s: %s", key, value)
}

func sinceString(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return time.Since(t).Truncate(time.Second).String()
}
