package tuiapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/micutio/trackspottr/internal"
	"github.com/micutio/trackspottr/internal/track"
)

const (
	minZoom = 0
	maxZoom = 20
	// headerHeight is the number of lines above the track table.
	headerHeight = 6
	// detailsHeight is the number of lines taken by the details pane.
	detailsHeight = 6
)

// sharedView hands the current view to the local HTTP endpoint, which reads it from another
// goroutine.
type sharedView struct {
	mu   sync.RWMutex
	view track.View
}

func newSharedView(view track.View) *sharedView {
	s := &sharedView{}
	s.Store(view)
	return s
}

func (s *sharedView) Store(view track.View) {
	view.Visible = maps.Clone(view.Visible)
	s.mu.Lock()
	s.view = view
	s.mu.Unlock()
}

func (s *sharedView) Load() track.View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	view := s.view
	view.Visible = maps.Clone(view.Visible)
	return view
}

// Model implements the bubbletea.Model interface, which requires three methods:
// - Init() Cmd
// - Update(Msg) (Model, Cmd)
// - View() string
// This forms the base for the TUI app.
type model struct {
	ctx       context.Context //nolint:containedctx // bounds the fetch commands
	session   *internal.Session
	sched     *internal.Scheduler
	dashboard *internal.Dashboard
	notify    *internal.Notify
	logger    *slog.Logger
	home      track.Position

	view   track.View
	shared *sharedView
	page   uiState

	width        int
	height       int
	baseStyle    lipgloss.Style
	viewStyle    lipgloss.Style
	theme        Theme
	tableStyle   table.Styles
	trackTbl     autoFormatTable
	typeCountTbl autoFormatTable

	displays   []track.Display // visible tracks in table order
	serverNow  time.Time
	telemetry  string
	statusLine string
}

func newModel(
	ctx context.Context,
	session *internal.Session,
	sched *internal.Scheduler,
	notify *internal.Notify,
	shared *sharedView,
) *model {
	tableStyle := table.DefaultStyles()
	tableStyle.Selected = lipgloss.NewStyle()

	trackTbl := newTrackTable(tableStyle)
	trackTbl.table.Blur()

	home := session.Config.HomePosition()
	return &model{
		ctx:          ctx,
		session:      session,
		sched:        sched,
		dashboard:    internal.NewDashboard(home, session.Logger.With(slog.String("component", "dashboard"))),
		notify:       notify,
		logger:       session.Logger,
		home:         home,
		view:         shared.Load(),
		shared:       shared,
		page:         mainPage,
		baseStyle:    lipgloss.NewStyle(),
		viewStyle:    lipgloss.NewStyle(),
		theme:        Color,
		tableStyle:   tableStyle,
		trackTbl:     trackTbl,
		typeCountTbl: newTypeCountTable(tableStyle),
	}
}

// Init restores the cached picture and starts the render, sync and telemetry ticks.
func (m *model) Init() tea.Cmd {
	cfg := m.session.Config
	return tea.Batch(
		restoreCmd(m.ctx, m.sched),
		renderTick(),
		syncTick(cfg.Sync.UpdateInterval),
		telemetryCmd(m.ctx, m.sched),
		telemetryTick(cfg.Sync.TelemetryInterval),
		warmupTimer(),
	)
}

// Update takes a tea.Msg as input and uses a type switch to handle different types of messages.
// Each case in the switch statement corresponds to a specific message type.
func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) { //nolint:ireturn // required by interface
	switch thisMsg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = thisMsg.Height
		m.width = thisMsg.Width
		m.layout()

	case tea.KeyMsg:
		return m.handleKey(thisMsg)

	case renderTickMsg:
		m.refresh()
		return m, renderTick()

	case syncTickMsg:
		return m, tea.Batch(
			fetchCmd(m.ctx, m.sched, m.sched.NextKind()),
			syncTick(m.session.Config.Sync.UpdateInterval))

	case fetchedMsg:
		m.applyFetch(internal.FetchResult(thisMsg))

	case restoredMsg:
		if thisMsg.err != nil {
			m.logger.Warn("ignoring unreadable cache", slog.Any("error", thisMsg.err))
		} else if thisMsg.count > 0 {
			m.statusLine = fmt.Sprintf("showing %d cached tracks until the server answers", thisMsg.count)
		}
		m.refresh()
		return m, fetchCmd(m.ctx, m.sched, internal.FetchFull)

	case telemetryTickMsg:
		return m, tea.Batch(telemetryCmd(m.ctx, m.sched), telemetryTick(m.session.Config.Sync.TelemetryInterval))

	case telemetryMsg:
		if thisMsg.err != nil {
			m.telemetry = "telemetry unavailable"
		} else {
			m.telemetry = thisMsg.telemetry.Summary()
		}

	case warmupDoneMsg:
		m.dashboard.FinishWarmupPeriod()
	}

	// If the message type does not match any of the handled cases, the model is returned unchanged,
	// and no new command is issued.
	return m, nil
}

func (m *model) applyFetch(res internal.FetchResult) {
	result, err := m.sched.Apply(res)
	if errors.Is(err, internal.ErrLateResponse) {
		return
	}
	if err == nil {
		m.dashboard.ProcessTracks(m.sched.Store().Snapshot(), m.sched.ServerNow())
		m.notify.EmitRarityNotifications(m.dashboard.RareSightings)
		m.statusLine = ""
		if result.Rejected > 0 {
			m.statusLine = "some track records were rejected, see log"
		}
	}
	m.refresh()
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) { //nolint:ireturn // part of Update
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "up", "k", "down", "j", "pgup", "pgdown", "home", "end":
		if !m.trackTbl.table.Focused() {
			m.setFocus(true)
		} else {
			var cmd tea.Cmd
			m.trackTbl.table, cmd = m.trackTbl.table.Update(msg)
			m.selectCursorRow()
			m.viewChanged()
			return m, cmd
		}
		m.selectCursorRow()

	// Toggles the focus state of the track table; an unfocused table has no selection.
	case "esc":
		m.setFocus(!m.trackTbl.table.Focused())
		m.selectCursorRow()

	case "enter":
		if m.page == detailsPage {
			m.page = mainPage
		} else {
			m.page = detailsPage
		}
		m.layout()

	case "tab":
		if m.page == statsPage {
			m.page = mainPage
		} else {
			m.page = statsPage
		}
		m.layout()

	case "t":
		m.view.Trails = m.view.Trails.Next()

	case "d":
		m.view.DeadReckoning = !m.view.DeadReckoning

	case "+", "=":
		m.view.Zoom = min(m.view.Zoom+1, maxZoom)

	case "-":
		m.view.Zoom = max(m.view.Zoom-1, minZoom)

	case "f":
		m.cycleAffiliation()

	case "c":
		if m.view.Selected != "" {
			m.session.Resolver.Overrides.Clear(m.view.Selected)
		}

	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		types := track.AllTypes()
		if idx := int(msg.String()[0] - '1'); idx < len(types) {
			m.view.Visible.Toggle(types[idx])
		}

	default:
		return m, nil
	}

	m.viewChanged()
	return m, nil
}

func (m *model) setFocus(focused bool) {
	if focused {
		m.tableStyle.Selected = m.baseStyle.Background(m.theme.Highlight)
		m.trackTbl.table.SetStyles(m.tableStyle)
		m.trackTbl.table.Focus()
		return
	}
	m.tableStyle.Selected = m.baseStyle
	m.trackTbl.table.SetStyles(m.tableStyle)
	m.trackTbl.table.Blur()
}

// selectCursorRow makes the row under the cursor the selected track while the table is focused.
func (m *model) selectCursorRow() {
	m.view.Selected = ""
	if !m.trackTbl.table.Focused() {
		return
	}
	if row := m.trackTbl.table.SelectedRow(); len(row) > colID {
		m.view.Selected = row[colID]
	}
}

// cycleAffiliation pins the selected track's symbol to the next affiliation.
func (m *model) cycleAffiliation() {
	if m.view.Selected == "" {
		return
	}
	t, ok := m.sched.Store().Get(m.view.Selected)
	if !ok {
		return
	}

	anticipated := m.session.Resolver.Kinematics.IsAnticipated(&t, m.sched.ServerNow(), m.view.DeadReckoning)
	current := track.EffectiveSymbolCode(&t, m.session.Resolver.Overrides, anticipated)
	affiliation, ok := track.AffiliationOf(current)
	if !ok {
		return
	}
	code := m.session.Resolver.Overrides.SetAffiliation(t.ID, affiliation.Next(), current)
	m.logger.Info("symbol override",
		slog.String("track", t.ID), slog.String("symbol", code))
}

// viewChanged publishes the view and redraws the picture.
func (m *model) viewChanged() {
	m.shared.Store(m.view)
	m.refresh()
}

// refresh resolves the picture against the current server time and rebuilds the tables.
func (m *model) refresh() {
	m.serverNow = m.sched.ServerNow()
	tracks := m.sched.Store().Snapshot()
	all := m.session.Resolver.Resolve(tracks, m.view, m.serverNow)

	m.displays = m.displays[:0]
	for i := range all {
		if all[i].Visible {
			m.displays = append(m.displays, all[i])
		}
	}
	m.sortByRange()

	rows := make([]table.Row, 0, len(m.displays))
	cursor := -1
	for i := range m.displays {
		rows = append(rows, displayToRow(&m.displays[i], m.home))
		if m.displays[i].ID == m.view.Selected {
			cursor = i
		}
	}
	m.trackTbl.table.SetRows(rows)
	if cursor >= 0 {
		m.trackTbl.table.SetCursor(cursor)
	} else if m.view.Selected != "" {
		// selected track was removed or hidden
		m.selectCursorRow()
		m.shared.Store(m.view)
	}

	counts := make(map[string]int)
	for tt, n := range m.sched.Store().CountByType() {
		counts[tt.String()] = n
	}
	countRows := make([]table.Row, 0, len(counts))
	for _, propCount := range internal.GetSortedCountsForProperty(counts) {
		countRows = append(countRows, propertyCountToRow(propCount))
	}
	m.typeCountTbl.table.SetRows(countRows)
}

// sortByRange orders the visible tracks by range from home; tracks without a position go last.
func (m *model) sortByRange() {
	ranges := make(map[string]float64, len(m.displays))
	for i := range m.displays {
		ranges[m.displays[i].ID] = math.Inf(1)
		if p := m.displays[i].Position; p != nil {
			ranges[m.displays[i].ID] = track.Distance(m.home, *p).NauticalMiles()
		}
	}
	sort.SliceStable(m.displays, func(i, j int) bool {
		ri, rj := ranges[m.displays[i].ID], ranges[m.displays[j].ID]
		if ri != rj {
			return ri < rj
		}
		return m.displays[i].ID < m.displays[j].ID
	})
}

// selectedDisplay returns the resolved selected track, if it is visible.
func (m *model) selectedDisplay() *track.Display {
	for i := range m.displays {
		if m.displays[i].Selected {
			return &m.displays[i]
		}
	}
	return nil
}

func (m *model) layout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	tableHeight := m.height - headerHeight - 2 //nolint:mnd // footer
	if m.page == detailsPage {
		tableHeight -= detailsHeight
	}
	m.trackTbl.SetHeight(max(tableHeight, 3)) //nolint:mnd // header plus two rows
	m.typeCountTbl.SetHeight(len(track.AllTypes()) + 2) //nolint:mnd // header and border

	if err := m.trackTbl.resize(m.width); err != nil {
		m.logger.Error("resizing track table", slog.Any("error", err))
	}
	if err := m.typeCountTbl.resize(m.width / 2); err != nil { //nolint:mnd // half width
		m.logger.Error("resizing type table", slog.Any("error", err))
	}
}
