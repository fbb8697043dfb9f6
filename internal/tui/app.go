package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/tabsieb/internal/app"
	"github.com/lotas/tabsieb/internal/types"
)

const statusInterval = 2 * time.Second

// --- Messages ---

type loadedMsg struct {
	view types.ViewName
	err  error
}

type actionMsg struct {
	status string
	err    error
	// reload names a view whose collection changed.
	reload types.ViewName
}

type tickMsg struct{}

type changedMsg struct{}

// Options configures a Model.
type Options struct {
	State *app.State
	// Connected reports whether the extension is attached. Nil means never.
	Connected func() bool
	// Changed fires when a window close was recorded in the background.
	Changed <-chan struct{}
	Port    int
	Context context.Context
	Now     func() time.Time
}

// --- Model ---

type Model struct {
	state     *app.State
	ctx       context.Context
	connected func() bool
	changed   <-chan struct{}
	port      int
	now       func() time.Time

	view    types.ViewName
	filters map[types.ViewName]*filterRows
	cursors map[types.ViewName]int
	offsets map[types.ViewName]int

	history app.HistoryView
	tabs    app.TabsView
	windows []types.WindowRecord
	list    listing

	online  bool
	loading map[types.ViewName]bool
	status  string
	err     error
	width   int
	height  int
}

func NewModel(opts Options) Model {
	m := Model{
		state:     opts.State,
		ctx:       opts.Context,
		connected: opts.Connected,
		changed:   opts.Changed,
		port:      opts.Port,
		now:       opts.Now,
		view:      opts.State.Prefs().ActiveView,
		cursors:   make(map[types.ViewName]int),
		offsets:   make(map[types.ViewName]int),
		loading:   make(map[types.ViewName]bool),
		width:     80,
		height:    24,
	}
	if m.ctx == nil {
		m.ctx = context.Background()
	}
	if m.connected == nil {
		m.connected = func() bool { return false }
	}
	if m.now == nil {
		m.now = time.Now
	}
	hist := newFilterRows(opts.State.HistoryFilters)
	tabs := newFilterRows(opts.State.TabFilters)
	m.filters = map[types.ViewName]*filterRows{
		types.ViewHistory: &hist,
		types.ViewTabs:    &tabs,
	}
	m.online = m.connected()
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.load(types.ViewWindows), tick()}
	if m.online {
		cmds = append(cmds, m.load(types.ViewHistory), m.load(types.ViewTabs))
	}
	if m.changed != nil {
		cmds = append(cmds, listenChanged(m.changed))
	}
	return tea.Batch(cmds...)
}

// --- Commands ---

func (m *Model) load(v types.ViewName) tea.Cmd {
	m.loading[v] = true
	state, ctx := m.state, m.ctx
	return func() tea.Msg {
		var err error
		switch v {
		case types.ViewHistory:
			err = state.LoadHistory(ctx)
		case types.ViewTabs:
			err = state.LoadTabs(ctx)
		case types.ViewWindows:
			err = state.LoadWindows(ctx)
		}
		return loadedMsg{view: v, err: err}
	}
}

func (m *Model) loadAll() tea.Cmd {
	return tea.Batch(m.load(types.ViewHistory), m.load(types.ViewTabs), m.load(types.ViewWindows))
}

func tick() tea.Cmd {
	return tea.Tick(statusInterval, func(time.Time) tea.Msg { return tickMsg{} })
}

func listenChanged(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return changedMsg{}
	}
}

func (m Model) action(fn func(ctx context.Context) actionMsg) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg { return fn(ctx) }
}

// --- Update ---

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.refresh()
		return m, nil

	case loadedMsg:
		m.loading[msg.view] = false
		if msg.err != nil {
			m.err = msg.err
		} else if msg.view == m.view {
			m.err = nil
		}
		m.refresh()
		return m, nil

	case actionMsg:
		m.status = msg.status
		m.err = msg.err
		if msg.reload != "" {
			m.refresh()
		}
		return m, nil

	case tickMsg:
		was := m.online
		m.online = m.connected()
		if m.online && !was {
			m.status = "Extension connected"
			return m, tea.Batch(tick(), m.loadAll())
		}
		return m, tick()

	case changedMsg:
		return m, tea.Batch(m.load(types.ViewWindows), listenChanged(m.changed))

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := m.filters[m.view]

	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "tab":
		m.switchView(1)
		return m, nil
	case "shift+tab":
		m.switchView(-1)
		return m, nil
	case "up":
		m.moveCursor(-1)
		return m, nil
	case "down":
		m.moveCursor(1)
		return m, nil
	case "pgup":
		m.moveCursor(-m.listHeight())
		return m, nil
	case "pgdown":
		m.moveCursor(m.listHeight())
		return m, nil
	case "ctrl+t":
		m.state.SetShowTitles(!m.state.Prefs().ShowTitles)
		m.refresh()
		return m, nil
	case "ctrl+g":
		m.status = "Refreshing…"
		return m, m.load(m.view)
	case "enter":
		return m, m.activate()
	}

	switch m.view {
	case types.ViewHistory:
		switch msg.String() {
		case "ctrl+r":
			next := m.state.Prefs().TimeRange.Next()
			m.status = "Loading " + strings.ToLower(next.Label()) + "…"
			m.loading[types.ViewHistory] = true
			return m, func() tea.Msg {
				return loadedMsg{view: types.ViewHistory, err: m.state.SetTimeRange(m.ctx, next)}
			}
		case "ctrl+e":
			return m, m.openAll()
		}
	case types.ViewWindows:
		switch msg.String() {
		case "ctrl+s":
			return m, m.promote()
		case "ctrl+d":
			return m, m.removeSaved()
		}
		return m, nil
	}

	if rows == nil {
		return m, nil
	}
	switch msg.String() {
	case "ctrl+n":
		rows.next()
	case "ctrl+p":
		rows.prev()
	case "ctrl+a":
		rows.add()
	case "ctrl+x":
		if rows.remove() {
			m.filtered()
		}
	case "ctrl+o":
		if rows.toggleOperator() {
			m.filtered()
		}
	case "ctrl+f":
		if rows.toggleField() {
			m.filtered()
		}
	case "ctrl+l":
		if rows.clearable() {
			rows.clear()
			m.filtered()
		}
	default:
		changed, cmd := rows.update(msg)
		if changed {
			m.filtered()
		}
		return m, cmd
	}
	return m, nil
}

func (m *Model) switchView(step int) {
	i := (viewIndex(m.view) + step + len(views)) % len(views)
	m.view = views[i]
	m.state.SetActiveView(m.view)
	m.err = nil
	m.status = ""
	m.refresh()
}

func (m *Model) moveCursor(delta int) {
	n := m.itemCount()
	c := m.cursors[m.view] + delta
	if c >= n {
		c = n - 1
	}
	if c < 0 {
		c = 0
	}
	m.cursors[m.view] = c
	m.relist()
}

// filtered resets the cursor after the active filter set changed.
func (m *Model) filtered() {
	m.cursors[m.view] = 0
	m.offsets[m.view] = 0
	m.refresh()
}

func (m Model) itemCount() int {
	switch m.view {
	case types.ViewHistory:
		return m.history.Shown()
	case types.ViewTabs:
		return len(m.tabs.Items)
	default:
		return len(m.windows)
	}
}

// refresh recomputes the filtered collections and the visible listing.
func (m *Model) refresh() {
	m.history = m.state.History()
	m.tabs = m.state.Tabs()
	m.windows = m.state.WindowList()
	m.relist()
}

// relist renders the active view around its cursor.
func (m *Model) relist() {
	if c := m.cursors[m.view]; c >= m.itemCount() {
		m.cursors[m.view] = max(m.itemCount()-1, 0)
	}
	cursor := m.cursors[m.view]
	showTitles := m.state.Prefs().ShowTitles
	switch m.view {
	case types.ViewHistory:
		m.list = historyListing(m.history, len(m.state.HistoryFilters.Set().Active()) > 0, showTitles, cursor, m.width)
	case types.ViewTabs:
		m.list = tabsListing(m.tabs, showTitles, cursor, m.width)
	default:
		m.list = windowsListing(m.windows, cursor, m.width, m.now())
	}
	_, m.offsets[m.view] = m.list.window(cursor, m.offsets[m.view], m.listHeight())
}

func (m Model) listHeight() int {
	// navbar, blank line, separator, status and help lines
	h := m.height - 5
	if rows := m.filters[m.view]; rows != nil {
		h -= len(rows.inputs)
	} else {
		h++
	}
	return max(h, 1)
}

// --- Actions ---

func (m Model) activate() tea.Cmd {
	c := m.cursors[m.view]
	switch m.view {
	case types.ViewHistory:
		if c >= len(m.history.Items) {
			return nil
		}
		url := m.history.Items[c].URL
		return m.action(func(ctx context.Context) actionMsg {
			if err := m.state.OpenURL(ctx, url); err != nil {
				return actionMsg{err: err}
			}
			return actionMsg{status: "Opened " + url}
		})
	case types.ViewTabs:
		if c >= len(m.tabs.Items) {
			return nil
		}
		tab := m.tabs.Items[c]
		return m.action(func(ctx context.Context) actionMsg {
			if err := m.state.SwitchToTab(ctx, tab); err != nil {
				return actionMsg{err: err}
			}
			return actionMsg{status: "Switched to " + tab.Title}
		})
	default:
		if c >= len(m.windows) {
			return nil
		}
		rec := m.windows[c]
		return m.action(func(ctx context.Context) actionMsg {
			if err := m.state.RestoreWindow(ctx, rec); err != nil {
				return actionMsg{err: err}
			}
			return actionMsg{status: fmt.Sprintf("Restored window with %d tabs", rec.TabCount)}
		})
	}
}

func (m Model) openAll() tea.Cmd {
	return m.action(func(ctx context.Context) actionMsg {
		n, err := m.state.OpenAll(ctx)
		if errors.Is(err, app.ErrNoResults) {
			return actionMsg{status: "Nothing to open"}
		}
		if err != nil {
			return actionMsg{status: fmt.Sprintf("Opened %d tabs", n), err: err}
		}
		return actionMsg{status: fmt.Sprintf("Opened %d tabs in a new window", n)}
	})
}

func (m Model) promote() tea.Cmd {
	c := m.cursors[types.ViewWindows]
	if c >= len(m.windows) || !m.windows[c].IsNative() {
		return nil
	}
	sessionID := m.windows[c].SessionID
	return m.action(func(context.Context) actionMsg {
		if _, err := m.state.PromoteWindow(sessionID); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "Saved window", reload: types.ViewWindows}
	})
}

func (m Model) removeSaved() tea.Cmd {
	c := m.cursors[types.ViewWindows]
	if c >= len(m.windows) || m.windows[c].Provenance != types.ProvenanceSaved {
		return nil
	}
	id := m.windows[c].ID
	return m.action(func(context.Context) actionMsg {
		m.state.RemoveWindow(id)
		return actionMsg{status: "Removed window", reload: types.ViewWindows}
	})
}

// --- View ---

var (
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Padding(0, 1)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("160")).Padding(0, 1)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Padding(0, 1)
)

var helpText = map[types.ViewName]string{
	types.ViewHistory: "enter open · ctrl+e open all · ctrl+r range · ctrl+a/x add/remove filter · ctrl+o include/exclude · ctrl+f url/title · ctrl+t titles · tab view · esc quit",
	types.ViewTabs:    "enter switch · ctrl+a/x add/remove filter · ctrl+o include/exclude · ctrl+f url/title · ctrl+t titles · tab view · esc quit",
	types.ViewWindows: "enter restore · ctrl+s save · ctrl+d remove saved · ctrl+g refresh · tab view · esc quit",
}

func (m Model) View() string {
	counts := map[types.ViewName]int{
		types.ViewHistory: m.history.Total(),
		types.ViewTabs:    len(m.tabs.Items),
		types.ViewWindows: len(m.windows),
	}
	var b strings.Builder
	b.WriteString(renderNavbar(m.view, counts, m.online, m.port, m.width))
	b.WriteString("\n\n")

	if rows := m.filters[m.view]; rows != nil {
		b.WriteString(rows.view(m.width))
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render(strings.Repeat("─", max(m.width, 1))))
	b.WriteString("\n")

	height := m.listHeight()
	lines, _ := m.list.window(m.cursors[m.view], m.offsets[m.view], height)
	if m.loading[m.view] && len(m.list.starts) == 0 {
		lines = []string{dimStyle.Render("Loading…")}
	}
	for i := 0; i < height; i++ {
		if i < len(lines) {
			b.WriteString(lines[i])
		}
		b.WriteString("\n")
	}

	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(truncate(m.help(), m.width-2)))
	return b.String()
}

// help offers ctrl+l only while there is a filter to clear.
func (m Model) help() string {
	text := helpText[m.view]
	if rows := m.filters[m.view]; rows != nil && rows.clearable() {
		text = strings.Replace(text, "ctrl+t titles", "ctrl+l clear · ctrl+t titles", 1)
	}
	return text
}

func (m Model) statusLine() string {
	if m.err != nil {
		return errorStyle.Render("Error: " + m.err.Error())
	}
	parts := []string{}
	if m.view == types.ViewHistory {
		parts = append(parts, m.state.Prefs().TimeRange.Label())
	}
	if m.status != "" {
		parts = append(parts, m.status)
	}
	return statusStyle.Render(strings.Join(parts, " · "))
}
