package tui

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotas/tabsieb/internal/app"
	"github.com/lotas/tabsieb/internal/browser"
	"github.com/lotas/tabsieb/internal/filter"
	"github.com/lotas/tabsieb/internal/kv"
	"github.com/lotas/tabsieb/internal/types"
)

var now = time.Date(2026, 10, 14, 15, 0, 0, 0, time.UTC)

type fakeBrowser struct {
	mu      sync.Mutex
	history []types.HistoryItem
	tabs    []types.Tab
	created []browser.CreateTabArgs
	updated []int
}

func (f *fakeBrowser) SearchHistory(context.Context, browser.HistoryQuery) ([]types.HistoryItem, error) {
	return f.history, nil
}

func (f *fakeBrowser) ListAllWindows(context.Context) ([]types.Window, error) {
	return []types.Window{{ID: 1, Tabs: f.tabs}}, nil
}

func (f *fakeBrowser) QueryTabs(context.Context, browser.TabQuery) ([]types.Tab, error) {
	return f.tabs, nil
}

func (f *fakeBrowser) CreateTab(_ context.Context, args browser.CreateTabArgs) (types.Tab, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, args)
	return types.Tab{URL: args.URL}, nil
}

func (f *fakeBrowser) UpdateTab(_ context.Context, tabID int, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, tabID)
	return nil
}

func (f *fakeBrowser) GetTab(context.Context, int) (types.Tab, error) { return types.Tab{}, nil }

func (f *fakeBrowser) CreateWindow(context.Context, string, bool) (int, error) { return 2, nil }

func (f *fakeBrowser) UpdateWindow(context.Context, int, bool) error { return nil }

func (f *fakeBrowser) RecentlyClosed(context.Context, int) ([]types.WindowRecord, error) {
	return nil, nil
}

func (f *fakeBrowser) RestoreSession(context.Context, string) error { return nil }

func (f *fakeBrowser) Events() <-chan browser.Event { return nil }

func newTestModel(t *testing.T) (Model, *fakeBrowser, kv.Store) {
	t.Helper()
	fb := &fakeBrowser{
		history: []types.HistoryItem{
			{URL: "https://github.com/lotas/tabsieb", Title: "tabsieb", LastVisitTime: now.Add(-time.Hour)},
			{URL: "https://news.example.com/a", Title: "News", LastVisitTime: now.Add(-2 * time.Hour)},
		},
		tabs: []types.Tab{
			{ID: 7, URL: "https://go.dev", Title: "Go", WindowID: 1, WindowName: "Window 1", Active: true},
		},
	}
	store := kv.NewMem()
	state := app.New(app.Config{KV: store, Browser: fb, Now: func() time.Time { return now }})
	ctx := context.Background()
	require.NoError(t, state.LoadHistory(ctx))
	require.NoError(t, state.LoadTabs(ctx))
	require.NoError(t, state.LoadWindows(ctx))

	m := NewModel(Options{
		State:     state,
		Connected: func() bool { return true },
		Now:       func() time.Time { return now },
	})
	return m, fb, store
}

func press(m Model, keys ...tea.KeyMsg) Model {
	for _, k := range keys {
		next, _ := m.Update(k)
		m = next.(Model)
	}
	return m
}

func typeText(m Model, s string) Model {
	for _, r := range s {
		m = press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestTypingFiltersHistory(t *testing.T) {
	m, _, store := newTestModel(t)
	require.Equal(t, 0, m.history.Total())
	require.Contains(t, m.View(), "Type to search history.")

	m = typeText(m, "github")

	assert.Equal(t, 1, m.history.Total())
	assert.Equal(t, "github", m.state.HistoryFilters.Set().Predicates[0].Text)
	saved := filter.Load(store, filter.KindHistory)
	assert.Equal(t, "github", saved.Predicates[0].Text)
}

func TestFilterRowEditing(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = typeText(m, "https")
	require.Equal(t, 2, m.history.Total())

	// The first row has no operator.
	m = press(m, tea.KeyMsg{Type: tea.KeyCtrlO})
	assert.Equal(t, filter.Include, m.state.HistoryFilters.Set().Predicates[0].Operator)

	m = press(m, tea.KeyMsg{Type: tea.KeyCtrlA})
	require.Len(t, m.state.HistoryFilters.Set().Predicates, 2)
	assert.Equal(t, 1, m.filters[types.ViewHistory].focus)

	m = typeText(m, "news")
	assert.Equal(t, 1, m.history.Total())
	m = press(m, tea.KeyMsg{Type: tea.KeyCtrlO})
	assert.Equal(t, filter.Exclude, m.state.HistoryFilters.Set().Predicates[1].Operator)
	assert.Equal(t, 1, m.history.Total())
	assert.Equal(t, "https://github.com/lotas/tabsieb", m.history.Items[0].URL)

	m = press(m, tea.KeyMsg{Type: tea.KeyCtrlX})
	assert.Len(t, m.state.HistoryFilters.Set().Predicates, 1)
	assert.Equal(t, 2, m.history.Total())

	// Removing the first row is refused.
	m = press(m, tea.KeyMsg{Type: tea.KeyCtrlX})
	assert.Len(t, m.state.HistoryFilters.Set().Predicates, 1)
}

func TestToggleField(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = press(m, tea.KeyMsg{Type: tea.KeyCtrlF})
	assert.Equal(t, filter.FieldTitle, m.state.HistoryFilters.Set().Predicates[0].Field)

	m = typeText(m, "news")
	require.Equal(t, 1, m.history.Total())
	assert.Equal(t, "News", m.history.Items[0].Title)
}

func TestClearFilters(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = typeText(m, "zzz")
	require.Equal(t, 0, m.history.Total())
	assert.Contains(t, m.View(), "No matching history items found.")

	m = press(m, tea.KeyMsg{Type: tea.KeyCtrlL})
	assert.False(t, m.state.HistoryFilters.Set().HasActive())
	assert.Contains(t, m.View(), "Type to search history.")
	assert.Equal(t, "", m.filters[types.ViewHistory].inputs[0].Value())
}

func TestClearOfferedOnlyWithFilters(t *testing.T) {
	m, _, _ := newTestModel(t)
	assert.NotContains(t, m.View(), "ctrl+l clear")

	m = typeText(m, "go")
	assert.Contains(t, m.View(), "ctrl+l clear")

	m = press(m, tea.KeyMsg{Type: tea.KeyCtrlL})
	assert.NotContains(t, m.View(), "ctrl+l clear")

	// An extra empty row is still something to clear.
	m = press(m, tea.KeyMsg{Type: tea.KeyCtrlA})
	assert.Contains(t, m.View(), "ctrl+l clear")
}

func TestSwitchViewPersists(t *testing.T) {
	m, _, store := newTestModel(t)
	require.Equal(t, types.ViewHistory, m.view)

	m = press(m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, types.ViewTabs, m.view)
	assert.Equal(t, types.ViewTabs, app.LoadPrefs(store).ActiveView)

	m = press(m, tea.KeyMsg{Type: tea.KeyShiftTab}, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, types.ViewWindows, m.view)
}

func TestEnterOpensHistoryItem(t *testing.T) {
	m, fb, _ := newTestModel(t)
	m = typeText(m, "https")
	m = press(m, tea.KeyMsg{Type: tea.KeyDown})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	msg := cmd().(actionMsg)
	require.NoError(t, msg.err)

	require.Len(t, fb.created, 1)
	assert.Equal(t, "https://news.example.com/a", fb.created[0].URL)
	assert.True(t, fb.created[0].Active)
}

func TestEnterSwitchesTab(t *testing.T) {
	m, fb, _ := newTestModel(t)
	m = press(m, tea.KeyMsg{Type: tea.KeyTab})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	require.NoError(t, cmd().(actionMsg).err)
	assert.Equal(t, []int{7}, fb.updated)
}

func TestCursorStaysInRange(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = typeText(m, "https")
	m = press(m, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, m.cursors[types.ViewHistory])
	m = press(m, tea.KeyMsg{Type: tea.KeyUp}, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, m.cursors[types.ViewHistory])
}

func TestToggleTitles(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = typeText(m, "https")
	require.Contains(t, m.View(), "News")

	m = press(m, tea.KeyMsg{Type: tea.KeyCtrlT})
	assert.False(t, m.state.Prefs().ShowTitles)
	assert.NotContains(t, m.View(), "News")
}

func TestWindowsViewListsOpenWindow(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = press(m, tea.KeyMsg{Type: tea.KeyShiftTab})
	require.Equal(t, types.ViewWindows, m.view)

	out := m.View()
	assert.Contains(t, out, "Open")
	assert.Contains(t, out, "go.dev")
	assert.True(t, strings.Contains(out, "1 tabs"))
}
