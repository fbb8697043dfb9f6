// Package app holds the application state shared by the terminal UI and the
// command-line subcommands: loaded collections, filter sets, preferences and
// the window stores, with the operations that act on them.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lotas/tabsieb/internal/analyzer"
	"github.com/lotas/tabsieb/internal/applog"
	"github.com/lotas/tabsieb/internal/browser"
	"github.com/lotas/tabsieb/internal/filter"
	"github.com/lotas/tabsieb/internal/kv"
	"github.com/lotas/tabsieb/internal/timegroup"
	"github.com/lotas/tabsieb/internal/types"
	"github.com/lotas/tabsieb/internal/windows"
)

const (
	// DisplayLimit caps how many filtered history rows are grouped for display.
	DisplayLimit = 100
	// OpenAllLimit caps how many URLs OpenAll opens.
	OpenAllLimit = 100
)

// ErrNoResults is returned by OpenAll when nothing matches.
var ErrNoResults = errors.New("no matching history items")

// Config wires a State to its collaborators. Only KV is required.
type Config struct {
	KV kv.Store
	// Browser serves history, windows, tab creation and session restore.
	Browser browser.Browser
	// Tabs lists and activates tabs. Defaults to Browser.
	Tabs browser.TabSwitcher
	// Sessions yields the browser's recently closed windows. Defaults to Browser.
	Sessions browser.SessionSource
	// Windows defaults to a store opened on KV.
	Windows *windows.Store
	Now     func() time.Time
}

// State is the application state. Collections are guarded by a mutex so
// loads may run on background goroutines; filter sets and preferences are
// meant to be changed from one goroutine, the UI loop.
type State struct {
	browser  browser.Browser
	tabsSrc  browser.TabSwitcher
	sessions browser.SessionSource
	kv       kv.Store
	now      func() time.Time

	HistoryFilters *filter.Store
	TabFilters     *filter.Store
	Windows        *windows.Store

	mu      sync.Mutex
	prefs   Prefs
	history []types.HistoryItem
	tabs    []types.Tab
	winList []types.WindowRecord
	fresh   []types.WindowRecord
}

// New loads filters, preferences and window stores from cfg.KV.
func New(cfg Config) *State {
	s := &State{
		browser:        cfg.Browser,
		tabsSrc:        cfg.Tabs,
		sessions:       cfg.Sessions,
		kv:             cfg.KV,
		now:            cfg.Now,
		HistoryFilters: filter.Open(cfg.KV, filter.KindHistory),
		TabFilters:     filter.Open(cfg.KV, filter.KindTabs),
		Windows:        cfg.Windows,
		prefs:          LoadPrefs(cfg.KV),
	}
	if s.tabsSrc == nil && cfg.Browser != nil {
		s.tabsSrc = cfg.Browser
	}
	if s.sessions == nil && cfg.Browser != nil {
		s.sessions = cfg.Browser
	}
	if s.Windows == nil {
		s.Windows = windows.OpenStore(cfg.KV)
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Prefs returns the current preferences.
func (s *State) Prefs() Prefs {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs
}

func (s *State) SetShowTitles(show bool) {
	s.mu.Lock()
	s.prefs.ShowTitles = show
	s.mu.Unlock()
	writePref(s.kv, KeyShowTitles, show)
}

func (s *State) SetActiveView(v types.ViewName) {
	s.mu.Lock()
	s.prefs.ActiveView = v
	s.mu.Unlock()
	writePref(s.kv, KeyActiveView, v)
}

// SetTimeRange persists r and reloads history for it.
func (s *State) SetTimeRange(ctx context.Context, r browser.TimeRange) error {
	if !r.Valid() {
		return fmt.Errorf("unknown time range %q", r)
	}
	s.mu.Lock()
	s.prefs.TimeRange = r
	s.mu.Unlock()
	writePref(s.kv, KeyTimeRange, r)
	return s.LoadHistory(ctx)
}

// LoadHistory queries history for the preferred time range. On failure the
// collection is emptied and the error returned for display.
func (s *State) LoadHistory(ctx context.Context) error {
	if s.browser == nil {
		return browser.ErrNotConnected
	}
	r := s.Prefs().TimeRange
	items, err := s.browser.SearchHistory(ctx, r.Query(s.now()))
	if err != nil {
		applog.Error("history.load", err, "range", string(r))
		items = nil
	} else {
		applog.Info("history.loaded", "count", len(items), "range", string(r))
	}
	s.mu.Lock()
	s.history = items
	s.mu.Unlock()
	return err
}

// LoadTabs lists every open tab.
func (s *State) LoadTabs(ctx context.Context) error {
	if s.tabsSrc == nil {
		return browser.ErrNotConnected
	}
	tabs, err := s.tabsSrc.QueryTabs(ctx, browser.TabQuery{})
	if err != nil {
		applog.Error("tabs.load", err)
		tabs = nil
	}
	s.mu.Lock()
	s.tabs = tabs
	s.mu.Unlock()
	return err
}

// HistoryView is the filtered history ready for display.
type HistoryView struct {
	// Items holds every match, newest first.
	Items []types.HistoryItem
	// Groups buckets the first DisplayLimit matches by visit time.
	Groups     []timegroup.Bucket[types.HistoryItem]
	URLTerms   []string
	TitleTerms []string
}

// Total is the number of matches before the display cap.
func (v HistoryView) Total() int {
	return len(v.Items)
}

// Shown is the number of grouped rows.
func (v HistoryView) Shown() int {
	return min(len(v.Items), DisplayLimit)
}

// History runs the history filters over the loaded collection.
func (s *State) History() HistoryView {
	s.mu.Lock()
	items := s.history
	s.mu.Unlock()

	set := s.HistoryFilters.Set()
	matched := filter.ApplyHistory(items, set)
	shown := matched
	if len(shown) > DisplayLimit {
		shown = shown[:DisplayLimit]
	}
	return HistoryView{
		Items: matched,
		Groups: timegroup.Group(shown, func(it types.HistoryItem) time.Time {
			return it.LastVisitTime
		}, s.now()),
		URLTerms:   set.Terms(filter.FieldURL),
		TitleTerms: set.Terms(filter.FieldTitle),
	}
}

// HistoryLoaded reports how many history items are in memory.
func (s *State) HistoryLoaded() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// TabsView is the filtered tab list.
type TabsView struct {
	Items      []types.Tab
	URLTerms   []string
	TitleTerms []string
	// Duplicates maps tab ids to the other open tabs showing the same page.
	Duplicates map[int][]int
}

// Tabs runs the tab filters over the loaded tabs.
func (s *State) Tabs() TabsView {
	s.mu.Lock()
	tabs := s.tabs
	s.mu.Unlock()

	set := s.TabFilters.Set()
	return TabsView{
		Items:      filter.ApplyTabs(tabs, set),
		URLTerms:   set.Terms(filter.FieldURL),
		TitleTerms: set.Terms(filter.FieldTitle),
		Duplicates: analyzer.Duplicates(tabs),
	}
}

// OpenAll opens the first OpenAllLimit filtered history URLs in a new
// focused window, one at a time. The first failure stops the batch and is
// returned with the number of tabs opened so far.
func (s *State) OpenAll(ctx context.Context) (int, error) {
	if s.browser == nil {
		return 0, browser.ErrNotConnected
	}
	items := s.History().Items
	if len(items) == 0 {
		return 0, ErrNoResults
	}
	if len(items) > OpenAllLimit {
		items = items[:OpenAllLimit]
	}

	winID, err := s.browser.CreateWindow(ctx, items[0].URL, true)
	if err != nil {
		applog.Error("openall.window", err)
		return 0, fmt.Errorf("open window: %w", err)
	}
	opened := 1
	for _, it := range items[1:] {
		_, err := s.browser.CreateTab(ctx, browser.CreateTabArgs{WindowID: winID, URL: it.URL})
		if err != nil {
			applog.Error("openall.tab", err, "url", it.URL, "opened", opened)
			return opened, fmt.Errorf("open %s: %w", it.URL, err)
		}
		opened++
	}
	applog.Info("openall.done", "opened", opened)
	return opened, nil
}

// OpenURL opens url in a new active tab.
func (s *State) OpenURL(ctx context.Context, url string) error {
	if s.browser == nil {
		return browser.ErrNotConnected
	}
	if _, err := s.browser.CreateTab(ctx, browser.CreateTabArgs{URL: url, Active: true}); err != nil {
		applog.Error("open.url", err, "url", url)
		return fmt.Errorf("open %s: %w", url, err)
	}
	return nil
}

type windowFocuser interface {
	UpdateWindow(ctx context.Context, windowID int, focused bool) error
}

// SwitchToTab activates tab and focuses its window when the tab source can.
func (s *State) SwitchToTab(ctx context.Context, tab types.Tab) error {
	if s.tabsSrc == nil {
		return browser.ErrNotConnected
	}
	if err := s.tabsSrc.UpdateTab(ctx, tab.ID, true); err != nil {
		applog.Error("tabs.switch", err, "tab", tab.ID)
		return fmt.Errorf("switch to tab: %w", err)
	}
	if f, ok := s.tabsSrc.(windowFocuser); ok {
		if err := f.UpdateWindow(ctx, tab.WindowID, true); err != nil {
			applog.Error("tabs.focus", err, "window", tab.WindowID)
			return fmt.Errorf("focus window: %w", err)
		}
	}
	return nil
}

// LoadWindows rebuilds the window list from open windows, the saved list and
// the browser's session history. Fresh session records are also preserved.
// A failing source contributes nothing; the first error is returned.
func (s *State) LoadWindows(ctx context.Context) error {
	var firstErr error
	note := func(event string, err error) {
		applog.Error(event, err)
		if firstErr == nil {
			firstErr = err
		}
	}

	var open []types.WindowRecord
	if s.browser != nil {
		ws, err := s.browser.ListAllWindows(ctx)
		if err != nil {
			note("windows.open", err)
		} else {
			open = windows.OpenRecords(ws)
		}
	}

	var fresh []types.WindowRecord
	if s.sessions != nil {
		recs, err := s.sessions.RecentlyClosed(ctx, windows.MaxNative)
		if err != nil {
			note("windows.sessions", err)
		} else {
			fresh = recs
			s.Windows.Preserve(fresh)
		}
	}

	merged := windows.Merge(open, s.Windows.Saved(), fresh, s.Windows.Preserved())
	s.mu.Lock()
	s.fresh = fresh
	s.winList = merged
	s.mu.Unlock()
	return firstErr
}

// WindowList returns the last merged window list.
func (s *State) WindowList() []types.WindowRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.WindowRecord(nil), s.winList...)
}

// RestoreWindow reopens rec. Open windows are focused, fresh session records
// go through the browser's session restore, and saved or preserved records
// are reopened tab by tab in a new window.
func (s *State) RestoreWindow(ctx context.Context, rec types.WindowRecord) error {
	if s.browser == nil {
		return browser.ErrNotConnected
	}
	switch rec.Provenance {
	case types.ProvenanceOpen:
		return s.browser.UpdateWindow(ctx, rec.WindowID, true)
	case types.ProvenanceSession:
		if err := s.browser.RestoreSession(ctx, rec.SessionID); err != nil {
			applog.Error("windows.restore", err, "session", rec.SessionID)
			return fmt.Errorf("restore session: %w", err)
		}
		return nil
	case types.ProvenanceSaved:
		saved, ok := s.Windows.Get(rec.ID)
		if !ok {
			applog.Error("windows.restore", windows.ErrNotFound, "id", rec.ID)
			return windows.ErrNotFound
		}
		rec = saved
	}
	return s.reopen(ctx, rec)
}

func (s *State) reopen(ctx context.Context, rec types.WindowRecord) error {
	if len(rec.Tabs) == 0 {
		return fmt.Errorf("window has no tabs to restore")
	}
	winID, err := s.browser.CreateWindow(ctx, rec.Tabs[0].URL, true)
	if err != nil {
		applog.Error("windows.reopen", err)
		return fmt.Errorf("open window: %w", err)
	}
	for _, t := range rec.Tabs[1:] {
		if _, err := s.browser.CreateTab(ctx, browser.CreateTabArgs{WindowID: winID, URL: t.URL}); err != nil {
			applog.Error("windows.reopen", err, "url", t.URL)
			return fmt.Errorf("open %s: %w", t.URL, err)
		}
	}
	applog.Info("windows.reopened", "tabs", len(rec.Tabs))
	return nil
}

// PromoteWindow moves a native record into the saved list and drops it from
// the in-memory native list.
func (s *State) PromoteWindow(sessionID string) (types.WindowRecord, error) {
	s.mu.Lock()
	var src *types.WindowRecord
	for i := range s.winList {
		if s.winList[i].IsNative() && s.winList[i].SessionID == sessionID {
			src = &s.winList[i]
			break
		}
	}
	if src == nil {
		s.mu.Unlock()
		applog.Error("windows.promote", windows.ErrNotFound, "session", sessionID)
		return types.WindowRecord{}, windows.ErrNotFound
	}
	rec := *src
	s.mu.Unlock()

	saved, err := s.Windows.Promote(rec)
	if err != nil {
		applog.Error("windows.promote", err, "session", sessionID)
		return types.WindowRecord{}, err
	}

	s.mu.Lock()
	s.fresh = dropSession(s.fresh, sessionID)
	var open []types.WindowRecord
	for _, r := range s.winList {
		if r.IsOpen() {
			open = append(open, r)
		}
	}
	s.winList = windows.Merge(open, s.Windows.Saved(), s.fresh, s.Windows.Preserved())
	s.mu.Unlock()
	return saved, nil
}

func dropSession(recs []types.WindowRecord, sessionID string) []types.WindowRecord {
	out := recs[:0:0]
	for _, r := range recs {
		if r.SessionID != sessionID {
			out = append(out, r)
		}
	}
	return out
}

// RemoveWindow deletes a saved record. Unknown ids are logged and ignored.
func (s *State) RemoveWindow(id int64) {
	if err := s.Windows.Remove(id); err != nil {
		applog.Error("windows.remove", err, "id", id)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.winList[:0:0]
	for _, r := range s.winList {
		if r.Provenance == types.ProvenanceSaved && r.ID == id {
			continue
		}
		out = append(out, r)
	}
	s.winList = out
}
