package server

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/lotas/tabsieb/internal/types"
	"github.com/tidwall/gjson"
)

type wireHistoryItem struct {
	URL           string  `json:"url"`
	Title         string  `json:"title"`
	LastVisitTime float64 `json:"lastVisitTime"`
}

type wireTab struct {
	ID           int     `json:"id"`
	URL          string  `json:"url"`
	Title        string  `json:"title"`
	WindowID     int     `json:"windowId"`
	Active       bool    `json:"active"`
	FavIconURL   string  `json:"favIconUrl"`
	LastAccessed float64 `json:"lastAccessed"`
}

type wireWindow struct {
	ID   int       `json:"id"`
	Tabs []wireTab `json:"tabs"`
}

// millis converts a browser timestamp (fractional unix millis) to a time.
func millis(ms float64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(int64(math.Round(ms)))
}

func (wt wireTab) tab() types.Tab {
	return types.Tab{
		ID:           wt.ID,
		URL:          wt.URL,
		Title:        wt.Title,
		WindowID:     wt.WindowID,
		Active:       wt.Active,
		Favicon:      wt.FavIconURL,
		LastAccessed: millis(wt.LastAccessed),
	}
}

// ParseHistory converts a history.search result.
func ParseHistory(raw json.RawMessage) ([]types.HistoryItem, error) {
	var wire []wireHistoryItem
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("parse history: %w", err)
	}
	items := make([]types.HistoryItem, 0, len(wire))
	for _, w := range wire {
		items = append(items, types.HistoryItem{
			URL:           w.URL,
			Title:         w.Title,
			LastVisitTime: millis(w.LastVisitTime),
		})
	}
	return items, nil
}

// ParseTab converts a single raw tab.
func ParseTab(raw json.RawMessage) (types.Tab, error) {
	var wt wireTab
	if err := json.Unmarshal(raw, &wt); err != nil {
		return types.Tab{}, fmt.Errorf("parse tab: %w", err)
	}
	return wt.tab(), nil
}

// ParseTabs converts a tabs.query result.
func ParseTabs(raw json.RawMessage) ([]types.Tab, error) {
	var wire []wireTab
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("parse tabs: %w", err)
	}
	tabs := make([]types.Tab, 0, len(wire))
	for _, wt := range wire {
		tabs = append(tabs, wt.tab())
	}
	return tabs, nil
}

// ParseWindows converts a windows.getAll result. Windows are named
// "Window N" in enumeration order and tabs inherit that name.
func ParseWindows(raw json.RawMessage) ([]types.Window, error) {
	var wire []wireWindow
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("parse windows: %w", err)
	}
	windows := make([]types.Window, 0, len(wire))
	for i, ww := range wire {
		w := types.Window{ID: ww.ID, Tabs: make([]types.Tab, 0, len(ww.Tabs))}
		name := "Window " + strconv.Itoa(i+1)
		for _, wt := range ww.Tabs {
			t := wt.tab()
			t.WindowID = ww.ID
			t.WindowName = name
			w.Tabs = append(w.Tabs, t)
		}
		windows = append(windows, w)
	}
	return windows, nil
}

// ParseRecentlyClosed converts a sessions.getRecentlyClosed result into
// session window records. Entries for single closed tabs are skipped.
// lastModified is in seconds.
func ParseRecentlyClosed(raw json.RawMessage) ([]types.WindowRecord, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("parse sessions: invalid JSON")
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsArray() {
		return nil, fmt.Errorf("parse sessions: expected array")
	}

	var records []types.WindowRecord
	for _, entry := range doc.Array() {
		win := entry.Get("window")
		if !win.Exists() {
			continue
		}
		sessionID := win.Get("sessionId").String()
		if sessionID == "" {
			continue
		}
		lastModified := entry.Get("lastModified")
		if !lastModified.Exists() {
			lastModified = win.Get("lastModified")
		}

		var tabs []types.TabRef
		for _, t := range win.Get("tabs").Array() {
			tabs = append(tabs, types.TabRef{
				URL:   t.Get("url").String(),
				Title: t.Get("title").String(),
			})
		}
		records = append(records, types.WindowRecord{
			SessionID:  sessionID,
			ClosedAt:   time.Unix(lastModified.Int(), 0),
			TabCount:   len(tabs),
			Domains:    types.Domains(tabs),
			Tabs:       tabs,
			Provenance: types.ProvenanceSession,
		})
	}
	return records, nil
}
