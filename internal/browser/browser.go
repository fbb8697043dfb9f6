// Package browser describes the browsing platform tabsieb drives: history
// search, tab and window enumeration, lifecycle events and session history.
package browser

import (
	"context"
	"errors"
	"time"

	"github.com/lotas/tabsieb/internal/types"
)

// ErrNotConnected is returned when no extension is attached to the bridge.
var ErrNotConnected = errors.New("browser: extension not connected")

// HistoryQuery bounds a history search.
type HistoryQuery struct {
	StartTime  time.Time
	MaxResults int
}

// TabQuery selects tabs. Zero values match everything.
type TabQuery struct {
	WindowID int
	Active   *bool
}

// CreateTabArgs describes a tab to open.
type CreateTabArgs struct {
	WindowID int
	URL      string
	Active   bool
}

// Browser is the set of platform calls the core needs.
type Browser interface {
	SearchHistory(ctx context.Context, q HistoryQuery) ([]types.HistoryItem, error)
	ListAllWindows(ctx context.Context) ([]types.Window, error)
	QueryTabs(ctx context.Context, q TabQuery) ([]types.Tab, error)
	CreateTab(ctx context.Context, args CreateTabArgs) (types.Tab, error)
	UpdateTab(ctx context.Context, tabID int, active bool) error
	GetTab(ctx context.Context, tabID int) (types.Tab, error)
	CreateWindow(ctx context.Context, url string, focused bool) (int, error)
	UpdateWindow(ctx context.Context, windowID int, focused bool) error
	RecentlyClosed(ctx context.Context, maxResults int) ([]types.WindowRecord, error)
	RestoreSession(ctx context.Context, sessionID string) error
	Events() <-chan Event
}

// TabSwitcher is the subset needed to list tabs and bring one to front.
type TabSwitcher interface {
	QueryTabs(ctx context.Context, q TabQuery) ([]types.Tab, error)
	UpdateTab(ctx context.Context, tabID int, active bool) error
}

// SessionSource yields windows from the browser's own session history.
type SessionSource interface {
	RecentlyClosed(ctx context.Context, maxResults int) ([]types.WindowRecord, error)
}

// EventKind names a lifecycle event.
type EventKind string

const (
	WindowCreated EventKind = "window.created"
	WindowRemoved EventKind = "window.removed"
	TabUpdated    EventKind = "tab.updated"
	TabRemoved    EventKind = "tab.removed"
	// Connected fires when an extension (re)attaches.
	Connected EventKind = "connected"
)

// Event is one lifecycle notification. Each occurrence is delivered at most once.
type Event struct {
	Kind     EventKind
	WindowID int
	TabID    int
	// Status is the tab load status for TabUpdated ("loading", "complete").
	Status string
	// WindowClosing is set on TabRemoved when the whole window is going away.
	WindowClosing bool
}

// TimeRange is a preset history window.
type TimeRange string

const (
	Range48Hours TimeRange = "48hours"
	RangeWeek    TimeRange = "week"
	RangeMonth   TimeRange = "month"
	RangeYear    TimeRange = "year"
)

// Ranges lists the presets in display order.
var Ranges = []TimeRange{Range48Hours, RangeWeek, RangeMonth, RangeYear}

// Query returns the search bounds for r. Unknown ranges behave like a year.
func (r TimeRange) Query(now time.Time) HistoryQuery {
	switch r {
	case Range48Hours:
		return HistoryQuery{StartTime: now.Add(-2 * 24 * time.Hour), MaxResults: 5000}
	case RangeWeek:
		return HistoryQuery{StartTime: now.Add(-7 * 24 * time.Hour), MaxResults: 10000}
	case RangeMonth:
		return HistoryQuery{StartTime: now.Add(-30 * 24 * time.Hour), MaxResults: 50000}
	default:
		return HistoryQuery{StartTime: now.Add(-365 * 24 * time.Hour), MaxResults: 100000}
	}
}

// Label is the human name of the range.
func (r TimeRange) Label() string {
	switch r {
	case Range48Hours:
		return "Past 48 hours"
	case RangeWeek:
		return "Past week"
	case RangeMonth:
		return "Past month"
	default:
		return "Past year"
	}
}

// Next cycles to the following preset.
func (r TimeRange) Next() TimeRange {
	for i, x := range Ranges {
		if x == r {
			return Ranges[(i+1)%len(Ranges)]
		}
	}
	return RangeWeek
}

// Valid reports whether r is a known preset.
func (r TimeRange) Valid() bool {
	for _, x := range Ranges {
		if x == r {
			return true
		}
	}
	return false
}
