package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/lotas/tabsieb/internal/types"
	"github.com/mafredri/cdp/devtool"
)

// DevToolsWindowID is the window id reported for every DevTools page.
// The /json endpoint does not expose window membership.
const DevToolsWindowID = 1

// DevTools lists and activates page targets of a Chromium browser started
// with --remote-debugging-port. It satisfies TabSwitcher so the tab view can
// run without the extension.
type DevTools struct {
	dt *devtool.DevTools

	mu     sync.Mutex
	ids    map[string]int // target id -> tab id
	byID   map[int]*devtool.Target
	nextID int
}

// NewDevTools connects to the DevTools HTTP endpoint at url,
// e.g. http://127.0.0.1:9222.
func NewDevTools(url string) *DevTools {
	return &DevTools{
		dt:   devtool.New(url),
		ids:  make(map[string]int),
		byID: make(map[int]*devtool.Target),
	}
}

// QueryTabs returns every page target. Tab ids are stable for the life of d.
// Only q.Active is honoured, and only "true" narrows anything: the first page
// in the list is the most recently focused one.
func (d *DevTools) QueryTabs(ctx context.Context, q TabQuery) ([]types.Tab, error) {
	targets, err := d.dt.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("devtools list: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var tabs []types.Tab
	for _, t := range targets {
		if t.Type != devtool.Page {
			continue
		}
		id, ok := d.ids[t.ID]
		if !ok {
			d.nextID++
			id = d.nextID
			d.ids[t.ID] = id
		}
		d.byID[id] = t
		tabs = append(tabs, types.Tab{
			ID:         id,
			URL:        t.URL,
			Title:      t.Title,
			WindowID:   DevToolsWindowID,
			WindowName: "Window 1",
			Active:     len(tabs) == 0,
		})
	}
	if q.Active != nil && *q.Active && len(tabs) > 0 {
		return tabs[:1], nil
	}
	return tabs, nil
}

// UpdateTab brings the tab to the front. Deactivating is a no-op.
func (d *DevTools) UpdateTab(ctx context.Context, tabID int, active bool) error {
	if !active {
		return nil
	}
	d.mu.Lock()
	t, ok := d.byID[tabID]
	d.mu.Unlock()
	if !ok {
		return fmt.Errorf("devtools: unknown tab %d", tabID)
	}
	if err := d.dt.Activate(ctx, t); err != nil {
		return fmt.Errorf("devtools activate: %w", err)
	}
	return nil
}

// OpenURL opens url in a new page target.
func (d *DevTools) OpenURL(ctx context.Context, url string) error {
	if _, err := d.dt.CreateURL(ctx, url); err != nil {
		return fmt.Errorf("devtools open: %w", err)
	}
	return nil
}
