// Package windows tracks open browser windows so that closed ones can be
// listed and reopened, and merges them with the browser's own session history.
package windows

import (
	"time"

	"github.com/lotas/tabsieb/internal/types"
)

// Entry is the last known content of an open window.
type Entry struct {
	WindowID int
	TabCount int
	Domains  []string
	Tabs     []types.TabRef
	CachedAt time.Time
}

// NewEntry summarizes the tabs of a window.
func NewEntry(windowID int, tabs []types.Tab, now time.Time) Entry {
	refs := make([]types.TabRef, 0, len(tabs))
	for _, t := range tabs {
		refs = append(refs, types.TabRef{URL: t.URL, Title: t.Title})
	}
	return Entry{
		WindowID: windowID,
		TabCount: len(refs),
		Domains:  types.Domains(refs),
		Tabs:     refs,
		CachedAt: now,
	}
}

// Cache holds entries keyed by window id.
type Cache interface {
	Get(windowID int) (Entry, bool)
	Put(e Entry)
	Delete(windowID int)
	// Sweep deletes entries cached before cutoff and returns how many went.
	Sweep(cutoff time.Time) int
	Len() int
}

// Table is a map-backed Cache. It is not safe for concurrent use; the
// Tracker owns it from a single goroutine.
type Table struct {
	entries map[int]Entry
}

func NewTable() *Table {
	return &Table{entries: make(map[int]Entry)}
}

func (t *Table) Get(windowID int) (Entry, bool) {
	e, ok := t.entries[windowID]
	return e, ok
}

func (t *Table) Put(e Entry) {
	t.entries[e.WindowID] = e
}

func (t *Table) Delete(windowID int) {
	delete(t.entries, windowID)
}

func (t *Table) Sweep(cutoff time.Time) int {
	n := 0
	for id, e := range t.entries {
		if e.CachedAt.Before(cutoff) {
			delete(t.entries, id)
			n++
		}
	}
	return n
}

func (t *Table) Len() int {
	return len(t.entries)
}
