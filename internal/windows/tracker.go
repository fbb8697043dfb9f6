package windows

import (
	"context"
	"sync"
	"time"

	"github.com/lotas/tabsieb/internal/applog"
	"github.com/lotas/tabsieb/internal/browser"
	"github.com/lotas/tabsieb/internal/types"
)

const (
	SweepInterval = 30 * time.Minute
	MaxEntryAge   = time.Hour
)

// Source is what the tracker reads tab contents from.
type Source interface {
	ListAllWindows(ctx context.Context) ([]types.Window, error)
	QueryTabs(ctx context.Context, q browser.TabQuery) ([]types.Tab, error)
}

// fetchResult carries tabs fetched off the loop back into it.
type fetchResult struct {
	startedAt time.Time
	windows   []types.Window
	err       error
}

// Tracker keeps a cache of open windows up to date from lifecycle events and
// records windows into the Store when they close. All cache access happens on
// the goroutine running Run; fetches run concurrently and post back.
type Tracker struct {
	src    Source
	cache  Cache
	store  *Store
	events <-chan browser.Event

	// Now defaults to time.Now.
	Now func() time.Time
	// NewTicker creates the sweep ticker. Defaults to time.NewTicker.
	NewTicker func(d time.Duration) (tick <-chan time.Time, stop func())

	results chan fetchResult
	done    chan struct{}
	fetches sync.WaitGroup
	removed map[int]time.Time
	changed chan struct{}
}

// NewTracker creates a tracker fed by events.
func NewTracker(src Source, events <-chan browser.Event, cache Cache, store *Store) *Tracker {
	return &Tracker{
		src:     src,
		cache:   cache,
		store:   store,
		events:  events,
		Now:     time.Now,
		results: make(chan fetchResult),
		done:    make(chan struct{}),
		removed: make(map[int]time.Time),
		changed: make(chan struct{}, 1),
	}
}

// Changed signals after a window close has been recorded. Signals coalesce.
func (t *Tracker) Changed() <-chan struct{} {
	return t.changed
}

// Run processes events until ctx is cancelled or the event channel closes.
// It starts with an initial enumeration of open windows, and returns once
// its outstanding fetches have finished. Run must be called at most once.
func (t *Tracker) Run(ctx context.Context) {
	newTicker := t.NewTicker
	if newTicker == nil {
		newTicker = defaultNewTicker
	}
	tick, stop := newTicker(SweepInterval)
	defer stop()
	defer t.fetches.Wait()
	defer close(t.done)

	t.enumerate(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-t.events:
			if !ok {
				return
			}
			t.handle(ctx, ev)
		case res := <-t.results:
			t.apply(res)
		case <-tick:
			t.Sweep()
		}
	}
}

func defaultNewTicker(d time.Duration) (<-chan time.Time, func()) {
	tk := time.NewTicker(d)
	return tk.C, tk.Stop
}

func (t *Tracker) handle(ctx context.Context, ev browser.Event) {
	switch ev.Kind {
	case browser.Connected:
		t.enumerate(ctx)
	case browser.WindowCreated:
		t.fetch(ctx, ev.WindowID)
	case browser.TabUpdated:
		if ev.Status != "complete" {
			return
		}
		if _, ok := t.cache.Get(ev.WindowID); ok {
			t.fetch(ctx, ev.WindowID)
		}
	case browser.TabRemoved:
		if ev.WindowClosing {
			return
		}
		if _, ok := t.cache.Get(ev.WindowID); ok {
			t.fetch(ctx, ev.WindowID)
		}
	case browser.WindowRemoved:
		t.closeWindow(ev.WindowID)
	}
}

func (t *Tracker) closeWindow(windowID int) {
	t.removed[windowID] = t.Now()
	e, ok := t.cache.Get(windowID)
	if !ok {
		applog.Info("windows.untracked_close", "window", windowID)
		return
	}
	t.cache.Delete(windowID)
	rec := t.store.RecordClose(e)
	applog.Info("windows.closed", "window", windowID, "tabs", rec.TabCount)
	select {
	case t.changed <- struct{}{}:
	default:
	}
}

func (t *Tracker) enumerate(ctx context.Context) {
	started := t.Now()
	t.fetches.Add(1)
	go func() {
		defer t.fetches.Done()
		windows, err := t.src.ListAllWindows(ctx)
		t.post(ctx, fetchResult{startedAt: started, windows: windows, err: err})
	}()
}

func (t *Tracker) fetch(ctx context.Context, windowID int) {
	started := t.Now()
	t.fetches.Add(1)
	go func() {
		defer t.fetches.Done()
		tabs, err := t.src.QueryTabs(ctx, browser.TabQuery{WindowID: windowID})
		t.post(ctx, fetchResult{
			startedAt: started,
			windows:   []types.Window{{ID: windowID, Tabs: tabs}},
			err:       err,
		})
	}()
}

func (t *Tracker) post(ctx context.Context, res fetchResult) {
	select {
	case t.results <- res:
	case <-ctx.Done():
	case <-t.done:
	}
}

// apply stores fetched windows, skipping any that were removed after the
// fetch started.
func (t *Tracker) apply(res fetchResult) {
	if res.err != nil {
		applog.Error("windows.fetch", res.err)
		return
	}
	now := t.Now()
	for _, w := range res.windows {
		if at, ok := t.removed[w.ID]; ok && !at.Before(res.startedAt) {
			continue
		}
		t.cache.Put(NewEntry(w.ID, w.Tabs, now))
	}
}

// Sweep drops cache entries older than MaxEntryAge, along with stale
// removal marks.
func (t *Tracker) Sweep() {
	cutoff := t.Now().Add(-MaxEntryAge)
	if n := t.cache.Sweep(cutoff); n > 0 {
		applog.Info("windows.sweep", "removed", n)
	}
	for id, at := range t.removed {
		if at.Before(cutoff) {
			delete(t.removed, id)
		}
	}
}
