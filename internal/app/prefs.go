package app

import (
	"errors"

	"github.com/lotas/tabsieb/internal/applog"
	"github.com/lotas/tabsieb/internal/browser"
	"github.com/lotas/tabsieb/internal/kv"
	"github.com/lotas/tabsieb/internal/types"
)

const (
	KeyShowTitles = "prefs.showTitles"
	KeyTimeRange  = "prefs.timeRange"
	KeyActiveView = "prefs.activeView"
)

// Prefs are the user's display preferences.
type Prefs struct {
	ShowTitles bool
	TimeRange  browser.TimeRange
	ActiveView types.ViewName
}

// DefaultPrefs shows titles over the past week of history.
func DefaultPrefs() Prefs {
	return Prefs{
		ShowTitles: true,
		TimeRange:  browser.RangeWeek,
		ActiveView: types.ViewHistory,
	}
}

// LoadPrefs reads each preference independently; absent or invalid values
// keep their defaults.
func LoadPrefs(store kv.Store) Prefs {
	p := DefaultPrefs()

	var show bool
	if readPref(store, KeyShowTitles, &show) {
		p.ShowTitles = show
	}
	var r browser.TimeRange
	if readPref(store, KeyTimeRange, &r) && r.Valid() {
		p.TimeRange = r
	}
	var v types.ViewName
	if readPref(store, KeyActiveView, &v) {
		switch v {
		case types.ViewHistory, types.ViewTabs, types.ViewWindows:
			p.ActiveView = v
		}
	}
	return p
}

func readPref(store kv.Store, key string, v any) bool {
	if err := kv.GetJSON(store, key, v); err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			applog.Error("prefs.load", err, "key", key)
		}
		return false
	}
	return true
}

func writePref(store kv.Store, key string, v any) {
	if err := kv.SetJSON(store, key, v); err != nil {
		applog.Error("prefs.save", err, "key", key)
	}
}
