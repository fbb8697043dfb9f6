package export

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/lotas/tabsieb/internal/app"
	"github.com/lotas/tabsieb/internal/browser"
	"github.com/lotas/tabsieb/internal/types"
)

func TestHistoryJSON(t *testing.T) {
	result, err := HistoryJSON(historyView(), browser.RangeWeek, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed jsonHistory
	if err := json.Unmarshal([]byte(result), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v\noutput:\n%s", err, result)
	}
	if parsed.TimeRange != browser.RangeWeek {
		t.Errorf("time_range = %q", parsed.TimeRange)
	}
	if parsed.Total != 2 {
		t.Errorf("total = %d, want 2", parsed.Total)
	}
	if len(parsed.Groups) != 2 || parsed.Groups[0].Label != "Today" {
		t.Fatalf("groups = %+v", parsed.Groups)
	}
	item := parsed.Groups[0].Items[0]
	if item.URL != "https://go.dev/doc" || item.Domain != "go.dev" {
		t.Errorf("item = %+v", item)
	}
	if !item.LastVisitTime.Equal(now.Add(-time.Hour)) {
		t.Errorf("last_visit_time = %v", item.LastVisitTime)
	}
}

func TestHistoryJSON_EmptyGroupsIsArray(t *testing.T) {
	result, err := HistoryJSON(app.HistoryView{}, browser.RangeYear, now)
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(result), &raw); err != nil {
		t.Fatal(err)
	}
	if string(raw["groups"]) != "[]" {
		t.Errorf("groups = %s, want []", raw["groups"])
	}
}

func TestTabsJSON(t *testing.T) {
	v := app.TabsView{Items: []types.Tab{
		{ID: 3, Title: "Go", URL: "https://go.dev/x", WindowID: 2, WindowName: "Window 1", Active: true},
	}}
	result, err := TabsJSON(v, now)
	if err != nil {
		t.Fatal(err)
	}
	var parsed jsonTabs
	if err := json.Unmarshal([]byte(result), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(parsed.Tabs) != 1 {
		t.Fatalf("got %d tabs", len(parsed.Tabs))
	}
	tab := parsed.Tabs[0]
	if tab.ID != 3 || tab.Domain != "go.dev" || !tab.Active || tab.Window != "Window 1" {
		t.Errorf("tab = %+v", tab)
	}
}

func TestWindowsJSON(t *testing.T) {
	recs := []types.WindowRecord{
		{WindowID: 1, Provenance: types.ProvenanceOpen},
		{ID: 9, ClosedAt: now.Add(-30 * time.Minute), TabCount: 1, Tabs: []types.TabRef{{URL: "https://a.test"}}, Provenance: types.ProvenanceSaved},
	}
	result, err := WindowsJSON(recs, now)
	if err != nil {
		t.Fatal(err)
	}
	var parsed jsonWindows
	if err := json.Unmarshal([]byte(result), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v\noutput:\n%s", err, result)
	}
	if len(parsed.Windows) != 2 {
		t.Fatalf("got %d windows", len(parsed.Windows))
	}
	if parsed.Windows[0].ClosedPretty != "" {
		t.Errorf("open window should have no close time, got %q", parsed.Windows[0].ClosedPretty)
	}
	if parsed.Windows[1].ClosedPretty != "30 mins ago" || parsed.Windows[1].ID != 9 {
		t.Errorf("closed window = %+v", parsed.Windows[1])
	}
}
