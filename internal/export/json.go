package export

import (
	"encoding/json"
	"time"

	"github.com/lotas/tabsieb/internal/app"
	"github.com/lotas/tabsieb/internal/browser"
	"github.com/lotas/tabsieb/internal/timegroup"
	"github.com/lotas/tabsieb/internal/types"
)

type jsonHistory struct {
	TimeRange  browser.TimeRange `json:"time_range"`
	ExportedAt time.Time         `json:"exported_at"`
	Total      int               `json:"total"`
	Groups     []jsonGroup       `json:"groups"`
}

type jsonGroup struct {
	Label string     `json:"label"`
	Items []jsonItem `json:"items"`
}

type jsonItem struct {
	Title         string    `json:"title"`
	URL           string    `json:"url"`
	Domain        string    `json:"domain"`
	LastVisitTime time.Time `json:"last_visit_time"`
}

type jsonTab struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Domain   string `json:"domain"`
	WindowID int    `json:"window_id"`
	Window   string `json:"window,omitempty"`
	Active   bool   `json:"active,omitempty"`
}

type jsonWindow struct {
	types.WindowRecord
	ClosedPretty string `json:"closed_pretty,omitempty"`
}

type jsonWindows struct {
	ExportedAt time.Time    `json:"exported_at"`
	Windows    []jsonWindow `json:"windows"`
}

type jsonTabs struct {
	ExportedAt time.Time `json:"exported_at"`
	Tabs       []jsonTab `json:"tabs"`
}

func encode(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}

// HistoryJSON formats a filtered history view. Only grouped items are listed;
// total counts every match.
func HistoryJSON(v app.HistoryView, r browser.TimeRange, now time.Time) (string, error) {
	out := jsonHistory{
		TimeRange:  r,
		ExportedAt: now,
		Total:      v.Total(),
		Groups:     make([]jsonGroup, 0, len(v.Groups)),
	}
	for _, g := range v.Groups {
		group := jsonGroup{Label: g.Label, Items: make([]jsonItem, 0, len(g.Items))}
		for _, it := range g.Items {
			group.Items = append(group.Items, jsonItem{
				Title:         it.Title,
				URL:           it.URL,
				Domain:        types.Hostname(it.URL),
				LastVisitTime: it.LastVisitTime,
			})
		}
		out.Groups = append(out.Groups, group)
	}
	return encode(out)
}

// TabsJSON formats a filtered tab list.
func TabsJSON(v app.TabsView, now time.Time) (string, error) {
	out := jsonTabs{ExportedAt: now, Tabs: make([]jsonTab, 0, len(v.Items))}
	for _, t := range v.Items {
		out.Tabs = append(out.Tabs, jsonTab{
			ID:       t.ID,
			Title:    t.Title,
			URL:      t.URL,
			Domain:   types.Hostname(t.URL),
			WindowID: t.WindowID,
			Window:   t.WindowName,
			Active:   t.Active,
		})
	}
	return encode(out)
}

// WindowsJSON formats a merged window list.
func WindowsJSON(recs []types.WindowRecord, now time.Time) (string, error) {
	out := jsonWindows{ExportedAt: now, Windows: make([]jsonWindow, 0, len(recs))}
	for _, r := range recs {
		w := jsonWindow{WindowRecord: r}
		if !r.IsOpen() {
			w.ClosedPretty = timegroup.Relative(r.ClosedAt, now)
		}
		out.Windows = append(out.Windows, w)
	}
	return encode(out)
}
