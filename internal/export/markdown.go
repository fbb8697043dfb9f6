// Package export renders filtered history, tabs and windows as Markdown or
// JSON documents for the command-line subcommands.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/lotas/tabsieb/internal/app"
	"github.com/lotas/tabsieb/internal/browser"
	"github.com/lotas/tabsieb/internal/highlight"
	"github.com/lotas/tabsieb/internal/timegroup"
	"github.com/lotas/tabsieb/internal/types"
)

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// linkText is the visible part of a result: the title when there is one and
// titles are shown, else the URL. Matches are bolded.
func linkText(url, title string, showTitles bool, urlTerms, titleTerms []string) string {
	if showTitles && title != "" {
		return highlight.Markdown.Annotate(title, titleTerms)
	}
	return highlight.Markdown.Annotate(url, urlTerms)
}

// HistoryMarkdown formats a filtered history view, one section per time group.
func HistoryMarkdown(v app.HistoryView, r browser.TimeRange, showTitles bool, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# History: %s\n", r.Label())
	fmt.Fprintf(&b, "> Exported %s, %s", now.Format("2006-01-02 15:04"), plural(v.Total(), "result"))
	if v.Shown() < v.Total() {
		fmt.Fprintf(&b, " (showing %d)", v.Shown())
	}
	b.WriteString("\n")

	if v.Total() == 0 {
		b.WriteString("\nNo matching history items found.\n")
		return b.String()
	}

	for _, g := range v.Groups {
		fmt.Fprintf(&b, "\n## %s\n\n", g.Label)
		for _, it := range g.Items {
			fmt.Fprintf(&b, "- [%s](%s) %s\n",
				linkText(it.URL, it.Title, showTitles, v.URLTerms, v.TitleTerms),
				it.URL, it.LastVisitTime.In(now.Location()).Format("15:04"))
		}
	}
	return b.String()
}

// TabsMarkdown formats a filtered tab list, one section per window.
func TabsMarkdown(v app.TabsView, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Open Tabs\n")
	fmt.Fprintf(&b, "> Exported %s, %s\n", now.Format("2006-01-02 15:04"), plural(len(v.Items), "tab"))

	type section struct {
		name string
		tabs []types.Tab
	}
	var sections []*section
	byName := map[string]*section{}
	for _, t := range v.Items {
		name := t.WindowName
		if name == "" {
			name = fmt.Sprintf("Window %d", t.WindowID)
		}
		s, ok := byName[name]
		if !ok {
			s = &section{name: name}
			byName[name] = s
			sections = append(sections, s)
		}
		s.tabs = append(s.tabs, t)
	}

	for _, s := range sections {
		fmt.Fprintf(&b, "\n## %s (%s)\n\n", s.name, plural(len(s.tabs), "tab"))
		for _, t := range s.tabs {
			marker := ""
			if t.Active {
				marker = " (active)"
			}
			if len(v.Duplicates[t.ID]) > 0 {
				marker += " (duplicate)"
			}
			fmt.Fprintf(&b, "- [%s](%s)%s\n", linkText(t.URL, t.Title, true, v.URLTerms, v.TitleTerms), t.URL, marker)
		}
	}
	return b.String()
}

func provenanceLabel(p types.Provenance) string {
	switch p {
	case types.ProvenanceSession:
		return "browser session"
	case types.ProvenancePreserved:
		return "preserved session"
	default:
		return "saved"
	}
}

// WindowsMarkdown formats a merged window list.
func WindowsMarkdown(recs []types.WindowRecord, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Windows\n")
	fmt.Fprintf(&b, "> Exported %s, %s\n", now.Format("2006-01-02 15:04"), plural(len(recs), "window"))

	for _, r := range recs {
		if r.IsOpen() {
			fmt.Fprintf(&b, "\n## Open window (%s)\n\n", plural(r.TabCount, "tab"))
		} else {
			fmt.Fprintf(&b, "\n## Closed %s (%s, %s)\n\n",
				timegroup.Relative(r.ClosedAt, now), plural(r.TabCount, "tab"), provenanceLabel(r.Provenance))
		}
		if len(r.Domains) > 0 {
			fmt.Fprintf(&b, "Domains: %s\n\n", strings.Join(r.Domains, ", "))
		}
		for _, t := range r.Tabs {
			title := t.Title
			if title == "" {
				title = t.URL
			}
			fmt.Fprintf(&b, "- [%s](%s)\n", title, t.URL)
		}
	}
	return b.String()
}
