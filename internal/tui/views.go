package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/tabsieb/internal/app"
	"github.com/lotas/tabsieb/internal/highlight"
	"github.com/lotas/tabsieb/internal/timegroup"
	"github.com/lotas/tabsieb/internal/types"
)

// marks are control characters that never occur in titles or URLs.
var marks = highlight.Annotator{Open: "\x02", Close: "\x03"}

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	titleStyle    = lipgloss.NewStyle()
	urlStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	matchStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	activeTabMark = lipgloss.NewStyle().Foreground(lipgloss.Color("34")).Render("●")
)

// listing is a rendered list with the line each selectable item starts on.
type listing struct {
	lines  []string
	starts []int
}

func (l *listing) header(s string) {
	l.lines = append(l.lines, headerStyle.Render(s))
}

func (l *listing) item(selected bool, first string, rest ...string) {
	l.starts = append(l.starts, len(l.lines))
	mark := "  "
	if selected {
		mark = cursorStyle.Render("▸ ")
	}
	l.lines = append(l.lines, mark+first)
	for _, r := range rest {
		l.lines = append(l.lines, "  "+r)
	}
}

func (l *listing) note(s string) {
	l.lines = append(l.lines, dimStyle.Render(s))
}

// window returns at most height lines, scrolled from offset so the cursor's
// item is visible. It returns the adjusted offset.
func (l listing) window(cursor, offset, height int) ([]string, int) {
	if height <= 0 {
		return nil, offset
	}
	if cursor >= 0 && cursor < len(l.starts) {
		top := l.starts[cursor]
		bottom := len(l.lines) - 1
		if cursor+1 < len(l.starts) {
			bottom = l.starts[cursor+1] - 1
		}
		if top < offset {
			offset = top
		}
		if bottom >= offset+height {
			offset = bottom - height + 1
		}
	}
	if offset > len(l.lines)-height {
		offset = len(l.lines) - height
	}
	if offset < 0 {
		offset = 0
	}
	end := min(offset+height, len(l.lines))
	return l.lines[offset:end], offset
}

// highlighted truncates text to width and styles the runs matching terms.
func highlighted(text string, terms []string, width int, base lipgloss.Style) string {
	text = truncate(text, width)
	var b strings.Builder
	for _, seg := range marks.Segments(marks.Annotate(text, terms)) {
		if seg.Match {
			b.WriteString(matchStyle.Render(seg.Text))
		} else {
			b.WriteString(base.Render(seg.Text))
		}
	}
	return b.String()
}

func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 0 || len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}

func historyListing(v app.HistoryView, searching, showTitles bool, cursor, width int) listing {
	var l listing
	if !searching {
		l.note("Type to search history.")
		return l
	}
	if v.Total() == 0 {
		l.note("No matching history items found.")
		return l
	}
	if v.Total() > v.Shown() {
		l.note(fmt.Sprintf("Showing %d of %d results", v.Shown(), v.Total()))
	}
	i := 0
	for _, g := range v.Groups {
		l.header(g.Label)
		for _, it := range g.Items {
			stamp := dimStyle.Render(it.LastVisitTime.Local().Format("15:04") + " ")
			w := width - 8
			url := highlighted(it.URL, v.URLTerms, w, urlStyle)
			if showTitles && it.Title != "" {
				l.item(i == cursor, stamp+highlighted(it.Title, v.TitleTerms, w, titleStyle), "      "+url)
			} else {
				l.item(i == cursor, stamp+url)
			}
			i++
		}
	}
	return l
}

func tabsListing(v app.TabsView, showTitles bool, cursor, width int) listing {
	var l listing
	if len(v.Items) == 0 {
		l.note("No matching tabs.")
		return l
	}
	lastWindow := -1
	for i, t := range v.Items {
		if t.WindowID != lastWindow {
			name := t.WindowName
			if name == "" {
				name = fmt.Sprintf("Window %d", t.WindowID)
			}
			l.header(name)
			lastWindow = t.WindowID
		}
		mark := "  "
		if t.Active {
			mark = activeTabMark + " "
		}
		if n := len(v.Duplicates[t.ID]); n > 0 {
			mark += dimStyle.Render(fmt.Sprintf("[dup×%d] ", n+1))
		}
		w := width - 6
		url := highlighted(t.URL, v.URLTerms, w, urlStyle)
		if showTitles && t.Title != "" {
			l.item(i == cursor, mark+highlighted(t.Title, v.TitleTerms, w, titleStyle), "    "+url)
		} else {
			l.item(i == cursor, mark+url)
		}
	}
	return l
}

var provenanceLabels = map[types.Provenance]string{
	types.ProvenanceSaved:     "saved",
	types.ProvenanceSession:   "browser session",
	types.ProvenancePreserved: "preserved session",
}

func windowsListing(recs []types.WindowRecord, cursor, width int, now time.Time) listing {
	var l listing
	if len(recs) == 0 {
		l.note("No windows.")
		return l
	}
	openHeader, closedHeader := false, false
	for i, r := range recs {
		if r.IsOpen() && !openHeader {
			l.header("Open")
			openHeader = true
		}
		if !r.IsOpen() && !closedHeader {
			l.header("Recently closed")
			closedHeader = true
		}
		var head string
		if r.IsOpen() {
			head = fmt.Sprintf("Window %d · %d tabs", r.WindowID, r.TabCount)
		} else {
			head = fmt.Sprintf("%s · %d tabs · %s",
				timegroup.Relative(r.ClosedAt, now), r.TabCount, provenanceLabels[r.Provenance])
		}
		domains := dimStyle.Render(truncate(strings.Join(r.Domains, ", "), width-4))
		l.item(i == cursor, head, domains)
	}
	return l
}
