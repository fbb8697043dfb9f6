// Package highlight marks the parts of display text that matched filter terms.
package highlight

import (
	"regexp"
	"sort"
	"strings"
)

// Annotator wraps matches in Open and Close markers.
type Annotator struct {
	Open  string
	Close string
}

// Markdown marks matches in bold.
var Markdown = Annotator{Open: "**", Close: "**"}

// Strip removes every marker a previous Annotate call added.
func (a Annotator) Strip(text string) string {
	text = strings.ReplaceAll(text, a.Open, "")
	return strings.ReplaceAll(text, a.Close, "")
}

// Annotate marks every case-insensitive occurrence of the terms in text.
// Existing markers are stripped first, so annotating twice gives the same
// result as annotating once. Blank terms are ignored.
func (a Annotator) Annotate(text string, terms []string) string {
	text = a.Strip(text)
	re := pattern(terms)
	if re == nil {
		return text
	}
	return re.ReplaceAllStringFunc(text, func(m string) string {
		return a.Open + m + a.Close
	})
}

// pattern builds one alternation of the escaped terms, longest first so an
// overlapping shorter term does not cut a longer match short.
func pattern(terms []string) *regexp.Regexp {
	var quoted []string
	seen := make(map[string]bool)
	for _, t := range terms {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		quoted = append(quoted, regexp.QuoteMeta(t))
	}
	if len(quoted) == 0 {
		return nil
	}
	sort.SliceStable(quoted, func(i, j int) bool { return len(quoted[i]) > len(quoted[j]) })
	return regexp.MustCompile("(?i)" + strings.Join(quoted, "|"))
}

// Segment is a run of marked text.
type Segment struct {
	Text  string
	Match bool
}

// Segments splits annotated text into plain and matched runs so a renderer
// can style them. An unterminated marker extends to the end of the text.
func (a Annotator) Segments(marked string) []Segment {
	var segs []Segment
	for marked != "" {
		i := strings.Index(marked, a.Open)
		if i < 0 {
			segs = append(segs, Segment{Text: marked})
			break
		}
		if i > 0 {
			segs = append(segs, Segment{Text: marked[:i]})
		}
		marked = marked[i+len(a.Open):]
		j := strings.Index(marked, a.Close)
		if j < 0 {
			j = len(marked)
		}
		if j > 0 {
			segs = append(segs, Segment{Text: marked[:j], Match: true})
		}
		marked = marked[min(j+len(a.Close), len(marked)):]
	}
	return segs
}
