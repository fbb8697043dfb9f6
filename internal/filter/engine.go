package filter

import (
	"sort"
	"strings"
	"time"

	"github.com/lotas/tabsieb/internal/types"
)

// Accessor tells the engine how to read an item.
type Accessor[T any] struct {
	URL     func(T) string
	Title   func(T) string
	Recency func(T) time.Time
}

var historyAccessor = Accessor[types.HistoryItem]{
	URL:     func(h types.HistoryItem) string { return h.URL },
	Title:   func(h types.HistoryItem) string { return h.Title },
	Recency: func(h types.HistoryItem) time.Time { return h.LastVisitTime },
}

var tabAccessor = Accessor[types.Tab]{
	URL:     func(t types.Tab) string { return t.URL },
	Title:   func(t types.Tab) string { return t.Title },
	Recency: func(t types.Tab) time.Time { return t.LastAccessed },
}

// ApplyHistory filters history items. With no active predicate nothing is
// shown: the history view stays empty until the user types.
func ApplyHistory(items []types.HistoryItem, s *Set) []types.HistoryItem {
	active := s.Active()
	if len(active) == 0 {
		return []types.HistoryItem{}
	}
	return Apply(items, active, historyAccessor)
}

// ApplyTabs filters open tabs. With no active predicate every tab is returned
// in its original order.
func ApplyTabs(items []types.Tab, s *Set) []types.Tab {
	active := s.Active()
	if len(active) == 0 {
		return items
	}
	return Apply(items, active, tabAccessor)
}

// Apply runs the predicate chain over items and returns the survivors sorted
// newest first. The first predicate selects the base set regardless of its
// operator; each later one narrows it. Inactive predicates are skipped.
// The input slice is never modified.
func Apply[T any](items []T, preds []Predicate, acc Accessor[T]) []T {
	result := make([]T, 0)
	first := true
	for _, p := range preds {
		if !p.Active() {
			continue
		}
		needle := strings.ToLower(p.Text)
		if first {
			for _, it := range items {
				if matches(it, p.Field, needle, acc) {
					result = append(result, it)
				}
			}
			first = false
			continue
		}
		keep := p.Operator != Exclude
		kept := result[:0]
		for _, it := range result {
			if matches(it, p.Field, needle, acc) == keep {
				kept = append(kept, it)
			}
		}
		result = kept
	}

	sort.SliceStable(result, func(i, j int) bool {
		return acc.Recency(result[i]).After(acc.Recency(result[j]))
	})
	return result
}

func matches[T any](it T, field Field, needle string, acc Accessor[T]) bool {
	var haystack string
	if field == FieldTitle {
		haystack = acc.Title(it)
	} else {
		haystack = acc.URL(it)
	}
	return strings.Contains(strings.ToLower(haystack), needle)
}
