// Package timegroup turns timestamps into the human-relative labels used to
// section result lists.
package timegroup

import (
	"fmt"
	"time"
)

const day = 24 * time.Hour

// Label buckets t relative to now using local calendar dates. Weeks start
// on Sunday.
func Label(t, now time.Time) string {
	loc := now.Location()
	t = t.In(loc)

	today := midnight(now)
	yesterday := today.AddDate(0, 0, -1)
	thisWeekStart := today.AddDate(0, 0, -int(today.Weekday()))
	lastWeekStart := thisWeekStart.AddDate(0, 0, -7)
	thisMonthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
	lastMonthStart := thisMonthStart.AddDate(0, -1, 0)

	itemDate := midnight(t)
	switch {
	case itemDate.Equal(today):
		return "Today"
	case itemDate.Equal(yesterday):
		return "Yesterday"
	case !itemDate.Before(thisWeekStart):
		return t.Weekday().String()
	case !itemDate.Before(lastWeekStart):
		return "Last Week"
	case !itemDate.Before(thisMonthStart):
		return "Earlier This Month"
	case !itemDate.Before(lastMonthStart):
		return "Last Month"
	default:
		return t.Format("January 2006")
	}
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Bucket is a labelled run of items.
type Bucket[T any] struct {
	Label string
	Items []T
}

// Group buckets items by Label. Buckets appear in the order their first member
// is met, so a list sorted newest first yields newest buckets first.
func Group[T any](items []T, at func(T) time.Time, now time.Time) []Bucket[T] {
	var buckets []Bucket[T]
	index := make(map[string]int)
	for _, it := range items {
		label := Label(at(it), now)
		i, ok := index[label]
		if !ok {
			i = len(buckets)
			index[label] = i
			buckets = append(buckets, Bucket[T]{Label: label})
		}
		buckets[i].Items = append(buckets[i].Items, it)
	}
	return buckets
}

// Relative formats the distance from t to now for window timestamps.
func Relative(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "Just now"
	case d < time.Hour:
		return plural(int(d/time.Minute), "min")
	case d < day:
		return plural(int(d/time.Hour), "hour")
	case d < 7*day:
		days := int(d / day)
		if days == 1 {
			return "Yesterday"
		}
		return fmt.Sprintf("%d days ago", days)
	case d < 30*day:
		weeks := int(d / (7 * day))
		if weeks == 1 {
			return "Last week"
		}
		return fmt.Sprintf("%d weeks ago", weeks)
	default:
		t = t.In(now.Location())
		if t.Year() == now.Year() {
			return t.Format("Jan 2")
		}
		return t.Format("Jan 2, 2006")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
