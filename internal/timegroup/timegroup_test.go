package timegroup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Wednesday.
var now = time.Date(2026, time.October, 14, 15, 0, 0, 0, time.UTC)

func at(month time.Month, d, h int) time.Time {
	return time.Date(2026, month, d, h, 0, 0, 0, time.UTC)
}

func TestLabel(t *testing.T) {
	cases := []struct {
		t    time.Time
		want string
	}{
		{at(time.October, 14, 0), "Today"},
		{at(time.October, 14, 14), "Today"},
		{at(time.October, 13, 23), "Yesterday"},
		{at(time.October, 12, 9), "Monday"},
		{at(time.October, 11, 9), "Sunday"},
		{at(time.October, 10, 9), "Last Week"},
		{at(time.October, 4, 0), "Last Week"},
		{at(time.October, 3, 23), "Earlier This Month"},
		{at(time.October, 1, 0), "Earlier This Month"},
		{at(time.September, 30, 12), "Last Month"},
		{at(time.September, 1, 0), "Last Month"},
		{at(time.August, 20, 0), "August 2026"},
		{time.Date(2025, time.December, 24, 0, 0, 0, 0, time.UTC), "December 2025"},
	}
	for _, c := range cases {
		require.Equal(t, c.want, Label(c.t, now), "t=%s", c.t)
	}
}

func TestLabelEarlyInMonth(t *testing.T) {
	// Monday the 2nd: last week reaches into the previous month, and
	// "Last Week" wins over "Last Month". Sunday the 1st is yesterday,
	// which wins over its weekday name.
	early := time.Date(2026, time.November, 2, 12, 0, 0, 0, time.UTC)
	sunday := time.Date(2026, time.November, 1, 8, 0, 0, 0, time.UTC)
	require.Equal(t, "Yesterday", Label(sunday, early))
	require.Equal(t, "Last Week", Label(time.Date(2026, time.October, 28, 8, 0, 0, 0, time.UTC), early))
	require.Equal(t, "Last Month", Label(time.Date(2026, time.October, 20, 8, 0, 0, 0, time.UTC), early))

	// A day later the same Sunday is named by its weekday.
	tuesday := time.Date(2026, time.November, 3, 12, 0, 0, 0, time.UTC)
	require.Equal(t, "Sunday", Label(sunday, tuesday))
	require.Equal(t, "Last Week", Label(time.Date(2026, time.October, 28, 8, 0, 0, 0, time.UTC), tuesday))
}

func TestGroupFirstSeenOrder(t *testing.T) {
	items := []time.Time{
		at(time.October, 14, 10),
		at(time.October, 13, 10),
		at(time.October, 14, 9), // out of order on purpose
		at(time.September, 2, 0),
	}
	buckets := Group(items, func(t time.Time) time.Time { return t }, now)
	require.Len(t, buckets, 3)
	require.Equal(t, "Today", buckets[0].Label)
	require.Len(t, buckets[0].Items, 2)
	require.Equal(t, "Yesterday", buckets[1].Label)
	require.Equal(t, "Last Month", buckets[2].Label)
}

func TestRelative(t *testing.T) {
	cases := []struct {
		ago  time.Duration
		want string
	}{
		{30 * time.Second, "Just now"},
		{time.Minute, "1 min ago"},
		{5 * time.Minute, "5 mins ago"},
		{time.Hour, "1 hour ago"},
		{3 * time.Hour, "3 hours ago"},
		{day, "Yesterday"},
		{3 * day, "3 days ago"},
		{7 * day, "Last week"},
		{20 * day, "2 weeks ago"},
		{40 * day, "Sep 4"},
		{400 * day, "Sep 9, 2025"},
	}
	for _, c := range cases {
		require.Equal(t, c.want, Relative(now.Add(-c.ago), now), "ago=%s", c.ago)
	}
}
