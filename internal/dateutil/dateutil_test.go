package dateutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekWindowProperties(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	tests := []struct {
		name string
		now  time.Time
	}{
		{
			name: "midweek",
			now: time.Date(2024, 3, 6, 15, 30, 0, 0, loc),
		},
		{
			name: "sunday itself",
			now: time.Date(2024, 3, 3, 0, 0, 0, 0, loc),
		},
		{
			name: "saturday late",
			now: time.Date(2024, 3, 9, 23, 59, 59, 0, loc),
		},
		{
			name: "dst spring forward week",
			now: time.Date(2024, 3, 13, 12, 0, 0, 0, loc),
		},
		{
			name: "dst fall back week",
			now: time.Date(2024, 11, 6, 12, 0, 0, 0, loc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			week := WeekWindow(tt.now)

			assert.Equal(t, time.Sunday, week[0].Weekday(), "window must start on Sunday")
			for i, d := range week {
				assert.Equal(t, 0, d.Hour(), "day %d not at local midnight", i)
				assert.Equal(t, 0, d.Minute())
				if i > 0 {
					next := week[i-1].AddDate(0, 0, 1)
					assert.True(t, next.Equal(d), "day %d is not the day after day %d", i, i-1)
				}
			}

			// The window contains "now"'s calendar date.
			nowStr := LocalDateString(tt.now)
			found := false
			for _, d := range week {
				if LocalDateString(d) == nowStr {
					found = true
				}
			}
			assert.True(t, found, "window must contain the anchor date")
		})
	}
}

func TestLocalDateStringRoundTrip(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// Includes both DST transition dates for 2024.
	dates := []time.Time{
		time.Date(2024, 3, 10, 0, 0, 0, 0, loc),
		time.Date(2024, 3, 10, 23, 0, 0, 0, loc),
		time.Date(2024, 11, 3, 1, 30, 0, 0, loc),
		time.Date(2024, 1, 1, 0, 0, 0, 0, loc),
		time.Date(2024, 12, 31, 23, 59, 59, 0, loc),
	}

	for _, d := range dates {
		s := LocalDateString(d)
		rebuilt := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
		assert.Equal(t, s, LocalDateString(rebuilt), "round-trip changed the date for %v", d)
	}
}

func TestLocalDateStringZeroPadding(t *testing.T) {
	d := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-01-05", LocalDateString(d))
}

func TestWeekdayName(t *testing.T) {
	// 2024-03-03 is a Sunday.
	for i, want := range []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"} {
		d := time.Date(2024, 3, 3+i, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, want, WeekdayName(d))
	}
}
