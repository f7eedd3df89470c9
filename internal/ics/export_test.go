package ics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notioncal/internal/model"
)

func TestBuildWeekCalendar(t *testing.T) {
	monday := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	thursday := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 3, 3, 12, 0, 0, 0, time.UTC)

	occurrences := []model.Occurrence{
		{Name: "standup", Date: monday, Time: "09:00", Recurring: true, Tags: []string{"work", "daily"}},
		{Name: "holiday", Date: thursday},
	}

	doc, err := BuildWeekCalendar(occurrences, now)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(doc, "BEGIN:VCALENDAR"))
	assert.Contains(t, doc, "END:VCALENDAR")
	assert.Equal(t, 2, strings.Count(doc, "BEGIN:VEVENT"))

	assert.Contains(t, doc, "SUMMARY:standup")
	assert.Contains(t, doc, "SUMMARY:holiday")

	// The recurring Monday occurrence carries a weekly RRULE.
	assert.Contains(t, doc, "FREQ=WEEKLY")
	assert.Contains(t, doc, "BYDAY=MO")

	// The untimed occurrence exports as an all-day event.
	assert.Contains(t, doc, "VALUE=DATE")
	assert.Contains(t, doc, "CATEGORIES:work")
}

func TestBuildWeekCalendarEmpty(t *testing.T) {
	doc, err := BuildWeekCalendar(nil, time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Contains(t, doc, "BEGIN:VCALENDAR")
	assert.NotContains(t, doc, "BEGIN:VEVENT")
}

func TestBuildWeekCalendarRejectsMalformedTime(t *testing.T) {
	occ := model.Occurrence{
		Name: "x",
		Date: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		Time: "9am",
	}
	_, err := BuildWeekCalendar([]model.Occurrence{occ}, time.Now())
	assert.Error(t, err)
}

func TestWeeklyRuleAllWeekdays(t *testing.T) {
	wantByday := []string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		rule, err := weeklyRule(wd)
		require.NoError(t, err)
		assert.Contains(t, rule, "FREQ=WEEKLY")
		assert.Contains(t, rule, "BYDAY="+wantByday[int(wd)])
	}
}
