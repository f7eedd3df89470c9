// Package dateutil provides the calendar arithmetic shared by the query
// adapter, the expander and the view: local date strings, weekday names
// and the Sunday-first week window. All functions are pure.
package dateutil

import (
	"fmt"
	"time"

	"notioncal/internal/model"
)

// LocalDateString formats t as zero-padded "YYYY-MM-DD" using its local
// calendar components. It never converts through UTC, so a date near a
// timezone boundary cannot shift across midnight.
func LocalDateString(t time.Time) string {
	return fmt.Sprintf("%04d-%02d-%02d", t.Year(), int(t.Month()), t.Day())
}

// WeekdayName returns the canonical English weekday name for t,
// Sunday-first.
func WeekdayName(t time.Time) string {
	return model.WeekdayNames[int(t.Weekday())]
}

// WeekWindow returns the 7 consecutive calendar dates of the week
// containing now, Sunday-first, each at local midnight in now's location.
// The window is recomputed on every call so it is always anchored to the
// real-world week at invocation time.
func WeekWindow(now time.Time) [7]time.Time {
	sunday := time.Date(now.Year(), now.Month(), now.Day()-int(now.Weekday()), 0, 0, 0, 0, now.Location())

	var week [7]time.Time
	for i := range week {
		week[i] = sunday.AddDate(0, 0, i)
	}
	return week
}
