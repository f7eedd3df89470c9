package model

import (
	"strings"
	"time"
)

// WeekdayNames are the canonical English weekday names used by the remote
// "Repeat Day" select, index 0 = Sunday. The recurrence expander resolves
// a repeat day to a week-window slot by its index in this table.
var WeekdayNames = [7]string{
	"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday",
}

// WeekdayNamesJa are the Japanese labels shown in the weekly view headers.
var WeekdayNamesJa = [7]string{
	"日曜日", "月曜日", "火曜日", "水曜日", "木曜日", "金曜日", "土曜日",
}

// RepeatNone is the sentinel "Repeat Day" value meaning not recurring.
const RepeatNone = "None"

// EventRecord is a raw record as fetched from the remote source. Records
// are never stored locally; they live only long enough to be expanded
// into occurrences for one view or one reminder check.
type EventRecord struct {
	Name string

	// RawDate is the remote Date property as stored, either "YYYY-MM-DD"
	// or "YYYY-MM-DDTHH:MM:SS..." with an optional offset. Empty if the
	// record has no date.
	RawDate string

	Tags []string

	// RepeatDay is the remote "Repeat Day" select value: a weekday name,
	// RepeatNone, or empty when unset.
	RepeatDay string

	// URL links back to the record in the remote workspace.
	URL string
}

// DatePart returns the "YYYY-MM-DD" portion of RawDate, or "".
func (r EventRecord) DatePart() string {
	if r.RawDate == "" {
		return ""
	}
	if i := strings.IndexByte(r.RawDate, 'T'); i >= 0 {
		return r.RawDate[:i]
	}
	return r.RawDate
}

// TimePart returns the "HH:MM" portion of RawDate, or "" when the record
// carries no clock time.
func (r EventRecord) TimePart() string {
	i := strings.IndexByte(r.RawDate, 'T')
	if i < 0 || len(r.RawDate) < i+6 {
		return ""
	}
	return r.RawDate[i+1 : i+6]
}

// Occurrence is one concrete calendar placement of an event after
// recurrence expansion. Date is a local-midnight calendar date; only its
// year/month/day are meaningful.
type Occurrence struct {
	Name string
	Date time.Time

	// Time is "HH:MM", or empty when the event has no clock time.
	Time string

	Tags      []string
	URL       string
	Recurring bool
}

// SameDate reports whether a and b fall on the same calendar date.
func SameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
