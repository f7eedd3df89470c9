// Package schedule turns raw event records into concrete per-day
// occurrences for the displayed week, and lays them out into the 7
// Sunday-first view columns.
package schedule

import (
	"strconv"
	"strings"
	"time"

	appLog "notioncal/internal/log"
	"notioncal/internal/model"
)

// Expand converts raw records into occurrences within the given week
// window. For each record:
//
//   - A set repeat day (other than "None") wins unconditionally, even
//     when a date is also present: the record expands to exactly one
//     occurrence anchored to the window's slot for that weekday. The
//     record's clock time is carried along; its date is not.
//   - Otherwise a present date yields one occurrence at that literal
//     calendar date.
//   - A record with neither placement is dropped.
//
// Records naming an unrecognized repeat day are silently dropped. This
// is a deliberate resilience choice against partially-filled remote
// records, not an error path.
//
// Expand is pure: same records and window, same occurrences.
func Expand(records []model.EventRecord, week [7]time.Time) []model.Occurrence {
	out := make([]model.Occurrence, 0, len(records))

	for _, rec := range records {
		if day := rec.RepeatDay; day != "" && day != model.RepeatNone {
			idx := weekdayIndex(day)
			if idx < 0 {
				appLog.Debug("expand: unrecognized repeat day, dropping record",
					"name", rec.Name, "repeat_day", day)
				continue
			}
			out = append(out, model.Occurrence{
				Name:      rec.Name,
				Date:      week[idx],
				Time:      rec.TimePart(),
				Tags:      rec.Tags,
				URL:       rec.URL,
				Recurring: true,
			})
			continue
		}

		if rec.RawDate != "" {
			date, ok := parseLiteralDate(rec.DatePart(), week[0].Location())
			if !ok {
				appLog.Debug("expand: unparsable date, dropping record",
					"name", rec.Name, "raw_date", rec.RawDate)
				continue
			}
			out = append(out, model.Occurrence{
				Name: rec.Name,
				Date: date,
				Time: rec.TimePart(),
				Tags: rec.Tags,
				URL:  rec.URL,
			})
		}
	}

	return out
}

// weekdayIndex returns the Sunday-first index of an English weekday
// name, or -1 when the name is not one of the 7 canonical names.
func weekdayIndex(name string) int {
	for i, n := range model.WeekdayNames {
		if n == name {
			return i
		}
	}
	return -1
}

// parseLiteralDate builds a local-midnight date from plain integer
// year/month/day decomposition of "YYYY-MM-DD". Going through a
// timezone-aware datetime parse here could shift the date across
// midnight, so the components are taken literally.
func parseLiteralDate(s string, loc *time.Location) (time.Time, bool) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return time.Time{}, false
	}
	year, err1 := strconv.Atoi(parts[0])
	month, err2 := strconv.Atoi(parts[1])
	day, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc), true
}
