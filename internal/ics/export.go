// Package ics serializes the current week's occurrences into an
// iCalendar document so the weekly view can be pulled into a regular
// calendar client.
package ics

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"notioncal/internal/dateutil"
	"notioncal/internal/model"
)

// defaultEventDuration is used for timed events; the source schema has
// no end time.
const defaultEventDuration = time.Hour

// BuildWeekCalendar serializes occurrences into an iCalendar document.
// Timed occurrences become one-hour events, untimed ones all-day events.
// Recurring occurrences carry a weekly RRULE for their weekday so the
// recurrence survives the export instead of flattening to a single date.
func BuildWeekCalendar(occurrences []model.Occurrence, now time.Time) (string, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)

	for i, occ := range occurrences {
		uid := fmt.Sprintf("%s-%d@notioncal", dateutil.LocalDateString(occ.Date), i)
		ev := cal.AddEvent(uid)
		ev.SetDtStampTime(now)
		ev.SetSummary(occ.Name)

		if occ.Time != "" {
			start, err := occurrenceStart(occ)
			if err != nil {
				return "", err
			}
			ev.SetStartAt(start)
			ev.SetEndAt(start.Add(defaultEventDuration))
		} else {
			ev.SetAllDayStartAt(occ.Date)
			ev.SetAllDayEndAt(occ.Date.AddDate(0, 0, 1))
		}

		if occ.URL != "" {
			ev.SetURL(occ.URL)
		}
		if len(occ.Tags) > 0 {
			ev.SetProperty(ical.ComponentPropertyCategories, strings.Join(occ.Tags, ","))
		}

		if occ.Recurring {
			rule, err := weeklyRule(occ.Date.Weekday())
			if err != nil {
				return "", err
			}
			ev.SetProperty(ical.ComponentPropertyRrule, rule)
		}
	}

	return cal.Serialize(), nil
}

// occurrenceStart combines the occurrence date with its "HH:MM" time in
// the date's location.
func occurrenceStart(occ model.Occurrence) (time.Time, error) {
	parts := strings.SplitN(occ.Time, ":", 2)
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("ics: malformed time %q", occ.Time)
	}
	hour, err1 := strconv.Atoi(parts[0])
	min, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return time.Time{}, fmt.Errorf("ics: malformed time %q", occ.Time)
	}
	d := occ.Date
	return time.Date(d.Year(), d.Month(), d.Day(), hour, min, 0, 0, d.Location()), nil
}

// rruleWeekdays maps time.Weekday (Sunday-first) onto rrule weekday
// constants.
var rruleWeekdays = [7]rrule.Weekday{
	rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA,
}

// weeklyRule builds the RRULE value for an event repeating every week on
// the given weekday, e.g. "FREQ=WEEKLY;BYDAY=MO".
func weeklyRule(wd time.Weekday) (string, error) {
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:  rrule.WEEKLY,
		Byweekday: []rrule.Weekday{rruleWeekdays[int(wd)]},
	})
	if err != nil {
		return "", err
	}
	return r.String(), nil
}
