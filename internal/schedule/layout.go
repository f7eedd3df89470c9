package schedule

import (
	"sort"
	"time"

	"notioncal/internal/model"
)

// DayColumn is one of the 7 rendered week columns.
type DayColumn struct {
	Date    time.Time
	Weekday string // canonical English name
	Label   string // Japanese header label, e.g. "月曜日"
	Events  []model.Occurrence
}

// Layout distributes occurrences into the 7 Sunday-first columns of the
// week window. Each column holds the occurrences falling on its calendar
// date (date equality, not instant equality), sorted ascending by clock
// time; occurrences without a time sort after all timed ones, keeping
// their arrival order.
func Layout(occurrences []model.Occurrence, week [7]time.Time) [7]DayColumn {
	var cols [7]DayColumn

	for i, day := range week {
		col := DayColumn{
			Date:    day,
			Weekday: model.WeekdayNames[i],
			Label:   model.WeekdayNamesJa[i],
		}
		for _, occ := range occurrences {
			if model.SameDate(occ.Date, day) {
				col.Events = append(col.Events, occ)
			}
		}
		sortByTime(col.Events)
		cols[i] = col
	}

	return cols
}

func sortByTime(events []model.Occurrence) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.Time == "" {
			return false
		}
		if b.Time == "" {
			return true
		}
		return a.Time < b.Time
	})
}
