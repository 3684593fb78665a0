package query

import (
	"time"

	"concierge/internal/ics"
	"concierge/internal/model"
)

// EventsInRange expands events into the occurrences with from <= start < to,
// ascending by start. Malformed events are left out.
func EventsInRange(events []model.Event, from, to time.Time, loc *time.Location) []model.Occurrence {
	occ, err := ics.ExpandEvents(events, ics.ExpandConfig{
		DisplayLocation: loc,
		RangeStart:      from,
		RangeEnd:        to,
	})
	if err != nil {
		return []model.Occurrence{}
	}
	return occ
}

// WeekStart returns midnight of the first day of the week containing t,
// where weeks begin on first.
func WeekStart(t time.Time, first time.Weekday) time.Time {
	offset := (int(t.Weekday()) - int(first) + 7) % 7
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return day.AddDate(0, 0, -offset)
}
