// Package briefing computes the dashboard summary: the nearest upcoming
// event, the leave-by countdown and the counters shown next to it.
package briefing

import (
	"math"
	"strings"
	"time"

	"concierge/internal/ics"
	"concierge/internal/model"
	"concierge/internal/query"
)

// DefaultOpenRequests is how many open requests the briefing lists.
const DefaultOpenRequests = 3

// NextEvent returns the occurrence with the earliest start that is not
// before now. Events with a repeat rule contribute their next occurrence.
// When two events start at the same instant the one earlier in the input
// wins. Malformed events are skipped.
func NextEvent(events []model.Event, now time.Time, loc *time.Location) (model.Occurrence, bool) {
	var (
		best  model.Occurrence
		found bool
	)
	for _, ev := range events {
		occ, ok := ics.NextOccurrence(ev, now, loc)
		if !ok {
			continue
		}
		if !found || occ.Start.Before(best.Start) {
			best, found = occ, true
		}
	}
	return best, found
}

// LeaveByMinutes returns the signed number of minutes from now until the
// leave-by instant, which is the occurrence start minus buffer. A result
// of zero or less means the traveller is already late. Partial minutes
// round up.
func LeaveByMinutes(occ model.Occurrence, now time.Time, buffer time.Duration) (int, bool) {
	if occ.Start.IsZero() {
		return 0, false
	}
	leaveAt := occ.Start.Add(-buffer)
	return int(math.Ceil(leaveAt.Sub(now).Minutes())), true
}

// SegmentOccurrence is a trip segment resolved to an instant.
type SegmentOccurrence struct {
	TripID    string        `json:"tripId"`
	TripTitle string        `json:"tripTitle"`
	Segment   model.Segment `json:"segment"`
	Start     time.Time     `json:"start"`
}

// NextSegment returns the nearest trip segment starting at or after now.
func NextSegment(trips []model.Trip, now time.Time, loc *time.Location) (SegmentOccurrence, bool) {
	var (
		best  SegmentOccurrence
		found bool
	)
	for _, t := range trips {
		for _, s := range t.Segments {
			start, err := s.StartIn(loc)
			if err != nil || start.Before(now) {
				continue
			}
			if !found || start.Before(best.Start) {
				best = SegmentOccurrence{
					TripID:    t.ID,
					TripTitle: t.Title,
					Segment:   s,
					Start:     start,
				}
				found = true
			}
		}
	}
	return best, found
}

// Briefing is the summary rendered at the top of the dashboard and by the
// briefing command.
type Briefing struct {
	Greeting  string `json:"greeting"`
	Name      string `json:"name"`
	FirstName string `json:"firstName"`
	Comms     string `json:"comms"`
	Date      string `json:"date"`

	NextEvent      *model.Occurrence  `json:"nextEvent,omitempty"`
	LeaveInMinutes *int               `json:"leaveInMinutes,omitempty"`
	Late           bool               `json:"late"`
	NextSegment    *SegmentOccurrence `json:"nextSegment,omitempty"`

	PendingDecisions int             `json:"pendingDecisions"`
	UnresolvedAlerts int             `json:"unresolvedAlerts"`
	OpenRequests     []model.Request `json:"openRequests"`
	MTDDiscretionary float64         `json:"mtdDiscretionary"`

	Today []model.Occurrence `json:"today"`
}

// Greeting picks the salutation for the hour of t.
func Greeting(t time.Time) string {
	switch h := t.Hour(); {
	case h >= 18:
		return "Good Evening"
	case h >= 12:
		return "Good Afternoon"
	default:
		return "Good Morning"
	}
}

// Build assembles the briefing for state as seen at now in loc.
func Build(state *model.State, now time.Time, loc *time.Location, buffer time.Duration) Briefing {
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)

	name := state.Onboarding.DisplayName()
	first := name
	if f := strings.Fields(name); len(f) > 0 {
		first = f[0]
	}

	b := Briefing{
		Greeting:         Greeting(now),
		Name:             name,
		FirstName:        first,
		Comms:            state.Onboarding.DailyUpdate(),
		Date:             now.Format("Monday, 2 January"),
		PendingDecisions: len(query.PendingDecisions(state.Decisions)),
		UnresolvedAlerts: len(query.UnresolvedAlerts(state.Alerts)),
		OpenRequests:     query.OpenRequests(state.Requests, DefaultOpenRequests),
		MTDDiscretionary: state.Money.MTDDiscretionary,
	}

	if occ, ok := NextEvent(state.Events, now, loc); ok {
		b.NextEvent = &occ
		if mins, ok := LeaveByMinutes(occ, now, buffer); ok {
			b.LeaveInMinutes = &mins
			b.Late = mins <= 0
		}
	}
	if seg, ok := NextSegment(state.Trips, now, loc); ok {
		b.NextSegment = &seg
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	b.Today = query.EventsInRange(state.Events, dayStart, dayStart.AddDate(0, 0, 1), loc)
	return b
}
