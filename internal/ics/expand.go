package ics

import (
	"errors"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "concierge/internal/log"
	"concierge/internal/model"
)

const (
	defaultMaxOccurrencesPerEvent = 500
)

// ExpandConfig controls how recurrence expansion is performed.
type ExpandConfig struct {
	// DisplayLocation is the timezone to which all occurrences will be converted.
	// If nil, time.Local is used.
	DisplayLocation *time.Location

	// RangeStart / RangeEnd define the window for occurrences. An occurrence
	// is kept when RangeStart <= start < RangeEnd.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps expansion of open-ended rules. If zero,
	// defaultMaxOccurrencesPerEvent is used.
	MaxOccurrencesPerEvent int
}

func (cfg *ExpandConfig) normalize() error {
	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}
	return nil
}

// ExpandEvents expands household events into occurrences inside the window,
// ordered by start. Events whose date, time or repeat rule cannot be parsed
// are skipped. Occurrences that start together keep input order.
func ExpandEvents(events []model.Event, cfg ExpandConfig) ([]model.Occurrence, error) {
	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	out := make([]model.Occurrence, 0)
	for _, ev := range events {
		starts, ok := eventStarts(ev, cfg)
		if !ok {
			continue
		}
		for _, start := range starts {
			out = append(out, eventOccurrence(ev, start, cfg.DisplayLocation))
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
	return out, nil
}

// NextOccurrence returns the first occurrence of ev starting at or after now.
func NextOccurrence(ev model.Event, now time.Time, loc *time.Location) (model.Occurrence, bool) {
	if loc == nil {
		loc = time.Local
	}
	start, err := ev.StartIn(loc)
	if err != nil {
		return model.Occurrence{}, false
	}

	if ev.Repeat == "" {
		if start.Before(now) {
			return model.Occurrence{}, false
		}
		return eventOccurrence(ev, start, loc), true
	}

	r, err := eventRule(ev, start)
	if err != nil {
		return model.Occurrence{}, false
	}
	next := r.After(now, true)
	if next.IsZero() {
		return model.Occurrence{}, false
	}
	return eventOccurrence(ev, next, loc), true
}

func eventStarts(ev model.Event, cfg ExpandConfig) ([]time.Time, bool) {
	start, err := ev.StartIn(cfg.DisplayLocation)
	if err != nil {
		appLog.Debug("expand: skipping event with malformed start", "id", ev.ID, "date", ev.Date, "time", ev.Time)
		return nil, false
	}

	if ev.Repeat == "" {
		if start.Before(cfg.RangeStart) || !start.Before(cfg.RangeEnd) {
			return nil, true
		}
		return []time.Time{start}, true
	}

	r, err := eventRule(ev, start)
	if err != nil {
		appLog.Error("expand: failed to parse repeat rule", err, "id", ev.ID, "repeat", ev.Repeat)
		return nil, false
	}

	starts := r.Between(cfg.RangeStart, cfg.RangeEnd, true)
	kept := starts[:0]
	for _, s := range starts {
		if s.Before(cfg.RangeEnd) {
			kept = append(kept, s)
		}
	}
	if len(kept) > cfg.MaxOccurrencesPerEvent {
		appLog.Error("expand: truncated occurrences for event due to cap",
			errors.New("max occurrences reached"),
			"id", ev.ID,
			"cap", cfg.MaxOccurrencesPerEvent,
		)
		kept = kept[:cfg.MaxOccurrencesPerEvent]
	}
	return kept, true
}

func eventRule(ev model.Event, start time.Time) (*rrule.RRule, error) {
	r, err := rrule.StrToRRule(ev.Repeat)
	if err != nil {
		return nil, err
	}
	r.DTStart(start)
	return r, nil
}

func eventOccurrence(ev model.Event, start time.Time, loc *time.Location) model.Occurrence {
	start = start.In(loc)
	return model.Occurrence{
		EventID:  ev.ID,
		Title:    ev.Title,
		Location: ev.Location,
		Notes:    ev.Notes,
		Start:    start,
		End:      start.Add(ev.DurationOrDefault()),
	}
}

// ExpandResult wraps the list of expanded occurrences and optionally
// information about truncation.
type ExpandResult struct {
	Occurrences []model.Occurrence
	// TruncatedEvents records UIDs that hit the MaxOccurrencesPerEvent cap.
	TruncatedEvents []string
}

// ExpandOccurrences expands parsed subscription events into concrete
// occurrences within the configured window. It handles single events,
// RRULE recurrence with EXDATE, RECURRENCE-ID overrides and all-day events.
func ExpandOccurrences(events []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult
	if err := cfg.normalize(); err != nil {
		return result, err
	}

	// Group base events and overrides by UID, preserving first-seen order.
	var uids []string
	baseByUID := make(map[string][]ParsedEvent)
	overridesByUID := make(map[string][]ParsedEvent)
	for _, ev := range events {
		if ev.IsOverride && ev.Recurrence != nil {
			overridesByUID[ev.UID] = append(overridesByUID[ev.UID], ev)
			continue
		}
		if _, seen := baseByUID[ev.UID]; !seen {
			uids = append(uids, ev.UID)
		}
		baseByUID[ev.UID] = append(baseByUID[ev.UID], ev)
	}

	all := make([]model.Occurrence, 0)
	for _, uid := range uids {
		truncated := false
		for _, ev := range baseByUID[uid] {
			occ, hitCap := expandParsed(ev, overridesByUID[uid], cfg)
			truncated = truncated || hitCap
			all = append(all, occ...)
		}
		if truncated {
			result.TruncatedEvents = append(result.TruncatedEvents, uid)
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Start.Before(all[j].Start)
	})
	result.Occurrences = all
	return result, nil
}

func expandParsed(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]model.Occurrence, bool) {
	if ev.RawRRule == "" {
		if !overlaps(ev.Start, ev.End, cfg.RangeStart, cfg.RangeEnd) {
			return nil, false
		}
		start, end, base := ev.Start, ev.End, ev
		if o, ok := findOverride(overrides, start); ok {
			start, end, base = o.Start, o.End, o
		}
		return []model.Occurrence{parsedOccurrence(base, start, end, cfg.DisplayLocation)}, false
	}

	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("expand: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	starts := set.Between(cfg.RangeStart.In(ev.Start.Location()), cfg.RangeEnd.In(ev.Start.Location()), true)
	hitCap := false
	if len(starts) > cfg.MaxOccurrencesPerEvent {
		starts = starts[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	out := make([]model.Occurrence, 0, len(starts))
	dur := ev.End.Sub(ev.Start)
	for _, start := range starts {
		var end time.Time
		if ev.AllDay {
			start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
			end = start.AddDate(0, 0, 1)
		} else {
			end = start.Add(dur)
		}
		base := ev
		if o, ok := findOverride(overrides, start); ok {
			start, end, base = o.Start, o.End, o
		}
		out = append(out, parsedOccurrence(base, start, end, cfg.DisplayLocation))
	}
	return out, hitCap
}

// findOverride finds an override whose RECURRENCE-ID equals start.
func findOverride(overrides []ParsedEvent, start time.Time) (ParsedEvent, bool) {
	for _, ov := range overrides {
		if ov.Recurrence != nil && ov.Recurrence.Equal(start) {
			return ov, true
		}
	}
	return ParsedEvent{}, false
}

func parsedOccurrence(ev ParsedEvent, start, end time.Time, loc *time.Location) model.Occurrence {
	if ev.AllDay {
		// All-day dates float: keep the calendar day in the display zone.
		days := int(end.Sub(start).Hours()/24 + 0.5)
		if days < 1 {
			days = 1
		}
		start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
		end = start.AddDate(0, 0, days)
	}
	return model.Occurrence{
		EventID:  ev.UID,
		SourceID: ev.Source.ID,
		Title:    ev.Summary,
		Location: ev.Location,
		Notes:    ev.Description,
		AllDay:   ev.AllDay,
		Start:    start.In(loc),
		End:      end.In(loc),
	}
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aEnd.Before(bStart) && !bEnd.Before(aStart)
}

// ValidateRepeat reports whether rule is an RRULE body the expander accepts.
// An empty rule is valid.
func ValidateRepeat(rule string) error {
	if rule == "" {
		return nil
	}
	_, err := rrule.StrToRRule(rule)
	return err
}
