package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	appLog "concierge/internal/log"
	"concierge/internal/model"
)

// Product identifiers written into the PRODID header of each export.
const (
	ProductCalendar = "-//PLC//Calendar//EN"
	ProductTravel   = "-//PLC//Travel//EN"
	ProductDates    = "-//PLC//Dates//EN"
)

// utcLayout is the sortable instant form used for DTSTAMP/DTSTART/DTEND.
const utcLayout = "20060102T150405Z"

// ImportantDateTime is the time of day at which important dates are exported.
const ImportantDateTime = "09:00"

// EncodeOptions controls calendar export. Zero values fall back to the
// calendar product id, time.Local, time.Now and random UIDs.
type EncodeOptions struct {
	ProductID string
	Location  *time.Location
	Now       func() time.Time
	NewUID    func() string
}

func (o EncodeOptions) withDefaults(product string) EncodeOptions {
	if o.ProductID == "" {
		o.ProductID = product
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewUID == nil {
		o.NewUID = func() string { return uuid.NewString() + "@plc" }
	}
	return o
}

// block is one VEVENT to be written.
type block struct {
	start       time.Time
	end         time.Time
	summary     string
	location    string
	description string
	rrule       string
}

// EncodeEvents renders household events as an iCalendar document. Events
// whose date or time cannot be parsed are left out.
func EncodeEvents(events []model.Event, opts EncodeOptions) string {
	opts = opts.withDefaults(ProductCalendar)

	blocks := make([]block, 0, len(events))
	for _, e := range events {
		start, err := e.StartIn(opts.Location)
		if err != nil {
			appLog.Debug("ics encode: skipping event with malformed start", "id", e.ID)
			continue
		}
		b := block{
			start:       start,
			end:         start.Add(e.DurationOrDefault()),
			summary:     e.Title,
			location:    e.Location,
			description: e.Notes,
		}
		if e.Repeat != "" {
			if _, err := rrule.StrToRRule(e.Repeat); err == nil {
				b.rrule = e.Repeat
			}
		}
		blocks = append(blocks, b)
	}
	return encode(blocks, opts)
}

// EncodeTrip renders every segment of a trip as an hour-long VEVENT.
func EncodeTrip(trip model.Trip, opts EncodeOptions) string {
	opts = opts.withDefaults(ProductTravel)

	blocks := make([]block, 0, len(trip.Segments))
	for _, s := range trip.Segments {
		start, err := s.StartIn(opts.Location)
		if err != nil {
			continue
		}
		blocks = append(blocks, block{
			start:       start,
			end:         start.Add(time.Hour),
			summary:     trip.Title + ": " + string(s.Kind) + " – " + s.Detail,
			description: s.Notes,
		})
	}
	return encode(blocks, opts)
}

// EncodeDates renders important dates at 09:00 local time, tagged with
// their source.
func EncodeDates(dates []model.ImportantDate, opts EncodeOptions) string {
	opts = opts.withDefaults(ProductDates)

	blocks := make([]block, 0, len(dates))
	for _, d := range dates {
		start, err := model.ParseDateTime(d.Date, ImportantDateTime, opts.Location)
		if err != nil {
			continue
		}
		src := d.Source
		if src == "" {
			src = model.SourceManual
		}
		blocks = append(blocks, block{
			start:       start,
			end:         start.Add(time.Hour),
			summary:     d.Label,
			description: "Source: " + string(src),
		})
	}
	return encode(blocks, opts)
}

func encode(blocks []block, opts EncodeOptions) string {
	cal := ical.NewCalendar()
	cal.SetProductId(opts.ProductID)

	stamp := opts.Now()
	for _, b := range blocks {
		ev := cal.AddEvent(opts.NewUID())
		ev.SetDtStampTime(stamp)
		ev.SetStartAt(b.start)
		ev.SetEndAt(b.end)
		ev.SetSummary(b.summary)
		if b.location != "" {
			ev.SetLocation(b.location)
		}
		if b.description != "" {
			ev.SetDescription(b.description)
		}
		if b.rrule != "" {
			ev.AddRrule(b.rrule)
		}
	}
	return cal.Serialize(ical.WithNewLineWindows)
}
