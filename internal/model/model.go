package model

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Date and time-of-day layouts used by every record. Dates are stored as
// strings so that lexicographic order matches chronological order.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"

	// DefaultDurationMinutes is used when an event has no usable duration.
	DefaultDurationMinutes = 60
	// DefaultSegmentTime is used when a trip segment has no time of day.
	DefaultSegmentTime = "09:00"
)

// DerivedDatePrefix marks important dates synthesized from asset renewals.
const DerivedDatePrefix = "asset-"

var errEmptyDate = errors.New("model: empty date")

// NewID returns a fresh record identifier.
func NewID() string {
	return uuid.NewString()
}

// Event is a user-entered calendar entry.
type Event struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Date     string  `json:"date"`
	Time     string  `json:"time"`
	Duration Minutes `json:"duration"`
	Location string  `json:"location"`
	Notes    string  `json:"notes"`

	// Repeat is an optional RFC 5545 RRULE body, e.g. "FREQ=WEEKLY;BYDAY=MO".
	Repeat string `json:"repeat,omitempty"`
}

// Minutes is an event length. Older documents carry it as a string, so
// decoding accepts a number, a numeric string, "" or null; anything that
// does not parse decodes as 0.
type Minutes int

func (m *Minutes) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*m = 0
	switch x := v.(type) {
	case float64:
		*m = Minutes(x)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			*m = Minutes(f)
		}
	}
	return nil
}

// StartIn combines Date and Time into an instant in loc.
func (e Event) StartIn(loc *time.Location) (time.Time, error) {
	return ParseDateTime(e.Date, e.Time, loc)
}

// DurationOrDefault returns the event length, falling back to an hour.
func (e Event) DurationOrDefault() time.Duration {
	if e.Duration <= 0 {
		return DefaultDurationMinutes * time.Minute
	}
	return time.Duration(e.Duration) * time.Minute
}

// EndIn returns the start instant plus the event's duration.
func (e Event) EndIn(loc *time.Location) (time.Time, error) {
	start, err := e.StartIn(loc)
	if err != nil {
		return time.Time{}, err
	}
	return start.Add(e.DurationOrDefault()), nil
}

// Occurrence is a single concrete instance of an event after recurrence
// expansion and timezone normalization.
type Occurrence struct {
	EventID  string `json:"event_id"`
	SourceID string `json:"source_id,omitempty"`

	Title    string `json:"title"`
	Location string `json:"location,omitempty"`
	Notes    string `json:"notes,omitempty"`
	AllDay   bool   `json:"all_day,omitempty"`

	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Trip is a named collection of segments. Deleting a trip deletes its
// segments.
type Trip struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Segments []Segment `json:"segments"`
}

// Segment is one leg of a trip.
type Segment struct {
	ID     string      `json:"id"`
	Kind   SegmentKind `json:"kind"`
	Date   string      `json:"date"`
	Time   string      `json:"time"`
	Detail string      `json:"detail"`
	Notes  string      `json:"notes"`
}

// StartIn returns the segment's start, defaulting the time of day to 09:00.
func (s Segment) StartIn(loc *time.Location) (time.Time, error) {
	tod := s.Time
	if strings.TrimSpace(tod) == "" {
		tod = DefaultSegmentTime
	}
	return ParseDateTime(s.Date, tod, loc)
}

// Request is a task handed to the concierge team.
type Request struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Category  string        `json:"category"`
	Priority  Priority      `json:"priority"`
	Status    RequestStatus `json:"status"`
	Assignee  string        `json:"assignee"`
	DueDate   string        `json:"dueDate,omitempty"`
	Notes     string        `json:"notes"`
	CreatedAt int64         `json:"createdAt"` // unix milliseconds
}

// Asset is an entry in the assets registry. A non-empty Renewal makes the
// asset a source of a derived important date.
type Asset struct {
	ID         string    `json:"id"`
	Type       AssetType `json:"type"`
	Name       string    `json:"name"`
	Identifier string    `json:"identifier"`
	Renewal    string    `json:"renewal"`
	Notes      string    `json:"notes"`
}

// ImportantDate is either entered manually or synthesized from an asset.
type ImportantDate struct {
	ID     string     `json:"id"`
	Label  string     `json:"label"`
	Date   string     `json:"date"`
	Notes  string     `json:"notes,omitempty"`
	Source DateSource `json:"source,omitempty"`
}

// Derived reports whether the date was synthesized from an asset renewal.
func (d ImportantDate) Derived() bool {
	return strings.HasPrefix(d.ID, DerivedDatePrefix)
}

// Contact is an address book entry.
type Contact struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Notes string `json:"notes"`
}

// Property is a residence managed by the household.
type Property struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Access  string `json:"access"`
	Contact string `json:"contact"`
	Notes   string `json:"notes"`
}

// Decision is an item in the approval queue.
type Decision struct {
	ID        string         `json:"id"`
	Kind      DecisionKind   `json:"kind"`
	Title     string         `json:"title"`
	Amount    float64        `json:"amount,omitempty"`
	Status    DecisionStatus `json:"status"`
	CreatedAt int64          `json:"createdAt"`
}

// Alert is a notice that stays open until resolved.
type Alert struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	Level     string `json:"level,omitempty"`
	Resolved  bool   `json:"resolved"`
	CreatedAt int64  `json:"createdAt"`
}

// Money holds the spend summary shown on the dashboard.
type Money struct {
	MTDDiscretionary float64 `json:"mtdDiscretionary"`
}

// Settings are device preferences stored with the state.
type Settings struct {
	TravelBufferMinutes int  `json:"travelBufferMinutes,omitempty"`
	PINEnabled          bool `json:"pinEnabled,omitempty"`
}

// Record is an opaque entry of a collection this service carries through
// export and import without interpreting it.
type Record map[string]any

// ParseDateTime parses "YYYY-MM-DD" and "HH:MM" in loc.
func ParseDateTime(date, tod string, loc *time.Location) (time.Time, error) {
	date = strings.TrimSpace(date)
	tod = strings.TrimSpace(tod)
	if date == "" {
		return time.Time{}, errEmptyDate
	}
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(DateLayout+" "+TimeLayout, date+" "+tod, loc)
}

// ParseDate parses a "YYYY-MM-DD" date at midnight in loc.
func ParseDate(date string, loc *time.Location) (time.Time, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return time.Time{}, errEmptyDate
	}
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(DateLayout, date, loc)
}

// MillisOf converts t into unix milliseconds as stored in CreatedAt fields.
func MillisOf(t time.Time) int64 {
	return t.UnixMilli()
}
