package briefing

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"concierge/internal/model"
)

var now = time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)

func TestNextEvent(t *testing.T) {
	events := []model.Event{
		{ID: "past", Date: "2025-01-05", Time: "09:00"},
		{ID: "later", Date: "2025-01-07", Time: "09:00"},
		{ID: "soon", Date: "2025-01-06", Time: "11:30", Duration: 45},
		{ID: "broken", Date: "06/01/2025", Time: "10:30"},
		{ID: "no-time", Date: "2025-01-06", Time: ""},
	}

	occ, ok := NextEvent(events, now, time.UTC)
	require.True(t, ok)
	assert.Equal(t, "soon", occ.EventID)
	assert.Equal(t, time.Date(2025, 1, 6, 11, 30, 0, 0, time.UTC), occ.Start)
	assert.Equal(t, 45*time.Minute, occ.End.Sub(occ.Start))
}

func TestNextEvent_InclusiveBoundary(t *testing.T) {
	events := []model.Event{{ID: "now", Date: "2025-01-06", Time: "10:00"}}

	occ, ok := NextEvent(events, now, time.UTC)
	require.True(t, ok)
	assert.Equal(t, "now", occ.EventID)

	_, ok = NextEvent(events, now.Add(time.Second), time.UTC)
	assert.False(t, ok)
}

func TestNextEvent_TieKeepsInputOrder(t *testing.T) {
	events := []model.Event{
		{ID: "first", Date: "2025-01-06", Time: "12:00"},
		{ID: "second", Date: "2025-01-06", Time: "12:00"},
	}
	occ, ok := NextEvent(events, now, time.UTC)
	require.True(t, ok)
	assert.Equal(t, "first", occ.EventID)
}

func TestNextEvent_Repeating(t *testing.T) {
	events := []model.Event{
		{ID: "once", Date: "2025-01-09", Time: "08:00"},
		{ID: "weekly", Date: "2024-12-31", Time: "09:00", Repeat: "FREQ=WEEKLY"},
	}
	occ, ok := NextEvent(events, now, time.UTC)
	require.True(t, ok)
	assert.Equal(t, "weekly", occ.EventID)
	assert.Equal(t, time.Date(2025, 1, 7, 9, 0, 0, 0, time.UTC), occ.Start)
}

func TestNextEvent_None(t *testing.T) {
	_, ok := NextEvent(nil, now, time.UTC)
	assert.False(t, ok)
}

func TestLeaveByMinutes(t *testing.T) {
	tests := []struct {
		name   string
		start  time.Time
		buffer time.Duration
		want   int
	}{
		{"already late", now.Add(10 * time.Minute), 30 * time.Minute, -20},
		{"slack remaining", now.Add(2 * time.Hour), 30 * time.Minute, 90},
		{"exactly at leave-by", now.Add(30 * time.Minute), 30 * time.Minute, 0},
		{"partial minute rounds up", now.Add(40*time.Minute + 30*time.Second), 30 * time.Minute, 11},
		{"no buffer", now.Add(5 * time.Minute), 0, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := LeaveByMinutes(model.Occurrence{Start: tt.start}, now, tt.buffer)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := LeaveByMinutes(model.Occurrence{}, now, time.Minute)
	assert.False(t, ok)
}

func TestNextSegment(t *testing.T) {
	trips := []model.Trip{
		{ID: "t1", Title: "London → Nice", Segments: []model.Segment{
			{ID: "s1", Kind: model.SegmentFlight, Date: "2025-01-05", Time: "08:00"},
			{ID: "s2", Kind: model.SegmentHotel, Date: "2025-01-08"},
		}},
		{ID: "t2", Title: "Geneva", Segments: []model.Segment{
			{ID: "s3", Kind: model.SegmentTransfer, Date: "2025-01-08", Time: "07:30"},
			{ID: "s4", Kind: model.SegmentOther, Date: "soon"},
		}},
	}

	seg, ok := NextSegment(trips, now, time.UTC)
	require.True(t, ok)
	assert.Equal(t, "s3", seg.Segment.ID)
	assert.Equal(t, "Geneva", seg.TripTitle)

	raw, err := json.Marshal(seg)
	require.NoError(t, err)
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.NotContains(t, fields, "kind")
	var inner model.Segment
	require.NoError(t, json.Unmarshal(fields["segment"], &inner))
	assert.Equal(t, model.SegmentTransfer, inner.Kind)

	seg, ok = NextSegment(trips[:1], now, time.UTC)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 1, 8, 9, 0, 0, 0, time.UTC), seg.Start)

	_, ok = NextSegment(nil, now, time.UTC)
	assert.False(t, ok)
}

func TestGreeting(t *testing.T) {
	at := func(h int) time.Time { return time.Date(2025, 1, 6, h, 0, 0, 0, time.UTC) }
	assert.Equal(t, "Good Morning", Greeting(at(0)))
	assert.Equal(t, "Good Morning", Greeting(at(11)))
	assert.Equal(t, "Good Afternoon", Greeting(at(12)))
	assert.Equal(t, "Good Afternoon", Greeting(at(17)))
	assert.Equal(t, "Good Evening", Greeting(at(18)))
}

func TestBuild(t *testing.T) {
	s := model.NewState()
	s.Onboarding = model.Onboarding{
		"personal": {"fullName": "Alexandra Grey"},
		"comms":    {"dailyUpdate": "Email"},
	}
	s.Events = []model.Event{
		{ID: "call", Title: "Wealth manager call", Date: "2025-01-06", Time: "10:20", Duration: 45},
		{ID: "dinner", Title: "Dinner", Date: "2025-01-06", Time: "20:00"},
		{ID: "tomorrow", Title: "Tailor", Date: "2025-01-07", Time: "09:00"},
	}
	s.Requests = []model.Request{
		{ID: "r1", Status: model.StatusOpen},
		{ID: "r2", Status: model.StatusDone},
		{ID: "r3", Status: model.StatusInProgress},
	}
	s.Decisions = []model.Decision{{ID: "d1", Status: model.DecisionPending}, {ID: "d2", Status: model.DecisionDeclined}}
	s.Alerts = []model.Alert{{ID: "a1"}, {ID: "a2"}, {ID: "a3", Resolved: true}}
	s.Money.MTDDiscretionary = 12500

	b := Build(s, now, time.UTC, 30*time.Minute)

	assert.Equal(t, "Good Morning", b.Greeting)
	assert.Equal(t, "Alexandra Grey", b.Name)
	assert.Equal(t, "Alexandra", b.FirstName)
	assert.Equal(t, "Email", b.Comms)
	assert.Equal(t, "Monday, 6 January", b.Date)

	require.NotNil(t, b.NextEvent)
	assert.Equal(t, "call", b.NextEvent.EventID)
	require.NotNil(t, b.LeaveInMinutes)
	assert.Equal(t, -10, *b.LeaveInMinutes)
	assert.True(t, b.Late)
	assert.Nil(t, b.NextSegment)

	assert.Equal(t, 1, b.PendingDecisions)
	assert.Equal(t, 2, b.UnresolvedAlerts)
	assert.Len(t, b.OpenRequests, 2)
	assert.Equal(t, 12500.0, b.MTDDiscretionary)

	require.Len(t, b.Today, 2)
	assert.Equal(t, "call", b.Today[0].EventID)
	assert.Equal(t, "dinner", b.Today[1].EventID)
}

func TestBuild_EmptyState(t *testing.T) {
	b := Build(model.NewState(), now, time.UTC, 30*time.Minute)
	assert.Equal(t, "Client", b.Name)
	assert.Equal(t, "WhatsApp", b.Comms)
	assert.Nil(t, b.NextEvent)
	assert.Nil(t, b.LeaveInMinutes)
	assert.False(t, b.Late)
	assert.Empty(t, b.Today)
}
