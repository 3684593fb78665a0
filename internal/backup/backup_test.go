package backup

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"concierge/internal/model"
)

func TestExportImport(t *testing.T) {
	s := model.NewState()
	s.Theme = model.ThemeIvory
	s.Onboarding = model.Onboarding{"personal": {"preferredName": "Alex"}}
	s.Requests = []model.Request{{ID: "r1", Title: "Tickets", Status: model.StatusOpen, Priority: model.PriorityHigh, CreatedAt: 42}}
	s.Events = []model.Event{{ID: "e1", Title: "Gym", Date: "2025-01-01", Time: "08:00", Duration: 60}}
	s.Trips = []model.Trip{{ID: "t1", Title: "Nice", Segments: []model.Segment{{ID: "s1", Kind: model.SegmentFlight, Date: "2025-02-01"}}}}
	s.Assets = []model.Asset{{ID: "a1", Type: model.AssetVehicle, Name: "Bentley", Renewal: "2025-05-01"}}
	s.Decisions = []model.Decision{{ID: "d1", Kind: model.DecisionPayment, Status: model.DecisionPending, Amount: 1200}}
	s.Vehicles = []model.Record{{"plate": "PLC 1"}}
	s.Money.MTDDiscretionary = 950.5

	data, err := Export(s)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"datesManual": []`)
	assert.Contains(t, string(data), `"mtdDiscretionary": 950.5`)

	got, err := Import(data)
	require.NoError(t, err)
	assert.Equal(t, s.Theme, got.Theme)
	assert.Equal(t, "Alex", got.Onboarding.DisplayName())
	assert.Equal(t, s.Requests, got.Requests)
	assert.Equal(t, s.Events, got.Events)
	assert.Equal(t, s.Trips, got.Trips)
	assert.Equal(t, s.Assets, got.Assets)
	assert.Equal(t, s.Decisions, got.Decisions)
	assert.Equal(t, "PLC 1", got.Vehicles[0]["plate"])
	assert.Equal(t, 950.5, got.Money.MTDDiscretionary)
}

func TestImport_AbsentFieldsDefaultToEmpty(t *testing.T) {
	got, err := Import([]byte(`{"requests":[{"id":"r1","title":"x","status":"Open","priority":"Low","createdAt":1}]}`))
	require.NoError(t, err)

	assert.Equal(t, model.ThemeNoir, got.Theme)
	assert.Len(t, got.Requests, 1)
	assert.NotNil(t, got.Events)
	assert.NotNil(t, got.Contacts)
	assert.NotNil(t, got.DatesManual)
	assert.NotNil(t, got.Inbox)
	assert.NotNil(t, got.Onboarding)

	out, err := json.Marshal(got)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"alerts":[]`)
}

func TestImport_StringDurations(t *testing.T) {
	got, err := Import([]byte(`{"events":[
		{"id":"e1","title":"Tailor","date":"2025-01-08","time":"10:00","duration":"90"},
		{"id":"e2","title":"Dentist","date":"2025-01-09","time":"11:00","duration":""},
		{"id":"e3","title":"Lunch","date":"2025-01-09","time":"13:00","duration":null}
	]}`))
	require.NoError(t, err)
	require.Len(t, got.Events, 3)

	assert.Equal(t, model.Minutes(90), got.Events[0].Duration)
	assert.Equal(t, 90*time.Minute, got.Events[0].DurationOrDefault())
	assert.Equal(t, model.Minutes(0), got.Events[1].Duration)
	assert.Equal(t, time.Hour, got.Events[1].DurationOrDefault())
	assert.Equal(t, time.Hour, got.Events[2].DurationOrDefault())
}

func TestImport_Malformed(t *testing.T) {
	for _, in := range []string{
		"",
		"not json",
		"[1,2,3]",
		`{"requests": "nope"}`,
		`{"requests":[{"status":"Someday"}]}`,
		`{"theme": "noir"`,
	} {
		_, err := Import([]byte(in))
		assert.ErrorIs(t, err, ErrMalformed, "input %q", in)
	}
}

func TestExport_NilState(t *testing.T) {
	data, err := Export(nil)
	require.NoError(t, err)
	got, err := Import(data)
	require.NoError(t, err)
	assert.Empty(t, got.Requests)
}
