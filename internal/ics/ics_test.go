package ics

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"concierge/internal/model"
)

func fixedOpts() EncodeOptions {
	n := 0
	return EncodeOptions{
		Location: time.UTC,
		Now:      func() time.Time { return time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC) },
		NewUID: func() string {
			n++
			return fmt.Sprintf("uid-%d@plc", n)
		},
	}
}

func TestEncodeEvents_Structure(t *testing.T) {
	out := EncodeEvents([]model.Event{
		{ID: "e1", Title: "Gym", Date: "2025-01-01", Time: "08:00", Duration: 60},
	}, fixedOpts())

	lines := strings.Split(strings.TrimRight(out, "\r\n"), "\r\n")
	require.NotEmpty(t, lines)
	assert.Equal(t, "BEGIN:VCALENDAR", lines[0])
	assert.Equal(t, "END:VCALENDAR", lines[len(lines)-1])
	assert.Contains(t, out, "PRODID:-//PLC//Calendar//EN")
	assert.Equal(t, 1, strings.Count(out, "DTSTART:"))
	assert.Equal(t, 1, strings.Count(out, "DTEND:"))
	assert.Contains(t, out, "DTSTART:20250101T080000Z")
	assert.Contains(t, out, "DTEND:20250101T090000Z")
	assert.Contains(t, out, "DTSTAMP:20241231T235959Z")
	assert.Contains(t, out, "UID:uid-1@plc")
	assert.Contains(t, out, "SUMMARY:Gym")
	assert.NotContains(t, out, "LOCATION:")
	assert.NotContains(t, out, "DESCRIPTION:")
}

func TestEncodeEvents_DefaultDurationAndOptionalFields(t *testing.T) {
	out := EncodeEvents([]model.Event{
		{ID: "e1", Title: "Call", Date: "2025-02-03", Time: "11:30", Location: "Teams", Notes: "Review quarterly."},
		{ID: "bad", Title: "Broken", Date: "someday", Time: "11:30"},
	}, fixedOpts())

	assert.Equal(t, 1, strings.Count(out, "BEGIN:VEVENT"))
	assert.Contains(t, out, "DTEND:20250203T123000Z")
	assert.Contains(t, out, "LOCATION:Teams")
	assert.Contains(t, out, "DESCRIPTION:Review quarterly.")
}

func TestEncodeEvents_ConvertsLocalTimeToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	opts := fixedOpts()
	opts.Location = loc
	out := EncodeEvents([]model.Event{{Title: "x", Date: "2025-06-01", Time: "10:00", Duration: 30}}, opts)
	assert.Contains(t, out, "DTSTART:20250601T080000Z")
	assert.Contains(t, out, "DTEND:20250601T083000Z")
}

func TestEncodeEvents_RoundTripThroughParser(t *testing.T) {
	events := []model.Event{
		{ID: "e1", Title: "Dinner, with friends; late", Date: "2025-01-10", Time: "20:00", Duration: 120, Location: "Mayfair"},
		{ID: "e2", Title: "Standup", Date: "2025-01-06", Time: "09:00", Duration: 15, Repeat: "FREQ=WEEKLY;BYDAY=MO"},
	}
	out := EncodeEvents(events, fixedOpts())

	parsed, err := ParseICS(Source{ID: "export"}, []byte(out))
	require.NoError(t, err)
	require.Len(t, parsed, 2)

	assert.Equal(t, "Dinner, with friends; late", parsed[0].Summary)
	assert.Equal(t, "Mayfair", parsed[0].Location)
	assert.Equal(t, 120*time.Minute, parsed[0].End.Sub(parsed[0].Start))
	assert.True(t, parsed[0].Start.Equal(time.Date(2025, 1, 10, 20, 0, 0, 0, time.UTC)))
	assert.Equal(t, "FREQ=WEEKLY;BYDAY=MO", parsed[1].RawRRule)

	back := ToEvents(parsed, time.UTC)
	require.Len(t, back, 2)
	assert.Equal(t, "2025-01-10", back[0].Date)
	assert.Equal(t, "20:00", back[0].Time)
	assert.Equal(t, model.Minutes(120), back[0].Duration)
	assert.Equal(t, "FREQ=WEEKLY;BYDAY=MO", back[1].Repeat)
	assert.NotEmpty(t, back[0].ID)
}

func TestEncodeTrip(t *testing.T) {
	trip := model.Trip{
		ID:    "t1",
		Title: "London → Nice",
		Segments: []model.Segment{
			{ID: "s1", Kind: model.SegmentFlight, Date: "2025-05-02", Time: "16:10", Detail: "BA 0342 LHR → NCE", Notes: "Chauffeur arranged"},
			{ID: "s2", Kind: model.SegmentHotel, Date: "2025-05-02", Detail: "Cheval Blanc"},
		},
	}
	out := EncodeTrip(trip, fixedOpts())

	assert.Contains(t, out, "PRODID:-//PLC//Travel//EN")
	assert.Equal(t, 2, strings.Count(out, "BEGIN:VEVENT"))
	assert.Contains(t, out, "DTSTART:20250502T161000Z")
	assert.Contains(t, out, "DTEND:20250502T171000Z")
	// Missing time of day defaults to 09:00.
	assert.Contains(t, out, "DTSTART:20250502T090000Z")

	parsed, err := ParseICS(Source{ID: "trip"}, []byte(out))
	require.NoError(t, err)
	assert.Equal(t, "London → Nice: Flight – BA 0342 LHR → NCE", parsed[0].Summary)
	assert.Equal(t, "Chauffeur arranged", parsed[0].Description)
}

func TestEncodeDates(t *testing.T) {
	out := EncodeDates([]model.ImportantDate{
		{ID: "d1", Label: "Anniversary", Date: "2025-03-01", Source: model.SourceManual},
		{ID: "asset-a1", Label: "Bentley renewal", Date: "2025-04-01", Source: model.SourceAssets},
		{ID: "d2", Label: "Broken", Date: ""},
	}, fixedOpts())

	assert.Contains(t, out, "PRODID:-//PLC//Dates//EN")
	assert.Equal(t, 2, strings.Count(out, "BEGIN:VEVENT"))
	assert.Contains(t, out, "DTSTART:20250301T090000Z")
	assert.Contains(t, out, "DESCRIPTION:Source: Assets")
}

func TestParseICS_Empty(t *testing.T) {
	_, err := ParseICS(Source{}, []byte("   "))
	assert.Error(t, err)
}

const subscriptionFeed = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//Test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:weekly@test\r\n" +
	"DTSTAMP:20250101T000000Z\r\n" +
	"DTSTART:20250106T100000Z\r\n" +
	"DTEND:20250106T110000Z\r\n" +
	"RRULE:FREQ=WEEKLY;COUNT=4\r\n" +
	"EXDATE:20250113T100000Z\r\n" +
	"SUMMARY:Piano lesson\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:weekly@test\r\n" +
	"DTSTAMP:20250101T000000Z\r\n" +
	"RECURRENCE-ID:20250120T100000Z\r\n" +
	"DTSTART:20250120T150000Z\r\n" +
	"DTEND:20250120T160000Z\r\n" +
	"SUMMARY:Piano lesson (moved)\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:holiday@test\r\n" +
	"DTSTAMP:20250101T000000Z\r\n" +
	"DTSTART;VALUE=DATE:20250110\r\n" +
	"DTEND;VALUE=DATE:20250111\r\n" +
	"SUMMARY:Holiday\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestExpandOccurrences_RecurrenceExdateOverride(t *testing.T) {
	parsed, err := ParseICS(Source{ID: "school"}, []byte(subscriptionFeed))
	require.NoError(t, err)
	require.Len(t, parsed, 3)

	res, err := ExpandOccurrences(parsed, ExpandConfig{
		DisplayLocation: time.UTC,
		RangeStart:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:        time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	var titles []string
	for _, o := range res.Occurrences {
		titles = append(titles, o.Start.Format("01-02 15:04")+" "+o.Title)
		assert.Equal(t, "school", o.SourceID)
	}
	assert.Equal(t, []string{
		"01-06 10:00 Piano lesson",
		"01-10 00:00 Holiday",
		"01-20 15:00 Piano lesson (moved)",
		"01-27 10:00 Piano lesson",
	}, titles)
	assert.Empty(t, res.TruncatedEvents)
}

func TestExpandOccurrences_InvalidRange(t *testing.T) {
	_, err := ExpandOccurrences(nil, ExpandConfig{
		RangeStart: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	assert.Error(t, err)
}

func TestExpandEvents_WeekWindow(t *testing.T) {
	events := []model.Event{
		{ID: "late", Title: "Late", Date: "2025-01-08", Time: "18:00"},
		{ID: "weekly", Title: "Standup", Date: "2024-12-30", Time: "09:00", Repeat: "FREQ=WEEKLY;BYDAY=MO,WE"},
		{ID: "out", Title: "Next week", Date: "2025-01-13", Time: "08:00"},
		{ID: "bad", Title: "Bad", Date: "2025-01-08", Time: "noon"},
		{ID: "badrule", Title: "Bad rule", Date: "2025-01-08", Time: "10:00", Repeat: "FREQ=SOMETIMES"},
	}
	occ, err := ExpandEvents(events, ExpandConfig{
		DisplayLocation: time.UTC,
		RangeStart:      time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
		RangeEnd:        time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	var ids []string
	for _, o := range occ {
		ids = append(ids, o.EventID+"@"+o.Start.Format("01-02T15:04"))
	}
	assert.Equal(t, []string{"weekly@01-06T09:00", "weekly@01-08T09:00", "late@01-08T18:00"}, ids)
}

func TestNextOccurrence(t *testing.T) {
	now := time.Date(2025, 1, 7, 12, 0, 0, 0, time.UTC)

	single := model.Event{ID: "s", Date: "2025-01-07", Time: "12:00"}
	occ, ok := NextOccurrence(single, now, time.UTC)
	require.True(t, ok)
	assert.True(t, occ.Start.Equal(now))

	past := model.Event{ID: "p", Date: "2025-01-07", Time: "11:59"}
	_, ok = NextOccurrence(past, now, time.UTC)
	assert.False(t, ok)

	weekly := model.Event{ID: "w", Date: "2024-12-30", Time: "09:00", Repeat: "FREQ=WEEKLY"}
	occ, ok = NextOccurrence(weekly, now, time.UTC)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 1, 13, 9, 0, 0, 0, time.UTC), occ.Start)

	finished := model.Event{ID: "f", Date: "2024-12-30", Time: "09:00", Repeat: "FREQ=DAILY;COUNT=2"}
	_, ok = NextOccurrence(finished, now, time.UTC)
	assert.False(t, ok)
}

func TestFetcher_CachesAndRevalidates(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		switch {
		case n == 1:
			w.Header().Set("ETag", `"v1"`)
			_, _ = w.Write([]byte(subscriptionFeed))
		case r.Header.Get("If-None-Match") == `"v1"` && n == 2:
			w.WriteHeader(http.StatusNotModified)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), srv.Client())
	src := Source{ID: "school", URL: srv.URL + "/feed.ics?token=secret"}

	first, err := f.FetchOne(t.Context(), src)
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := f.FetchOne(t.Context(), src)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Body, second.Body)

	third, err := f.FetchOne(t.Context(), src)
	require.NoError(t, err)
	assert.True(t, third.FromCache)

	results, errs := f.FetchAll(t.Context(), []Source{src, {ID: "empty"}})
	assert.Len(t, results, 1)
	assert.Len(t, errs, 1)
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://example.com/...(redacted)", redactURL("https://example.com/private/x.ics?token=abc"))
	assert.Equal(t, "ics://...(redacted)", redactURL("not a url"))
}
