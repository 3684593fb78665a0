package scheduler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"concierge/internal/backup"
	"concierge/internal/ics"
	"concierge/internal/metrics"
	"concierge/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// The http.Client used by the fetcher keeps idle keep-alive readers.
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
	)
}

type staticState struct{ s *model.State }

func (st staticState) Snapshot() *model.State { return st.s.Clone() }

var fixedNow = time.Date(2025, 1, 6, 3, 0, 0, 0, time.UTC)

func TestRunBackup(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "backups")
	st := model.NewState()
	st.Contacts = []model.Contact{{ID: "c1", Name: "Amelia Clarke"}}

	s, err := New(Config{BackupCron: Disabled, BackupDir: dir, Location: time.UTC}, staticState{st}, nil, metrics.New(prometheus.NewRegistry()))
	require.NoError(t, err)
	s.now = func() time.Time { return fixedNow }

	path, err := s.RunBackup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "concierge-20250106-030000.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	restored, err := backup.Import(data)
	require.NoError(t, err)
	require.Len(t, restored.Contacts, 1)
	assert.Equal(t, "Amelia Clarke", restored.Contacts[0].Name)
}

func TestRunBackup_CanceledContext(t *testing.T) {
	s, err := New(Config{BackupCron: Disabled, BackupDir: t.TempDir()}, staticState{model.NewState()}, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.RunBackup(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

const feed = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//School//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:term@school\r\n" +
	"DTSTAMP:20250101T000000Z\r\n" +
	"DTSTART:20250106T083000Z\r\n" +
	"DTEND:20250106T090000Z\r\n" +
	"RRULE:FREQ=DAILY;COUNT=30\r\n" +
	"SUMMARY:School run\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestSyncSubscriptions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		_, _ = w.Write([]byte(feed))
	}))
	defer srv.Close()

	client := &http.Client{Timeout: 5 * time.Second}
	defer client.CloseIdleConnections()

	m := metrics.New(prometheus.NewRegistry())
	s, err := New(Config{
		BackupCron: Disabled,
		Sources: []ics.Source{
			{ID: "school", URL: srv.URL},
			{ID: "broken"},
		},
		Location:    time.UTC,
		HorizonDays: 7,
	}, staticState{model.NewState()}, ics.NewFetcher(t.TempDir(), client), m)
	require.NoError(t, err)
	s.now = func() time.Time { return fixedNow }

	err = s.SyncSubscriptions(context.Background())
	require.Error(t, err, "the source without a URL is reported")
	assert.Equal(t, fixedNow, s.LastSync())

	all := s.Occurrences(fixedNow.Add(-24*time.Hour), fixedNow.AddDate(0, 1, 0))
	require.Len(t, all, 7)
	assert.Equal(t, "School run", all[0].Title)
	assert.Equal(t, "school", all[0].SourceID)

	day := time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)
	got := s.Occurrences(day, day.AddDate(0, 0, 1))
	require.Len(t, got, 1)
	assert.Equal(t, time.Date(2025, 1, 8, 8, 30, 0, 0, time.UTC), got[0].Start)
}

func TestNew_InvalidSpec(t *testing.T) {
	_, err := New(Config{BackupCron: "every tuesday"}, staticState{model.NewState()}, nil, nil)
	assert.Error(t, err)

	_, err = New(Config{
		BackupCron:       Disabled,
		SubscriptionCron: "nope",
		Sources:          []ics.Source{{ID: "x", URL: "http://example.invalid"}},
	}, staticState{model.NewState()}, nil, nil)
	assert.Error(t, err)
}

func TestStartStop(t *testing.T) {
	s, err := New(Config{BackupCron: "0 3 * * *", BackupDir: t.TempDir(), Location: time.UTC}, staticState{model.NewState()}, nil, nil)
	require.NoError(t, err)

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}
