package web

import (
	"net/http"
	"slices"
	"time"

	"concierge/internal/ics"
	appLog "concierge/internal/log"
	"concierge/internal/metrics"
	"concierge/internal/model"
	"concierge/internal/query"
)

const calendarContentType = "text/calendar; charset=utf-8"

func minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Occurrences     []model.Occurrence `json:"occurrences"`
	RangeStart      time.Time          `json:"range_start"`
	RangeEnd        time.Time          `json:"range_end"`
	DisplayTimeZone string             `json:"display_timezone"`
	WeekStart       string             `json:"week_start"`
}

// handleListEvents returns household event occurrences for a window.
//
// GET /api/events?from=2025-01-06&days=7
//   - from: first day (default: start of the current week)
//   - days: window length (default 7)
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	from := query.WeekStart(s.now().In(s.loc), s.cfg.FirstWeekday())
	if v := q.Get("from"); v != "" {
		d, err := model.ParseDate(v, s.loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "from must be YYYY-MM-DD")
			return
		}
		from = d
	}
	days := parseIntDefault(q.Get("days"), 7)
	if days <= 0 {
		days = 7
	}
	to := from.AddDate(0, 0, days)

	writeJSON(w, http.StatusOK, eventsResponse{
		Occurrences:     query.EventsInRange(s.store.Snapshot().Events, from, to, s.loc),
		RangeStart:      from,
		RangeEnd:        to,
		DisplayTimeZone: s.loc.String(),
		WeekStart:       s.cfg.WeekStart,
	})
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var ev model.Event
	if err := decodeJSON(w, r, &ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	created, err := s.store.CreateEvent(r.Context(), ev)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	var ev model.Event
	if err := decodeJSON(w, r, &ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	updated, err := s.store.UpdateEvent(r.Context(), r.PathValue("id"), ev)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteEvent(r.Context(), r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) encodeOptions() ics.EncodeOptions {
	return ics.EncodeOptions{Location: s.loc, Now: s.now}
}

func (s *Server) handleExportCalendar(w http.ResponseWriter, _ *http.Request) {
	body := ics.EncodeEvents(s.store.Snapshot().Events, s.encodeOptions())
	s.metrics.Exports.WithLabelValues("ics").Inc()
	writeAttachment(w, calendarContentType, "calendar.ics", body)
}

// handleImportCalendar prepends the VEVENTs of an uploaded .ics file to the
// household events.
func (s *Server) handleImportCalendar(w http.ResponseWriter, r *http.Request) {
	n, err := s.importCalendar(w, r)
	s.metrics.Imports.WithLabelValues("ics", metrics.ImportResult(err)).Inc()
	if err != nil {
		appLog.Error("calendar import failed", err)
		writeError(w, http.StatusBadRequest, "import failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"imported": n})
}

func (s *Server) importCalendar(w http.ResponseWriter, r *http.Request) (int, error) {
	body, err := readBody(w, r)
	if err != nil {
		return 0, err
	}
	parsed, err := ics.ParseICS(ics.Source{ID: "upload"}, body)
	if err != nil {
		return 0, err
	}
	return s.store.ImportEvents(r.Context(), ics.ToEvents(parsed, s.loc))
}

func (s *Server) handleExportTrip(w http.ResponseWriter, r *http.Request) {
	trips := s.store.Snapshot().Trips
	i := slices.IndexFunc(trips, func(t model.Trip) bool { return t.ID == r.PathValue("id") })
	if i < 0 {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	body := ics.EncodeTrip(trips[i], s.encodeOptions())
	s.metrics.Exports.WithLabelValues("ics").Inc()
	writeAttachment(w, calendarContentType, "trip.ics", body)
}

// handleSubscriptionEvents returns cached occurrences of subscribed feeds.
//
// GET /api/subscriptions/events?days=7
func (s *Server) handleSubscriptionEvents(w http.ResponseWriter, r *http.Request) {
	days := parseIntDefault(r.URL.Query().Get("days"), 7)
	if days <= 0 {
		days = 7
	}
	from := s.today()
	to := from.AddDate(0, 0, days)

	type response struct {
		Occurrences []model.Occurrence `json:"occurrences"`
		LastSync    *time.Time         `json:"last_sync,omitempty"`
	}
	resp := response{Occurrences: []model.Occurrence{}}
	if s.subs != nil {
		resp.Occurrences = s.subs.Occurrences(from, to)
		if last := s.subs.LastSync(); !last.IsZero() {
			resp.LastSync = &last
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
