package web

import (
	"net/http"

	"concierge/internal/briefing"
	"concierge/internal/model"
	"concierge/internal/query"
	"concierge/internal/store"
)

// handleBriefing returns the dashboard summary as of now.
//
// The travel buffer stored in the household settings wins over the
// configured default.
func (s *Server) handleBriefing(w http.ResponseWriter, _ *http.Request) {
	st := s.store.Snapshot()

	buffer := s.cfg.TravelBuffer()
	if st.Settings.TravelBufferMinutes > 0 {
		buffer = minutes(st.Settings.TravelBufferMinutes)
	}
	writeJSON(w, http.StatusOK, briefing.Build(st, s.now(), s.loc, buffer))
}

// handleListRequests filters requests.
//
// GET /api/requests?q=&status=All&priority=All
func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := query.RequestFilter{
		Text:     q.Get("q"),
		Status:   q.Get("status"),
		Priority: q.Get("priority"),
	}
	writeJSON(w, http.StatusOK, query.FilterRequests(s.store.Snapshot().Requests, f))
}

// requestInput is the create payload; enums are validated by the store so
// blank values can take their defaults.
type requestInput struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Priority string `json:"priority"`
	Status   string `json:"status"`
	Assignee string `json:"assignee"`
	DueDate  string `json:"dueDate"`
	Notes    string `json:"notes"`
}

func (s *Server) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	var in requestInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	created, err := s.store.CreateRequest(r.Context(), model.Request{
		Title:    in.Title,
		Category: in.Category,
		Priority: model.Priority(in.Priority),
		Status:   model.RequestStatus(in.Status),
		Assignee: in.Assignee,
		DueDate:  in.DueDate,
		Notes:    in.Notes,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateRequest(w http.ResponseWriter, r *http.Request) {
	var patch store.RequestPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request patch")
		return
	}
	updated, err := s.store.UpdateRequest(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteRequest(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteRequest(r.Context(), r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePendingDecisions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, query.PendingDecisions(s.store.Snapshot().Decisions))
}

func (s *Server) handleUnresolvedAlerts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, query.UnresolvedAlerts(s.store.Snapshot().Alerts))
}
