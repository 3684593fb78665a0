package web

import (
	"net/http"

	"concierge/internal/backup"
	"concierge/internal/contacts"
	"concierge/internal/ics"
	appLog "concierge/internal/log"
	"concierge/internal/metrics"
	"concierge/internal/model"
	"concierge/internal/query"
)

// handleRenewals lists upcoming asset renewals.
//
// GET /api/assets/renewals?limit=5
func (s *Server) handleRenewals(w http.ResponseWriter, r *http.Request) {
	limit := parseIntDefault(r.URL.Query().Get("limit"), s.cfg.RenewalLimit)
	writeJSON(w, http.StatusOK, query.UpcomingAssetRenewals(s.store.Snapshot().Assets, s.now(), s.loc, limit))
}

// handleListDates returns manual dates merged with asset renewals.
func (s *Server) handleListDates(w http.ResponseWriter, _ *http.Request) {
	st := s.store.Snapshot()
	writeJSON(w, http.StatusOK, query.MergedImportantDates(st.DatesManual, st.Assets))
}

func (s *Server) handleCreateDate(w http.ResponseWriter, r *http.Request) {
	var d model.ImportantDate
	if err := decodeJSON(w, r, &d); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	created, err := s.store.CreateDate(r.Context(), d)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateDate(w http.ResponseWriter, r *http.Request) {
	var d model.ImportantDate
	if err := decodeJSON(w, r, &d); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	updated, err := s.store.UpdateDate(r.Context(), r.PathValue("id"), d)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteDate(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteDate(r.Context(), r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExportDates(w http.ResponseWriter, _ *http.Request) {
	st := s.store.Snapshot()
	body := ics.EncodeDates(query.MergedImportantDates(st.DatesManual, st.Assets), s.encodeOptions())
	s.metrics.Exports.WithLabelValues("ics").Inc()
	writeAttachment(w, calendarContentType, "important-dates.ics", body)
}

// handleListContacts searches the address book.
//
// GET /api/contacts?q=
func (s *Server) handleListContacts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, query.FilterContacts(s.store.Snapshot().Contacts, r.URL.Query().Get("q")))
}

func (s *Server) handleExportContacts(w http.ResponseWriter, _ *http.Request) {
	body := contacts.Encode(s.store.Snapshot().Contacts)
	s.metrics.Exports.WithLabelValues("csv").Inc()
	writeAttachment(w, "text/csv; charset=utf-8", "contacts.csv", body)
}

// handleImportContacts prepends the rows of an uploaded contact list. Rows
// without a name are dropped silently.
func (s *Server) handleImportContacts(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		s.metrics.Imports.WithLabelValues("csv", metrics.ResultFailed).Inc()
		writeError(w, http.StatusBadRequest, "import failed")
		return
	}
	n, err := s.store.ImportContacts(r.Context(), contacts.Decode(string(body)))
	s.metrics.Imports.WithLabelValues("csv", metrics.ImportResult(err)).Inc()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"imported": n})
}

func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request) {
	data, err := backup.Export(s.store.Snapshot())
	if err != nil {
		appLog.Error("export failed", err)
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	s.metrics.Exports.WithLabelValues("json").Inc()
	writeAttachment(w, "application/json; charset=utf-8", "plc-data.json", string(data))
}

// handleImport replaces the whole household state with an uploaded
// document. Any failure is reported only as "import failed".
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	err := s.importState(w, r)
	s.metrics.Imports.WithLabelValues("json", metrics.ImportResult(err)).Inc()
	if err != nil {
		appLog.Error("bulk import failed", err)
		writeError(w, http.StatusBadRequest, "import failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "imported"})
}

func (s *Server) importState(w http.ResponseWriter, r *http.Request) error {
	body, err := readBody(w, r)
	if err != nil {
		return err
	}
	st, err := backup.Import(body)
	if err != nil {
		return err
	}
	return s.store.Replace(r.Context(), st)
}
