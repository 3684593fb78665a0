package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"concierge/internal/config"
	appLog "concierge/internal/log"
	"concierge/internal/metrics"
	"concierge/internal/model"
	"concierge/internal/store"
)

// maxBodyBytes caps request bodies, including uploaded import files.
const maxBodyBytes = 5 << 20

// SubscriptionSource serves cached occurrences of subscribed calendars.
type SubscriptionSource interface {
	Occurrences(from, to time.Time) []model.Occurrence
	LastSync() time.Time
}

// Options wires a Server to its collaborators. Subscriptions and Metrics
// may be nil.
type Options struct {
	Config        *config.Config
	Store         *store.Store
	Subscriptions SubscriptionSource
	Metrics       *metrics.Metrics
	// Now overrides the clock; used by tests.
	Now func() time.Time
}

// Server provides the household HTTP API.
type Server struct {
	cfg     *config.Config
	store   *store.Store
	subs    SubscriptionSource
	metrics *metrics.Metrics
	now     func() time.Time
	loc     *time.Location
	mux     *http.ServeMux
}

// NewServer constructs a new Server.
func NewServer(opts Options) *Server {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New(prometheus.NewRegistry())
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := &Server{
		cfg:     cfg,
		store:   opts.Store,
		subs:    opts.Subscriptions,
		metrics: m,
		now:     now,
		loc:     cfg.Location(),
		mux:     http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := s.instrument(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// An empty username or password disables auth.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// /health stays open for probes.
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="Concierge", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// statusRecorder captures the response code for metrics.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument counts requests by matched route pattern and status code.
func (s *Server) instrument(next *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		s.metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.code)).Inc()
	})
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /metrics", s.metrics.Handler())

	s.mux.HandleFunc("GET /api/briefing", s.handleBriefing)

	s.mux.HandleFunc("GET /api/requests", s.handleListRequests)
	s.mux.HandleFunc("POST /api/requests", s.handleCreateRequest)
	s.mux.HandleFunc("PATCH /api/requests/{id}", s.handleUpdateRequest)
	s.mux.HandleFunc("DELETE /api/requests/{id}", s.handleDeleteRequest)

	s.mux.HandleFunc("GET /api/events", s.handleListEvents)
	s.mux.HandleFunc("POST /api/events", s.handleCreateEvent)
	s.mux.HandleFunc("PUT /api/events/{id}", s.handleUpdateEvent)
	s.mux.HandleFunc("DELETE /api/events/{id}", s.handleDeleteEvent)
	s.mux.HandleFunc("GET /api/calendar.ics", s.handleExportCalendar)
	s.mux.HandleFunc("POST /api/calendar.ics", s.handleImportCalendar)

	s.mux.HandleFunc("GET /api/trips", s.handleListTrips)
	s.mux.HandleFunc("POST /api/trips", s.handleCreateTrip)
	s.mux.HandleFunc("PUT /api/trips/{id}", s.handleRenameTrip)
	s.mux.HandleFunc("DELETE /api/trips/{id}", s.handleDeleteTrip)
	s.mux.HandleFunc("POST /api/trips/{id}/segments", s.handleAddSegment)
	s.mux.HandleFunc("PUT /api/trips/{id}/segments/{segmentId}", s.handleUpdateSegment)
	s.mux.HandleFunc("DELETE /api/trips/{id}/segments/{segmentId}", s.handleDeleteSegment)
	s.mux.HandleFunc("GET /api/trips/{id}/calendar.ics", s.handleExportTrip)

	s.mux.HandleFunc("GET /api/assets", s.handleListAssets)
	s.mux.HandleFunc("POST /api/assets", s.handleCreateAsset)
	s.mux.HandleFunc("PUT /api/assets/{id}", s.handleUpdateAsset)
	s.mux.HandleFunc("DELETE /api/assets/{id}", s.handleDeleteAsset)
	s.mux.HandleFunc("GET /api/assets/renewals", s.handleRenewals)
	s.mux.HandleFunc("GET /api/dates", s.handleListDates)
	s.mux.HandleFunc("POST /api/dates", s.handleCreateDate)
	s.mux.HandleFunc("PUT /api/dates/{id}", s.handleUpdateDate)
	s.mux.HandleFunc("DELETE /api/dates/{id}", s.handleDeleteDate)
	s.mux.HandleFunc("GET /api/dates.ics", s.handleExportDates)

	s.mux.HandleFunc("GET /api/decisions", s.handleListDecisions)
	s.mux.HandleFunc("GET /api/decisions/pending", s.handlePendingDecisions)
	s.mux.HandleFunc("POST /api/decisions/{id}/approve", s.decide(model.DecisionApproved))
	s.mux.HandleFunc("POST /api/decisions/{id}/decline", s.decide(model.DecisionDeclined))
	s.mux.HandleFunc("GET /api/alerts/unresolved", s.handleUnresolvedAlerts)

	s.mux.HandleFunc("GET /api/contacts", s.handleListContacts)
	s.mux.HandleFunc("POST /api/contacts", s.handleCreateContact)
	s.mux.HandleFunc("PUT /api/contacts/{id}", s.handleUpdateContact)
	s.mux.HandleFunc("DELETE /api/contacts/{id}", s.handleDeleteContact)
	s.mux.HandleFunc("GET /api/contacts.csv", s.handleExportContacts)
	s.mux.HandleFunc("POST /api/contacts.csv", s.handleImportContacts)

	s.mux.HandleFunc("GET /api/properties", s.handleListProperties)
	s.mux.HandleFunc("POST /api/properties", s.handleCreateProperty)
	s.mux.HandleFunc("PUT /api/properties/{id}", s.handleUpdateProperty)
	s.mux.HandleFunc("DELETE /api/properties/{id}", s.handleDeleteProperty)

	s.mux.HandleFunc("GET /api/export", s.handleExport)
	s.mux.HandleFunc("POST /api/import", s.handleImport)

	s.mux.HandleFunc("GET /api/subscriptions/events", s.handleSubscriptionEvents)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// today returns midnight of the current day in the household timezone.
func (s *Server) today() time.Time {
	now := s.now().In(s.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

// writeStoreError maps store sentinels onto HTTP status codes.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrDerivedDate):
		writeError(w, http.StatusConflict, "date is derived from an asset renewal; edit the asset instead")
	case errors.Is(err, store.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		appLog.Error("store operation failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// writeAttachment sends text as a downloadable file.
func writeAttachment(w http.ResponseWriter, contentType, filename, body string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}
