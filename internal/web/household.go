package web

import (
	"context"
	"net/http"

	"concierge/internal/model"
)

// decodeAndSave decodes a JSON body into T and stores it with save. Store
// errors go through writeStoreError.
func decodeAndSave[T any](w http.ResponseWriter, r *http.Request, status int, save func(context.Context, T) (T, error)) {
	var v T
	if err := decodeJSON(w, r, &v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	out, err := save(r.Context(), v)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, status, out)
}

// deleted answers a delete with 204 or the mapped store error.
func deleted(w http.ResponseWriter, err error) {
	if err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListAssets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Snapshot().Assets)
}

func (s *Server) handleCreateAsset(w http.ResponseWriter, r *http.Request) {
	decodeAndSave(w, r, http.StatusCreated, s.store.CreateAsset)
}

// handleUpdateAsset replaces an asset. A changed renewal moves the derived
// asset-<id> entry in /api/dates.
func (s *Server) handleUpdateAsset(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	decodeAndSave(w, r, http.StatusOK, func(ctx context.Context, a model.Asset) (model.Asset, error) {
		return s.store.UpdateAsset(ctx, id, a)
	})
}

func (s *Server) handleDeleteAsset(w http.ResponseWriter, r *http.Request) {
	deleted(w, s.store.DeleteAsset(r.Context(), r.PathValue("id")))
}

func (s *Server) handleCreateContact(w http.ResponseWriter, r *http.Request) {
	decodeAndSave(w, r, http.StatusCreated, s.store.CreateContact)
}

func (s *Server) handleUpdateContact(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	decodeAndSave(w, r, http.StatusOK, func(ctx context.Context, c model.Contact) (model.Contact, error) {
		return s.store.UpdateContact(ctx, id, c)
	})
}

func (s *Server) handleDeleteContact(w http.ResponseWriter, r *http.Request) {
	deleted(w, s.store.DeleteContact(r.Context(), r.PathValue("id")))
}

func (s *Server) handleListProperties(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Snapshot().Properties)
}

func (s *Server) handleCreateProperty(w http.ResponseWriter, r *http.Request) {
	decodeAndSave(w, r, http.StatusCreated, s.store.CreateProperty)
}

func (s *Server) handleUpdateProperty(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	decodeAndSave(w, r, http.StatusOK, func(ctx context.Context, p model.Property) (model.Property, error) {
		return s.store.UpdateProperty(ctx, id, p)
	})
}

func (s *Server) handleDeleteProperty(w http.ResponseWriter, r *http.Request) {
	deleted(w, s.store.DeleteProperty(r.Context(), r.PathValue("id")))
}

func (s *Server) handleListTrips(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Snapshot().Trips)
}

// handleCreateTrip starts an empty trip. Only the title is read from the
// body; segments are added separately.
//
// POST /api/trips {"title":"..."}
func (s *Server) handleCreateTrip(w http.ResponseWriter, r *http.Request) {
	decodeAndSave(w, r, http.StatusCreated, func(ctx context.Context, t model.Trip) (model.Trip, error) {
		return s.store.CreateTrip(ctx, t.Title)
	})
}

func (s *Server) handleRenameTrip(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	decodeAndSave(w, r, http.StatusOK, func(ctx context.Context, t model.Trip) (model.Trip, error) {
		return s.store.RenameTrip(ctx, id, t.Title)
	})
}

func (s *Server) handleDeleteTrip(w http.ResponseWriter, r *http.Request) {
	deleted(w, s.store.DeleteTrip(r.Context(), r.PathValue("id")))
}

func (s *Server) handleAddSegment(w http.ResponseWriter, r *http.Request) {
	trip := r.PathValue("id")
	decodeAndSave(w, r, http.StatusCreated, func(ctx context.Context, seg model.Segment) (model.Segment, error) {
		return s.store.AddSegment(ctx, trip, seg)
	})
}

func (s *Server) handleUpdateSegment(w http.ResponseWriter, r *http.Request) {
	trip, id := r.PathValue("id"), r.PathValue("segmentId")
	decodeAndSave(w, r, http.StatusOK, func(ctx context.Context, seg model.Segment) (model.Segment, error) {
		return s.store.UpdateSegment(ctx, trip, id, seg)
	})
}

func (s *Server) handleDeleteSegment(w http.ResponseWriter, r *http.Request) {
	deleted(w, s.store.DeleteSegment(r.Context(), r.PathValue("id"), r.PathValue("segmentId")))
}

func (s *Server) handleListDecisions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Snapshot().Decisions)
}

// decide returns a handler that moves a decision to status.
//
// POST /api/decisions/{id}/approve
// POST /api/decisions/{id}/decline
func (s *Server) decide(status model.DecisionStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := s.store.SetDecisionStatus(r.Context(), r.PathValue("id"), status)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}
