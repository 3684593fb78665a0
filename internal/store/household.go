package store

import (
	"context"
	"slices"
	"strings"

	"concierge/internal/model"
)

// replaceByID swaps the element whose id matches.
func replaceByID[T any](list []T, id string, idOf func(T) string, v T) error {
	i := slices.IndexFunc(list, func(x T) bool { return idOf(x) == id })
	if i < 0 {
		return ErrNotFound
	}
	list[i] = v
	return nil
}

// deleteByID drops the element whose id matches.
func deleteByID[T any](list []T, id string, idOf func(T) string) ([]T, error) {
	n := len(list)
	list = slices.DeleteFunc(list, func(x T) bool { return idOf(x) == id })
	if len(list) == n {
		return list, ErrNotFound
	}
	return list, nil
}

func assetID(a model.Asset) string       { return a.ID }
func contactID(c model.Contact) string   { return c.ID }
func propertyID(p model.Property) string { return p.ID }
func tripID(t model.Trip) string         { return t.ID }
func segmentID(s model.Segment) string   { return s.ID }

func validateAsset(a *model.Asset) error {
	a.Name = strings.TrimSpace(a.Name)
	if a.Name == "" {
		return invalid("asset name is required")
	}
	if a.Type == "" {
		a.Type = model.AssetOther
	}
	if !a.Type.Valid() {
		return invalid("unknown asset type %q", a.Type)
	}
	return validDate(a.Renewal, true)
}

// CreateAsset stores a new asset ahead of the existing ones. Type defaults
// to Other.
func (s *Store) CreateAsset(ctx context.Context, a model.Asset) (model.Asset, error) {
	if err := validateAsset(&a); err != nil {
		return model.Asset{}, err
	}
	a.ID = model.NewID()
	err := s.Update(ctx, func(st *model.State) error {
		st.Assets = slices.Insert(st.Assets, 0, a)
		return nil
	})
	return a, err
}

// UpdateAsset replaces the asset with the given id. The derived important
// date follows the new renewal.
func (s *Store) UpdateAsset(ctx context.Context, id string, a model.Asset) (model.Asset, error) {
	if err := validateAsset(&a); err != nil {
		return model.Asset{}, err
	}
	a.ID = id
	err := s.Update(ctx, func(st *model.State) error {
		return replaceByID(st.Assets, id, assetID, a)
	})
	return a, err
}

func (s *Store) DeleteAsset(ctx context.Context, id string) error {
	return s.Update(ctx, func(st *model.State) (err error) {
		st.Assets, err = deleteByID(st.Assets, id, assetID)
		return err
	})
}

func validateContact(c *model.Contact) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return invalid("contact name is required")
	}
	return nil
}

// CreateContact stores a new contact ahead of the existing ones.
func (s *Store) CreateContact(ctx context.Context, c model.Contact) (model.Contact, error) {
	if err := validateContact(&c); err != nil {
		return model.Contact{}, err
	}
	c.ID = model.NewID()
	err := s.Update(ctx, func(st *model.State) error {
		st.Contacts = slices.Insert(st.Contacts, 0, c)
		return nil
	})
	return c, err
}

func (s *Store) UpdateContact(ctx context.Context, id string, c model.Contact) (model.Contact, error) {
	if err := validateContact(&c); err != nil {
		return model.Contact{}, err
	}
	c.ID = id
	err := s.Update(ctx, func(st *model.State) error {
		return replaceByID(st.Contacts, id, contactID, c)
	})
	return c, err
}

func (s *Store) DeleteContact(ctx context.Context, id string) error {
	return s.Update(ctx, func(st *model.State) (err error) {
		st.Contacts, err = deleteByID(st.Contacts, id, contactID)
		return err
	})
}

func validateProperty(p *model.Property) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return invalid("property name is required")
	}
	return nil
}

// CreateProperty stores a new property ahead of the existing ones.
func (s *Store) CreateProperty(ctx context.Context, p model.Property) (model.Property, error) {
	if err := validateProperty(&p); err != nil {
		return model.Property{}, err
	}
	p.ID = model.NewID()
	err := s.Update(ctx, func(st *model.State) error {
		st.Properties = slices.Insert(st.Properties, 0, p)
		return nil
	})
	return p, err
}

func (s *Store) UpdateProperty(ctx context.Context, id string, p model.Property) (model.Property, error) {
	if err := validateProperty(&p); err != nil {
		return model.Property{}, err
	}
	p.ID = id
	err := s.Update(ctx, func(st *model.State) error {
		return replaceByID(st.Properties, id, propertyID, p)
	})
	return p, err
}

func (s *Store) DeleteProperty(ctx context.Context, id string) error {
	return s.Update(ctx, func(st *model.State) (err error) {
		st.Properties, err = deleteByID(st.Properties, id, propertyID)
		return err
	})
}

// CreateTrip stores an empty trip ahead of the existing ones.
func (s *Store) CreateTrip(ctx context.Context, title string) (model.Trip, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Trip{}, invalid("trip title is required")
	}
	t := model.Trip{ID: model.NewID(), Title: title, Segments: []model.Segment{}}
	err := s.Update(ctx, func(st *model.State) error {
		st.Trips = slices.Insert(st.Trips, 0, t)
		return nil
	})
	return t, err
}

// RenameTrip changes a trip's title and keeps its segments.
func (s *Store) RenameTrip(ctx context.Context, id, title string) (model.Trip, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Trip{}, invalid("trip title is required")
	}
	var out model.Trip
	err := s.Update(ctx, func(st *model.State) error {
		i := slices.IndexFunc(st.Trips, func(t model.Trip) bool { return t.ID == id })
		if i < 0 {
			return ErrNotFound
		}
		st.Trips[i].Title = title
		out = st.Trips[i]
		return nil
	})
	return out, err
}

// DeleteTrip removes a trip together with its segments.
func (s *Store) DeleteTrip(ctx context.Context, id string) error {
	return s.Update(ctx, func(st *model.State) (err error) {
		st.Trips, err = deleteByID(st.Trips, id, tripID)
		return err
	})
}

func validateSegment(seg *model.Segment) error {
	if seg.Kind == "" {
		seg.Kind = model.SegmentOther
	}
	if !seg.Kind.Valid() {
		return invalid("unknown segment kind %q", seg.Kind)
	}
	if _, err := seg.StartIn(nil); err != nil {
		return invalid("segment date/time %q %q", seg.Date, seg.Time)
	}
	return nil
}

// withTrip runs fn against the trip with the given id inside one update.
func (s *Store) withTrip(ctx context.Context, id string, fn func(*model.Trip) error) error {
	return s.Update(ctx, func(st *model.State) error {
		i := slices.IndexFunc(st.Trips, func(t model.Trip) bool { return t.ID == id })
		if i < 0 {
			return ErrNotFound
		}
		return fn(&st.Trips[i])
	})
}

// AddSegment puts a new segment at the front of a trip. Kind defaults to
// Other; the date is required and the time optional.
func (s *Store) AddSegment(ctx context.Context, trip string, seg model.Segment) (model.Segment, error) {
	if err := validateSegment(&seg); err != nil {
		return model.Segment{}, err
	}
	seg.ID = model.NewID()
	err := s.withTrip(ctx, trip, func(t *model.Trip) error {
		t.Segments = slices.Insert(t.Segments, 0, seg)
		return nil
	})
	return seg, err
}

func (s *Store) UpdateSegment(ctx context.Context, trip, id string, seg model.Segment) (model.Segment, error) {
	if err := validateSegment(&seg); err != nil {
		return model.Segment{}, err
	}
	seg.ID = id
	err := s.withTrip(ctx, trip, func(t *model.Trip) error {
		return replaceByID(t.Segments, id, segmentID, seg)
	})
	return seg, err
}

func (s *Store) DeleteSegment(ctx context.Context, trip, id string) error {
	return s.withTrip(ctx, trip, func(t *model.Trip) (err error) {
		t.Segments, err = deleteByID(t.Segments, id, segmentID)
		return err
	})
}

// SetDecisionStatus moves a decision to status, typically Approved or
// Declined. Approved and declined decisions leave the pending count.
func (s *Store) SetDecisionStatus(ctx context.Context, id string, status model.DecisionStatus) (model.Decision, error) {
	if !status.Valid() {
		return model.Decision{}, invalid("unknown decision status %q", status)
	}
	var out model.Decision
	err := s.Update(ctx, func(st *model.State) error {
		i := slices.IndexFunc(st.Decisions, func(d model.Decision) bool { return d.ID == id })
		if i < 0 {
			return ErrNotFound
		}
		st.Decisions[i].Status = status
		out = st.Decisions[i]
		return nil
	})
	return out, err
}
