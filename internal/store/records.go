package store

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"concierge/internal/contacts"
	"concierge/internal/ics"
	"concierge/internal/model"
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// RequestPatch holds the request fields to change. Nil fields are kept.
type RequestPatch struct {
	Title    *string              `json:"title"`
	Category *string              `json:"category"`
	Priority *model.Priority      `json:"priority"`
	Status   *model.RequestStatus `json:"status"`
	Assignee *string              `json:"assignee"`
	DueDate  *string              `json:"dueDate"`
	Notes    *string              `json:"notes"`
}

// CreateRequest stores a new request ahead of the existing ones. Status
// defaults to Open and priority to Medium.
func (s *Store) CreateRequest(ctx context.Context, r model.Request) (model.Request, error) {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return model.Request{}, invalid("request title is required")
	}
	if r.Status == "" {
		r.Status = model.StatusOpen
	}
	if r.Priority == "" {
		r.Priority = model.PriorityMedium
	}
	if !r.Status.Valid() || !r.Priority.Valid() {
		return model.Request{}, invalid("unknown status %q or priority %q", r.Status, r.Priority)
	}
	if err := validDate(r.DueDate, true); err != nil {
		return model.Request{}, err
	}
	r.ID = model.NewID()
	r.CreatedAt = model.MillisOf(s.now())

	err := s.Update(ctx, func(st *model.State) error {
		st.Requests = slices.Insert(st.Requests, 0, r)
		return nil
	})
	return r, err
}

// UpdateRequest applies p to the request with the given id.
func (s *Store) UpdateRequest(ctx context.Context, id string, p RequestPatch) (model.Request, error) {
	var out model.Request
	err := s.Update(ctx, func(st *model.State) error {
		i := slices.IndexFunc(st.Requests, func(r model.Request) bool { return r.ID == id })
		if i < 0 {
			return ErrNotFound
		}
		r := st.Requests[i]
		if p.Title != nil {
			if strings.TrimSpace(*p.Title) == "" {
				return invalid("request title is required")
			}
			r.Title = strings.TrimSpace(*p.Title)
		}
		if p.Category != nil {
			r.Category = *p.Category
		}
		if p.Priority != nil {
			if !p.Priority.Valid() {
				return invalid("unknown priority %q", *p.Priority)
			}
			r.Priority = *p.Priority
		}
		if p.Status != nil {
			if !p.Status.Valid() {
				return invalid("unknown status %q", *p.Status)
			}
			r.Status = *p.Status
		}
		if p.Assignee != nil {
			r.Assignee = *p.Assignee
		}
		if p.DueDate != nil {
			if err := validDate(*p.DueDate, true); err != nil {
				return err
			}
			r.DueDate = *p.DueDate
		}
		if p.Notes != nil {
			r.Notes = *p.Notes
		}
		st.Requests[i] = r
		out = r
		return nil
	})
	return out, err
}

func (s *Store) DeleteRequest(ctx context.Context, id string) error {
	return s.Update(ctx, func(st *model.State) error {
		n := len(st.Requests)
		st.Requests = slices.DeleteFunc(st.Requests, func(r model.Request) bool { return r.ID == id })
		if len(st.Requests) == n {
			return ErrNotFound
		}
		return nil
	})
}

func validateEvent(e model.Event) error {
	if strings.TrimSpace(e.Title) == "" {
		return invalid("event title is required")
	}
	if _, err := model.ParseDateTime(e.Date, e.Time, nil); err != nil {
		return invalid("event date/time %q %q", e.Date, e.Time)
	}
	if e.Duration < 0 {
		return invalid("negative duration")
	}
	if err := ics.ValidateRepeat(e.Repeat); err != nil {
		return invalid("repeat rule: %v", err)
	}
	return nil
}

// CreateEvent stores a new event ahead of the existing ones.
func (s *Store) CreateEvent(ctx context.Context, e model.Event) (model.Event, error) {
	if err := validateEvent(e); err != nil {
		return model.Event{}, err
	}
	e.ID = model.NewID()
	err := s.Update(ctx, func(st *model.State) error {
		st.Events = slices.Insert(st.Events, 0, e)
		return nil
	})
	return e, err
}

// UpdateEvent replaces the event with the given id.
func (s *Store) UpdateEvent(ctx context.Context, id string, e model.Event) (model.Event, error) {
	if err := validateEvent(e); err != nil {
		return model.Event{}, err
	}
	e.ID = id
	err := s.Update(ctx, func(st *model.State) error {
		i := slices.IndexFunc(st.Events, func(x model.Event) bool { return x.ID == id })
		if i < 0 {
			return ErrNotFound
		}
		st.Events[i] = e
		return nil
	})
	return e, err
}

func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	return s.Update(ctx, func(st *model.State) error {
		n := len(st.Events)
		st.Events = slices.DeleteFunc(st.Events, func(e model.Event) bool { return e.ID == id })
		if len(st.Events) == n {
			return ErrNotFound
		}
		return nil
	})
}

// ImportEvents prepends events read from a calendar file, keeping file
// order. Each event gets a fresh id; invalid ones are dropped. It returns
// how many were added.
func (s *Store) ImportEvents(ctx context.Context, events []model.Event) (int, error) {
	added := make([]model.Event, 0, len(events))
	for _, e := range events {
		if validateEvent(e) != nil {
			continue
		}
		e.ID = model.NewID()
		added = append(added, e)
	}
	if len(added) == 0 {
		return 0, nil
	}
	err := s.Update(ctx, func(st *model.State) error {
		st.Events = slices.Insert(st.Events, 0, added...)
		return nil
	})
	return len(added), err
}

func validDate(d string, optional bool) error {
	if d == "" && optional {
		return nil
	}
	if _, err := model.ParseDate(d, nil); err != nil {
		return invalid("date %q is not YYYY-MM-DD", d)
	}
	return nil
}

func validateDate(d model.ImportantDate) error {
	if strings.TrimSpace(d.Label) == "" {
		return invalid("date label is required")
	}
	return validDate(d.Date, false)
}

// CreateDate stores a manual important date.
func (s *Store) CreateDate(ctx context.Context, d model.ImportantDate) (model.ImportantDate, error) {
	if err := validateDate(d); err != nil {
		return model.ImportantDate{}, err
	}
	d.ID = model.NewID()
	d.Source = model.SourceManual
	err := s.Update(ctx, func(st *model.State) error {
		st.DatesManual = slices.Insert(st.DatesManual, 0, d)
		return nil
	})
	return d, err
}

// UpdateDate replaces a manual important date. Dates derived from asset
// renewals cannot be edited here.
func (s *Store) UpdateDate(ctx context.Context, id string, d model.ImportantDate) (model.ImportantDate, error) {
	if strings.HasPrefix(id, model.DerivedDatePrefix) {
		return model.ImportantDate{}, ErrDerivedDate
	}
	if err := validateDate(d); err != nil {
		return model.ImportantDate{}, err
	}
	d.ID = id
	d.Source = model.SourceManual
	err := s.Update(ctx, func(st *model.State) error {
		i := slices.IndexFunc(st.DatesManual, func(x model.ImportantDate) bool { return x.ID == id })
		if i < 0 {
			return ErrNotFound
		}
		st.DatesManual[i] = d
		return nil
	})
	return d, err
}

func (s *Store) DeleteDate(ctx context.Context, id string) error {
	if strings.HasPrefix(id, model.DerivedDatePrefix) {
		return ErrDerivedDate
	}
	return s.Update(ctx, func(st *model.State) error {
		n := len(st.DatesManual)
		st.DatesManual = slices.DeleteFunc(st.DatesManual, func(d model.ImportantDate) bool { return d.ID == id })
		if len(st.DatesManual) == n {
			return ErrNotFound
		}
		return nil
	})
}

// ImportContacts prepends decoded contacts and returns how many were added.
func (s *Store) ImportContacts(ctx context.Context, imported []model.Contact) (int, error) {
	if len(imported) == 0 {
		return 0, nil
	}
	err := s.Update(ctx, func(st *model.State) error {
		st.Contacts = contacts.Prepend(st.Contacts, imported)
		return nil
	})
	return len(imported), err
}
