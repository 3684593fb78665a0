// Package query derives filtered and sorted views over the household
// collections. Every function is pure: inputs are never modified and the
// result is a fresh slice.
package query

import (
	"sort"
	"strings"

	"concierge/internal/model"
)

// All disables a status or priority filter.
const All = "All"

// RequestFilter selects requests. Status and Priority are either All (or
// empty) or an exact, case-sensitive value. Text, when non-blank, must
// appear case-insensitively in the title and notes joined end to end.
type RequestFilter struct {
	Text     string
	Status   string
	Priority string
}

func (f RequestFilter) match(r model.Request) bool {
	if f.Status != "" && f.Status != All && string(r.Status) != f.Status {
		return false
	}
	if f.Priority != "" && f.Priority != All && string(r.Priority) != f.Priority {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Text))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(r.Title+r.Notes), q)
}

// FilterRequests returns the requests matching f, most recently created
// first. Requests created at the same instant keep their input order.
func FilterRequests(requests []model.Request, f RequestFilter) []model.Request {
	out := make([]model.Request, 0, len(requests))
	for _, r := range requests {
		if f.match(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt > out[j].CreatedAt
	})
	return out
}

// OpenRequests returns up to limit requests that are not done, in input
// order. A non-positive limit returns all of them.
func OpenRequests(requests []model.Request, limit int) []model.Request {
	out := make([]model.Request, 0)
	for _, r := range requests {
		if r.Status == model.StatusDone {
			continue
		}
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, r)
	}
	return out
}
