package query

import (
	"sort"
	"strings"

	"concierge/internal/model"
)

// FilterContacts returns contacts whose name, role, email and phone, joined
// end to end, contain text (case-insensitive), ordered by name.
func FilterContacts(contacts []model.Contact, text string) []model.Contact {
	q := strings.ToLower(strings.TrimSpace(text))

	out := make([]model.Contact, 0, len(contacts))
	for _, c := range contacts {
		if q != "" {
			hay := strings.ToLower(strings.Join([]string{c.Name, c.Role, c.Email, c.Phone}, ""))
			if !strings.Contains(hay, q) {
				continue
			}
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}
