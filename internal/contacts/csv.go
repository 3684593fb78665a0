// Package contacts reads and writes the address book exchange text: a
// header row followed by one comma-joined row per contact.
//
// The format has no quoting. Commas inside a field are written as
// semicolons so that every row splits back into the same five fields.
package contacts

import (
	"regexp"
	"strings"

	"concierge/internal/model"
)

// Header is the first row written by Encode.
const Header = "name,role,email,phone,notes"

const fieldCount = 5

var (
	lineSplit     = regexp.MustCompile(`\r?\n|\r`)
	headerPattern = regexp.MustCompile(`(?i)name|email|phone|role`)
)

// Encode renders contacts, header first, rows joined by "\n".
func Encode(contacts []model.Contact) string {
	lines := make([]string, 0, len(contacts)+1)
	lines = append(lines, Header)
	for _, c := range contacts {
		lines = append(lines, strings.Join([]string{
			field(c.Name),
			field(c.Role),
			field(c.Email),
			field(c.Phone),
			field(c.Notes),
		}, ","))
	}
	return strings.Join(lines, "\n")
}

func field(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, ",", ";")
}

// Decode parses exchange text. Blank lines are ignored, a leading header
// row is skipped, columns past the fifth are ignored and rows without a
// name are dropped. Every decoded contact gets a fresh id.
func Decode(text string) []model.Contact {
	lines := make([]string, 0)
	for _, l := range lineSplit.Split(text, -1) {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) > 0 && headerPattern.MatchString(lines[0]) {
		lines = lines[1:]
	}

	out := make([]model.Contact, 0, len(lines))
	for _, l := range lines {
		parts := strings.Split(l, ",")
		if len(parts) > fieldCount {
			parts = parts[:fieldCount]
		}
		for len(parts) < fieldCount {
			parts = append(parts, "")
		}
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if parts[0] == "" {
			continue
		}
		out = append(out, model.Contact{
			ID:    model.NewID(),
			Name:  parts[0],
			Role:  parts[1],
			Email: parts[2],
			Phone: parts[3],
			Notes: parts[4],
		})
	}
	return out
}

// Prepend places imported contacts ahead of the existing ones, keeping the
// file order of the import.
func Prepend(existing, imported []model.Contact) []model.Contact {
	out := make([]model.Contact, 0, len(existing)+len(imported))
	out = append(out, imported...)
	return append(out, existing...)
}
