// Package backup writes and reads the whole-household document used for
// bulk export and import.
package backup

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"concierge/internal/model"
)

// ErrMalformed is returned when an import document cannot be read. Callers
// show it to the user only as a generic "import failed".
var ErrMalformed = errors.New("backup: malformed document")

// Export renders state as an indented JSON document.
func Export(state *model.State) ([]byte, error) {
	if state == nil {
		state = model.NewState()
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("backup: encode: %w", err)
	}
	return data, nil
}

// Import reads a document produced by Export. Absent fields become empty
// collections; there is no schema or version check. Anything that is not a
// JSON object, or holds values of the wrong shape, yields ErrMalformed.
func Import(data []byte) (*model.State, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrMalformed
	}

	var s model.State
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	s.Normalize()
	return &s, nil
}
