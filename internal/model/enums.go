package model

import "fmt"

// RequestStatus is the lifecycle state of a concierge request.
// Transitions are Open -> In Progress -> Done by convention only.
type RequestStatus string

const (
	StatusOpen       RequestStatus = "Open"
	StatusInProgress RequestStatus = "In Progress"
	StatusDone       RequestStatus = "Done"
)

// Valid reports whether s is one of the known statuses.
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// ParseRequestStatus parses an exact, case-sensitive status name.
func ParseRequestStatus(v string) (RequestStatus, error) {
	s := RequestStatus(v)
	if !s.Valid() {
		return "", fmt.Errorf("model: unknown request status %q", v)
	}
	return s, nil
}

func (s *RequestStatus) UnmarshalText(b []byte) error {
	v, err := ParseRequestStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Priority ranks a request.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
	PriorityUrgent Priority = "Urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

func ParsePriority(v string) (Priority, error) {
	p := Priority(v)
	if !p.Valid() {
		return "", fmt.Errorf("model: unknown priority %q", v)
	}
	return p, nil
}

func (p *Priority) UnmarshalText(b []byte) error {
	v, err := ParsePriority(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// SegmentKind tags one leg of a trip.
type SegmentKind string

const (
	SegmentFlight   SegmentKind = "Flight"
	SegmentHotel    SegmentKind = "Hotel"
	SegmentTransfer SegmentKind = "Transfer"
	SegmentOther    SegmentKind = "Other"
)

func (k SegmentKind) Valid() bool {
	switch k {
	case SegmentFlight, SegmentHotel, SegmentTransfer, SegmentOther:
		return true
	}
	return false
}

func (k *SegmentKind) UnmarshalText(b []byte) error {
	v := SegmentKind(b)
	if !v.Valid() {
		return fmt.Errorf("model: unknown segment kind %q", string(b))
	}
	*k = v
	return nil
}

// AssetType classifies a registry entry.
type AssetType string

const (
	AssetVehicle  AssetType = "Vehicle"
	AssetVessel   AssetType = "Vessel"
	AssetArt      AssetType = "Art"
	AssetProperty AssetType = "Property"
	AssetOther    AssetType = "Other"
)

func (t AssetType) Valid() bool {
	switch t {
	case AssetVehicle, AssetVessel, AssetArt, AssetProperty, AssetOther:
		return true
	}
	return false
}

func (t *AssetType) UnmarshalText(b []byte) error {
	v := AssetType(b)
	if !v.Valid() {
		return fmt.Errorf("model: unknown asset type %q", string(b))
	}
	*t = v
	return nil
}

// DecisionStatus is the approval state of a decision queue item.
type DecisionStatus string

const (
	DecisionPending  DecisionStatus = "Pending"
	DecisionApproved DecisionStatus = "Approved"
	DecisionDeclined DecisionStatus = "Declined"
)

func (s DecisionStatus) Valid() bool {
	switch s {
	case DecisionPending, DecisionApproved, DecisionDeclined:
		return true
	}
	return false
}

func (s *DecisionStatus) UnmarshalText(b []byte) error {
	v := DecisionStatus(b)
	if !v.Valid() {
		return fmt.Errorf("model: unknown decision status %q", string(b))
	}
	*s = v
	return nil
}

// DecisionKind is what a decision asks the principal to approve.
type DecisionKind string

const (
	DecisionPayment  DecisionKind = "Payment"
	DecisionBooking  DecisionKind = "Booking"
	DecisionDocument DecisionKind = "Document"
)

func (k DecisionKind) Valid() bool {
	switch k {
	case DecisionPayment, DecisionBooking, DecisionDocument:
		return true
	}
	return false
}

func (k *DecisionKind) UnmarshalText(b []byte) error {
	v := DecisionKind(b)
	if !v.Valid() {
		return fmt.Errorf("model: unknown decision kind %q", string(b))
	}
	*k = v
	return nil
}

// Theme is the UI colour scheme persisted with the state.
type Theme string

const (
	ThemeNoir  Theme = "noir"
	ThemeIvory Theme = "ivory"
)

func (t Theme) Valid() bool {
	return t == ThemeNoir || t == ThemeIvory
}

// DateSource records where an important date came from.
type DateSource string

const (
	SourceManual DateSource = "Manual"
	SourceAssets DateSource = "Assets"
)
