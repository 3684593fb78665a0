package model

import (
	"encoding/json"
	"maps"
	"slices"
	"strings"
)

// Onboarding holds the wizard answers, keyed by section then field.
type Onboarding map[string]map[string]string

// DisplayName returns the preferred name, then the full name, then "Client".
func (o Onboarding) DisplayName() string {
	p := o["personal"]
	if v := strings.TrimSpace(p["preferredName"]); v != "" {
		return v
	}
	if v := strings.TrimSpace(p["fullName"]); v != "" {
		return v
	}
	return "Client"
}

// DailyUpdate returns the channel used for the daily briefing.
func (o Onboarding) DailyUpdate() string {
	if v := strings.TrimSpace(o["comms"]["dailyUpdate"]); v != "" {
		return v
	}
	return "WhatsApp"
}

// State is the whole household document. It is owned by the store; the
// derivation packages only ever see snapshots of it.
type State struct {
	Theme       Theme           `json:"theme"`
	Privacy     string          `json:"privacy"`
	Onboarding  Onboarding      `json:"onboarding"`
	Requests    []Request       `json:"requests"`
	Events      []Event         `json:"events"`
	Contacts    []Contact       `json:"contacts"`
	Properties  []Property      `json:"properties"`
	Trips       []Trip          `json:"trips"`
	Assets      []Asset         `json:"assets"`
	DatesManual []ImportantDate `json:"datesManual"`
	Vehicles    []Record        `json:"vehicles"`
	Guests      []Record        `json:"guests"`
	Inbox       []Record        `json:"inbox"`
	Settings    Settings        `json:"settings"`
	Money       Money           `json:"money"`
	Decisions   []Decision      `json:"decisions"`
	Alerts      []Alert         `json:"alerts"`
}

// NewState returns an empty state with every collection initialised.
func NewState() *State {
	s := &State{}
	s.Normalize()
	return s
}

// Normalize replaces absent collections with empty ones and unknown themes
// with the default.
func (s *State) Normalize() {
	if !s.Theme.Valid() {
		s.Theme = ThemeNoir
	}
	if s.Privacy == "" {
		s.Privacy = "show"
	}
	if s.Onboarding == nil {
		s.Onboarding = Onboarding{}
	}
	if s.Requests == nil {
		s.Requests = []Request{}
	}
	if s.Events == nil {
		s.Events = []Event{}
	}
	if s.Contacts == nil {
		s.Contacts = []Contact{}
	}
	if s.Properties == nil {
		s.Properties = []Property{}
	}
	if s.Trips == nil {
		s.Trips = []Trip{}
	}
	for i := range s.Trips {
		if s.Trips[i].Segments == nil {
			s.Trips[i].Segments = []Segment{}
		}
	}
	if s.Assets == nil {
		s.Assets = []Asset{}
	}
	if s.DatesManual == nil {
		s.DatesManual = []ImportantDate{}
	}
	if s.Vehicles == nil {
		s.Vehicles = []Record{}
	}
	if s.Guests == nil {
		s.Guests = []Record{}
	}
	if s.Inbox == nil {
		s.Inbox = []Record{}
	}
	if s.Decisions == nil {
		s.Decisions = []Decision{}
	}
	if s.Alerts == nil {
		s.Alerts = []Alert{}
	}
}

// Clone returns a deep copy of s.
func (s *State) Clone() *State {
	out := *s
	out.Onboarding = make(Onboarding, len(s.Onboarding))
	for section, fields := range s.Onboarding {
		out.Onboarding[section] = maps.Clone(fields)
	}
	out.Requests = slices.Clone(s.Requests)
	out.Events = slices.Clone(s.Events)
	out.Contacts = slices.Clone(s.Contacts)
	out.Properties = slices.Clone(s.Properties)
	out.Trips = make([]Trip, len(s.Trips))
	for i, t := range s.Trips {
		t.Segments = slices.Clone(t.Segments)
		out.Trips[i] = t
	}
	out.Assets = slices.Clone(s.Assets)
	out.DatesManual = slices.Clone(s.DatesManual)
	out.Vehicles = cloneRecords(s.Vehicles)
	out.Guests = cloneRecords(s.Guests)
	out.Inbox = cloneRecords(s.Inbox)
	out.Decisions = slices.Clone(s.Decisions)
	out.Alerts = slices.Clone(s.Alerts)
	out.Normalize()
	return &out
}

// cloneRecords copies opaque records through JSON so nested values are not
// shared. Records that fail to round trip are copied shallowly.
func cloneRecords(in []Record) []Record {
	if in == nil {
		return nil
	}
	out := make([]Record, len(in))
	for i, r := range in {
		b, err := json.Marshal(r)
		if err != nil {
			out[i] = maps.Clone(r)
			continue
		}
		var c Record
		if err := json.Unmarshal(b, &c); err != nil {
			out[i] = maps.Clone(r)
			continue
		}
		out[i] = c
	}
	return out
}
