package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// SelectionSet is an ordered set of strings. Members are unique and keep
// their insertion order for display.
type SelectionSet []string

// Contains reports whether item is a member of the set
func (s SelectionSet) Contains(item string) bool {
	for _, v := range s {
		if v == item {
			return true
		}
	}
	return false
}

// Add appends item if it is not already present and reports whether it was added
func (s *SelectionSet) Add(item string) bool {
	if s.Contains(item) {
		return false
	}
	*s = append(*s, item)
	return true
}

// Remove deletes item from the set. Removing an absent item is a no-op.
func (s *SelectionSet) Remove(item string) {
	out := (*s)[:0]
	for _, v := range *s {
		if v != item {
			out = append(out, v)
		}
	}
	*s = out
}

// Toggle removes item when present, otherwise appends it.
// It returns true when the item is a member after the call.
func (s *SelectionSet) Toggle(item string) bool {
	if s.Contains(item) {
		s.Remove(item)
		return false
	}
	*s = append(*s, item)
	return true
}

// Clone returns an independent copy; the copy of an empty set is non-nil
// so it encodes as [] rather than null.
func (s SelectionSet) Clone() SelectionSet {
	out := make(SelectionSet, len(s))
	copy(out, s)
	return out
}

// UserPreferences is the output of the onboarding wizard. It is replaced
// wholesale on every save.
type UserPreferences struct {
	SelectedSectors    SelectionSet `json:"selectedSectors"`
	SelectedNarratives SelectionSet `json:"selectedNarratives"`
	WatchlistItems     SelectionSet `json:"watchlistItems"`
}

// IsEmpty reports whether no selection was made in any set
func (p *UserPreferences) IsEmpty() bool {
	return p == nil ||
		(len(p.SelectedSectors) == 0 && len(p.SelectedNarratives) == 0 && len(p.WatchlistItems) == 0)
}

// Clone returns a deep copy
func (p *UserPreferences) Clone() *UserPreferences {
	if p == nil {
		return nil
	}
	return &UserPreferences{
		SelectedSectors:    p.SelectedSectors.Clone(),
		SelectedNarratives: p.SelectedNarratives.Clone(),
		WatchlistItems:     p.WatchlistItems.Clone(),
	}
}

// emptyPreferencesJSON is what the store holds for "no preferences": the
// column is NOT NULL, so unset is written as an empty object.
var emptyPreferencesJSON = []byte("{}")

// EncodePreferences serializes preferences for the store. Nil (unset)
// becomes an empty object.
func EncodePreferences(p *UserPreferences) ([]byte, error) {
	if p.IsEmpty() {
		return emptyPreferencesJSON, nil
	}
	data, err := json.Marshal(p.Clone())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal preferences: %w", err)
	}
	return data, nil
}

// DecodePreferences parses the stored column. Null, an empty object and an
// object with only empty sets all decode to nil, meaning "not set".
func DecodePreferences(data []byte) (*UserPreferences, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, emptyPreferencesJSON) {
		return nil, nil
	}

	var prefs UserPreferences
	if err := json.Unmarshal(trimmed, &prefs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal preferences: %w", err)
	}
	if prefs.IsEmpty() {
		return nil, nil
	}
	return &prefs, nil
}
