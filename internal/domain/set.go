// Package domain contains core domain types for the honeypot service.
package domain

import "encoding/json"

// StringSet is a set of strings that remembers first-seen order.
// The zero value is an empty set ready to use. It is not safe for
// concurrent mutation; owners serialize access.
type StringSet struct {
	items []string
	index map[string]struct{}
}

// NewStringSet builds a set from values, dropping duplicates.
func NewStringSet(values ...string) StringSet {
	var s StringSet
	s.Add(values...)
	return s
}

// Add appends values not already present and reports how many were new.
func (s *StringSet) Add(values ...string) int {
	added := 0
	for _, v := range values {
		if s.index == nil {
			s.index = make(map[string]struct{}, len(values))
		}
		if _, ok := s.index[v]; ok {
			continue
		}
		s.index[v] = struct{}{}
		s.items = append(s.items, v)
		added++
	}
	return added
}

// Contains reports whether v is in the set.
func (s StringSet) Contains(v string) bool {
	_, ok := s.index[v]
	return ok
}

// Len returns the number of distinct values.
func (s StringSet) Len() int {
	return len(s.items)
}

// Values returns a copy of the values in first-seen order.
func (s StringSet) Values() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

// Clone returns an independent copy.
func (s StringSet) Clone() StringSet {
	return NewStringSet(s.items...)
}

// MarshalJSON encodes the set as an array, never null.
func (s StringSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Values())
}

// UnmarshalJSON decodes an array, collapsing duplicates.
func (s *StringSet) UnmarshalJSON(data []byte) error {
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	*s = NewStringSet(values...)
	return nil
}
