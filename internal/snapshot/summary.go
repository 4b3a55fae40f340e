package snapshot

import (
	"bytes"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Summary maps task id to the description it had when it was last applied.
//
// It is the only baseline the differ compares against. Keys keep insertion
// order (file order after a load); setting an existing key keeps its position.
type Summary struct {
	m *orderedmap.OrderedMap[string, string]
}

// NewSummary returns an empty summary.
func NewSummary() *Summary {
	return &Summary{m: orderedmap.New[string, string]()}
}

// SummaryOf builds a summary from alternating id, description pairs.
// It panics on an odd number of arguments and is meant for tests and literals.
func SummaryOf(pairs ...string) *Summary {
	if len(pairs)%2 != 0 {
		panic("snapshot.SummaryOf: odd number of arguments")
	}
	s := NewSummary()
	for i := 0; i < len(pairs); i += 2 {
		s.Set(pairs[i], pairs[i+1])
	}
	return s
}

// Get returns the description recorded for id.
func (s *Summary) Get(id string) (string, bool) {
	return s.m.Get(id)
}

// Has reports whether id is tracked.
func (s *Summary) Has(id string) bool {
	_, ok := s.m.Get(id)
	return ok
}

// Set records the description for id.
func (s *Summary) Set(id, description string) {
	s.m.Set(id, description)
}

// Delete removes id. Returns false if it was not tracked.
func (s *Summary) Delete(id string) bool {
	_, ok := s.m.Delete(id)
	return ok
}

// Len returns the number of tracked ids.
func (s *Summary) Len() int {
	return s.m.Len()
}

// Keys returns the tracked ids in order.
func (s *Summary) Keys() []string {
	keys := make([]string, 0, s.m.Len())
	for pair := s.m.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Map returns an unordered copy, convenient for comparisons.
func (s *Summary) Map() map[string]string {
	out := make(map[string]string, s.m.Len())
	for pair := s.m.Oldest(); pair != nil; pair = pair.Next() {
		out[pair.Key] = pair.Value
	}
	return out
}

// Clone returns an independent copy with the same order.
func (s *Summary) Clone() *Summary {
	c := NewSummary()
	for pair := s.m.Oldest(); pair != nil; pair = pair.Next() {
		c.m.Set(pair.Key, pair.Value)
	}
	return c
}

// MarshalJSON writes the summary as a JSON object in key order.
func (s *Summary) MarshalJSON() ([]byte, error) {
	if s == nil || s.m == nil {
		return []byte("{}"), nil
	}
	return s.m.MarshalJSON()
}

// UnmarshalJSON reads a JSON object, keeping the order of its keys.
// null reads as an empty summary.
func (s *Summary) UnmarshalJSON(data []byte) error {
	m := orderedmap.New[string, string]()
	if trimmed := bytes.TrimSpace(data); !bytes.Equal(trimmed, []byte("null")) {
		if err := m.UnmarshalJSON(trimmed); err != nil {
			return fmt.Errorf("decode summary: %w", err)
		}
	}
	s.m = m
	return nil
}
