// Package listcache holds the in-memory mirror of one domain list, kept in
// step with the server after each mutation without reloading the list.
package listcache

import "errors"

var ErrNotFound = errors.New("record not found")

// Store is an ordered list of records for a single domain. A Store belongs
// to exactly one controller and is not safe for concurrent use.
type Store struct {
	items []Record
}

// New creates an empty Store.
func New() *Store {
	return &Store{}
}

// Replace swaps the whole list for records, e.g. after a full load.
func (s *Store) Replace(records []Record) {
	s.items = make([]Record, 0, len(records))
	for _, r := range records {
		s.items = append(s.items, r.Clone())
	}
}

// Prepend puts r at the head of the list.
func (s *Store) Prepend(r Record) {
	s.items = append([]Record{r.Clone()}, s.items...)
}

// Merge overlays patch on the record identified by id and returns the result.
// Fields in patch win over existing fields.
func (s *Store) Merge(id string, patch Record) (Record, error) {
	for i, r := range s.items {
		if r.Matches(id) {
			merged := r.Merge(patch)
			s.items[i] = merged
			return merged.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

// Remove drops every record identified by id under either alias and
// reports how many were removed.
func (s *Store) Remove(id string) int {
	kept := s.items[:0]
	removed := 0
	for _, r := range s.items {
		if r.Matches(id) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	for i := len(kept); i < len(s.items); i++ {
		s.items[i] = nil
	}
	s.items = kept
	return removed
}

// Find returns a copy of the record identified by id.
func (s *Store) Find(id string) (Record, bool) {
	for _, r := range s.items {
		if r.Matches(id) {
			return r.Clone(), true
		}
	}
	return nil, false
}

// Items returns a copy of the list in order.
func (s *Store) Items() []Record {
	out := make([]Record, len(s.items))
	for i, r := range s.items {
		out[i] = r.Clone()
	}
	return out
}

// IDs returns the identifiers in list order.
func (s *Store) IDs() []string {
	out := make([]string, len(s.items))
	for i, r := range s.items {
		out[i] = r.ID()
	}
	return out
}

// Len returns the number of records.
func (s *Store) Len() int {
	return len(s.items)
}
