package discovery

import "PriceSentinel/internal/model"

// URLSet keeps the candidates of one run, keyed by normalized URL, in the
// order they were first seen. It is not safe for concurrent writers.
type URLSet struct {
	index map[string]int
	items []model.ProductCandidate
}

// NewURLSet returns an empty set.
func NewURLSet() *URLSet {
	return &URLSet{index: make(map[string]int)}
}

// Add inserts c unless its URL is already present. It reports whether c was new.
// The first category that found a URL keeps it.
func (s *URLSet) Add(c model.ProductCandidate) bool {
	if _, ok := s.index[c.URL]; ok {
		return false
	}
	s.index[c.URL] = len(s.items)
	s.items = append(s.items, c)
	return true
}

// Contains reports whether url has been added.
func (s *URLSet) Contains(url string) bool {
	_, ok := s.index[url]
	return ok
}

// Len returns the number of candidates.
func (s *URLSet) Len() int { return len(s.items) }

// Candidates returns a copy of the candidates in insertion order.
func (s *URLSet) Candidates() []model.ProductCandidate {
	out := make([]model.ProductCandidate, len(s.items))
	copy(out, s.items)
	return out
}
