package checkpoint

import (
	"fmt"
	"sort"

	"checkpoint-builder/models"
)

// Set is an ordered mapping from height to header. Heights are strictly
// increasing. A Set is not safe for concurrent use; Selector guards its own.
type Set struct {
	headers []models.Header
}

// NewSet returns an empty set
func NewSet() *Set {
	return &Set{}
}

// Put inserts h keyed by its height. An existing entry at the same height is replaced.
func (s *Set) Put(h models.Header) {
	n := len(s.headers)
	// headers normally arrive in ascending order
	if n == 0 || s.headers[n-1].Height < h.Height {
		s.headers = append(s.headers, h)
		return
	}

	i := sort.Search(n, func(i int) bool {
		return s.headers[i].Height >= h.Height
	})
	if s.headers[i].Height == h.Height {
		s.headers[i] = h
		return
	}
	s.headers = append(s.headers, models.Header{})
	copy(s.headers[i+1:], s.headers[i:])
	s.headers[i] = h
}

// Len returns the number of checkpoints in the set
func (s *Set) Len() int {
	return len(s.headers)
}

// Get returns the checkpoint at height
func (s *Set) Get(height uint32) (models.Header, bool) {
	i := sort.Search(len(s.headers), func(i int) bool {
		return s.headers[i].Height >= height
	})
	if i < len(s.headers) && s.headers[i].Height == height {
		return s.headers[i], true
	}
	return models.Header{}, false
}

// Headers returns a copy of the checkpoints in ascending height order
func (s *Set) Headers() []models.Header {
	out := make([]models.Header, len(s.headers))
	copy(out, s.headers)
	return out
}

// checkTimes fails if any checkpoint is timestamped before its predecessor.
func (s *Set) checkTimes() error {
	for i := 1; i < len(s.headers); i++ {
		prev, cur := s.headers[i-1], s.headers[i]
		if cur.Time < prev.Time {
			return fmt.Errorf("%w: height %d at %d after height %d at %d",
				ErrTimeRegression, cur.Height, cur.Time, prev.Height, prev.Time)
		}
	}
	return nil
}

func (s *Set) clone() *Set {
	return &Set{headers: s.Headers()}
}
