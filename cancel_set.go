package petalstream

import (
	"sync"

	"github.com/petal-labs/petalstream/core"
)

// CancelSet is a caller-owned collection of cancellation handles.
// Cancelling the set cancels every handle it holds; handles added afterwards
// are cancelled immediately. The zero value is ready to use.
type CancelSet struct {
	mu        sync.Mutex
	items     []core.Cancellable
	cancelled bool
}

// Add stores c in the set.
func (s *CancelSet) Add(c core.Cancellable) {
	if c == nil {
		return
	}
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		c.Cancel()
		return
	}
	s.items = append(s.items, c)
	s.mu.Unlock()
}

// Len returns the number of handles held.
func (s *CancelSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Cancel cancels every held handle in insertion order and empties the set.
// It is safe to call Cancel multiple times.
func (s *CancelSet) Cancel() {
	s.mu.Lock()
	s.cancelled = true
	items := s.items
	s.items = nil
	s.mu.Unlock()

	for _, c := range items {
		c.Cancel()
	}
}

// Store adds c to set and returns c, for chaining at the subscription site.
func Store(c core.Cancellable, set *CancelSet) core.Cancellable {
	set.Add(c)
	return c
}
