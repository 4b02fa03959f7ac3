package memory

import (
	"sort"
	"sync"

	"github.com/yndnr/tradegate-go/pkg/cmap"
)

// IDSet is a concurrent-safe set of entity IDs.
type IDSet struct {
	mu    sync.RWMutex
	items map[string]struct{}
}

// NewIDSet creates a new ID set.
func NewIDSet() *IDSet {
	return &IDSet{
		items: make(map[string]struct{}),
	}
}

// Add adds an ID to the set.
func (s *IDSet) Add(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[id] = struct{}{}
}

// Remove removes an ID from the set.
func (s *IDSet) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
}

// Contains checks if an ID is in the set.
func (s *IDSet) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[id]
	return ok
}

// Len returns the number of items in the set.
func (s *IDSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Items returns the IDs in ascending order.
func (s *IDSet) Items() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]string, 0, len(s.items))
	for id := range s.items {
		items = append(items, id)
	}
	sort.Strings(items)
	return items
}

// OwnerIndex maps an owner (user ID) to the set of entity IDs it owns.
type OwnerIndex struct {
	index *cmap.Map[string, *IDSet]
}

// NewOwnerIndex creates a new owner index.
func NewOwnerIndex() *OwnerIndex {
	return &OwnerIndex{
		index: cmap.New[string, *IDSet](),
	}
}

// Add records that owner owns id.
func (i *OwnerIndex) Add(owner, id string) {
	set, _ := i.index.Compute(owner, func(set *IDSet, ok bool) (*IDSet, bool) {
		if !ok {
			set = NewIDSet()
		}
		return set, true
	})
	set.Add(id)
}

// Remove removes id from owner's set.
func (i *OwnerIndex) Remove(owner, id string) {
	set, ok := i.index.Get(owner)
	if !ok {
		return
	}

	set.Remove(id)

	// Clean up empty sets
	if set.Len() == 0 {
		i.index.Delete(owner)
	}
}

// Get returns the IDs owned by owner in ascending order.
func (i *OwnerIndex) Get(owner string) []string {
	set, ok := i.index.Get(owner)
	if !ok {
		return nil
	}
	return set.Items()
}

// Count returns the number of IDs owned by owner.
func (i *OwnerIndex) Count(owner string) int {
	set, ok := i.index.Get(owner)
	if !ok {
		return 0
	}
	return set.Len()
}
