package barrier

import (
	"sort"
	"sync"
)

// BlockSet tracks the module ids currently suspended inside a transform
// waiting on the barrier. Probes exclude its members from their pending
// sets so a waiter never waits on itself.
type BlockSet struct {
	mu      sync.RWMutex
	members map[string]struct{}
}

// NewBlockSet creates an empty block set.
func NewBlockSet() *BlockSet {
	return &BlockSet{members: make(map[string]struct{})}
}

// Add records id as blocking.
func (s *BlockSet) Add(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[id] = struct{}{}
}

// Has reports whether id is currently blocking.
func (s *BlockSet) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.members[id]
	return ok
}

// Clear empties the set. The barrier calls this once per settled cycle.
func (s *BlockSet) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.members)
}

// Members returns the blocking ids in stable order, for diagnostics.
func (s *BlockSet) Members() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.members))
	for id := range s.members {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
