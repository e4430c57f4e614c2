package orchestrator

import (
	"sync"
	"time"

	"github.com/guilhermegouw/cadence/internal/cache"
)

// DefaultProcessedCap bounds the set of handled notification IDs.
const DefaultProcessedCap = 100

// ProcessedSet remembers recently handled notification IDs. Once full, the
// oldest ID is forgotten first.
type ProcessedSet struct {
	mu  sync.Mutex
	ids *cache.LRU[string, time.Time]
}

// NewProcessedSet creates a set holding at most capacity IDs.
func NewProcessedSet(capacity int) *ProcessedSet {
	if capacity < 1 {
		capacity = DefaultProcessedCap
	}
	return &ProcessedSet{ids: cache.NewLRU[string, time.Time](capacity)}
}

// Add records id and reports whether it was new.
func (s *ProcessedSet) Add(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Contains does not promote, so eviction stays in insertion order.
	if s.ids.Contains(id) {
		return false
	}
	s.ids.Put(id, time.Now())
	return true
}

// Contains reports whether id was handled recently.
func (s *ProcessedSet) Contains(id string) bool {
	return s.ids.Contains(id)
}

// Len returns the number of remembered IDs.
func (s *ProcessedSet) Len() int {
	return s.ids.Len()
}

// Cap returns the capacity.
func (s *ProcessedSet) Cap() int {
	return s.ids.Cap()
}

// IDs returns the remembered IDs, oldest first.
func (s *ProcessedSet) IDs() []string {
	return s.ids.Keys()
}

// Trim drops IDs beyond the capacity and returns how many were dropped.
func (s *ProcessedSet) Trim() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ids.Resize(s.ids.Cap())
}
