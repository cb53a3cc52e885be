// Package memory provides the in-memory conversational memory store: per
// package, an append-only list of remembered artifact ids and compact
// provenance notes the dispatcher surfaces into chat context.
package memory

import (
	"sync"

	"github.com/hupe1980/artifactmesh/core"
)

// InMemoryStore is a process-local MemoryStore. Safe for concurrent use.
type InMemoryStore struct {
	mu    sync.RWMutex
	ids   map[string][]string
	notes map[string][]string
	seen  map[string]map[string]bool
}

var _ core.MemoryStore = (*InMemoryStore)(nil)

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		ids:   map[string][]string{},
		notes: map[string][]string{},
		seen:  map[string]map[string]bool{},
	}
}

// Remember records an artifact id and its provenance note for the package.
// Ids are deduplicated; notes always append.
func (s *InMemoryStore) Remember(pkg, artifactID, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen[pkg] == nil {
		s.seen[pkg] = map[string]bool{}
	}
	if artifactID != "" && !s.seen[pkg][artifactID] {
		s.seen[pkg][artifactID] = true
		s.ids[pkg] = append(s.ids[pkg], artifactID)
	}
	if note != "" {
		s.notes[pkg] = append(s.notes[pkg], note)
	}
	return nil
}

// Remembered returns the remembered artifact ids in insertion order.
func (s *InMemoryStore) Remembered(pkg string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.ids[pkg]))
	copy(out, s.ids[pkg])
	return out
}

// Notes returns the provenance notes in insertion order.
func (s *InMemoryStore) Notes(pkg string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.notes[pkg]))
	copy(out, s.notes[pkg])
	return out
}
