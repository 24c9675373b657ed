package store

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/dunamismax/deckrender/internal/domain"
)

// MemoryPresentationStore is a stand-in for the external presentation
// service. The export pipeline only ever reads from it.
type MemoryPresentationStore struct {
	mu            sync.RWMutex
	presentations map[string]domain.Presentation
}

func NewMemoryPresentationStore() *MemoryPresentationStore {
	return &MemoryPresentationStore{
		presentations: make(map[string]domain.Presentation),
	}
}

func (s *MemoryPresentationStore) Put(p domain.Presentation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presentations[p.ID] = p
}

func (s *MemoryPresentationStore) Get(id string) (domain.Presentation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.presentations[id]
	return p, ok
}

// LoadFile seeds the store from a JSON array of presentations.
func (s *MemoryPresentationStore) LoadFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read presentations file %s: %w", path, err)
	}
	var presentations []domain.Presentation
	if err := json.Unmarshal(data, &presentations); err != nil {
		return 0, fmt.Errorf("parse presentations file %s: %w", path, err)
	}
	for _, p := range presentations {
		s.Put(p)
	}
	return len(presentations), nil
}
