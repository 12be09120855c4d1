package memory

import (
	"context"
	"sync"
)

// DeckStore maps deck ids to names.
type DeckStore struct {
	mu    sync.RWMutex
	names map[string]string
}

func NewDeckStore(names map[string]string) *DeckStore {
	copied := make(map[string]string, len(names))
	for id, name := range names {
		copied[id] = name
	}
	return &DeckStore{names: copied}
}

func (s *DeckStore) Put(_ context.Context, id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names[id] = name
	return nil
}

func (s *DeckStore) DeckNames(_ context.Context, deckIDs []string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(deckIDs))
	for _, id := range deckIDs {
		if name, ok := s.names[id]; ok {
			out[id] = name
		}
	}
	return out, nil
}
