package memory

import (
	"context"
	"sync"

	"flashcard-challenge-service/internal/domain"
	"github.com/google/uuid"
)

// HistoryStore is an append-only in-memory ledger of completed attempts.
type HistoryStore struct {
	mu      sync.RWMutex
	entries []domain.ChallengeHistory
}

func NewHistoryStore() *HistoryStore {
	return &HistoryStore{}
}

func (s *HistoryStore) Append(_ context.Context, h domain.ChallengeHistory) (domain.ChallengeHistory, error) {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, h)
	return h, nil
}

func (s *HistoryStore) ListByChallenges(_ context.Context, challengeIDs []string) ([]domain.ChallengeHistory, error) {
	wanted := make(map[string]struct{}, len(challengeIDs))
	for _, id := range challengeIDs {
		wanted[id] = struct{}{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.ChallengeHistory
	for _, h := range s.entries {
		if _, ok := wanted[h.ChallengeID]; ok {
			out = append(out, h)
		}
	}
	return out, nil
}

// Len returns the number of ledger rows.
func (s *HistoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
