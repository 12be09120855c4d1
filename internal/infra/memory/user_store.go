package memory

import (
	"context"
	"sync"

	"flashcard-challenge-service/internal/domain"
)

// UserStore keeps login streaks in memory.
type UserStore struct {
	mu      sync.RWMutex
	streaks map[string]domain.Streak
}

func NewUserStore() *UserStore {
	return &UserStore{streaks: make(map[string]domain.Streak)}
}

// Streak returns the stored streak, or a zero streak for an unseen user.
func (s *UserStore) Streak(_ context.Context, userID string) (domain.Streak, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if streak, ok := s.streaks[userID]; ok {
		return streak, nil
	}
	return domain.Streak{UserID: userID}, nil
}

func (s *UserStore) SaveStreak(_ context.Context, streak domain.Streak) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streaks[streak.UserID] = streak
	return nil
}
