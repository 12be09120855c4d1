package memory

import (
	"context"
	"sort"
	"sync"

	"flashcard-challenge-service/internal/domain"
)

// ChallengeStore is an in-memory implementation of app.ChallengeStore.
type ChallengeStore struct {
	mu         sync.RWMutex
	challenges map[string]domain.Challenge
}

func NewChallengeStore() *ChallengeStore {
	return &ChallengeStore{challenges: make(map[string]domain.Challenge)}
}

func (s *ChallengeStore) Upsert(_ context.Context, c domain.Challenge) (domain.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges[c.ID] = c
	return c, nil
}

func (s *ChallengeStore) Get(_ context.Context, id string) (domain.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.challenges[id]
	if !ok {
		return domain.Challenge{}, domain.ErrChallengeNotFound
	}
	return c, nil
}

func (s *ChallengeStore) UpdateAggregate(_ context.Context, id string, tally domain.Tally, timesTaken int, status domain.ChallengeStatus) (domain.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.challenges[id]
	if !ok {
		return domain.Challenge{}, domain.ErrChallengeNotFound
	}
	c.OverallCorrect = tally.Correct
	c.OverallIncorrect = tally.Incorrect
	c.OverallAccuracy = tally.Accuracy
	c.TimesTaken = timesTaken
	c.Status = status
	s.challenges[id] = c
	return c, nil
}

func (s *ChallengeStore) ListCompleted(_ context.Context, userID string) ([]domain.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Challenge
	for _, c := range s.challenges {
		if c.UserID == userID && c.Status == domain.ChallengeCompleted {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
