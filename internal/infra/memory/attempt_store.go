package memory

import (
	"context"
	"sync"

	"flashcard-challenge-service/internal/app"
)

// AttemptStore is an in-memory implementation of app.AttemptRepository.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts map[string]*app.Attempt
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{
		attempts: make(map[string]*app.Attempt),
	}
}

func (s *AttemptStore) PutIfAbsent(attempt *app.Attempt) (*app.Attempt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.attempts[attempt.ChallengeID()]; ok {
		return existing, false
	}
	s.attempts[attempt.ChallengeID()] = attempt
	return attempt, true
}

func (s *AttemptStore) Get(challengeID string) (*app.Attempt, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[challengeID]
	return attempt, ok
}

// Lookup only sees attempts of this process.
func (s *AttemptStore) Lookup(_ context.Context, challengeID string) (app.AttemptInfo, bool) {
	attempt, ok := s.Get(challengeID)
	if !ok {
		return app.AttemptInfo{}, false
	}
	return attempt.Info(), true
}

func (s *AttemptStore) Delete(challengeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attempts, challengeID)
}
