package memory

import (
	"context"
	"sort"
	"sync"

	"flashcard-challenge-service/internal/domain"
)

// QuestionStore is an in-memory implementation of app.QuestionStore.
type QuestionStore struct {
	mu        sync.RWMutex
	questions map[string]domain.Question
}

func NewQuestionStore() *QuestionStore {
	return &QuestionStore{questions: make(map[string]domain.Question)}
}

func (s *QuestionStore) Upsert(_ context.Context, q domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions[q.ID] = cloneQuestion(q)
	return nil
}

func (s *QuestionStore) ListByChallenge(_ context.Context, challengeID string) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Question, 0)
	for _, q := range s.questions {
		if q.ChallengeID == challengeID {
			out = append(out, cloneQuestion(q))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionNumber < out[j].QuestionNumber })
	return out, nil
}

func (s *QuestionStore) UpdateAnswer(_ context.Context, questionID, answer string, status domain.QuestionStatus) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[questionID]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	q.UserAnswer = &answer
	q.Status = status
	s.questions[questionID] = q
	return cloneQuestion(q), nil
}

// cloneQuestion detaches the user answer pointer from the stored copy.
func cloneQuestion(q domain.Question) domain.Question {
	if q.UserAnswer != nil {
		answer := *q.UserAnswer
		q.UserAnswer = &answer
	}
	return q
}
