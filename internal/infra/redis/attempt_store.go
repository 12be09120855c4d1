package redis

import (
	"context"
	"strconv"
	"sync"
	"time"

	"flashcard-challenge-service/internal/app"
	"flashcard-challenge-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// AttemptStore is a Redis-aware implementation of app.AttemptRepository.
// Attempts own goroutines and subscriber channels, so they stay in a local
// map; Redis carries a marker per running attempt with its mode and start
// time so other instances can see it.
type AttemptStore struct {
	client   *redis.Client
	ttl      time.Duration
	now      func() time.Time
	mu       sync.RWMutex
	attempts map[string]*app.Attempt
}

func NewAttemptStore(client *redis.Client, ttl time.Duration) *AttemptStore {
	return &AttemptStore{
		client:   client,
		ttl:      ttl,
		now:      time.Now,
		attempts: make(map[string]*app.Attempt),
	}
}

func (s *AttemptStore) PutIfAbsent(attempt *app.Attempt) (*app.Attempt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := attempt.ChallengeID()
	if existing, ok := s.attempts[id]; ok {
		return existing, false
	}
	s.attempts[id] = attempt

	ctx := context.Background()
	key := s.key(id)
	// best-effort marker; the attempt starts right after registration
	_, _ = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, "mode", string(attempt.Mode()), "started_at", s.now().UnixMilli())
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	return attempt, true
}

func (s *AttemptStore) Get(challengeID string) (*app.Attempt, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[challengeID]
	return attempt, ok
}

// Lookup finds an attempt running here or, through its marker, on another instance.
func (s *AttemptStore) Lookup(ctx context.Context, challengeID string) (app.AttemptInfo, bool) {
	if attempt, ok := s.Get(challengeID); ok {
		return attempt.Info(), true
	}
	fields, err := s.client.HGetAll(ctx, s.key(challengeID)).Result()
	if err != nil || len(fields) == 0 {
		return app.AttemptInfo{}, false
	}
	startedMs, err := strconv.ParseInt(fields["started_at"], 10, 64)
	if err != nil {
		return app.AttemptInfo{}, false
	}
	return app.AttemptInfo{
		Mode:      domain.ParseMode(fields["mode"]),
		StartedAt: time.UnixMilli(startedMs),
	}, true
}

func (s *AttemptStore) Delete(challengeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attempts[challengeID]; !ok {
		return
	}
	delete(s.attempts, challengeID)
	_ = s.client.Del(context.Background(), s.key(challengeID)).Err()
}

func (s *AttemptStore) key(challengeID string) string {
	return "challenge:attempt:" + challengeID
}
