package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sort"
	"sync"
	"time"

	"flashcard-challenge-service/internal/app"
	"flashcard-challenge-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuestionCache caches question sets in Redis in front of the durable store
// and falls back to it on a miss.
// Questions are stored as: HSET challenge:{id}:questions {questionID} {json}
// Writes bump:             INCR challenge:{id}:questions:gen
// so that a load started before a write never repopulates stale data.
type QuestionCache struct {
	app.QuestionStore
	client *redis.Client
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuestionCache(client *redis.Client, store app.QuestionStore, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		QuestionStore: store,
		client:        client,
		ttl:           ttl,
		rnd:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) ListByChallenge(ctx context.Context, challengeID string) ([]domain.Question, error) {
	if questions, ok := c.cached(ctx, challengeID); ok {
		return questions, nil
	}

	result, err, _ := c.sf.Do(challengeID, func() (interface{}, error) {
		if questions, ok := c.cached(ctx, challengeID); ok {
			return questions, nil
		}
		gen, err := c.generation(ctx, challengeID)
		if err != nil {
			gen = -1
		}
		questions, err := c.QuestionStore.ListByChallenge(ctx, challengeID)
		if err != nil {
			return nil, err
		}
		if gen >= 0 && len(questions) > 0 {
			_ = c.fill(ctx, challengeID, gen, questions)
		}
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	// callers sort and edit their copy
	return append([]domain.Question(nil), result.([]domain.Question)...), nil
}

func (c *QuestionCache) Upsert(ctx context.Context, q domain.Question) error {
	err := c.QuestionStore.Upsert(ctx, q)
	c.invalidate(ctx, q.ChallengeID)
	return err
}

func (c *QuestionCache) UpdateAnswer(ctx context.Context, questionID, answer string, status domain.QuestionStatus) (domain.Question, error) {
	q, err := c.QuestionStore.UpdateAnswer(ctx, questionID, answer, status)
	if err != nil {
		return domain.Question{}, err
	}
	c.invalidate(ctx, q.ChallengeID)
	return q, nil
}

func (c *QuestionCache) cached(ctx context.Context, challengeID string) ([]domain.Question, bool) {
	fields, err := c.client.HGetAll(ctx, c.setKey(challengeID)).Result()
	if err != nil || len(fields) == 0 {
		return nil, false
	}
	questions := make([]domain.Question, 0, len(fields))
	for _, raw := range fields {
		var q domain.Question
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			return nil, false
		}
		questions = append(questions, q)
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].QuestionNumber < questions[j].QuestionNumber })
	return questions, true
}

func (c *QuestionCache) generation(ctx context.Context, challengeID string) (int64, error) {
	gen, err := c.client.Get(ctx, c.genKey(challengeID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// fill writes the set only if no write happened since gen was read.
func (c *QuestionCache) fill(ctx context.Context, challengeID string, gen int64, questions []domain.Question) error {
	fields := make(map[string]interface{}, len(questions))
	for _, q := range questions {
		raw, err := json.Marshal(q)
		if err != nil {
			return err
		}
		fields[q.ID] = raw
	}
	setKey, genKey := c.setKey(challengeID), c.genKey(challengeID)
	ttl := c.ttlWithJitter()

	return c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, setKey)
			pipe.HSet(ctx, setKey, fields)
			if ttl > 0 {
				pipe.Expire(ctx, setKey, ttl)
			}
			return nil
		})
		return err
	}, genKey)
}

func (c *QuestionCache) invalidate(ctx context.Context, challengeID string) {
	_, _ = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, c.genKey(challengeID))
		pipe.Del(ctx, c.setKey(challengeID))
		return nil
	})
}

func (c *QuestionCache) setKey(challengeID string) string {
	return "challenge:" + challengeID + ":questions"
}

func (c *QuestionCache) genKey(challengeID string) string {
	return "challenge:" + challengeID + ":questions:gen"
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
