package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"flashcard-challenge-service/internal/app"
	"flashcard-challenge-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// QuestionCache caches question sets with TTL in front of a slower store.
// Writes go straight through and drop the cached set of their challenge.
type QuestionCache struct {
	app.QuestionStore
	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedSet
	// gen is bumped on every write so loads started before it are not cached
	gen map[string]uint64
}

type cachedSet struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewQuestionCache(store app.QuestionStore, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		QuestionStore: store,
		ttl:           ttl,
		clock:         time.Now,
		rnd:           rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:         make(map[string]cachedSet),
		gen:           make(map[string]uint64),
	}
}

func (c *QuestionCache) ListByChallenge(ctx context.Context, challengeID string) ([]domain.Question, error) {
	if questions, ok := c.lookup(challengeID); ok {
		return questions, nil
	}

	c.mu.RLock()
	gen := c.gen[challengeID]
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(challengeID+"#"+strconv.FormatUint(gen, 10), func() (interface{}, error) {
		if questions, ok := c.lookup(challengeID); ok {
			return questions, nil
		}
		questions, err := c.QuestionStore.ListByChallenge(ctx, challengeID)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.gen[challengeID] == gen {
			c.cache[challengeID] = cachedSet{
				questions: questions,
				expiresAt: c.clock().Add(c.ttlWithJitter()),
			}
		}
		c.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return copySet(result.([]domain.Question)), nil
}

func (c *QuestionCache) Upsert(ctx context.Context, q domain.Question) error {
	err := c.QuestionStore.Upsert(ctx, q)
	c.invalidate(q.ChallengeID)
	return err
}

func (c *QuestionCache) UpdateAnswer(ctx context.Context, questionID, answer string, status domain.QuestionStatus) (domain.Question, error) {
	q, err := c.QuestionStore.UpdateAnswer(ctx, questionID, answer, status)
	if err != nil {
		return domain.Question{}, err
	}
	c.invalidate(q.ChallengeID)
	return q, nil
}

func (c *QuestionCache) lookup(challengeID string) ([]domain.Question, bool) {
	now := c.clock()
	c.mu.RLock()
	defer c.mu.RUnlock()
	if entry, ok := c.cache[challengeID]; ok && entry.expiresAt.After(now) {
		return copySet(entry.questions), true
	}
	return nil, false
}

func (c *QuestionCache) invalidate(challengeID string) {
	c.mu.Lock()
	delete(c.cache, challengeID)
	c.gen[challengeID]++
	c.mu.Unlock()
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

func copySet(questions []domain.Question) []domain.Question {
	out := make([]domain.Question, len(questions))
	for i, q := range questions {
		out[i] = cloneQuestion(q)
	}
	return out
}
