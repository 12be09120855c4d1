package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// FinalizeGuard shares the finalize-once decision between instances with SETNX.
// Keys expire after ttl; a zero ttl keeps them forever.
type FinalizeGuard struct {
	client *redis.Client
	ttl    time.Duration
}

func NewFinalizeGuard(client *redis.Client, ttl time.Duration) *FinalizeGuard {
	return &FinalizeGuard{client: client, ttl: ttl}
}

func (g *FinalizeGuard) Acquire(ctx context.Context, challengeID string, attemptNumber int) (bool, error) {
	return g.client.SetNX(ctx, g.key(challengeID, attemptNumber), "1", g.ttl).Result()
}

func (g *FinalizeGuard) Release(ctx context.Context, challengeID string, attemptNumber int) error {
	return g.client.Del(ctx, g.key(challengeID, attemptNumber)).Err()
}

func (g *FinalizeGuard) key(challengeID string, attemptNumber int) string {
	return "challenge:" + challengeID + ":attempt:" + strconv.Itoa(attemptNumber) + ":finalized"
}
