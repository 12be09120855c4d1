package memory

import (
	"context"
	"strconv"
	"sync"
)

// FinalizeGuard grants finalization of each challenge attempt once per process.
type FinalizeGuard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewFinalizeGuard() *FinalizeGuard {
	return &FinalizeGuard{held: make(map[string]struct{})}
}

func (g *FinalizeGuard) Acquire(_ context.Context, challengeID string, attemptNumber int) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := guardKey(challengeID, attemptNumber)
	if _, ok := g.held[key]; ok {
		return false, nil
	}
	g.held[key] = struct{}{}
	return true, nil
}

func (g *FinalizeGuard) Release(_ context.Context, challengeID string, attemptNumber int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.held, guardKey(challengeID, attemptNumber))
	return nil
}

func guardKey(challengeID string, attemptNumber int) string {
	return challengeID + "#" + strconv.Itoa(attemptNumber)
}
