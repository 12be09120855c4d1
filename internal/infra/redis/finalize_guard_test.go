package redis

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestFinalizeGuardGrantsOnce(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	// two instances sharing one redis
	a := NewFinalizeGuard(newClient(mr), time.Hour)
	b := NewFinalizeGuard(newClient(mr), time.Hour)

	var won int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		guard := a
		if i%2 == 1 {
			guard = b
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := guard.Acquire(context.Background(), "c1", 1)
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			if ok {
				atomic.AddInt32(&won, 1)
			}
		}()
	}
	wg.Wait()

	if won != 1 {
		t.Fatalf("expected exactly one winner, got %d", won)
	}
	if !mr.Exists("challenge:c1:attempt:1:finalized") {
		t.Fatalf("expected guard key")
	}
	if mr.TTL("challenge:c1:attempt:1:finalized") != time.Hour {
		t.Fatalf("expected guard ttl")
	}

	ok, err := a.Acquire(context.Background(), "c1", 2)
	if err != nil || !ok {
		t.Fatalf("expected next attempt to be free, ok=%v err=%v", ok, err)
	}
}

func TestFinalizeGuardRelease(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	guard := NewFinalizeGuard(newClient(mr), 0)
	ctx := context.Background()
	if ok, _ := guard.Acquire(ctx, "c1", 1); !ok {
		t.Fatalf("expected first acquire to win")
	}
	if err := guard.Release(ctx, "c1", 1); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, _ := guard.Acquire(ctx, "c1", 1); !ok {
		t.Fatalf("expected acquire after release to win")
	}
}
