package memory

import (
	"context"
	"testing"

	"flashcard-challenge-service/internal/app"
	"flashcard-challenge-service/internal/domain"
)

func TestAttemptStoreLifecycle(t *testing.T) {
	store := NewAttemptStore()

	first := app.NewAttempt(app.AttemptConfig{ChallengeID: "c1", Mode: domain.ModeStandard}, nil)
	stored, created := store.PutIfAbsent(first)
	if !created || stored != first {
		t.Fatalf("expected first attempt stored")
	}

	second := app.NewAttempt(app.AttemptConfig{ChallengeID: "c1", Mode: domain.ModeTimed}, nil)
	stored, created = store.PutIfAbsent(second)
	if created || stored != first {
		t.Fatalf("expected existing attempt returned, got created=%v", created)
	}

	if _, ok := store.Get("c1"); !ok {
		t.Fatalf("expected attempt present")
	}
	info, ok := store.Lookup(context.Background(), "c1")
	if !ok || info.Mode != domain.ModeStandard {
		t.Fatalf("expected lookup to describe the first attempt, got %+v", info)
	}
	store.Delete("c1")
	if _, ok := store.Get("c1"); ok {
		t.Fatalf("expected attempt removed")
	}
	if _, ok := store.Lookup(context.Background(), "c1"); ok {
		t.Fatalf("expected lookup to miss after delete")
	}
}
