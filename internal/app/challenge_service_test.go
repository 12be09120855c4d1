package app_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"flashcard-challenge-service/internal/app"
	mock_app "flashcard-challenge-service/internal/app/mock"
	"flashcard-challenge-service/internal/domain"
	"flashcard-challenge-service/internal/infra/memory"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	service    *app.ChallengeService
	generator  *mock_app.MockGenerator
	challenges *memory.ChallengeStore
	questions  *failingQuestionStore
	history    *memory.HistoryStore
	decks      *memory.DeckStore
}

func newFixture(t *testing.T, opts ...app.Option) *fixture {
	t.Helper()
	return newFixtureWithAttempts(t, memory.NewAttemptStore(), opts...)
}

func newFixtureWithAttempts(t *testing.T, attempts app.AttemptRepository, opts ...app.Option) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &fixture{
		generator:  mock_app.NewMockGenerator(ctrl),
		challenges: memory.NewChallengeStore(),
		questions:  &failingQuestionStore{QuestionStore: memory.NewQuestionStore(), fail: map[string]bool{}},
		history:    memory.NewHistoryStore(),
		decks:      memory.NewDeckStore(map[string]string{"deck-1": "Capitals"}),
	}

	seq := 0
	var seqMu sync.Mutex
	base := []app.Option{
		app.WithRand(rand.New(rand.NewSource(1))),
		app.WithIDGenerator(func() string {
			seqMu.Lock()
			defer seqMu.Unlock()
			seq++
			return fmt.Sprintf("q%d", seq)
		}),
	}
	f.service = app.NewChallengeService(app.Stores{
		Challenges: f.challenges,
		Questions:  f.questions,
		History:    f.history,
		Decks:      f.decks,
	}, f.generator, attempts, memory.NewFinalizeGuard(), zap.NewNop(), append(base, opts...)...)
	return f
}

type failingQuestionStore struct {
	*memory.QuestionStore
	mu   sync.Mutex
	fail map[string]bool
}

func (s *failingQuestionStore) Upsert(ctx context.Context, q domain.Question) error {
	s.mu.Lock()
	failing := s.fail[q.ID]
	s.mu.Unlock()
	if failing {
		return errors.New("connection reset")
	}
	return s.QuestionStore.Upsert(ctx, q)
}

func flashcards(n int) []domain.Flashcard {
	cards := make([]domain.Flashcard, 0, n)
	for i := 1; i <= n; i++ {
		cards = append(cards, domain.Flashcard{
			ID:        fmt.Sprintf("f%d", i),
			UserID:    "user-1",
			DeckID:    "deck-1",
			FrontText: fmt.Sprintf("front %d", i),
			BackText:  fmt.Sprintf("back %d", i),
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		})
	}
	return cards
}

func generated(n int) []domain.GeneratedQuestion {
	out := make([]domain.GeneratedQuestion, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, domain.GeneratedQuestion{
			FlashcardID: fmt.Sprintf("f%d", i),
			Question:    fmt.Sprintf("question %d", i),
			ChoiceA:     "Paris",
			ChoiceB:     "Rome",
			ChoiceC:     "Berlin",
			ChoiceD:     "Madrid",
			Answer:      "choice_a",
		})
	}
	return out
}

func (f *fixture) seedChallenge(t *testing.T, ctx context.Context, n int) []domain.Question {
	t.Helper()
	_, err := f.service.CreateChallenge(ctx, domain.Challenge{ID: "c1", DeckID: "deck-1", UserID: "user-1"})
	require.NoError(t, err)

	f.generator.EXPECT().GenerateQuestions(gomock.Any(), gomock.Any(), app.DefaultQuestionCount).Return(generated(n), nil)
	count, err := f.service.GenerateAndStoreQuestions(ctx, "c1", flashcards(n), domain.ModeStandard)
	require.NoError(t, err)
	require.Equal(t, n, count)

	questions, err := f.service.Questions(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, questions, n)
	return questions
}

func TestCreateChallengeZeroesAggregate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	c, err := f.service.CreateChallenge(ctx, domain.Challenge{
		ID: "c1", DeckID: "deck-1", UserID: "user-1",
		TimesTaken: 4, OverallCorrect: 9, OverallAccuracy: 0.9, Status: domain.ChallengeCompleted,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ChallengeStarted, c.Status)
	assert.Zero(t, c.TimesTaken)
	assert.Zero(t, c.OverallCorrect)
	assert.Zero(t, c.OverallAccuracy)

	// retried create with the same id keeps a single record
	_, err = f.service.CreateChallenge(ctx, domain.Challenge{ID: "c1", DeckID: "deck-1", UserID: "user-1"})
	require.NoError(t, err)
	stored, err := f.service.Challenge(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "deck-1", stored.DeckID)
}

func TestCreateChallengeValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tests := []struct {
		name  string
		in    domain.Challenge
		field string
	}{
		{name: "missing id", in: domain.Challenge{DeckID: "d", UserID: "u"}, field: "id"},
		{name: "missing deck", in: domain.Challenge{ID: "c", UserID: "u"}, field: "deck_id"},
		{name: "missing user", in: domain.Challenge{ID: "c", DeckID: "d"}, field: "user_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.CreateChallenge(ctx, tt.in)
			require.ErrorIs(t, err, domain.ErrValidation)
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestGenerateProjectsFlashcards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.generator.EXPECT().
		GenerateQuestions(gomock.Any(), gomock.Any(), app.DefaultQuestionCount).
		DoAndReturn(func(_ context.Context, cards []domain.FlashcardProjection, _ int) ([]domain.GeneratedQuestion, error) {
			require.Len(t, cards, 2)
			assert.Equal(t, domain.FlashcardProjection{ID: "f1", FrontText: "front 1", BackText: "back 1"}, cards[0])
			return generated(2), nil
		})

	questions, err := f.service.GenerateQuestions(ctx, flashcards(2), domain.ModeStandard)
	require.NoError(t, err)
	assert.Len(t, questions, 2)
}

func TestGenerateQuestionsFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("no flashcards", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.GenerateQuestions(ctx, nil, domain.ModeStandard)
		require.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("generator error", func(t *testing.T) {
		f := newFixture(t)
		f.generator.EXPECT().GenerateQuestions(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("upstream 502"))
		_, err := f.service.GenerateQuestions(ctx, flashcards(1), domain.ModeStandard)
		require.ErrorIs(t, err, domain.ErrGeneration)
	})

	t.Run("empty response", func(t *testing.T) {
		f := newFixture(t)
		f.generator.EXPECT().GenerateQuestions(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)
		_, err := f.service.GenerateQuestions(ctx, flashcards(1), domain.ModeStandard)
		require.ErrorIs(t, err, domain.ErrGeneration)
	})

	t.Run("answer matches no choice", func(t *testing.T) {
		f := newFixture(t)
		bad := generated(1)
		bad[0].Answer = "Lisbon"
		f.generator.EXPECT().GenerateQuestions(gomock.Any(), gomock.Any(), gomock.Any()).Return(bad, nil)
		_, err := f.service.GenerateAndStoreQuestions(ctx, "c1", flashcards(1), domain.ModeStandard)
		require.ErrorIs(t, err, domain.ErrGeneration)

		questions, err := f.service.Questions(ctx, "c1")
		require.NoError(t, err)
		assert.Empty(t, questions, "nothing is stored when generation is malformed")
	})
}

func TestGenerateTrimsToQuestionCount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, app.WithQuestionCount(3))
	f.generator.EXPECT().GenerateQuestions(gomock.Any(), gomock.Any(), 3).Return(generated(5), nil)

	count, err := f.service.GenerateAndStoreQuestions(ctx, "c1", flashcards(5), domain.ModeTimed)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestMissingChoiceDefaultsToNA(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	gen := generated(2)
	gen[1].ChoiceC = ""
	f.generator.EXPECT().GenerateQuestions(gomock.Any(), gomock.Any(), gomock.Any()).Return(gen, nil)

	_, err := f.service.GenerateAndStoreQuestions(ctx, "c1", flashcards(2), domain.ModeStandard)
	require.NoError(t, err)

	questions, err := f.service.Questions(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, "Berlin", questions[0].ChoiceC)
	assert.Equal(t, domain.MissingChoice, questions[1].ChoiceC)
	assert.Equal(t, "Madrid", questions[1].ChoiceD)
}

func TestGeneratedQuestionsAreNumberedAndShuffled(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	questions := f.seedChallenge(t, ctx, 4)

	for i, q := range questions {
		assert.Equal(t, i+1, q.QuestionNumber)
		assert.Equal(t, "c1", q.ChallengeID)
		assert.Equal(t, domain.QuestionNotCompleted, q.Status)
		assert.Nil(t, q.UserAnswer)
		assert.GreaterOrEqual(t, q.ShuffleIndex, 0)
		assert.Less(t, q.ShuffleIndex, 100)
	}
}

func TestPartialBatchFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.questions.fail["q3"] = true

	f.generator.EXPECT().GenerateQuestions(gomock.Any(), gomock.Any(), gomock.Any()).Return(generated(5), nil)
	count, err := f.service.GenerateAndStoreQuestions(ctx, "c1", flashcards(5), domain.ModeStandard)

	require.ErrorIs(t, err, domain.ErrPartialBatch)
	var batchErr *domain.PartialBatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, []string{"q3"}, batchErr.IDs())
	assert.Equal(t, []string{"Error with question ID q3: connection reset"}, batchErr.Details())
	assert.Equal(t, 4, count)

	questions, err := f.service.Questions(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, questions, 4)
	for _, q := range questions {
		assert.NotEqual(t, "q3", q.ID)
	}
}

func TestStoreQuestionsValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.ErrorIs(t, f.service.StoreQuestions(ctx, nil, domain.ModeStandard), domain.ErrValidation)
	err := f.service.StoreQuestions(ctx, []domain.Question{{ID: "q1"}}, domain.ModeStandard)
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestStoreQuestionsRejectsBrokenQuestions(t *testing.T) {
	answer := "Paris"
	valid := func() domain.Question {
		return domain.Question{ID: "q1", ChallengeID: "c1", QuestionNumber: 1, Prompt: "Capital of France?",
			ChoiceA: "Paris", ChoiceB: "Rome", Answer: "choice_a"}
	}
	tests := []struct {
		name  string
		edit  func(q *domain.Question)
		field string
	}{
		{name: "empty answer", edit: func(q *domain.Question) { q.Answer = "" }, field: "answer"},
		{name: "answer names no slot", edit: func(q *domain.Question) { q.Answer = "Lisbon" }, field: "answer"},
		{name: "answer names an omitted slot", edit: func(q *domain.Question) { q.Answer = "choice_c" }, field: "answer"},
		{name: "completed without user answer", edit: func(q *domain.Question) { q.Status = domain.QuestionCompleted }, field: "user_answer"},
		{name: "unknown status", edit: func(q *domain.Question) { q.Status = "skipped" }, field: "status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)
			q := valid()
			tt.edit(&q)

			err := f.service.StoreQuestions(ctx, []domain.Question{q}, domain.ModeStandard)
			require.ErrorIs(t, err, domain.ErrValidation)
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)

			stored, err := f.service.Questions(ctx, "c1")
			require.NoError(t, err)
			assert.Empty(t, stored)
		})
	}

	t.Run("choice text answer stored as slot", func(t *testing.T) {
		ctx := context.Background()
		f := newFixture(t)
		q := valid()
		q.Answer = "Rome"
		q.Status = domain.QuestionCompleted
		q.UserAnswer = &answer

		require.NoError(t, f.service.StoreQuestions(ctx, []domain.Question{q}, domain.ModeStandard))
		stored, err := f.service.Questions(ctx, "c1")
		require.NoError(t, err)
		require.Len(t, stored, 1)
		assert.Equal(t, "choice_b", stored[0].Answer)
		assert.Equal(t, domain.MissingChoice, stored[0].ChoiceC)
	})
}

func TestRecordAnswerOverwrites(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	questions := f.seedChallenge(t, ctx, 2)

	_, err := f.service.RecordAnswer(ctx, questions[0].ID, "Rome")
	require.NoError(t, err)
	q, err := f.service.RecordAnswer(ctx, questions[0].ID, "Paris")
	require.NoError(t, err)
	require.NotNil(t, q.UserAnswer)
	assert.Equal(t, "Paris", *q.UserAnswer)
	assert.Equal(t, domain.QuestionCompleted, q.Status)

	stored, err := f.service.Questions(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Paris", *stored[0].UserAnswer)

	// any submitted value is stored as is
	q, err = f.service.RecordAnswer(ctx, questions[1].ID, "choice_z")
	require.NoError(t, err)
	assert.Equal(t, "choice_z", *q.UserAnswer)

	_, err = f.service.RecordAnswer(ctx, "missing", "Paris")
	require.ErrorIs(t, err, domain.ErrQuestionNotFound)
	_, err = f.service.RecordAnswer(ctx, questions[0].ID, "")
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestTwoCardScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	questions := f.seedChallenge(t, ctx, 2)

	_, attempt, err := f.service.StartAttempt(ctx, "c1", domain.ModeStandard)
	require.NoError(t, err)

	_, err = f.service.RecordAnswer(ctx, questions[0].ID, "Paris")
	require.NoError(t, err)
	_, err = f.service.RecordAnswer(ctx, questions[1].ID, "Rome")
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	h, err := attempt.Result(waitCtx)
	require.NoError(t, err)
	assert.Equal(t, 1, h.Correct)
	assert.Equal(t, 1, h.Incorrect)
	assert.InDelta(t, 0.5, h.Accuracy, 1e-9)
	assert.Equal(t, 1, h.AttemptNumber)
	assert.Equal(t, "", h.AISuggestion)

	c, err := f.service.Challenge(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.ChallengeCompleted, c.Status)
	assert.Equal(t, 1, c.OverallCorrect)
	assert.Equal(t, 1, c.OverallIncorrect)
	assert.InDelta(t, 0.5, c.OverallAccuracy, 1e-9)
	assert.Equal(t, 1, c.TimesTaken)

	views, err := f.service.History(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Capitals", views[0].DeckName)
	assert.Equal(t, h.ID, views[0].ID)

	_, err = f.service.Attempt("c1")
	require.ErrorIs(t, err, domain.ErrAttemptNotFound)
}

func TestFinalizeAttemptAtMostOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	questions := f.seedChallenge(t, ctx, 3)

	in := app.FinalizeInput{ChallengeID: "c1", Questions: questions, ElapsedSeconds: 12, AttemptNumber: 1}

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.FinalizeAttempt(ctx, in)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, dup int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrAlreadyFinalized):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 9, dup)
	assert.Equal(t, 1, f.history.Len())
}

func TestFinalizeAttemptZeroQuestions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.service.CreateChallenge(ctx, domain.Challenge{ID: "c1", DeckID: "deck-1", UserID: "user-1"})
	require.NoError(t, err)

	h, err := f.service.FinalizeAttempt(ctx, app.FinalizeInput{ChallengeID: "c1", AttemptNumber: 1})
	require.NoError(t, err)
	assert.Zero(t, h.Accuracy)
	assert.Zero(t, h.Correct)
	assert.Zero(t, h.Incorrect)
}

func TestFinalizeAttemptValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.service.FinalizeAttempt(ctx, app.FinalizeInput{AttemptNumber: 1})
	require.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.service.FinalizeAttempt(ctx, app.FinalizeInput{ChallengeID: "c1"})
	require.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.service.FinalizeAttempt(ctx, app.FinalizeInput{ChallengeID: "c1", AttemptNumber: 1, ElapsedSeconds: -1})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestFinalizeKeepsHistoryWhenAggregateFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// no challenge record exists, so the aggregate update fails
	h, err := f.service.FinalizeAttempt(ctx, app.FinalizeInput{ChallengeID: "ghost", AttemptNumber: 1, ElapsedSeconds: 3})
	var ferr *domain.FinalizeError
	require.ErrorAs(t, err, &ferr)
	assert.NoError(t, ferr.HistoryErr)
	assert.ErrorIs(t, ferr.AggregateErr, domain.ErrChallengeNotFound)
	assert.Equal(t, 1, f.history.Len())
	assert.Equal(t, "ghost", h.ChallengeID)

	_, err = f.service.FinalizeAttempt(ctx, app.FinalizeInput{ChallengeID: "ghost", AttemptNumber: 1})
	require.ErrorIs(t, err, domain.ErrAlreadyFinalized)
}

func TestTimedAttemptAnsweredBeforeExpiry(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	now := start
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	f := newFixture(t, app.WithClock(clock), app.WithTimedBudget(300, 2*time.Millisecond))
	questions := f.seedChallenge(t, ctx, 2)

	_, attempt, err := f.service.StartAttempt(ctx, "c1", domain.ModeTimed)
	require.NoError(t, err)
	state, remaining := attempt.State()
	require.Equal(t, app.TimerRunning, state)
	require.LessOrEqual(t, remaining, 300)

	mu.Lock()
	now = start.Add(250 * time.Second)
	mu.Unlock()

	_, err = f.service.RecordAnswer(ctx, questions[0].ID, "Paris")
	require.NoError(t, err)
	_, err = f.service.RecordAnswer(ctx, questions[1].ID, "Paris")
	require.NoError(t, err)

	h, err := attempt.Result(ctx)
	require.NoError(t, err)
	assert.Equal(t, 250, h.TimeTaken)
	assert.Equal(t, 2, h.Correct)

	// give the countdown time to have run out had it not been stopped
	time.Sleep(800 * time.Millisecond)
	assert.Equal(t, 1, f.history.Len())
	state, _ = attempt.State()
	assert.Equal(t, app.TimerStopped, state)

	_, err = f.service.CompleteAttempt(ctx, "c1")
	require.ErrorIs(t, err, domain.ErrAlreadyFinalized)
	assert.Equal(t, 1, f.history.Len())
}

func TestTimedAttemptExpiryFinalizes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, app.WithTimedBudget(2, 5*time.Millisecond))
	questions := f.seedChallenge(t, ctx, 3)

	_, err := f.service.RecordAnswer(ctx, questions[0].ID, "Paris")
	require.NoError(t, err)
	_, attempt, err := f.service.StartAttempt(ctx, "c1", domain.ModeTimed)
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	h, err := attempt.Result(waitCtx)
	require.NoError(t, err)
	assert.Equal(t, 2, h.TimeTaken)
	assert.Equal(t, 1, h.Correct)
	assert.Equal(t, 2, h.Incorrect)

	c, err := f.service.Challenge(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.ChallengeCompleted, c.Status)
}

func TestExplicitFinalizeStopsRunningTimer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, app.WithTimedBudget(300, 5*time.Millisecond))
	questions := f.seedChallenge(t, ctx, 2)

	_, attempt, err := f.service.StartAttempt(ctx, "c1", domain.ModeTimed)
	require.NoError(t, err)
	events, cancel := attempt.Subscribe()
	defer cancel()

	h, err := f.service.FinalizeAttempt(ctx, app.FinalizeInput{ChallengeID: "c1", Questions: questions, AttemptNumber: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, h.AttemptNumber)

	state, remaining := attempt.State()
	assert.Equal(t, app.TimerStopped, state)
	_, err = f.service.Attempt("c1")
	require.ErrorIs(t, err, domain.ErrAttemptNotFound)

	var last app.TimerEvent
	for event := range events {
		last = event
	}
	assert.Equal(t, app.EventFinalized, last.Type)
	assert.Empty(t, last.Error)
	require.NotNil(t, last.History)
	assert.Equal(t, h.ID, last.History.ID)

	// the countdown does not move once finalized
	time.Sleep(50 * time.Millisecond)
	state, after := attempt.State()
	assert.Equal(t, app.TimerStopped, state)
	assert.Equal(t, remaining, after)

	_, err = f.service.FinalizeAttempt(ctx, app.FinalizeInput{ChallengeID: "c1", Questions: questions, AttemptNumber: 1})
	require.ErrorIs(t, err, domain.ErrAlreadyFinalized)
	assert.Equal(t, 1, f.history.Len())
}

type sharedAttempts struct {
	*memory.AttemptStore
	elsewhere map[string]app.AttemptInfo
}

func (s *sharedAttempts) Lookup(ctx context.Context, challengeID string) (app.AttemptInfo, bool) {
	if info, ok := s.AttemptStore.Lookup(ctx, challengeID); ok {
		return info, true
	}
	info, ok := s.elsewhere[challengeID]
	return info, ok
}

func TestCompleteAttemptRunningElsewhere(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	attempts := &sharedAttempts{
		AttemptStore: memory.NewAttemptStore(),
		elsewhere: map[string]app.AttemptInfo{
			"c1": {Mode: domain.ModeStandard, StartedAt: now.Add(-42 * time.Second)},
			"c2": {Mode: domain.ModeTimed, StartedAt: now.Add(-time.Hour)},
		},
	}
	f := newFixtureWithAttempts(t, attempts, app.WithClock(func() time.Time { return now }), app.WithTimedBudget(300, time.Second))
	for _, id := range []string{"c1", "c2", "c3"} {
		_, err := f.service.CreateChallenge(ctx, domain.Challenge{ID: id, DeckID: "deck-1", UserID: "user-1"})
		require.NoError(t, err)
	}

	h, err := f.service.CompleteAttempt(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 42, h.TimeTaken)

	h, err = f.service.CompleteAttempt(ctx, "c2")
	require.NoError(t, err)
	assert.Equal(t, 300, h.TimeTaken, "timed attempts are capped at the budget")

	h, err = f.service.CompleteAttempt(ctx, "c3")
	require.NoError(t, err)
	assert.Zero(t, h.TimeTaken)
}

func TestCompleteAttemptRacesTimer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, app.WithTimedBudget(1, time.Millisecond))
	f.seedChallenge(t, ctx, 2)

	_, attempt, err := f.service.StartAttempt(ctx, "c1", domain.ModeTimed)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = attempt.Finish(ctx)
		}()
	}
	wg.Wait()
	<-attempt.Done()
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, 1, f.history.Len())
}

func TestStartAttemptReusesRunningAttempt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedChallenge(t, ctx, 1)

	_, first, err := f.service.StartAttempt(ctx, "c1", domain.ModeTimed)
	require.NoError(t, err)
	_, second, err := f.service.StartAttempt(ctx, "c1", domain.ModeTimed)
	require.NoError(t, err)
	assert.Same(t, first, second)

	_, _, err = f.service.StartAttempt(ctx, "empty", domain.ModeStandard)
	require.ErrorIs(t, err, domain.ErrQuestionNotFound)
}

func TestHistoryUnknownDeck(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.service.CreateChallenge(ctx, domain.Challenge{ID: "c9", DeckID: "deck-gone", UserID: "user-1"})
	require.NoError(t, err)
	_, err = f.service.CompleteAttempt(ctx, "c9")
	require.NoError(t, err)

	views, err := f.service.History(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, domain.UnknownDeck, views[0].DeckName)

	views, err = f.service.History(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestSuggest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	questions := f.seedChallenge(t, ctx, 2)
	_, err := f.service.RecordAnswer(ctx, questions[0].ID, "Paris")
	require.NoError(t, err)
	_, err = f.service.RecordAnswer(ctx, questions[1].ID, "Rome")
	require.NoError(t, err)
	h := domain.ChallengeHistory{ChallengeID: "c1", Correct: 1, Incorrect: 1, Accuracy: 0.5}

	answered := []domain.AnsweredQuestion{
		{Question: "question 1", UserAnswer: "Paris", CorrectAnswer: "Paris", Correct: true},
		{Question: "question 2", UserAnswer: "Rome", CorrectAnswer: "Paris"},
	}
	f.generator.EXPECT().Suggest(gomock.Any(), h, answered).Return("Review capitals of southern Europe.", nil)
	got, err := f.service.Suggest(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, "Review capitals of southern Europe.", got)

	f.generator.EXPECT().Suggest(gomock.Any(), h, gomock.Any()).Return("", nil)
	_, err = f.service.Suggest(ctx, h)
	require.ErrorIs(t, err, domain.ErrGeneration)
}
