package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"flashcard-challenge-service/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ChallengeStore persists per-challenge aggregate records.
type ChallengeStore interface {
	Upsert(ctx context.Context, c domain.Challenge) (domain.Challenge, error)
	Get(ctx context.Context, id string) (domain.Challenge, error)
	UpdateAggregate(ctx context.Context, id string, tally domain.Tally, timesTaken int, status domain.ChallengeStatus) (domain.Challenge, error)
	ListCompleted(ctx context.Context, userID string) ([]domain.Challenge, error)
}

// QuestionStore persists the question set of each challenge.
type QuestionStore interface {
	Upsert(ctx context.Context, q domain.Question) error
	ListByChallenge(ctx context.Context, challengeID string) ([]domain.Question, error)
	UpdateAnswer(ctx context.Context, questionID, answer string, status domain.QuestionStatus) (domain.Question, error)
}

// HistoryStore is the append-only ledger of completed attempts.
type HistoryStore interface {
	Append(ctx context.Context, h domain.ChallengeHistory) (domain.ChallengeHistory, error)
	ListByChallenges(ctx context.Context, challengeIDs []string) ([]domain.ChallengeHistory, error)
}

// DeckDirectory resolves deck names for history listings.
type DeckDirectory interface {
	DeckNames(ctx context.Context, deckIDs []string) (map[string]string, error)
}

// QuestionGenerator turns flashcards into multiple-choice questions.
type QuestionGenerator interface {
	GenerateQuestions(ctx context.Context, cards []domain.FlashcardProjection, count int) ([]domain.GeneratedQuestion, error)
}

// SuggestionGenerator produces a study suggestion for a finished attempt.
type SuggestionGenerator interface {
	Suggest(ctx context.Context, history domain.ChallengeHistory, answered []domain.AnsweredQuestion) (string, error)
}

// Generator is the full contract of the external generation service.
type Generator interface {
	QuestionGenerator
	SuggestionGenerator
}

// AttemptRepository keeps the attempts running in this process. Lookup also
// sees attempts other processes registered, where the backend shares them.
type AttemptRepository interface {
	PutIfAbsent(a *Attempt) (*Attempt, bool)
	Get(challengeID string) (*Attempt, bool)
	Lookup(ctx context.Context, challengeID string) (AttemptInfo, bool)
	Delete(challengeID string)
}

// FinalizeGuard grants the right to finalize an attempt to exactly one caller.
type FinalizeGuard interface {
	Acquire(ctx context.Context, challengeID string, attemptNumber int) (bool, error)
	Release(ctx context.Context, challengeID string, attemptNumber int) error
}

// Stores groups the persistence collaborators of the service.
type Stores struct {
	Challenges ChallengeStore
	Questions  QuestionStore
	History    HistoryStore
	Decks      DeckDirectory
}

const (
	DefaultQuestionCount    = 10
	DefaultTimedBudget      = 300
	DefaultStoreConcurrency = 8

	// finalizeTimesTaken is written on every finalization instead of an
	// incremented counter; each completion is recorded as the first take.
	finalizeTimesTaken = 1
	firstAttempt       = 1
	shuffleRange       = 100
)

// ChallengeService drives challenge attempts from creation to finalization.
type ChallengeService struct {
	challenges ChallengeStore
	questions  QuestionStore
	history    HistoryStore
	decks      DeckDirectory
	generator  Generator
	attempts   AttemptRepository
	guard      FinalizeGuard
	log        *zap.Logger

	questionCount    int
	budgetSeconds    int
	tick             time.Duration
	storeConcurrency int
	now              func() time.Time
	newID            func() string

	rndMu sync.Mutex
	rnd   *rand.Rand
}

// Option tunes a ChallengeService.
type Option func(*ChallengeService)

// WithQuestionCount caps how many generated questions are kept.
func WithQuestionCount(n int) Option {
	return func(s *ChallengeService) {
		if n > 0 {
			s.questionCount = n
		}
	}
}

// WithTimedBudget sets the timed-mode budget and the countdown interval.
func WithTimedBudget(seconds int, tick time.Duration) Option {
	return func(s *ChallengeService) {
		if seconds > 0 {
			s.budgetSeconds = seconds
		}
		if tick > 0 {
			s.tick = tick
		}
	}
}

// WithStoreConcurrency bounds the fan-out of batch question writes.
func WithStoreConcurrency(n int) Option {
	return func(s *ChallengeService) {
		if n > 0 {
			s.storeConcurrency = n
		}
	}
}

// WithClock is used by tests for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *ChallengeService) { s.now = now }
}

// WithRand seeds the shuffle-index source.
func WithRand(rnd *rand.Rand) Option {
	return func(s *ChallengeService) { s.rnd = rnd }
}

// WithIDGenerator overrides question id allocation.
func WithIDGenerator(newID func() string) Option {
	return func(s *ChallengeService) { s.newID = newID }
}

// NewChallengeService builds the orchestrator over its stores, the generator,
// the attempt registry and the finalize guard. Options override the defaults.
func NewChallengeService(stores Stores, generator Generator, attempts AttemptRepository, guard FinalizeGuard, log *zap.Logger, opts ...Option) *ChallengeService {
	s := &ChallengeService{
		challenges:       stores.Challenges,
		questions:        stores.Questions,
		history:          stores.History,
		decks:            stores.Decks,
		generator:        generator,
		attempts:         attempts,
		guard:            guard,
		log:              log,
		questionCount:    DefaultQuestionCount,
		budgetSeconds:    DefaultTimedBudget,
		tick:             time.Second,
		storeConcurrency: DefaultStoreConcurrency,
		now:              time.Now,
		newID:            uuid.NewString,
		rnd:              rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// CreateChallenge stores a new challenge under the caller-allocated id with
// zeroed counters. Repeating the call with the same id does not duplicate it.
func (s *ChallengeService) CreateChallenge(ctx context.Context, c domain.Challenge) (domain.Challenge, error) {
	if err := validateChallenge(c); err != nil {
		return domain.Challenge{}, err
	}
	c.TimesTaken = 0
	c.OverallCorrect = 0
	c.OverallIncorrect = 0
	c.OverallAccuracy = 0
	c.Status = domain.ChallengeStarted

	stored, err := s.challenges.Upsert(ctx, c)
	if err != nil {
		return domain.Challenge{}, domain.Persist("create challenge", err)
	}
	s.log.Info("challenge created", zap.String("challenge_id", c.ID), zap.String("deck_id", c.DeckID))
	return stored, nil
}

// UpsertChallenge writes a challenge record as given, defaulting a missing status to started.
func (s *ChallengeService) UpsertChallenge(ctx context.Context, c domain.Challenge) (domain.Challenge, error) {
	if err := validateChallenge(c); err != nil {
		return domain.Challenge{}, err
	}
	if c.Status == "" {
		c.Status = domain.ChallengeStarted
	}
	stored, err := s.challenges.Upsert(ctx, c)
	if err != nil {
		return domain.Challenge{}, domain.Persist("upsert challenge", err)
	}
	return stored, nil
}

// Challenge loads one challenge record.
func (s *ChallengeService) Challenge(ctx context.Context, id string) (domain.Challenge, error) {
	if err := domain.Require("id", id); err != nil {
		return domain.Challenge{}, err
	}
	c, err := s.challenges.Get(ctx, id)
	if err != nil {
		return domain.Challenge{}, domain.Persist("get challenge", err)
	}
	return c, nil
}

func validateChallenge(c domain.Challenge) error {
	if err := domain.Require("id", c.ID); err != nil {
		return err
	}
	if err := domain.Require("deck_id", c.DeckID); err != nil {
		return err
	}
	return domain.Require("user_id", c.UserID)
}

// GenerateQuestions asks the generator for questions about the given cards.
// Only the card projection crosses the service boundary.
func (s *ChallengeService) GenerateQuestions(ctx context.Context, flashcards []domain.Flashcard, mode domain.Mode) ([]domain.GeneratedQuestion, error) {
	if len(flashcards) == 0 {
		return nil, &domain.ValidationError{Field: "flashcards"}
	}
	cards := make([]domain.FlashcardProjection, 0, len(flashcards))
	for _, f := range flashcards {
		cards = append(cards, f.Project())
	}

	generated, err := s.generator.GenerateQuestions(ctx, cards, s.questionCount)
	if err != nil {
		return nil, &domain.GenerationError{Reason: "generator call failed", Err: err}
	}
	if len(generated) == 0 {
		return nil, &domain.GenerationError{Reason: "no questions returned"}
	}
	if len(generated) > s.questionCount {
		generated = generated[:s.questionCount]
	}
	s.log.Debug("questions generated", zap.Int("count", len(generated)), zap.String("mode", string(mode)))
	return generated, nil
}

// GenerateAndStoreQuestions generates the question set of a challenge and
// stores it. It returns the number of questions written; on a partial batch
// failure the count excludes the failed ones and the error lists them.
func (s *ChallengeService) GenerateAndStoreQuestions(ctx context.Context, challengeID string, flashcards []domain.Flashcard, mode domain.Mode) (int, error) {
	if err := domain.Require("challenge_id", challengeID); err != nil {
		return 0, err
	}
	generated, err := s.GenerateQuestions(ctx, flashcards, mode)
	if err != nil {
		return 0, err
	}
	questions, err := s.buildQuestions(challengeID, generated)
	if err != nil {
		return 0, err
	}

	if err := s.StoreQuestions(ctx, questions, mode); err != nil {
		var partial *domain.PartialBatchError
		if errors.As(err, &partial) {
			return len(questions) - len(partial.Failures), err
		}
		return 0, err
	}
	return len(questions), nil
}

func (s *ChallengeService) buildQuestions(challengeID string, generated []domain.GeneratedQuestion) ([]domain.Question, error) {
	now := s.now()
	questions := make([]domain.Question, 0, len(generated))

	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	for i, g := range generated {
		q := domain.Question{
			ID:             s.newID(),
			ChallengeID:    challengeID,
			QuestionNumber: i + 1,
			FlashcardID:    g.FlashcardID,
			Prompt:         g.Question,
			ChoiceA:        g.ChoiceA,
			ChoiceB:        g.ChoiceB,
			ChoiceC:        g.ChoiceC,
			ChoiceD:        g.ChoiceD,
			Answer:         g.Answer,
			Status:         domain.QuestionNotCompleted,
			ShuffleIndex:   s.rnd.Intn(shuffleRange),
			CreatedAt:      now,
		}.WithDefaultChoices()

		if q.Prompt == "" {
			return nil, &domain.GenerationError{Reason: fmt.Sprintf("question %d has no prompt", i+1)}
		}
		answer, ok := normalizeAnswer(q)
		if !ok {
			return nil, &domain.GenerationError{Reason: fmt.Sprintf("question %d answer %q matches no choice", i+1, g.Answer)}
		}
		q.Answer = answer
		questions = append(questions, q)
	}
	return questions, nil
}

// StoreQuestions writes a batch of questions concurrently. Every question is
// attempted; failures are collected into a PartialBatchError and the
// questions that were written stay stored.
func (s *ChallengeService) StoreQuestions(ctx context.Context, questions []domain.Question, mode domain.Mode) error {
	if len(questions) == 0 {
		return &domain.ValidationError{Field: "questions"}
	}
	now := s.now()
	prepared := make([]domain.Question, 0, len(questions))
	for _, q := range questions {
		if err := domain.Require("id", q.ID); err != nil {
			return err
		}
		if err := domain.Require("challenge_id", q.ChallengeID); err != nil {
			return err
		}
		q = q.WithDefaultChoices()
		answer, ok := normalizeAnswer(q)
		if !ok {
			return &domain.ValidationError{Field: "answer", Reason: fmt.Sprintf("question %s: %q names no filled choice", q.ID, q.Answer)}
		}
		q.Answer = answer
		switch q.Status {
		case "":
			q.Status = domain.QuestionNotCompleted
		case domain.QuestionNotCompleted:
		case domain.QuestionCompleted:
			if q.UserAnswer == nil {
				return &domain.ValidationError{Field: "user_answer", Reason: fmt.Sprintf("question %s is completed without an answer", q.ID)}
			}
		default:
			return &domain.ValidationError{Field: "status", Reason: fmt.Sprintf("question %s: unknown status %q", q.ID, q.Status)}
		}
		if q.CreatedAt.IsZero() {
			q.CreatedAt = now
		}
		prepared = append(prepared, q)
	}

	var (
		mu       sync.Mutex
		failures []domain.QuestionFailure
		g        errgroup.Group
	)
	g.SetLimit(s.storeConcurrency)
	for _, q := range prepared {
		g.Go(func() error {
			if err := s.questions.Upsert(ctx, q); err != nil {
				mu.Lock()
				failures = append(failures, domain.QuestionFailure{QuestionID: q.ID, Err: err})
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(failures) > 0 {
		sort.Slice(failures, func(i, j int) bool { return failures[i].QuestionID < failures[j].QuestionID })
		batchErr := &domain.PartialBatchError{Failures: failures}
		s.log.Warn("question batch partially stored",
			zap.String("mode", string(mode)),
			zap.Int("stored", len(prepared)-len(failures)),
			zap.Strings("failed_ids", batchErr.IDs()))
		return batchErr
	}
	s.log.Info("question batch stored", zap.String("mode", string(mode)), zap.Int("count", len(prepared)))
	return nil
}

// Questions returns the question set of a challenge ordered by question number.
func (s *ChallengeService) Questions(ctx context.Context, challengeID string) ([]domain.Question, error) {
	if err := domain.Require("challenge_id", challengeID); err != nil {
		return nil, err
	}
	questions, err := s.questions.ListByChallenge(ctx, challengeID)
	if err != nil {
		return nil, domain.Persist("list questions", err)
	}
	sort.SliceStable(questions, func(i, j int) bool {
		return questions[i].QuestionNumber < questions[j].QuestionNumber
	})
	return questions, nil
}

// RecordAnswer stores the user's choice for a question and marks it completed.
// Answering again overwrites the previous choice. The choice is stored as
// submitted. When an attempt is running and this was the last open question,
// the attempt is finalized.
func (s *ChallengeService) RecordAnswer(ctx context.Context, questionID, choice string) (domain.Question, error) {
	if err := domain.Require("id", questionID); err != nil {
		return domain.Question{}, err
	}
	if err := domain.Require("user_answer", choice); err != nil {
		return domain.Question{}, err
	}
	q, err := s.questions.UpdateAnswer(ctx, questionID, choice, domain.QuestionCompleted)
	if err != nil {
		return domain.Question{}, domain.Persist("update question", err)
	}

	if attempt, ok := s.attempts.Get(q.ChallengeID); ok {
		s.finishIfAnswered(ctx, attempt)
	}
	return q, nil
}

func (s *ChallengeService) finishIfAnswered(ctx context.Context, attempt *Attempt) {
	questions, err := s.Questions(ctx, attempt.ChallengeID())
	if err != nil {
		s.log.Warn("check attempt progress", zap.String("challenge_id", attempt.ChallengeID()), zap.Error(err))
		return
	}
	for _, q := range questions {
		if !q.Completed() {
			return
		}
	}
	if _, err := attempt.Finish(ctx); err != nil {
		s.log.Warn("finalize after last answer", zap.String("challenge_id", attempt.ChallengeID()), zap.Error(err))
	}
}

// FinalizeInput carries everything needed to close an attempt.
type FinalizeInput struct {
	ChallengeID    string
	Questions      []domain.Question
	ElapsedSeconds int
	AttemptNumber  int
}

// FinalizeAttempt scores an attempt, appends its history row and overwrites
// the challenge aggregate. It runs at most once per challenge attempt; later
// calls get ErrAlreadyFinalized. The history write and the aggregate update
// are independent: one failing does not undo the other, and both failures
// are reported through a FinalizeError.
//
// When the attempt is running in this process it is finished instead, which
// stops its countdown; the stored question set and the wall-clock time since
// the start are used then.
func (s *ChallengeService) FinalizeAttempt(ctx context.Context, in FinalizeInput) (domain.ChallengeHistory, error) {
	if err := domain.Require("challenge_id", in.ChallengeID); err != nil {
		return domain.ChallengeHistory{}, err
	}
	if in.AttemptNumber < 1 {
		return domain.ChallengeHistory{}, &domain.ValidationError{Field: "attempt_number"}
	}
	if in.ElapsedSeconds < 0 {
		return domain.ChallengeHistory{}, &domain.ValidationError{Field: "time_taken"}
	}
	if attempt, ok := s.attempts.Get(in.ChallengeID); ok && attempt.AttemptNumber() == in.AttemptNumber {
		history, ran, err := attempt.finish(ctx)
		if !ran {
			return domain.ChallengeHistory{}, domain.ErrAlreadyFinalized
		}
		return history, err
	}
	return s.finalize(ctx, in)
}

func (s *ChallengeService) finalize(ctx context.Context, in FinalizeInput) (domain.ChallengeHistory, error) {
	won, err := s.guard.Acquire(ctx, in.ChallengeID, in.AttemptNumber)
	if err != nil {
		return domain.ChallengeHistory{}, domain.Persist("acquire finalize guard", err)
	}
	if !won {
		return domain.ChallengeHistory{}, domain.ErrAlreadyFinalized
	}

	tally := Score(in.Questions)
	entry := domain.ChallengeHistory{
		ID:            uuid.NewString(),
		ChallengeID:   in.ChallengeID,
		Accuracy:      tally.Accuracy,
		Incorrect:     tally.Incorrect,
		Correct:       tally.Correct,
		AISuggestion:  "",
		TimeTaken:     in.ElapsedSeconds,
		AttemptNumber: in.AttemptNumber,
		CreatedAt:     s.now(),
	}

	var ferr domain.FinalizeError
	stored, err := s.history.Append(ctx, entry)
	if err != nil {
		ferr.HistoryErr = domain.Persist("append history", err)
		// no row was written, so a retry may finalize again
		if rerr := s.guard.Release(ctx, in.ChallengeID, in.AttemptNumber); rerr != nil {
			s.log.Warn("release finalize guard", zap.String("challenge_id", in.ChallengeID), zap.Error(rerr))
		}
		stored = entry
	}
	if _, err := s.challenges.UpdateAggregate(ctx, in.ChallengeID, tally, finalizeTimesTaken, domain.ChallengeCompleted); err != nil {
		ferr.AggregateErr = domain.Persist("update challenge aggregate", err)
	}

	if ferr.HistoryErr != nil || ferr.AggregateErr != nil {
		s.log.Error("finalize attempt",
			zap.String("challenge_id", in.ChallengeID),
			zap.NamedError("history_error", ferr.HistoryErr),
			zap.NamedError("aggregate_error", ferr.AggregateErr))
		return stored, &ferr
	}

	s.log.Info("attempt finalized",
		zap.String("challenge_id", in.ChallengeID),
		zap.Int("correct", tally.Correct),
		zap.Int("incorrect", tally.Incorrect),
		zap.Int("time_taken", in.ElapsedSeconds))
	return stored, nil
}

// StartAttempt loads the question set and registers an attempt for it. In
// timed mode the countdown starts now; a second call for a running attempt
// returns the existing one.
func (s *ChallengeService) StartAttempt(ctx context.Context, challengeID string, mode domain.Mode) ([]domain.Question, *Attempt, error) {
	questions, err := s.Questions(ctx, challengeID)
	if err != nil {
		return nil, nil, err
	}
	if len(questions) == 0 {
		return nil, nil, fmt.Errorf("challenge %s has no questions: %w", challengeID, domain.ErrQuestionNotFound)
	}

	attempt := NewAttempt(AttemptConfig{
		ChallengeID:   challengeID,
		Mode:          mode,
		AttemptNumber: firstAttempt,
		BudgetSeconds: s.budgetSeconds,
		Tick:          s.tick,
		Now:           s.now,
	}, s.attemptFinalizer(challengeID, firstAttempt))

	stored, created := s.attempts.PutIfAbsent(attempt)
	if created {
		stored.Start()
		s.log.Info("attempt started",
			zap.String("challenge_id", challengeID),
			zap.String("mode", string(mode)),
			zap.Int("questions", len(questions)))
	}
	return questions, stored, nil
}

// Attempt returns the running attempt of a challenge.
func (s *ChallengeService) Attempt(challengeID string) (*Attempt, error) {
	attempt, ok := s.attempts.Get(challengeID)
	if !ok {
		return nil, domain.ErrAttemptNotFound
	}
	return attempt, nil
}

// CompleteAttempt finalizes a challenge through the last-answer path. Without
// an attempt in this process the stored question set is scored directly.
func (s *ChallengeService) CompleteAttempt(ctx context.Context, challengeID string) (domain.ChallengeHistory, error) {
	if err := domain.Require("challenge_id", challengeID); err != nil {
		return domain.ChallengeHistory{}, err
	}
	if attempt, ok := s.attempts.Get(challengeID); ok {
		return attempt.Finish(ctx)
	}
	questions, err := s.Questions(ctx, challengeID)
	if err != nil {
		return domain.ChallengeHistory{}, err
	}

	elapsed := 0
	info, remote := s.attempts.Lookup(ctx, challengeID)
	if remote {
		elapsed = s.elapsedSince(info)
	}
	s.log.Warn("completing challenge without a local attempt",
		zap.String("challenge_id", challengeID),
		zap.Bool("running_elsewhere", remote),
		zap.Int("time_taken", elapsed))
	return s.finalize(ctx, FinalizeInput{
		ChallengeID:    challengeID,
		Questions:      questions,
		ElapsedSeconds: elapsed,
		AttemptNumber:  firstAttempt,
	})
}

// elapsedSince is whole seconds since the attempt started, capped at the
// timed budget.
func (s *ChallengeService) elapsedSince(info AttemptInfo) int {
	if info.StartedAt.IsZero() {
		return 0
	}
	elapsed := int(s.now().Sub(info.StartedAt) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	if info.Mode == domain.ModeTimed && elapsed > s.budgetSeconds {
		elapsed = s.budgetSeconds
	}
	return elapsed
}

func (s *ChallengeService) attemptFinalizer(challengeID string, attemptNumber int) finalizeFunc {
	return func(ctx context.Context, elapsed int) (domain.ChallengeHistory, error) {
		defer s.attempts.Delete(challengeID)
		questions, err := s.Questions(ctx, challengeID)
		if err != nil {
			return domain.ChallengeHistory{}, err
		}
		return s.finalize(ctx, FinalizeInput{
			ChallengeID:    challengeID,
			Questions:      questions,
			ElapsedSeconds: elapsed,
			AttemptNumber:  attemptNumber,
		})
	}
}

// History lists the attempt ledger of a user's completed challenges with deck names.
func (s *ChallengeService) History(ctx context.Context, userID string) ([]domain.HistoryView, error) {
	if err := domain.Require("user_id", userID); err != nil {
		return nil, err
	}
	challenges, err := s.challenges.ListCompleted(ctx, userID)
	if err != nil {
		return nil, domain.Persist("list completed challenges", err)
	}
	if len(challenges) == 0 {
		return nil, nil
	}

	byID := make(map[string]domain.Challenge, len(challenges))
	challengeIDs := make([]string, 0, len(challenges))
	deckIDs := make([]string, 0, len(challenges))
	for _, c := range challenges {
		byID[c.ID] = c
		challengeIDs = append(challengeIDs, c.ID)
		deckIDs = append(deckIDs, c.DeckID)
	}

	names, err := s.decks.DeckNames(ctx, deckIDs)
	if err != nil {
		return nil, domain.Persist("resolve deck names", err)
	}
	rows, err := s.history.ListByChallenges(ctx, challengeIDs)
	if err != nil {
		return nil, domain.Persist("list challenge history", err)
	}

	views := make([]domain.HistoryView, 0, len(rows))
	for _, h := range rows {
		name := names[byID[h.ChallengeID].DeckID]
		if name == "" {
			name = domain.UnknownDeck
		}
		views = append(views, domain.HistoryView{ChallengeHistory: h, DeckName: name})
	}
	sort.SliceStable(views, func(i, j int) bool { return views[i].CreatedAt.Before(views[j].CreatedAt) })
	return views, nil
}

// Suggest asks the generator for study advice about a finished attempt. The
// scored question set goes along so the advice can name what was missed. The
// suggestion is returned only; history rows are never rewritten.
func (s *ChallengeService) Suggest(ctx context.Context, h domain.ChallengeHistory) (string, error) {
	if err := domain.Require("challenge_id", h.ChallengeID); err != nil {
		return "", err
	}
	questions, err := s.Questions(ctx, h.ChallengeID)
	if err != nil {
		return "", err
	}
	suggestion, err := s.generator.Suggest(ctx, h, Review(questions))
	if err != nil {
		return "", &domain.GenerationError{Reason: "suggestion call failed", Err: err}
	}
	if suggestion == "" {
		return "", &domain.GenerationError{Reason: "empty suggestion"}
	}
	return suggestion, nil
}
