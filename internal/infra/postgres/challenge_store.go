package postgres

import (
	"context"
	"errors"
	"fmt"

	"flashcard-challenge-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ChallengeStore keeps challenge aggregates in Postgres.
type ChallengeStore struct {
	pool *pgxpool.Pool
}

func NewChallengeStore(pool *pgxpool.Pool) *ChallengeStore {
	return &ChallengeStore{pool: pool}
}

const challengeColumns = `id, deck_id, user_id, times_taken, overall_correct, overall_incorrect, overall_accuracy, status`

func (s *ChallengeStore) Upsert(ctx context.Context, c domain.Challenge) (domain.Challenge, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO challenges (`+challengeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			deck_id = EXCLUDED.deck_id,
			user_id = EXCLUDED.user_id,
			times_taken = EXCLUDED.times_taken,
			overall_correct = EXCLUDED.overall_correct,
			overall_incorrect = EXCLUDED.overall_incorrect,
			overall_accuracy = EXCLUDED.overall_accuracy,
			status = EXCLUDED.status
		RETURNING `+challengeColumns,
		c.ID, c.DeckID, c.UserID, c.TimesTaken, c.OverallCorrect, c.OverallIncorrect, c.OverallAccuracy, string(c.Status))
	stored, err := scanChallenge(row)
	if err != nil {
		return domain.Challenge{}, fmt.Errorf("upsert challenge: %w", err)
	}
	return stored, nil
}

func (s *ChallengeStore) Get(ctx context.Context, id string) (domain.Challenge, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+challengeColumns+` FROM challenges WHERE id=$1`, id)
	c, err := scanChallenge(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Challenge{}, domain.ErrChallengeNotFound
	}
	if err != nil {
		return domain.Challenge{}, fmt.Errorf("load challenge: %w", err)
	}
	return c, nil
}

func (s *ChallengeStore) UpdateAggregate(ctx context.Context, id string, tally domain.Tally, timesTaken int, status domain.ChallengeStatus) (domain.Challenge, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE challenges SET
			overall_correct = $2,
			overall_incorrect = $3,
			overall_accuracy = $4,
			times_taken = $5,
			status = $6
		WHERE id = $1
		RETURNING `+challengeColumns,
		id, tally.Correct, tally.Incorrect, tally.Accuracy, timesTaken, string(status))
	c, err := scanChallenge(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Challenge{}, domain.ErrChallengeNotFound
	}
	if err != nil {
		return domain.Challenge{}, fmt.Errorf("update challenge aggregate: %w", err)
	}
	return c, nil
}

func (s *ChallengeStore) ListCompleted(ctx context.Context, userID string) ([]domain.Challenge, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+challengeColumns+` FROM challenges
		WHERE user_id = $1 AND status = $2
		ORDER BY created_at, id`, userID, string(domain.ChallengeCompleted))
	if err != nil {
		return nil, fmt.Errorf("list completed challenges: %w", err)
	}
	defer rows.Close()

	var out []domain.Challenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("scan challenge: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanChallenge(row pgx.Row) (domain.Challenge, error) {
	var (
		c      domain.Challenge
		status string
	)
	err := row.Scan(&c.ID, &c.DeckID, &c.UserID, &c.TimesTaken, &c.OverallCorrect, &c.OverallIncorrect, &c.OverallAccuracy, &status)
	c.Status = domain.ChallengeStatus(status)
	return c, err
}
