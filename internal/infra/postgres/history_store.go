package postgres

import (
	"context"
	"fmt"

	"flashcard-challenge-service/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
)

// HistoryStore appends attempt summaries to challenge_history. Rows are never updated.
type HistoryStore struct {
	pool *pgxpool.Pool
}

func NewHistoryStore(pool *pgxpool.Pool) *HistoryStore {
	return &HistoryStore{pool: pool}
}

const historyColumns = `id, challenge_id, accuracy, incorrect, correct, ai_suggestion, time_taken, attempt_number, created_at`

func (s *HistoryStore) Append(ctx context.Context, h domain.ChallengeHistory) (domain.ChallengeHistory, error) {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO challenge_history (`+historyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		h.ID, h.ChallengeID, h.Accuracy, h.Incorrect, h.Correct, h.AISuggestion, h.TimeTaken, h.AttemptNumber, h.CreatedAt)
	if err != nil {
		return domain.ChallengeHistory{}, fmt.Errorf("insert challenge history: %w", err)
	}
	return h, nil
}

func (s *HistoryStore) ListByChallenges(ctx context.Context, challengeIDs []string) ([]domain.ChallengeHistory, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+historyColumns+` FROM challenge_history
		WHERE challenge_id = ANY($1)
		ORDER BY created_at`, challengeIDs)
	if err != nil {
		return nil, fmt.Errorf("list challenge history: %w", err)
	}
	defer rows.Close()

	var out []domain.ChallengeHistory
	for rows.Next() {
		var h domain.ChallengeHistory
		if err := rows.Scan(&h.ID, &h.ChallengeID, &h.Accuracy, &h.Incorrect, &h.Correct,
			&h.AISuggestion, &h.TimeTaken, &h.AttemptNumber, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan challenge history: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
