package postgres

import (
	"context"
	"errors"
	"fmt"

	"flashcard-challenge-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuestionStore keeps challenge question sets in Postgres.
type QuestionStore struct {
	pool *pgxpool.Pool
}

func NewQuestionStore(pool *pgxpool.Pool) *QuestionStore {
	return &QuestionStore{pool: pool}
}

const questionColumns = `id, challenge_id, question_number, flashcard_id, question, choice_a, choice_b, choice_c, choice_d, answer, user_answer, status, shuffle_index, created_at`

func (s *QuestionStore) Upsert(ctx context.Context, q domain.Question) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO questions (`+questionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			challenge_id = EXCLUDED.challenge_id,
			question_number = EXCLUDED.question_number,
			flashcard_id = EXCLUDED.flashcard_id,
			question = EXCLUDED.question,
			choice_a = EXCLUDED.choice_a,
			choice_b = EXCLUDED.choice_b,
			choice_c = EXCLUDED.choice_c,
			choice_d = EXCLUDED.choice_d,
			answer = EXCLUDED.answer,
			user_answer = EXCLUDED.user_answer,
			status = EXCLUDED.status,
			shuffle_index = EXCLUDED.shuffle_index`,
		q.ID, q.ChallengeID, q.QuestionNumber, q.FlashcardID, q.Prompt,
		q.ChoiceA, q.ChoiceB, q.ChoiceC, q.ChoiceD, q.Answer, q.UserAnswer,
		string(q.Status), q.ShuffleIndex, q.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert question: %w", err)
	}
	return nil
}

func (s *QuestionStore) ListByChallenge(ctx context.Context, challengeID string) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+questionColumns+` FROM questions
		WHERE challenge_id = $1
		ORDER BY question_number`, challengeID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var out []domain.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *QuestionStore) UpdateAnswer(ctx context.Context, questionID, answer string, status domain.QuestionStatus) (domain.Question, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE questions SET user_answer = $2, status = $3
		WHERE id = $1
		RETURNING `+questionColumns, questionID, answer, string(status))
	q, err := scanQuestion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("update question answer: %w", err)
	}
	return q, nil
}

func scanQuestion(row pgx.Row) (domain.Question, error) {
	var (
		q      domain.Question
		status string
	)
	err := row.Scan(&q.ID, &q.ChallengeID, &q.QuestionNumber, &q.FlashcardID, &q.Prompt,
		&q.ChoiceA, &q.ChoiceB, &q.ChoiceC, &q.ChoiceD, &q.Answer, &q.UserAnswer,
		&status, &q.ShuffleIndex, &q.CreatedAt)
	q.Status = domain.QuestionStatus(status)
	return q, err
}
