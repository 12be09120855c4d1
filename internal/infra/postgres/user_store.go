package postgres

import (
	"context"
	"errors"
	"fmt"

	"flashcard-challenge-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// UserStore keeps login streaks on the users table.
type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

// Streak returns a zero streak for a user without a row yet.
func (s *UserStore) Streak(ctx context.Context, userID string) (domain.Streak, error) {
	streak := domain.Streak{UserID: userID}
	err := s.pool.QueryRow(ctx, `SELECT daily_streak, max_streak, last_login FROM users WHERE id=$1`, userID).
		Scan(&streak.DailyStreak, &streak.MaxStreak, &streak.LastLogin)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Streak{UserID: userID}, nil
	}
	if err != nil {
		return domain.Streak{}, fmt.Errorf("load streak: %w", err)
	}
	return streak, nil
}

func (s *UserStore) SaveStreak(ctx context.Context, streak domain.Streak) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, daily_streak, max_streak, last_login)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			daily_streak = EXCLUDED.daily_streak,
			max_streak = EXCLUDED.max_streak,
			last_login = EXCLUDED.last_login`,
		streak.UserID, streak.DailyStreak, streak.MaxStreak, streak.LastLogin)
	if err != nil {
		return fmt.Errorf("save streak: %w", err)
	}
	return nil
}
