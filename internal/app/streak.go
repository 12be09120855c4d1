package app

import (
	"context"
	"time"

	"flashcard-challenge-service/internal/domain"
	"go.uber.org/zap"
)

// UserStore persists per-user login streaks.
type UserStore interface {
	Streak(ctx context.Context, userID string) (domain.Streak, error)
	SaveStreak(ctx context.Context, s domain.Streak) error
}

// StreakService maintains daily login streaks.
type StreakService struct {
	users UserStore
	now   func() time.Time
	log   *zap.Logger
}

// NewStreakService tracks streaks in users against the wall clock.
func NewStreakService(users UserStore, log *zap.Logger) *StreakService {
	return NewStreakServiceWithClock(users, log, time.Now)
}

// NewStreakServiceWithClock is test-only for deterministic dates.
func NewStreakServiceWithClock(users UserStore, log *zap.Logger, now func() time.Time) *StreakService {
	if log == nil {
		log = zap.NewNop()
	}
	return &StreakService{users: users, now: now, log: log}
}

// Touch advances the login streak of a user and stores it.
func (s *StreakService) Touch(ctx context.Context, userID string) (domain.Streak, error) {
	if err := domain.Require("user_id", userID); err != nil {
		return domain.Streak{}, err
	}
	prev, err := s.users.Streak(ctx, userID)
	if err != nil {
		return domain.Streak{}, domain.Persist("load streak", err)
	}
	prev.UserID = userID

	next, changed := NextStreak(prev, s.now())
	if err := s.users.SaveStreak(ctx, next); err != nil {
		return domain.Streak{}, domain.Persist("save streak", err)
	}
	if changed {
		s.log.Debug("login streak advanced", zap.String("user_id", userID), zap.Int("daily_streak", next.DailyStreak))
	}
	return next, nil
}

// TouchBestEffort advances the streak and only logs failures.
func (s *StreakService) TouchBestEffort(ctx context.Context, userID string) (domain.Streak, bool) {
	streak, err := s.Touch(ctx, userID)
	if err != nil {
		s.log.Warn("login streak touch failed", zap.String("user_id", userID), zap.Error(err))
		return domain.Streak{}, false
	}
	return streak, true
}

// NextStreak applies one login at now. A login exactly one whole day after the
// last one extends the streak; a longer gap banks the streak into the max and
// restarts at 1; a same-day login changes nothing. The last login time only
// moves when the streak changed.
func NextStreak(prev domain.Streak, now time.Time) (domain.Streak, bool) {
	next := prev
	if prev.LastLogin == nil {
		next.DailyStreak = 1
		next.LastLogin = &now
		return next, true
	}

	days := int(now.Sub(*prev.LastLogin) / (24 * time.Hour))
	switch {
	case days == 1:
		next.DailyStreak = prev.DailyStreak + 1
	case days > 1:
		if prev.DailyStreak > next.MaxStreak {
			next.MaxStreak = prev.DailyStreak
		}
		next.DailyStreak = 1
	default:
		return next, false
	}
	next.LastLogin = &now
	return next, true
}
