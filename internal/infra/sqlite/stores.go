package sqlite

import (
	"context"
	"errors"
	"fmt"

	"flashcard-challenge-service/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChallengeStore keeps challenge aggregates in the embedded database.
type ChallengeStore struct{ db *gorm.DB }

func NewChallengeStore(db *gorm.DB) *ChallengeStore { return &ChallengeStore{db: db} }

func (s *ChallengeStore) Upsert(ctx context.Context, c domain.Challenge) (domain.Challenge, error) {
	row := challengeRow{
		ID:               c.ID,
		DeckID:           c.DeckID,
		UserID:           c.UserID,
		TimesTaken:       c.TimesTaken,
		OverallCorrect:   c.OverallCorrect,
		OverallIncorrect: c.OverallIncorrect,
		OverallAccuracy:  c.OverallAccuracy,
		Status:           string(c.Status),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"deck_id", "user_id", "times_taken", "overall_correct", "overall_incorrect", "overall_accuracy", "status",
		}),
	}).Create(&row).Error
	if err != nil {
		return domain.Challenge{}, fmt.Errorf("upsert challenge: %w", err)
	}
	return c, nil
}

func (s *ChallengeStore) Get(ctx context.Context, id string) (domain.Challenge, error) {
	var row challengeRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Challenge{}, domain.ErrChallengeNotFound
	}
	if err != nil {
		return domain.Challenge{}, fmt.Errorf("load challenge: %w", err)
	}
	return row.toDomain(), nil
}

func (s *ChallengeStore) UpdateAggregate(ctx context.Context, id string, tally domain.Tally, timesTaken int, status domain.ChallengeStatus) (domain.Challenge, error) {
	res := s.db.WithContext(ctx).Model(&challengeRow{}).Where("id = ?", id).Updates(map[string]interface{}{
		"overall_correct":   tally.Correct,
		"overall_incorrect": tally.Incorrect,
		"overall_accuracy":  tally.Accuracy,
		"times_taken":       timesTaken,
		"status":            string(status),
	})
	if res.Error != nil {
		return domain.Challenge{}, fmt.Errorf("update challenge aggregate: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.Challenge{}, domain.ErrChallengeNotFound
	}
	return s.Get(ctx, id)
}

func (s *ChallengeStore) ListCompleted(ctx context.Context, userID string) ([]domain.Challenge, error) {
	var rows []challengeRow
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, string(domain.ChallengeCompleted)).
		Order("created_at, id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list completed challenges: %w", err)
	}
	out := make([]domain.Challenge, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (r challengeRow) toDomain() domain.Challenge {
	return domain.Challenge{
		ID:               r.ID,
		DeckID:           r.DeckID,
		UserID:           r.UserID,
		TimesTaken:       r.TimesTaken,
		OverallCorrect:   r.OverallCorrect,
		OverallIncorrect: r.OverallIncorrect,
		OverallAccuracy:  r.OverallAccuracy,
		Status:           domain.ChallengeStatus(r.Status),
	}
}

// QuestionStore keeps question sets in the embedded database.
type QuestionStore struct{ db *gorm.DB }

func NewQuestionStore(db *gorm.DB) *QuestionStore { return &QuestionStore{db: db} }

func (s *QuestionStore) Upsert(ctx context.Context, q domain.Question) error {
	row := questionRow{
		ID:             q.ID,
		ChallengeID:    q.ChallengeID,
		QuestionNumber: q.QuestionNumber,
		FlashcardID:    q.FlashcardID,
		Question:       q.Prompt,
		ChoiceA:        q.ChoiceA,
		ChoiceB:        q.ChoiceB,
		ChoiceC:        q.ChoiceC,
		ChoiceD:        q.ChoiceD,
		Answer:         q.Answer,
		UserAnswer:     q.UserAnswer,
		Status:         string(q.Status),
		ShuffleIndex:   q.ShuffleIndex,
		CreatedAt:      q.CreatedAt,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert question: %w", err)
	}
	return nil
}

func (s *QuestionStore) ListByChallenge(ctx context.Context, challengeID string) ([]domain.Question, error) {
	var rows []questionRow
	err := s.db.WithContext(ctx).Where("challenge_id = ?", challengeID).Order("question_number").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	out := make([]domain.Question, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *QuestionStore) UpdateAnswer(ctx context.Context, questionID, answer string, status domain.QuestionStatus) (domain.Question, error) {
	var row questionRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&questionRow{}).Where("id = ?", questionID).Updates(map[string]interface{}{
			"user_answer": answer,
			"status":      string(status),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrQuestionNotFound
		}
		return tx.First(&row, "id = ?", questionID).Error
	})
	if errors.Is(err, domain.ErrQuestionNotFound) {
		return domain.Question{}, err
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("update question answer: %w", err)
	}
	return row.toDomain(), nil
}

func (r questionRow) toDomain() domain.Question {
	return domain.Question{
		ID:             r.ID,
		ChallengeID:    r.ChallengeID,
		QuestionNumber: r.QuestionNumber,
		FlashcardID:    r.FlashcardID,
		Prompt:         r.Question,
		ChoiceA:        r.ChoiceA,
		ChoiceB:        r.ChoiceB,
		ChoiceC:        r.ChoiceC,
		ChoiceD:        r.ChoiceD,
		Answer:         r.Answer,
		UserAnswer:     r.UserAnswer,
		Status:         domain.QuestionStatus(r.Status),
		ShuffleIndex:   r.ShuffleIndex,
		CreatedAt:      r.CreatedAt,
	}
}

// HistoryStore appends attempt summaries; rows are never updated.
type HistoryStore struct{ db *gorm.DB }

func NewHistoryStore(db *gorm.DB) *HistoryStore { return &HistoryStore{db: db} }

func (s *HistoryStore) Append(ctx context.Context, h domain.ChallengeHistory) (domain.ChallengeHistory, error) {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	row := historyRow{
		ID:            h.ID,
		ChallengeID:   h.ChallengeID,
		Accuracy:      h.Accuracy,
		Incorrect:     h.Incorrect,
		Correct:       h.Correct,
		AISuggestion:  h.AISuggestion,
		TimeTaken:     h.TimeTaken,
		AttemptNumber: h.AttemptNumber,
		CreatedAt:     h.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.ChallengeHistory{}, fmt.Errorf("insert challenge history: %w", err)
	}
	return h, nil
}

func (s *HistoryStore) ListByChallenges(ctx context.Context, challengeIDs []string) ([]domain.ChallengeHistory, error) {
	if len(challengeIDs) == 0 {
		return nil, nil
	}
	var rows []historyRow
	err := s.db.WithContext(ctx).Where("challenge_id IN ?", challengeIDs).Order("created_at").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list challenge history: %w", err)
	}
	out := make([]domain.ChallengeHistory, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.ChallengeHistory{
			ID:            r.ID,
			ChallengeID:   r.ChallengeID,
			Accuracy:      r.Accuracy,
			Incorrect:     r.Incorrect,
			Correct:       r.Correct,
			AISuggestion:  r.AISuggestion,
			TimeTaken:     r.TimeTaken,
			AttemptNumber: r.AttemptNumber,
			CreatedAt:     r.CreatedAt,
		})
	}
	return out, nil
}

// DeckStore resolves deck names.
type DeckStore struct{ db *gorm.DB }

func NewDeckStore(db *gorm.DB) *DeckStore { return &DeckStore{db: db} }

func (s *DeckStore) Put(ctx context.Context, id, name string) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name"}),
	}).Create(&deckRow{ID: id, Name: name}).Error
	if err != nil {
		return fmt.Errorf("upsert deck: %w", err)
	}
	return nil
}

func (s *DeckStore) DeckNames(ctx context.Context, deckIDs []string) (map[string]string, error) {
	names := make(map[string]string, len(deckIDs))
	if len(deckIDs) == 0 {
		return names, nil
	}
	var rows []deckRow
	if err := s.db.WithContext(ctx).Where("id IN ?", deckIDs).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load deck names: %w", err)
	}
	for _, r := range rows {
		names[r.ID] = r.Name
	}
	return names, nil
}

// UserStore keeps login streaks.
type UserStore struct{ db *gorm.DB }

func NewUserStore(db *gorm.DB) *UserStore { return &UserStore{db: db} }

func (s *UserStore) Streak(ctx context.Context, userID string) (domain.Streak, error) {
	var row userRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Streak{UserID: userID}, nil
	}
	if err != nil {
		return domain.Streak{}, fmt.Errorf("load streak: %w", err)
	}
	return domain.Streak{
		UserID:      row.ID,
		DailyStreak: row.DailyStreak,
		MaxStreak:   row.MaxStreak,
		LastLogin:   row.LastLogin,
	}, nil
}

func (s *UserStore) SaveStreak(ctx context.Context, streak domain.Streak) error {
	row := userRow{
		ID:          streak.UserID,
		DailyStreak: streak.DailyStreak,
		MaxStreak:   streak.MaxStreak,
		LastLogin:   streak.LastLogin,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save streak: %w", err)
	}
	return nil
}
