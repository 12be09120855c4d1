package sqlite

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open opens the embedded database at path and migrates its schema.
// ":memory:" gives a private in-memory database.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	// sqlite allows a single writer; one connection also keeps :memory: shared
	sqlDB.SetMaxOpenConns(1)

	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&challengeRow{},
		&questionRow{},
		&historyRow{},
		&deckRow{},
		&userRow{},
	); err != nil {
		return fmt.Errorf("migrate sqlite: %w", err)
	}
	return nil
}

type challengeRow struct {
	ID               string  `gorm:"primaryKey;size:64"`
	DeckID           string  `gorm:"not null"`
	UserID           string  `gorm:"index;not null"`
	TimesTaken       int     `gorm:"not null;default:0"`
	OverallCorrect   int     `gorm:"not null;default:0"`
	OverallIncorrect int     `gorm:"not null;default:0"`
	OverallAccuracy  float64 `gorm:"not null;default:0"`
	Status           string  `gorm:"size:16;not null"`
	CreatedAt        time.Time
}

func (challengeRow) TableName() string { return "challenges" }

type questionRow struct {
	ID             string `gorm:"primaryKey;size:64"`
	ChallengeID    string `gorm:"index;not null"`
	QuestionNumber int    `gorm:"not null"`
	FlashcardID    string
	Question       string `gorm:"not null"`
	ChoiceA        string `gorm:"not null"`
	ChoiceB        string `gorm:"not null"`
	ChoiceC        string `gorm:"not null"`
	ChoiceD        string `gorm:"not null"`
	Answer         string `gorm:"not null"`
	UserAnswer     *string
	Status         string `gorm:"size:16;not null"`
	ShuffleIndex   int    `gorm:"not null"`
	CreatedAt      time.Time
}

func (questionRow) TableName() string { return "questions" }

type historyRow struct {
	ID            string  `gorm:"primaryKey;size:36"`
	ChallengeID   string  `gorm:"uniqueIndex:history_attempt;not null"`
	Accuracy      float64 `gorm:"not null"`
	Incorrect     int     `gorm:"not null"`
	Correct       int     `gorm:"not null"`
	AISuggestion  string  `gorm:"not null;default:''"`
	TimeTaken     int     `gorm:"not null"`
	AttemptNumber int     `gorm:"uniqueIndex:history_attempt;not null"`
	CreatedAt     time.Time
}

func (historyRow) TableName() string { return "challenge_history" }

type deckRow struct {
	ID   string `gorm:"primaryKey;size:64"`
	Name string `gorm:"not null"`
}

func (deckRow) TableName() string { return "decks" }

type userRow struct {
	ID          string `gorm:"primaryKey;size:64"`
	DailyStreak int    `gorm:"not null;default:0"`
	MaxStreak   int    `gorm:"not null;default:0"`
	LastLogin   *time.Time
}

func (userRow) TableName() string { return "users" }
