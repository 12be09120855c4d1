package domain

import "time"

// ChallengeStatus is the lifecycle state of a challenge record.
type ChallengeStatus string

const (
	ChallengeStarted   ChallengeStatus = "started"
	ChallengeCompleted ChallengeStatus = "completed"
)

// QuestionStatus tracks whether the user has answered a question.
type QuestionStatus string

const (
	QuestionNotCompleted QuestionStatus = "not completed"
	QuestionCompleted    QuestionStatus = "completed"
)

// Mode selects how an attempt is driven.
type Mode string

const (
	ModeStandard Mode = "standard"
	ModeTimed    Mode = "timed"
)

// ParseMode falls back to standard for anything it does not recognise.
func ParseMode(raw string) Mode {
	if Mode(raw) == ModeTimed {
		return ModeTimed
	}
	return ModeStandard
}

// Slot names one of the four fixed answer-choice columns of a question.
type Slot string

const (
	SlotA Slot = "choice_a"
	SlotB Slot = "choice_b"
	SlotC Slot = "choice_c"
	SlotD Slot = "choice_d"
)

// Slots lists the choice columns in display order.
var Slots = []Slot{SlotA, SlotB, SlotC, SlotD}

// MissingChoice fills a choice column the generator left empty.
const MissingChoice = "NA"

// Challenge is one quiz attempt instance tied to a deck and an owner.
type Challenge struct {
	ID               string          `json:"id"`
	DeckID           string          `json:"deck_id"`
	UserID           string          `json:"user_id"`
	TimesTaken       int             `json:"times_taken"`
	OverallCorrect   int             `json:"overall_correct"`
	OverallIncorrect int             `json:"overall_incorrect"`
	OverallAccuracy  float64         `json:"overall_accuracy"`
	Status           ChallengeStatus `json:"status"`
}

// Question is a member of the question set owned by one challenge.
type Question struct {
	ID             string         `json:"id"`
	ChallengeID    string         `json:"challenge_id"`
	QuestionNumber int            `json:"question_number"`
	FlashcardID    string         `json:"flashcard_id"`
	Prompt         string         `json:"question"`
	ChoiceA        string         `json:"choice_a"`
	ChoiceB        string         `json:"choice_b"`
	ChoiceC        string         `json:"choice_c"`
	ChoiceD        string         `json:"choice_d"`
	Answer         string         `json:"answer"` // slot name of the correct choice
	UserAnswer     *string        `json:"user_answer"`
	Status         QuestionStatus `json:"status"`
	ShuffleIndex   int            `json:"shuffle_index"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Choice returns the text stored in the given slot.
func (q Question) Choice(slot Slot) (string, bool) {
	switch slot {
	case SlotA:
		return q.ChoiceA, true
	case SlotB:
		return q.ChoiceB, true
	case SlotC:
		return q.ChoiceC, true
	case SlotD:
		return q.ChoiceD, true
	}
	return "", false
}

// Completed reports whether the user has answered the question.
func (q Question) Completed() bool {
	return q.Status == QuestionCompleted && q.UserAnswer != nil
}

// WithDefaultChoices fills empty choice columns with MissingChoice.
func (q Question) WithDefaultChoices() Question {
	for _, c := range []*string{&q.ChoiceA, &q.ChoiceB, &q.ChoiceC, &q.ChoiceD} {
		if *c == "" {
			*c = MissingChoice
		}
	}
	return q
}

// ChallengeHistory is an append-only summary of one completed attempt.
type ChallengeHistory struct {
	ID            string    `json:"id"`
	ChallengeID   string    `json:"challenge_id"`
	Accuracy      float64   `json:"accuracy"`
	Incorrect     int       `json:"incorrect"`
	Correct       int       `json:"correct"`
	AISuggestion  string    `json:"ai_suggestion"`
	TimeTaken     int       `json:"time_taken"`
	AttemptNumber int       `json:"attempt_number"`
	CreatedAt     time.Time `json:"created_at"`
}

// UnknownDeck labels history rows whose deck could not be resolved.
const UnknownDeck = "Unknown Deck"

// HistoryView is a history row joined with the name of the challenged deck.
type HistoryView struct {
	ChallengeHistory
	DeckName string `json:"deck_name"`
}

// Tally is the scoring outcome of one attempt.
type Tally struct {
	Correct   int     `json:"correct"`
	Incorrect int     `json:"incorrect"`
	Accuracy  float64 `json:"accuracy"`
}

// Flashcard is a card as stored by the deck service.
type Flashcard struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	DeckID    string    `json:"deck_id"`
	FrontText string    `json:"front_text"`
	BackText  string    `json:"back_text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FlashcardProjection is the only flashcard shape handed to the question generator.
// Owner, deck and timestamps never leave the service.
type FlashcardProjection struct {
	ID        string `json:"id"`
	FrontText string `json:"front_text"`
	BackText  string `json:"back_text"`
}

// Project strips the owner-identifying fields of a flashcard.
func (f Flashcard) Project() FlashcardProjection {
	return FlashcardProjection{ID: f.ID, FrontText: f.FrontText, BackText: f.BackText}
}

// GeneratedQuestion is one question as returned by the generation service.
type GeneratedQuestion struct {
	FlashcardID string `json:"flashcard_id"`
	Question    string `json:"question"`
	ChoiceA     string `json:"choice_a"`
	ChoiceB     string `json:"choice_b"`
	ChoiceC     string `json:"choice_c"`
	ChoiceD     string `json:"choice_d"`
	Answer      string `json:"answer"`
}

// AnsweredQuestion is a scored question as handed to the suggestion generator.
type AnsweredQuestion struct {
	Question      string `json:"question"`
	UserAnswer    string `json:"user_answer"`
	CorrectAnswer string `json:"correct_answer"`
	Correct       bool   `json:"correct"`
}

// Streak tracks consecutive login days for a user.
type Streak struct {
	UserID      string     `json:"user_id"`
	DailyStreak int        `json:"daily_streak"`
	MaxStreak   int        `json:"max_streak"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
}
