package app

import "flashcard-challenge-service/internal/domain"

// Score tallies an attempt. A question counts as correct when the submitted
// choice equals the text held in the slot named by the question's answer.
func Score(questions []domain.Question) domain.Tally {
	total := len(questions)
	correct := 0
	for _, q := range questions {
		if IsCorrect(q) {
			correct++
		}
	}

	tally := domain.Tally{Correct: correct, Incorrect: total - correct}
	if total > 0 {
		tally.Accuracy = float64(correct) / float64(total)
	}
	return tally
}

// CorrectChoice resolves the answer reference of q to the text it points at.
// An answer that is not a slot name is taken literally.
func CorrectChoice(q domain.Question) string {
	if text, ok := q.Choice(domain.Slot(q.Answer)); ok {
		return text
	}
	return q.Answer
}

// Review lists every question with the submitted and the correct choice text.
// Unanswered questions carry an empty user answer.
func Review(questions []domain.Question) []domain.AnsweredQuestion {
	out := make([]domain.AnsweredQuestion, 0, len(questions))
	for _, q := range questions {
		submitted := ""
		if q.UserAnswer != nil {
			submitted = *q.UserAnswer
			if text, ok := q.Choice(domain.Slot(submitted)); ok {
				submitted = text
			}
		}
		out = append(out, domain.AnsweredQuestion{
			Question:      q.Prompt,
			UserAnswer:    submitted,
			CorrectAnswer: CorrectChoice(q),
			Correct:       IsCorrect(q),
		})
	}
	return out
}

// IsCorrect reports whether the stored user answer matches the correct choice.
// Clients may submit either the choice text or the slot name.
func IsCorrect(q domain.Question) bool {
	if q.UserAnswer == nil {
		return false
	}
	submitted := *q.UserAnswer
	if text, ok := q.Choice(domain.Slot(submitted)); ok {
		submitted = text
	}
	return submitted == CorrectChoice(q)
}

// normalizeAnswer maps an answer onto a slot name. Generators sometimes echo
// the choice text instead of the slot; anything that matches neither, or that
// names a slot holding no choice, is rejected.
func normalizeAnswer(q domain.Question) (string, bool) {
	if text, ok := q.Choice(domain.Slot(q.Answer)); ok {
		// a slot left empty by the generator cannot hold the answer
		if text == domain.MissingChoice || text == "" {
			return "", false
		}
		return q.Answer, true
	}
	for _, slot := range domain.Slots {
		if text, _ := q.Choice(slot); text == q.Answer && text != domain.MissingChoice {
			return string(slot), true
		}
	}
	return "", false
}
