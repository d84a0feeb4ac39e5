package app

import "mcq-quiz-service/internal/domain"

// Score counts the positions where the answer matches the question's correct option.
// Answers align with questions by position, so questions must be in the order the
// participant saw them.
func Score(answers []domain.OptionKey, questions []domain.Question) domain.ScoreSummary {
	correct := 0
	for i := 0; i < len(answers) && i < len(questions); i++ {
		if isCorrect(answers[i], questions[i]) {
			correct++
		}
	}
	return summarize(correct, len(questions))
}

// Grade scores like Score and also describes every question position.
// Positions past the end of answers are reported as unanswered.
func Grade(answers []domain.OptionKey, questions []domain.Question) (domain.ScoreSummary, []domain.AnswerDetail) {
	details := make([]domain.AnswerDetail, 0, len(questions))
	correct := 0
	for i, q := range questions {
		answer := domain.NoAnswer
		if i < len(answers) {
			answer = answers[i]
		}
		key, _ := q.CorrectKey()
		ok := isCorrect(answer, q)
		if ok {
			correct++
		}
		details = append(details, domain.AnswerDetail{
			QuestionNumber:    i + 1,
			QuestionID:        q.ID,
			QuestionText:      q.Prompt,
			UserAnswer:        answer,
			UserAnswerText:    q.Options.Text(answer),
			CorrectAnswer:     key,
			CorrectAnswerText: q.CorrectAnswer,
			IsCorrect:         ok,
			Options:           q.Options,
		})
	}
	return summarize(correct, len(questions)), details
}

// Percentage rounds 100*correct/total half up. A zero total yields 0.
func Percentage(correct, total int) int {
	if total <= 0 || correct <= 0 {
		return 0
	}
	if correct >= total {
		return 100
	}
	return (200*correct + total) / (2 * total)
}

func isCorrect(answer domain.OptionKey, q domain.Question) bool {
	if answer == domain.NoAnswer {
		return false
	}
	key, ok := q.CorrectKey()
	return ok && answer == key
}

func summarize(correct, total int) domain.ScoreSummary {
	return domain.ScoreSummary{
		Correct:    correct,
		Total:      total,
		Percentage: Percentage(correct, total),
	}
}
