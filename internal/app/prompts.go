package app

import (
	"fmt"
	"strings"

	"voice-quiz-service/internal/domain"
)

const (
	alreadySubmittedSpeech = "An option has already been submitted. You cannot change your answer."
	stayingSpeech          = `Staying on current question. Say "repeat question" or "repeat options" if needed.`
	proceedQuestion        = "Do you want to proceed to the next question? Say yes or no."
)

func questionPrompt(number, total int, q domain.Question) string {
	return fmt.Sprintf("Question %d of %d: %s", number, total, q.Text)
}

func optionsPrompt(q domain.Question) string {
	var b strings.Builder
	b.WriteString("The options are: ")
	for i, text := range q.Options {
		if i >= domain.OptionCount {
			break
		}
		fmt.Fprintf(&b, "Option %s: %s. ", domain.Letters[i], text)
	}
	return b.String()
}

func feedbackPrompt(outcome domain.AnswerOutcome) string {
	if outcome.IsCorrect {
		return "Correct! " + proceedQuestion
	}
	return fmt.Sprintf("Incorrect. The correct answer is option %s. %s", outcome.Correct, proceedQuestion)
}

func completionPrompt(r domain.Result) string {
	return fmt.Sprintf("Quiz completed! You scored %d out of %d questions correctly. Your percentage is %.0f percent.",
		r.Score, r.Total, r.Percentage)
}
