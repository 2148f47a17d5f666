package app

import (
	"math"
	"time"

	"voice-quiz-service/internal/domain"
)

// Tally is the aggregate score of an attempt.
type Tally struct {
	Score      int
	Total      int
	Percentage float64
}

// Score counts correct answers. The percentage is rounded to the nearest
// integer with halves away from zero.
func Score(answers []domain.AnswerRecord) (Tally, error) {
	total := len(answers)
	if total == 0 {
		return Tally{}, domain.ErrEmptyQuiz
	}
	score := 0
	for _, a := range answers {
		if a.IsCorrect {
			score++
		}
	}
	return Tally{
		Score:      score,
		Total:      total,
		Percentage: math.Round(100 * float64(score) / float64(total)),
	}, nil
}

// BuildResult scores answers and stamps the result.
func BuildResult(quizID, studentID string, answers []domain.AnswerRecord, completedAt time.Time) (domain.Result, error) {
	tally, err := Score(answers)
	if err != nil {
		return domain.Result{}, err
	}
	return domain.Result{
		QuizID:      quizID,
		StudentID:   studentID,
		Score:       tally.Score,
		Total:       tally.Total,
		Percentage:  tally.Percentage,
		Answers:     append([]domain.AnswerRecord(nil), answers...),
		CompletedAt: completedAt,
	}, nil
}

// AverageScore returns the rounded mean percentage, or 0 without results.
func AverageScore(results []domain.Result) float64 {
	if len(results) == 0 {
		return 0
	}
	var sum float64
	for _, r := range results {
		sum += r.Percentage
	}
	return math.Round(sum / float64(len(results)))
}
