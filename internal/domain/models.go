package domain

import (
	"fmt"
	"strings"
	"time"
)

// Letter identifies one of the four answer options.
type Letter string

const (
	LetterA Letter = "A"
	LetterB Letter = "B"
	LetterC Letter = "C"
	LetterD Letter = "D"
)

// Letters lists the option letters in presentation order.
var Letters = []Letter{LetterA, LetterB, LetterC, LetterD}

// OptionCount is the fixed number of options per question.
const OptionCount = 4

// ParseLetter accepts "a".."d" in any case.
func ParseLetter(raw string) (Letter, error) {
	l := Letter(strings.ToUpper(strings.TrimSpace(raw)))
	if l.Index() < 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidOption, raw)
	}
	return l, nil
}

// Index returns the option position for the letter, or -1 if it is not A-D.
func (l Letter) Index() int {
	for i, candidate := range Letters {
		if candidate == l {
			return i
		}
	}
	return -1
}

// Question models an MCQ question with exactly four options.
type Question struct {
	Text          string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer Letter   `json:"correctAnswer,omitempty"`
}

// Option returns the option text for a letter.
func (q Question) Option(l Letter) string {
	i := l.Index()
	if i < 0 || i >= len(q.Options) {
		return ""
	}
	return q.Options[i]
}

// Quiz is an ordered collection of questions. Quizzes are immutable once created.
type Quiz struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Questions   []Question `json:"questions"`
	CreatedBy   string     `json:"createdBy"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Summary projects the quiz onto its listing view.
func (q Quiz) Summary() QuizSummary {
	return QuizSummary{
		ID:            q.ID,
		Title:         q.Title,
		Description:   q.Description,
		CreatedBy:     q.CreatedBy,
		CreatedAt:     q.CreatedAt,
		QuestionCount: len(q.Questions),
	}
}

// WithoutAnswers returns a copy safe to hand to students.
func (q Quiz) WithoutAnswers() Quiz {
	out := q
	out.Questions = make([]Question, len(q.Questions))
	for i, question := range q.Questions {
		out.Questions[i] = Question{
			Text:    question.Text,
			Options: append([]string(nil), question.Options...),
		}
	}
	return out
}

// QuizSummary is the listing view of a quiz.
type QuizSummary struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	CreatedBy     string    `json:"createdBy"`
	CreatedAt     time.Time `json:"createdAt"`
	QuestionCount int       `json:"questionCount"`
	Attempts      *int      `json:"attempts,omitempty"`
	HasAttempted  *bool     `json:"hasAttempted,omitempty"`
}

// AnswerRecord is the committed answer for one question.
type AnswerRecord struct {
	Selected  Letter `json:"selected"`
	Correct   Letter `json:"correct"`
	IsCorrect bool   `json:"isCorrect"`
}

// Result is the immutable outcome of a completed attempt. One is kept per (student, quiz).
// QuizTitle is filled in for listings and is not stored.
type Result struct {
	QuizID      string         `json:"quizId"`
	QuizTitle   string         `json:"quizTitle,omitempty"`
	StudentID   string         `json:"studentId"`
	Score       int            `json:"score"`
	Total       int            `json:"total"`
	Percentage  float64        `json:"percentage"`
	Answers     []AnswerRecord `json:"answers"`
	CompletedAt time.Time      `json:"completedAt"`
}

// QuizReport aggregates the results of one quiz for its author.
type QuizReport struct {
	Quiz         QuizSummary `json:"quiz"`
	Results      []Result    `json:"results"`
	AverageScore float64     `json:"averageScore"`
}

// Role distinguishes quiz authors from quiz takers.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// Viewer is the identity a request acts on behalf of.
type Viewer struct {
	UserID string
	Role   Role
}
