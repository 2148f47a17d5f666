package app

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"voice-quiz-service/internal/domain"
)

var titlePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_\s]*$`)

// QuizDraft is a quiz as submitted by its author.
type QuizDraft struct {
	Title       string          `json:"title" validate:"required,quiztitle"`
	Description string          `json:"description"`
	Questions   []QuestionDraft `json:"questions" validate:"min=1"`
}

// QuestionDraft is one authored question.
type QuestionDraft struct {
	Question      string   `json:"question" validate:"required"`
	Options       []string `json:"options" validate:"len=4,unique,dive,required"`
	CorrectAnswer string   `json:"correctAnswer" validate:"required,oneof=A B C D"`
}

func newDraftValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("quiztitle", func(fl validator.FieldLevel) bool {
		return titlePattern.MatchString(fl.Field().String())
	})
	return v
}

// CreateQuiz validates a draft and stores it under the teacher's name.
func (s *QuizService) CreateQuiz(ctx context.Context, viewer domain.Viewer, draft QuizDraft) (domain.Quiz, error) {
	if viewer.Role != domain.RoleTeacher {
		return domain.Quiz{}, domain.ErrForbidden
	}

	draft = trimDraft(draft)
	if err := s.validateDraft(draft); err != nil {
		return domain.Quiz{}, err
	}

	existing, err := s.catalog.ListAvailable(ctx)
	if err != nil {
		return domain.Quiz{}, storeErr("list quizzes", err)
	}
	for _, summary := range existing {
		if summary.CreatedBy == viewer.UserID && summary.Title == draft.Title {
			return domain.Quiz{}, domain.ErrDuplicateTitle
		}
	}

	quiz := domain.Quiz{
		ID:          uuid.NewString(),
		Title:       draft.Title,
		Description: draft.Description,
		CreatedBy:   viewer.UserID,
		CreatedAt:   s.now().UTC(),
		Questions:   make([]domain.Question, 0, len(draft.Questions)),
	}
	for _, q := range draft.Questions {
		quiz.Questions = append(quiz.Questions, domain.Question{
			Text:          q.Question,
			Options:       q.Options,
			CorrectAnswer: domain.Letter(q.CorrectAnswer),
		})
	}

	created, err := s.catalog.Create(ctx, quiz)
	if err != nil {
		return domain.Quiz{}, storeErr("create quiz", err)
	}
	s.log.Info().
		Str("quiz_id", created.ID).
		Str("title", created.Title).
		Int("questions", len(created.Questions)).
		Msg("quiz created")
	return created, nil
}

func trimDraft(d QuizDraft) QuizDraft {
	out := QuizDraft{
		Title:       strings.TrimSpace(d.Title),
		Description: strings.TrimSpace(d.Description),
		Questions:   make([]QuestionDraft, len(d.Questions)),
	}
	for i, q := range d.Questions {
		options := make([]string, len(q.Options))
		for j, o := range q.Options {
			options[j] = strings.TrimSpace(o)
		}
		out.Questions[i] = QuestionDraft{
			Question:      strings.TrimSpace(q.Question),
			Options:       options,
			CorrectAnswer: strings.ToUpper(strings.TrimSpace(q.CorrectAnswer)),
		}
	}
	return out
}

func (s *QuizService) validateDraft(d QuizDraft) error {
	var problems []string

	var verrs validator.ValidationErrors
	if err := s.validate.Struct(d); errors.As(err, &verrs) {
		for _, fe := range verrs {
			problems = append(problems, draftProblem(fe))
		}
	}
	for i, q := range d.Questions {
		if err := s.validate.Struct(q); errors.As(err, &verrs) {
			seen := make(map[string]bool)
			for _, fe := range verrs {
				msg := fmt.Sprintf("Question %d: %s", i+1, questionProblem(fe))
				if !seen[msg] {
					seen[msg] = true
					problems = append(problems, msg)
				}
			}
		}
	}

	if len(problems) > 0 {
		return &domain.ValidationError{Problems: problems}
	}
	return nil
}

func draftProblem(fe validator.FieldError) string {
	switch {
	case fe.Field() == "Title" && fe.Tag() == "required":
		return "Quiz title is required."
	case fe.Field() == "Title":
		return "Quiz title must start with a letter or underscore and contain only letters, numbers, spaces, or underscores."
	case fe.Field() == "Questions":
		return "A quiz needs at least one question."
	default:
		return fmt.Sprintf("%s is invalid.", fe.Field())
	}
}

func questionProblem(fe validator.FieldError) string {
	switch {
	case fe.Field() == "Question":
		return "Question text is required."
	case fe.Field() == "CorrectAnswer":
		return "Please select the correct answer."
	case fe.Tag() == "len":
		return "Exactly 4 options are required."
	case fe.Tag() == "unique":
		return "All options must be unique."
	default:
		return "Options must not be empty."
	}
}
