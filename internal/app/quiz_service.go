package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"voice-quiz-service/internal/domain"
)

// QuizCatalog stores authored quizzes (in-memory, Postgres, cached, etc).
type QuizCatalog interface {
	ListAvailable(ctx context.Context) ([]domain.QuizSummary, error)
	Get(ctx context.Context, quizID string) (domain.Quiz, error)
	Create(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error)
	Delete(ctx context.Context, quizID string) error
}

// ResultStore keeps the latest result per (student, quiz).
type ResultStore interface {
	RecordResult(ctx context.Context, studentID, quizID string, result domain.Result) error
	ResultsForStudent(ctx context.Context, studentID string) ([]domain.Result, error)
	ResultsForQuiz(ctx context.Context, quizID string) ([]domain.Result, error)
	DeleteForQuiz(ctx context.Context, quizID string) error
}

// AttemptRepository tracks the single active attempt of each student.
type AttemptRepository interface {
	// Put registers the attempt and returns the one it replaced, if any.
	Put(studentID string, attempt *Attempt) *Attempt
	Get(studentID string) (*Attempt, bool)
	// Delete removes the entry only if it still refers to attempt.
	Delete(studentID string, attempt *Attempt)
	// Touch records activity on attempt, if it is still the registered one.
	Touch(studentID string, attempt *Attempt)
}

// QuizService contains the quiz-taking and authoring use cases.
type QuizService struct {
	catalog  QuizCatalog
	results  ResultStore
	attempts AttemptRepository
	validate *validator.Validate
	log      zerolog.Logger
	now      func() time.Time
}

func NewQuizService(catalog QuizCatalog, results ResultStore, attempts AttemptRepository, log zerolog.Logger) *QuizService {
	return NewQuizServiceWithClock(catalog, results, attempts, log, time.Now)
}

// NewQuizServiceWithClock is test-only for deterministic timestamps.
func NewQuizServiceWithClock(catalog QuizCatalog, results ResultStore, attempts AttemptRepository, log zerolog.Logger, now func() time.Time) *QuizService {
	return &QuizService{
		catalog:  catalog,
		results:  results,
		attempts: attempts,
		validate: newDraftValidator(),
		log:      log.With().Str("component", "quiz_service").Logger(),
		now:      now,
	}
}

// StartAttempt begins (or restarts) a student's attempt at a quiz. Any other
// attempt the student had in flight is discarded without a result.
func (s *QuizService) StartAttempt(ctx context.Context, studentID, quizID string) (*Attempt, domain.SessionUpdate, error) {
	quiz, err := s.catalog.Get(ctx, quizID)
	if err != nil {
		return nil, domain.SessionUpdate{}, storeErr("load quiz", err)
	}

	session, err := startSessionWithClock(quiz, studentID, s.now)
	if err != nil {
		return nil, domain.SessionUpdate{}, err
	}
	first := session.Presented()

	attempt := newAttempt(session, s.results, s.log, s.finish, s.touch)
	if previous := s.attempts.Put(studentID, attempt); previous != nil {
		s.log.Info().Str("student_id", studentID).Str("attempt_id", previous.ID()).Msg("discarding unfinished attempt")
		previous.Close()
	}
	s.log.Info().Str("student_id", studentID).Str("quiz_id", quizID).Str("attempt_id", attempt.ID()).Msg("attempt started")
	return attempt, first, nil
}

// Attempt returns the student's active attempt.
func (s *QuizService) Attempt(studentID string) (*Attempt, error) {
	attempt, ok := s.attempts.Get(studentID)
	if !ok {
		return nil, domain.ErrAttemptNotFound
	}
	return attempt, nil
}

// Leave tears the attempt down, e.g. when the student navigates away.
func (s *QuizService) Leave(studentID string, attempt *Attempt) {
	attempt.Close()
	s.attempts.Delete(studentID, attempt)
}

func (s *QuizService) finish(attempt *Attempt) {
	s.attempts.Delete(attempt.StudentID(), attempt)
}

func (s *QuizService) touch(attempt *Attempt) {
	s.attempts.Touch(attempt.StudentID(), attempt)
}

// SubmitAnswers scores a whole quiz answered without the voice flow, e.g. a
// form post. Missing or unknown answers count as incorrect.
func (s *QuizService) SubmitAnswers(ctx context.Context, viewer domain.Viewer, quizID string, answers []string) (domain.Result, error) {
	if viewer.Role != domain.RoleStudent {
		return domain.Result{}, domain.ErrForbidden
	}
	quiz, err := s.catalog.Get(ctx, quizID)
	if err != nil {
		return domain.Result{}, storeErr("load quiz", err)
	}
	if len(quiz.Questions) == 0 {
		return domain.Result{}, fmt.Errorf("%w: quiz %q has no questions", domain.ErrInvalidQuiz, quizID)
	}

	records := make([]domain.AnswerRecord, len(quiz.Questions))
	for i, q := range quiz.Questions {
		var selected domain.Letter
		if i < len(answers) {
			if l, err := domain.ParseLetter(answers[i]); err == nil {
				selected = l
			}
		}
		records[i] = domain.AnswerRecord{
			Selected:  selected,
			Correct:   q.CorrectAnswer,
			IsCorrect: selected != "" && selected == q.CorrectAnswer,
		}
	}

	result, err := BuildResult(quizID, viewer.UserID, records, s.now().UTC())
	if err != nil {
		return domain.Result{}, err
	}
	if err := s.results.RecordResult(ctx, viewer.UserID, quizID, result); err != nil {
		return domain.Result{}, storeErr("record result", err)
	}
	s.log.Info().
		Str("student_id", viewer.UserID).
		Str("quiz_id", quizID).
		Int("score", result.Score).
		Int("total", result.Total).
		Msg("quiz submitted")
	return result, nil
}

// GetQuiz returns a quiz; students never see the correct answers.
func (s *QuizService) GetQuiz(ctx context.Context, viewer domain.Viewer, quizID string) (domain.Quiz, error) {
	quiz, err := s.catalog.Get(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, storeErr("load quiz", err)
	}
	if viewer.Role != domain.RoleTeacher {
		return quiz.WithoutAnswers(), nil
	}
	return quiz, nil
}

// ListQuizzes returns a teacher's own quizzes with attempt counts, or every
// quiz with the student's has-attempted flag.
func (s *QuizService) ListQuizzes(ctx context.Context, viewer domain.Viewer) ([]domain.QuizSummary, error) {
	all, err := s.catalog.ListAvailable(ctx)
	if err != nil {
		return nil, storeErr("list quizzes", err)
	}

	if viewer.Role == domain.RoleTeacher {
		own := make([]domain.QuizSummary, 0, len(all))
		for _, summary := range all {
			if summary.CreatedBy != viewer.UserID {
				continue
			}
			results, err := s.results.ResultsForQuiz(ctx, summary.ID)
			if err != nil {
				return nil, storeErr("list results", err)
			}
			attempts := len(results)
			summary.Attempts = &attempts
			own = append(own, summary)
		}
		return own, nil
	}

	taken, err := s.results.ResultsForStudent(ctx, viewer.UserID)
	if err != nil {
		return nil, storeErr("list results", err)
	}
	attempted := make(map[string]bool, len(taken))
	for _, r := range taken {
		attempted[r.QuizID] = true
	}
	for i := range all {
		has := attempted[all[i].ID]
		all[i].HasAttempted = &has
	}
	return all, nil
}

// DeleteQuiz removes a quiz and every result recorded for it. Only the
// author may delete.
func (s *QuizService) DeleteQuiz(ctx context.Context, viewer domain.Viewer, quizID string) error {
	quiz, err := s.catalog.Get(ctx, quizID)
	if err != nil {
		return storeErr("load quiz", err)
	}
	if viewer.Role != domain.RoleTeacher || quiz.CreatedBy != viewer.UserID {
		return domain.ErrForbidden
	}
	if err := s.catalog.Delete(ctx, quizID); err != nil {
		return storeErr("delete quiz", err)
	}
	if err := s.results.DeleteForQuiz(ctx, quizID); err != nil {
		return storeErr("delete results", err)
	}
	s.log.Info().Str("quiz_id", quizID).Str("title", quiz.Title).Msg("quiz deleted")
	return nil
}

// StudentResults lists the latest result of every quiz the student took,
// labelled with the quiz title.
func (s *QuizService) StudentResults(ctx context.Context, studentID string) ([]domain.Result, error) {
	results, err := s.results.ResultsForStudent(ctx, studentID)
	if err != nil {
		return nil, storeErr("list results", err)
	}
	if len(results) == 0 {
		return results, nil
	}
	quizzes, err := s.catalog.ListAvailable(ctx)
	if err != nil {
		return nil, storeErr("list quizzes", err)
	}
	titles := make(map[string]string, len(quizzes))
	for _, q := range quizzes {
		titles[q.ID] = q.Title
	}
	for i := range results {
		results[i].QuizTitle = titles[results[i].QuizID]
	}
	return results, nil
}

// TeacherReports aggregates results for each quiz the teacher authored.
func (s *QuizService) TeacherReports(ctx context.Context, teacherID string) ([]domain.QuizReport, error) {
	quizzes, err := s.ListQuizzes(ctx, domain.Viewer{UserID: teacherID, Role: domain.RoleTeacher})
	if err != nil {
		return nil, err
	}
	reports := make([]domain.QuizReport, 0, len(quizzes))
	for _, summary := range quizzes {
		results, err := s.results.ResultsForQuiz(ctx, summary.ID)
		if err != nil {
			return nil, storeErr("list results", err)
		}
		reports = append(reports, domain.QuizReport{
			Quiz:         summary,
			Results:      results,
			AverageScore: AverageScore(results),
		})
	}
	return reports, nil
}

// storeErr passes domain errors through and wraps everything else as a
// transport failure.
func storeErr(op string, err error) error {
	var transport *domain.TransportError
	switch {
	case errors.As(err, &transport),
		errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrInvalidQuiz),
		errors.Is(err, domain.ErrForbidden),
		errors.Is(err, domain.ErrDuplicateTitle),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return &domain.TransportError{Op: op, Err: err}
}
