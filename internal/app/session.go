package app

import (
	"fmt"
	"time"

	"voice-quiz-service/internal/domain"
)

// Session is the state machine for one student's run through a quiz.
// It is not safe for concurrent use; Attempt serializes access to it.
type Session struct {
	quiz      domain.Quiz
	studentID string
	now       func() time.Time

	index   int
	phase   domain.Phase
	answers []domain.AnswerRecord
	result  *domain.Result
}

// StartSession begins a session on the first question.
func StartSession(quiz domain.Quiz, studentID string) (*Session, error) {
	return startSessionWithClock(quiz, studentID, time.Now)
}

// startSessionWithClock allows deterministic completion timestamps in tests.
func startSessionWithClock(quiz domain.Quiz, studentID string, now func() time.Time) (*Session, error) {
	if len(quiz.Questions) == 0 {
		return nil, fmt.Errorf("%w: quiz %q has no questions", domain.ErrInvalidQuiz, quiz.ID)
	}
	return &Session{
		quiz:      quiz,
		studentID: studentID,
		now:       now,
		phase:     domain.PhaseAwaitingAnswer,
		answers:   make([]domain.AnswerRecord, 0, len(quiz.Questions)),
	}, nil
}

func (s *Session) Quiz() domain.Quiz   { return s.quiz }
func (s *Session) StudentID() string   { return s.studentID }
func (s *Session) Phase() domain.Phase { return s.phase }
func (s *Session) CurrentIndex() int   { return s.index }
func (s *Session) QuestionCount() int  { return len(s.quiz.Questions) }

// Answers returns a copy of the committed answers.
func (s *Session) Answers() []domain.AnswerRecord {
	return append([]domain.AnswerRecord(nil), s.answers...)
}

// Result is set once the session completes.
func (s *Session) Result() (domain.Result, bool) {
	if s.result == nil {
		return domain.Result{}, false
	}
	return *s.result, true
}

// CurrentQuestion is only valid before completion.
func (s *Session) CurrentQuestion() (domain.Question, error) {
	if s.phase == domain.PhaseCompleted {
		return domain.Question{}, domain.ErrSessionCompleted
	}
	return s.quiz.Questions[s.index], nil
}

// QuestionPrompt is the spoken form of the current question.
func (s *Session) QuestionPrompt() (string, error) {
	q, err := s.CurrentQuestion()
	if err != nil {
		return "", err
	}
	return questionPrompt(s.index+1, len(s.quiz.Questions), q), nil
}

// OptionsPrompt is the spoken list of the current options.
func (s *Session) OptionsPrompt() (string, error) {
	q, err := s.CurrentQuestion()
	if err != nil {
		return "", err
	}
	return optionsPrompt(q), nil
}

// RepeatCurrentPrompt re-renders the question followed by its options.
func (s *Session) RepeatCurrentPrompt() (string, error) {
	question, err := s.QuestionPrompt()
	if err != nil {
		return "", err
	}
	options, _ := s.OptionsPrompt()
	return question + " " + options, nil
}

// Presented is the update announcing the current question.
func (s *Session) Presented() domain.SessionUpdate {
	if s.phase == domain.PhaseCompleted {
		return s.completedUpdate()
	}
	speech, _ := s.RepeatCurrentPrompt()
	return domain.SessionUpdate{
		Kind:            domain.UpdateQuestion,
		Phase:           s.phase,
		CurrentQuestion: s.view(),
		Speech:          speech,
	}
}

// SubmitAnswer commits the answer for the current question. An answer can be
// submitted once; later attempts are rejected without touching state.
func (s *Session) SubmitAnswer(letter domain.Letter) (domain.SessionUpdate, error) {
	switch s.phase {
	case domain.PhaseCompleted:
		return s.rejected(domain.ErrSessionCompleted, ""), domain.ErrSessionCompleted
	case domain.PhaseAwaitingConfirmation:
		return s.rejected(domain.ErrAlreadySubmitted, alreadySubmittedSpeech), domain.ErrAlreadySubmitted
	}
	question := s.quiz.Questions[s.index]
	if question.Option(letter) == "" {
		err := fmt.Errorf("%w: %q", domain.ErrInvalidOption, letter)
		return s.rejected(err, ""), err
	}

	record := domain.AnswerRecord{
		Selected:  letter,
		Correct:   question.CorrectAnswer,
		IsCorrect: letter == question.CorrectAnswer,
	}
	s.answers = append(s.answers, record)
	s.phase = domain.PhaseAwaitingConfirmation

	outcome := domain.AnswerOutcome{
		Selected:  record.Selected,
		Correct:   record.Correct,
		IsCorrect: record.IsCorrect,
	}
	return domain.SessionUpdate{
		Kind:            domain.UpdateOutcome,
		Phase:           s.phase,
		CurrentQuestion: s.view(),
		LastOutcome:     &outcome,
		Speech:          feedbackPrompt(outcome),
	}, nil
}

// ConfirmAdvance moves past the answered question when confirmed. Declining
// keeps the session on the same question with the answer still committed.
func (s *Session) ConfirmAdvance(confirmed bool) (domain.SessionUpdate, error) {
	switch s.phase {
	case domain.PhaseCompleted:
		return s.rejected(domain.ErrSessionCompleted, ""), domain.ErrSessionCompleted
	case domain.PhaseAwaitingAnswer:
		return s.rejected(domain.ErrNotAwaitingConfirmation, ""), domain.ErrNotAwaitingConfirmation
	}

	if !confirmed {
		return domain.SessionUpdate{
			Kind:            domain.UpdateStaying,
			Phase:           s.phase,
			CurrentQuestion: s.view(),
			Speech:          stayingSpeech,
		}, nil
	}

	s.index++
	if s.index < len(s.quiz.Questions) {
		s.phase = domain.PhaseAwaitingAnswer
		return s.Presented(), nil
	}

	result, err := BuildResult(s.quiz.ID, s.studentID, s.answers, s.now())
	if err != nil {
		// Unreachable while the started-quiz invariant holds; stay put.
		s.index--
		return s.rejected(err, ""), err
	}
	s.phase = domain.PhaseCompleted
	s.result = &result
	return s.completedUpdate(), nil
}

// Apply dispatches an intent to the matching transition.
func (s *Session) Apply(intent domain.Intent) (domain.SessionUpdate, error) {
	switch intent.Kind {
	case domain.IntentSelectOption:
		return s.SubmitAnswer(intent.Letter)
	case domain.IntentConfirm:
		return s.ConfirmAdvance(intent.Confirmed)
	case domain.IntentRepeatQuestion:
		return s.repeat(s.QuestionPrompt)
	case domain.IntentRepeatOptions:
		return s.repeat(s.OptionsPrompt)
	default:
		err := fmt.Errorf("unsupported intent %v", intent.Kind)
		return s.rejected(err, ""), err
	}
}

func (s *Session) repeat(prompt func() (string, error)) (domain.SessionUpdate, error) {
	speech, err := prompt()
	if err != nil {
		return s.rejected(err, ""), err
	}
	return domain.SessionUpdate{
		Kind:            domain.UpdateRepeat,
		Phase:           s.phase,
		CurrentQuestion: s.view(),
		Speech:          speech,
	}, nil
}

func (s *Session) completedUpdate() domain.SessionUpdate {
	result := *s.result
	return domain.SessionUpdate{
		Kind:        domain.UpdateCompleted,
		Phase:       s.phase,
		FinalResult: &result,
		Speech:      completionPrompt(result),
	}
}

func (s *Session) rejected(err error, speech string) domain.SessionUpdate {
	return domain.SessionUpdate{
		Kind:            domain.UpdateRejected,
		Phase:           s.phase,
		CurrentQuestion: s.view(),
		Speech:          speech,
		Message:         err.Error(),
	}
}

func (s *Session) view() *domain.QuestionView {
	if s.phase == domain.PhaseCompleted {
		return nil
	}
	q := s.quiz.Questions[s.index]
	return &domain.QuestionView{
		Number:  s.index + 1,
		Total:   len(s.quiz.Questions),
		Text:    q.Text,
		Options: append([]string(nil), q.Options...),
	}
}
