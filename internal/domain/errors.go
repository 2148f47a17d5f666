package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidQuiz is returned when a quiz cannot be started or authored (e.g. no questions).
	ErrInvalidQuiz = errors.New("invalid quiz")
	// ErrAlreadySubmitted is returned when an answer was already committed for the current question.
	ErrAlreadySubmitted = errors.New("an option has already been submitted")
	// ErrNotAwaitingConfirmation is returned when a confirmation arrives before an answer was submitted.
	ErrNotAwaitingConfirmation = errors.New("no answer awaiting confirmation")
	// ErrSessionCompleted is returned for any transition after the last question was confirmed.
	ErrSessionCompleted = errors.New("quiz session already completed")
	// ErrEmptyQuiz is returned when scoring zero answers.
	ErrEmptyQuiz = errors.New("cannot score an empty quiz")
	// ErrInvalidOption indicates a letter outside A-D.
	ErrInvalidOption = errors.New("invalid option")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrAttemptNotFound is returned when a student has no active attempt.
	ErrAttemptNotFound = errors.New("no active quiz attempt")
	// ErrForbidden is returned when the viewer may not perform the action.
	ErrForbidden = errors.New("forbidden")
	// ErrDuplicateTitle is returned when a teacher reuses one of their quiz titles.
	ErrDuplicateTitle = errors.New("a quiz with this title already exists")
)

// TransportError wraps failures of the catalog or result store.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ValidationError lists every problem found in a quiz draft.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Problems, "; ")
}

// Is lets callers match validation failures with errors.Is(err, ErrInvalidQuiz).
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidQuiz
}
