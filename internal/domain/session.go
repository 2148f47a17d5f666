package domain

import "fmt"

// Phase is the state of a quiz-taking session.
type Phase int

const (
	PhaseAwaitingAnswer Phase = iota
	PhaseAwaitingConfirmation
	PhaseCompleted
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingAnswer:
		return "awaiting_answer"
	case PhaseAwaitingConfirmation:
		return "awaiting_confirmation"
	case PhaseCompleted:
		return "completed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	switch string(text) {
	case "awaiting_answer":
		*p = PhaseAwaitingAnswer
	case "awaiting_confirmation":
		*p = PhaseAwaitingConfirmation
	case "completed":
		*p = PhaseCompleted
	default:
		return fmt.Errorf("unknown phase %q", text)
	}
	return nil
}

// IntentKind enumerates the normalized user actions.
type IntentKind int

const (
	IntentSelectOption IntentKind = iota + 1
	IntentRepeatQuestion
	IntentRepeatOptions
	IntentConfirm
)

func (k IntentKind) String() string {
	switch k {
	case IntentSelectOption:
		return "select_option"
	case IntentRepeatQuestion:
		return "repeat_question"
	case IntentRepeatOptions:
		return "repeat_options"
	case IntentConfirm:
		return "confirm"
	default:
		return "unknown"
	}
}

// Intent is a user action derived from a click or a transcript.
type Intent struct {
	Kind      IntentKind
	Letter    Letter
	Confirmed bool
}

func SelectOption(l Letter) Intent  { return Intent{Kind: IntentSelectOption, Letter: l} }
func RepeatQuestion() Intent        { return Intent{Kind: IntentRepeatQuestion} }
func RepeatOptions() Intent         { return Intent{Kind: IntentRepeatOptions} }
func Confirm(confirmed bool) Intent { return Intent{Kind: IntentConfirm, Confirmed: confirmed} }

// UpdateKind tells the presentation layer what happened.
type UpdateKind string

const (
	UpdateQuestion   UpdateKind = "question"
	UpdateOutcome    UpdateKind = "outcome"
	UpdateStaying    UpdateKind = "staying"
	UpdateRepeat     UpdateKind = "repeat"
	UpdateRejected   UpdateKind = "rejected"
	UpdateCompleted  UpdateKind = "completed"
	UpdateSaved      UpdateKind = "saved"
	UpdateSaveFailed UpdateKind = "save_failed"
)

// QuestionView is a question as shown to the student (no correct answer).
type QuestionView struct {
	Number  int      `json:"number"`
	Total   int      `json:"total"`
	Text    string   `json:"question"`
	Options []string `json:"options"`
}

// AnswerOutcome is the feedback for a submitted answer.
type AnswerOutcome struct {
	Selected  Letter `json:"selected"`
	Correct   Letter `json:"correct"`
	IsCorrect bool   `json:"isCorrect"`
}

// SessionUpdate is emitted for every transition or rejected request.
type SessionUpdate struct {
	Kind            UpdateKind     `json:"kind"`
	Phase           Phase          `json:"phase"`
	CurrentQuestion *QuestionView  `json:"currentQuestion,omitempty"`
	LastOutcome     *AnswerOutcome `json:"lastOutcome,omitempty"`
	FinalResult     *Result        `json:"finalResult,omitempty"`
	Speech          string         `json:"speech,omitempty"`
	Message         string         `json:"message,omitempty"`
}
