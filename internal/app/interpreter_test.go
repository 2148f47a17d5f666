package app_test

import (
	"reflect"
	"testing"

	"voice-quiz-service/internal/app"
	"voice-quiz-service/internal/domain"
)

func TestInterpret(t *testing.T) {
	cases := []struct {
		name       string
		transcript string
		phase      domain.Phase
		want       []domain.Intent
	}{
		{"option phrase", "option c", domain.PhaseAwaitingAnswer, []domain.Intent{domain.SelectOption(domain.LetterC)}},
		{"bare letter", "i think it is d", domain.PhaseAwaitingAnswer, []domain.Intent{domain.SelectOption(domain.LetterD)}},
		{"first letter wins", "b or maybe a", domain.PhaseAwaitingAnswer, []domain.Intent{domain.SelectOption(domain.LetterA)}},
		{"letter inside word ignored", "banana", domain.PhaseAwaitingAnswer, nil},
		{"letters ignored while confirming", "option a", domain.PhaseAwaitingConfirmation, nil},
		{"repeat question", "please repeat question", domain.PhaseAwaitingAnswer, []domain.Intent{domain.RepeatQuestion()}},
		{"repeat options", "repeat options", domain.PhaseAwaitingConfirmation, []domain.Intent{domain.RepeatOptions()}},
		{"repeat beats letters", "repeat question option b", domain.PhaseAwaitingAnswer, []domain.Intent{domain.RepeatQuestion()}},
		{"yes", "yes", domain.PhaseAwaitingConfirmation, []domain.Intent{domain.Confirm(true)}},
		{"no", "no thanks", domain.PhaseAwaitingConfirmation, []domain.Intent{domain.Confirm(false)}},
		{"yes beats no", "yes no", domain.PhaseAwaitingConfirmation, []domain.Intent{domain.Confirm(true)}},
		{"substring no", "i know", domain.PhaseAwaitingConfirmation, []domain.Intent{domain.Confirm(false)}},
		{"yes ignored while answering", "yes", domain.PhaseAwaitingAnswer, nil},
		{"repeat and confirm layer", "repeat question yes", domain.PhaseAwaitingConfirmation,
			[]domain.Intent{domain.RepeatQuestion(), domain.Confirm(true)}},
		{"completed ignores everything", "option a yes", domain.PhaseCompleted, nil},
		{"nothing", "hello there", domain.PhaseAwaitingAnswer, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := app.Interpret(tc.transcript, tc.phase)
			if len(got) == 0 && len(tc.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Interpret(%q, %s) = %+v, want %+v", tc.transcript, tc.phase, got, tc.want)
			}
		})
	}
}

func TestNormalizeTranscript(t *testing.T) {
	if got := app.NormalizeTranscript("  Option B \n"); got != "option b" {
		t.Fatalf("got %q", got)
	}
}
