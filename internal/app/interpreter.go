package app

import (
	"regexp"
	"strings"

	"voice-quiz-service/internal/domain"
)

type letterRule struct {
	letter domain.Letter
	phrase string
	token  *regexp.Regexp
}

var (
	letterRules = buildLetterRules()
	yesToken    = regexp.MustCompile(`\byes\b`)
	noToken     = regexp.MustCompile(`\bno\b`)
)

func buildLetterRules() []letterRule {
	rules := make([]letterRule, 0, len(domain.Letters))
	for _, l := range domain.Letters {
		lower := strings.ToLower(string(l))
		rules = append(rules, letterRule{
			letter: l,
			phrase: "option " + lower,
			token:  regexp.MustCompile(`\b` + lower + `\b`),
		})
	}
	return rules
}

// NormalizeTranscript lowercases and trims raw recognizer output.
func NormalizeTranscript(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Interpret maps a normalized transcript to intents for the given phase.
//
// The repeat/select rules and the confirmation rule are evaluated independently,
// so a transcript such as "repeat question yes" spoken while awaiting
// confirmation yields both RepeatQuestion and Confirm(true), in that order.
// Option letters are only recognized while awaiting an answer; "option a"
// spoken during confirmation is ignored.
func Interpret(transcript string, phase domain.Phase) []domain.Intent {
	var intents []domain.Intent

	switch {
	case strings.Contains(transcript, "repeat question"):
		intents = append(intents, domain.RepeatQuestion())
	case strings.Contains(transcript, "repeat options"):
		intents = append(intents, domain.RepeatOptions())
	case phase == domain.PhaseAwaitingAnswer:
		for _, rule := range letterRules {
			if strings.Contains(transcript, rule.phrase) || rule.token.MatchString(transcript) {
				intents = append(intents, domain.SelectOption(rule.letter))
				break
			}
		}
	}

	if phase == domain.PhaseAwaitingConfirmation {
		// Substring matching is literal: "know" counts as "no".
		if strings.Contains(transcript, "yes") || yesToken.MatchString(transcript) {
			intents = append(intents, domain.Confirm(true))
		} else if strings.Contains(transcript, "no") || noToken.MatchString(transcript) {
			intents = append(intents, domain.Confirm(false))
		}
	}

	return intents
}
