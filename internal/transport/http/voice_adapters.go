package http

import (
	"context"
	"errors"
	"strings"
	"sync"

	"voice-quiz-service/internal/voice"
)

type recognition struct {
	text string
	err  error
}

// wsRecognizer arms the browser's recognizer with a "listen" message and
// waits for the matching "transcript" or "recognitionError".
type wsRecognizer struct {
	send func(outboundMessage[any]) bool

	mu      sync.Mutex
	pending chan recognition
}

func (r *wsRecognizer) Listen(ctx context.Context) (string, error) {
	ch := make(chan recognition, 1)
	r.mu.Lock()
	r.pending = ch
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		if r.pending == ch {
			r.pending = nil
		}
		r.mu.Unlock()
	}()

	if !r.send(outboundMessage[any]{Type: "listen", Payload: struct{}{}}) {
		return "", voice.ErrAborted
	}
	select {
	case res := <-ch:
		return res.text, res.err
	case <-ctx.Done():
		r.send(outboundMessage[any]{Type: "stopListening", Payload: struct{}{}})
		return "", ctx.Err()
	}
}

// deliver hands a browser result to the pending Listen. It reports false when
// nothing is listening, so the caller can handle the result itself.
func (r *wsRecognizer) deliver(res recognition) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending == nil {
		return false
	}
	r.pending <- res
	r.pending = nil
	return true
}

// recognitionErr maps browser SpeechRecognition error codes.
func recognitionErr(code string) error {
	code = strings.TrimSpace(code)
	if code == "aborted" {
		return voice.ErrAborted
	}
	if code == "" {
		code = "unknown"
	}
	return errors.New("speech recognition: " + code)
}

// wsSynthesizer forwards speech to the browser's speech synthesis.
type wsSynthesizer struct {
	send func(outboundMessage[any]) bool
}

type speakPayload struct {
	Text string `json:"text"`
}

func (s *wsSynthesizer) Speak(_ context.Context, text string) error {
	if !s.send(outboundMessage[any]{Type: "speak", Payload: speakPayload{Text: text}}) {
		return errConnClosed
	}
	return nil
}

func (s *wsSynthesizer) Cancel() {
	s.send(outboundMessage[any]{Type: "cancelSpeech", Payload: struct{}{}})
}
