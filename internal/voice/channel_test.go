package voice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type listenResult struct {
	text string
	err  error
}

// scriptedRecognizer returns queued results in order, then blocks until
// its context is canceled.
type scriptedRecognizer struct {
	mu      sync.Mutex
	script  []listenResult
	listens int
}

func (r *scriptedRecognizer) Listen(ctx context.Context) (string, error) {
	r.mu.Lock()
	r.listens++
	if len(r.script) > 0 {
		next := r.script[0]
		r.script = r.script[1:]
		r.mu.Unlock()
		return next.text, next.err
	}
	r.mu.Unlock()
	<-ctx.Done()
	return "", ctx.Err()
}

func (r *scriptedRecognizer) listenCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listens
}

type recordingSynth struct {
	mu    sync.Mutex
	calls []string
}

func (s *recordingSynth) Speak(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "speak:"+text)
	return nil
}

func (s *recordingSynth) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "cancel")
}

func fastOptions() Options {
	return Options{RestartDelay: time.Millisecond, ErrorRestartDelay: 5 * time.Millisecond}
}

func TestChannelDeliversNormalizedTranscriptsAndReArms(t *testing.T) {
	rec := &scriptedRecognizer{script: []listenResult{
		{text: "  Option B "},
		{text: ""},
		{text: "YES"},
	}}
	got := make(chan string, 4)
	ch := NewChannel(rec, nil, fastOptions(), zerolog.Nop(), func(s string) { got <- s })

	ch.StartListening(context.Background())
	defer func() {
		ch.StopListening()
		ch.Wait()
	}()

	for _, want := range []string{"option b", "yes"} {
		select {
		case s := <-got:
			if s != want {
				t.Fatalf("expected %q, got %q", want, s)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}

	deadline := time.Now().Add(time.Second)
	for rec.listenCount() < 4 {
		if time.Now().After(deadline) {
			t.Fatalf("expected the recognizer to be re-armed, listens=%d", rec.listenCount())
		}
		time.Sleep(time.Millisecond)
	}
	if !ch.Listening() {
		t.Fatalf("expected channel to still be listening")
	}
}

func TestChannelReArmsAfterError(t *testing.T) {
	rec := &scriptedRecognizer{script: []listenResult{
		{err: errors.New("no-speech")},
		{text: "repeat question"},
	}}
	got := make(chan string, 1)
	ch := NewChannel(rec, nil, fastOptions(), zerolog.Nop(), func(s string) { got <- s })

	ch.StartListening(context.Background())
	defer func() {
		ch.StopListening()
		ch.Wait()
	}()

	select {
	case s := <-got:
		if s != "repeat question" {
			t.Fatalf("unexpected transcript %q", s)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected listening to resume after an error")
	}
}

func TestChannelStopsOnAbort(t *testing.T) {
	rec := &scriptedRecognizer{script: []listenResult{{err: ErrAborted}}}
	ch := NewChannel(rec, nil, fastOptions(), zerolog.Nop(), nil)

	ch.StartListening(context.Background())

	done := make(chan struct{})
	go func() {
		ch.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected loop to exit after abort")
	}
	if ch.Listening() {
		t.Fatalf("expected listening to be off after abort")
	}
	if rec.listenCount() != 1 {
		t.Fatalf("expected no re-arm after abort, listens=%d", rec.listenCount())
	}
}

func TestChannelStopListeningCancelsInFlightListen(t *testing.T) {
	rec := &scriptedRecognizer{}
	ch := NewChannel(rec, nil, fastOptions(), zerolog.Nop(), nil)

	ch.StartListening(context.Background())
	for rec.listenCount() == 0 {
		time.Sleep(time.Millisecond)
	}
	ch.StopListening()

	done := make(chan struct{})
	go func() {
		ch.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected StopListening to end the loop")
	}
	if ch.Listening() {
		t.Fatalf("expected listening off")
	}

	// Listening can be resumed afterwards.
	ch.StartListening(context.Background())
	if !ch.Listening() {
		t.Fatalf("expected listening after restart")
	}
	ch.StopListening()
	ch.Wait()
}

func TestChannelSpeakCancelsBeforeSpeaking(t *testing.T) {
	syn := &recordingSynth{}
	ch := NewChannel(&scriptedRecognizer{}, syn, DefaultOptions(), zerolog.Nop(), nil)

	if err := ch.Speak(context.Background(), "Question 1 of 2"); err != nil {
		t.Fatalf("speak: %v", err)
	}
	if err := ch.Speak(context.Background(), ""); err != nil {
		t.Fatalf("speak empty: %v", err)
	}

	want := []string{"cancel", "speak:Question 1 of 2"}
	if len(syn.calls) != len(want) {
		t.Fatalf("expected %v, got %v", want, syn.calls)
	}
	for i := range want {
		if syn.calls[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, syn.calls)
		}
	}
}

// blockingSynth holds each utterance until it is canceled, the way a speech
// engine plays audio until it finishes or is cut off.
type blockingSynth struct {
	mu      sync.Mutex
	current chan struct{}
	started chan string
}

func (s *blockingSynth) Speak(ctx context.Context, text string) error {
	stop := make(chan struct{})
	s.mu.Lock()
	s.current = stop
	s.mu.Unlock()

	s.started <- text
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-stop:
		return nil
	}
}

func (s *blockingSynth) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		close(s.current)
		s.current = nil
	}
}

func TestChannelSpeakInterruptsUtteranceInFlight(t *testing.T) {
	syn := &blockingSynth{started: make(chan string, 2)}
	ch := NewChannel(&scriptedRecognizer{}, syn, DefaultOptions(), zerolog.Nop(), nil)

	waitStarted := func(want string) {
		t.Helper()
		select {
		case text := <-syn.started:
			if text != want {
				t.Fatalf("expected utterance %q, got %q", want, text)
			}
		case <-time.After(time.Second):
			t.Fatalf("utterance %q never started", want)
		}
	}

	firstDone := make(chan error, 1)
	go func() { firstDone <- ch.Speak(context.Background(), "first") }()
	waitStarted("first")

	secondDone := make(chan error, 1)
	go func() { secondDone <- ch.Speak(context.Background(), "second") }()

	select {
	case <-firstDone:
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("second Speak did not interrupt the first utterance")
	}
	waitStarted("second")

	syn.Cancel()
	select {
	case err := <-secondDone:
		if err != nil {
			t.Fatalf("second utterance: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("second utterance did not end on cancel")
	}
}
