package voice

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// ErrAborted is returned by a Recognizer when recognition was aborted on purpose.
// The channel does not re-arm after it.
var ErrAborted = errors.New("recognition aborted")

// Recognizer performs one-shot speech recognition: each Listen call captures a
// single utterance and returns its text (empty when nothing was heard).
type Recognizer interface {
	Listen(ctx context.Context) (string, error)
}

// Synthesizer speaks text. Cancel stops the utterance in flight, if any.
type Synthesizer interface {
	Speak(ctx context.Context, text string) error
	Cancel()
}

// Options tunes the re-arm delays of the listen loop.
type Options struct {
	RestartDelay      time.Duration
	ErrorRestartDelay time.Duration
}

// DefaultOptions matches the browser recognizer policy: 100ms after an
// utterance ends, 1s after an error.
func DefaultOptions() Options {
	return Options{
		RestartDelay:      100 * time.Millisecond,
		ErrorRestartDelay: time.Second,
	}
}

// Channel couples a recognizer and a synthesizer behind one listen loop.
//
// Listening runs as a background task that re-arms the recognizer after every
// result, end or error while the desired flag is set. StopListening clears the
// flag and cancels the in-flight listen; the loop checks the flag before every
// re-arm.
type Channel struct {
	rec    Recognizer
	syn    Synthesizer
	opts   Options
	log    zerolog.Logger
	handle func(transcript string)

	desired atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	speakMu    sync.Mutex
	utterance  uint64
	stopSpeech context.CancelFunc
}

// NewChannel builds a channel. onTranscript receives lowercased, trimmed text
// and is called from the listen goroutine.
func NewChannel(rec Recognizer, syn Synthesizer, opts Options, log zerolog.Logger, onTranscript func(string)) *Channel {
	if opts.RestartDelay <= 0 {
		opts.RestartDelay = DefaultOptions().RestartDelay
	}
	if opts.ErrorRestartDelay <= 0 {
		opts.ErrorRestartDelay = DefaultOptions().ErrorRestartDelay
	}
	return &Channel{
		rec:    rec,
		syn:    syn,
		opts:   opts,
		log:    log.With().Str("component", "voice_channel").Logger(),
		handle: onTranscript,
	}
}

// Listening reports whether listening is currently desired.
func (c *Channel) Listening() bool {
	return c.desired.Load()
}

// StartListening arms the recognizer and keeps re-arming it until
// StopListening is called or ctx is done. Calling it while already listening
// is a no-op.
func (c *Channel) StartListening(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.desired.Load() && c.done != nil {
		return
	}
	if c.done != nil {
		// A previous loop is winding down after StopListening; wait for it so
		// two loops never share the recognizer.
		done := c.done
		c.mu.Unlock()
		<-done
		c.mu.Lock()
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done
	c.desired.Store(true)

	go c.loop(loopCtx, done)
}

// StopListening clears the desired flag and cancels the in-flight listen.
func (c *Channel) StopListening() {
	c.desired.Store(false)

	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Wait blocks until the listen loop has exited.
func (c *Channel) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Speak cancels any utterance in flight, then speaks text. It returns when
// the synthesizer finishes or the utterance is cut off by a later Speak.
func (c *Channel) Speak(ctx context.Context, text string) error {
	if c.syn == nil || text == "" {
		return nil
	}

	c.speakMu.Lock()
	if c.stopSpeech != nil {
		c.stopSpeech()
	}
	c.syn.Cancel()
	speechCtx, stop := context.WithCancel(ctx)
	c.utterance++
	id := c.utterance
	c.stopSpeech = stop
	c.speakMu.Unlock()

	defer func() {
		c.speakMu.Lock()
		if c.utterance == id {
			c.stopSpeech = nil
		}
		c.speakMu.Unlock()
		stop()
	}()
	return c.syn.Speak(speechCtx, text)
}

func (c *Channel) loop(ctx context.Context, done chan struct{}) {
	defer func() {
		c.mu.Lock()
		if c.done == done {
			c.done = nil
			c.cancel = nil
		}
		c.mu.Unlock()
		close(done)
	}()

	for c.desired.Load() {
		text, err := c.rec.Listen(ctx)
		delay := c.opts.RestartDelay

		switch {
		case ctx.Err() != nil:
			return
		case errors.Is(err, ErrAborted):
			c.log.Debug().Msg("recognition aborted, not re-arming")
			c.desired.Store(false)
			return
		case err != nil:
			c.log.Warn().Err(err).Msg("speech recognition error")
			delay = c.opts.ErrorRestartDelay
		default:
			transcript := strings.ToLower(strings.TrimSpace(text))
			if transcript != "" && c.handle != nil {
				c.log.Debug().Str("transcript", transcript).Msg("voice command")
				c.handle(transcript)
			}
		}

		if !c.desired.Load() {
			return
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
