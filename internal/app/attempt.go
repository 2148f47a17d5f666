package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"voice-quiz-service/internal/domain"
)

const persistTimeout = 10 * time.Second

type request struct {
	apply func(*Session) ([]domain.SessionUpdate, error)
	reply chan response
}

type response struct {
	updates []domain.SessionUpdate
	err     error
}

// Attempt owns one Session and applies every input to it from a single
// goroutine, whether the input came from a click or from speech. Updates are
// returned to the caller and also published on Updates().
type Attempt struct {
	id      string
	session *Session
	results ResultStore
	log     zerolog.Logger
	onDone  func(*Attempt)
	onInput func(*Attempt)

	requests chan request
	ctx      context.Context
	cancel   context.CancelFunc
	loopDone chan struct{}

	mu      sync.Mutex
	closed  bool
	updates chan domain.SessionUpdate
}

func newAttempt(session *Session, results ResultStore, log zerolog.Logger, onDone, onInput func(*Attempt)) *Attempt {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()
	a := &Attempt{
		id:      id,
		session: session,
		results: results,
		log: log.With().
			Str("component", "attempt").
			Str("attempt_id", id).
			Str("quiz_id", session.Quiz().ID).
			Str("student_id", session.StudentID()).
			Logger(),
		onDone:   onDone,
		onInput:  onInput,
		requests: make(chan request),
		ctx:      ctx,
		cancel:   cancel,
		loopDone: make(chan struct{}),
		updates:  make(chan domain.SessionUpdate, 16),
	}
	go a.run()
	return a
}

func (a *Attempt) ID() string        { return a.id }
func (a *Attempt) QuizID() string    { return a.session.Quiz().ID }
func (a *Attempt) StudentID() string { return a.session.StudentID() }

// Updates streams every update produced by this attempt. The channel is
// closed when the attempt is closed.
func (a *Attempt) Updates() <-chan domain.SessionUpdate {
	return a.updates
}

// Select submits an answer, as a click on an option does.
func (a *Attempt) Select(ctx context.Context, letter domain.Letter) (domain.SessionUpdate, error) {
	return a.single(ctx, domain.SelectOption(letter))
}

// Confirm answers the "proceed to the next question?" prompt.
func (a *Attempt) Confirm(ctx context.Context, yes bool) (domain.SessionUpdate, error) {
	return a.single(ctx, domain.Confirm(yes))
}

// Repeat re-speaks the question or the options without changing state.
func (a *Attempt) Repeat(ctx context.Context, kind domain.IntentKind) (domain.SessionUpdate, error) {
	return a.single(ctx, domain.Intent{Kind: kind})
}

// Hear interprets a transcript against the phase at the time it is applied.
// A transcript that matches nothing yields no updates and no error.
func (a *Attempt) Hear(ctx context.Context, transcript string) ([]domain.SessionUpdate, error) {
	transcript = NormalizeTranscript(transcript)
	return a.do(ctx, func(s *Session) ([]domain.SessionUpdate, error) {
		var (
			out  []domain.SessionUpdate
			errs []error
		)
		for _, intent := range Interpret(transcript, s.Phase()) {
			update, err := s.Apply(intent)
			out = append(out, update)
			if err != nil {
				errs = append(errs, err)
			}
		}
		return out, errors.Join(errs...)
	})
}

// Close stops the attempt. A result is only persisted for completed
// sessions, so closing mid-quiz discards everything.
func (a *Attempt) Close() {
	a.cancel()
	<-a.loopDone

	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.closed {
		a.closed = true
		close(a.updates)
	}
}

func (a *Attempt) single(ctx context.Context, intent domain.Intent) (domain.SessionUpdate, error) {
	updates, err := a.do(ctx, func(s *Session) ([]domain.SessionUpdate, error) {
		update, err := s.Apply(intent)
		return []domain.SessionUpdate{update}, err
	})
	if len(updates) == 0 {
		return domain.SessionUpdate{}, err
	}
	return updates[0], err
}

func (a *Attempt) do(ctx context.Context, apply func(*Session) ([]domain.SessionUpdate, error)) ([]domain.SessionUpdate, error) {
	req := request{apply: apply, reply: make(chan response, 1)}
	select {
	case a.requests <- req:
	case <-a.ctx.Done():
		return nil, domain.ErrAttemptNotFound
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	resp := <-req.reply
	return resp.updates, resp.err
}

func (a *Attempt) run() {
	defer close(a.loopDone)
	for {
		select {
		case <-a.ctx.Done():
			return
		case req := <-a.requests:
			wasCompleted := a.session.Phase() == domain.PhaseCompleted
			updates, err := req.apply(a.session)
			for _, u := range updates {
				a.publish(u)
			}
			req.reply <- response{updates: updates, err: err}
			if a.onInput != nil {
				a.onInput(a)
			}

			if !wasCompleted && a.session.Phase() == domain.PhaseCompleted {
				result, _ := a.session.Result()
				go a.persist(result)
			}
		}
	}
}

func (a *Attempt) persist(result domain.Result) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(a.ctx), persistTimeout)
	defer cancel()

	update := domain.SessionUpdate{
		Kind:        domain.UpdateSaved,
		Phase:       domain.PhaseCompleted,
		FinalResult: &result,
	}
	if err := a.results.RecordResult(ctx, result.StudentID, result.QuizID, result); err != nil {
		a.log.Error().Err(err).Msg("failed to record quiz result")
		update.Kind = domain.UpdateSaveFailed
		update.Message = (&domain.TransportError{Op: "record result", Err: err}).Error()
	} else {
		a.log.Info().
			Int("score", result.Score).
			Int("total", result.Total).
			Float64("percentage", result.Percentage).
			Msg("quiz result recorded")
	}
	a.publish(update)

	if a.onDone != nil {
		a.onDone(a)
	}
}

// publish never blocks; when the consumer lags the oldest pending update is dropped.
func (a *Attempt) publish(update domain.SessionUpdate) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	select {
	case a.updates <- update:
		return
	default:
	}
	select {
	case <-a.updates:
	default:
	}
	select {
	case a.updates <- update:
	default:
	}
}
