package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"voice-quiz-service/internal/app"
	"voice-quiz-service/internal/domain"
	"voice-quiz-service/internal/voice"
)

var errConnClosed = errors.New("websocket closed")

type WSHandler struct {
	service  *app.QuizService
	voice    voice.Options
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, voiceOpts voice.Options, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		voice:   voiceOpts,
		log:     log.With().Str("component", "ws").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectPayload struct {
	Letter string `json:"letter"`
}

type confirmPayload struct {
	Yes bool `json:"yes"`
}

type transcriptPayload struct {
	Text string `json:"text"`
}

type recognitionErrorPayload struct {
	Error string `json:"error"`
}

type repeatPayload struct {
	What string `json:"what"`
}

type listenPayload struct {
	On bool `json:"on"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// conn is the per-connection state shared by the reader, the update
// forwarder and the voice channel.
type conn struct {
	send      chan outboundMessage[any]
	closing   chan struct{}
	completed atomic.Bool
}

// enqueue never blocks past connection teardown.
func (c *conn) enqueue(msg outboundMessage[any]) bool {
	select {
	case <-c.closing:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	case <-c.closing:
		return false
	}
}

func (c *conn) fail(err error) {
	c.enqueue(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
}

// ServeWS upgrades the request and runs one quiz attempt over the socket.
// Clicks and transcripts both end up in the attempt's queue.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	studentID := r.URL.Query().Get("studentId")
	if quizID == "" || studentID == "" {
		http.Error(w, "missing quizId or studentId", http.StatusBadRequest)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	attempt, first, err := h.service.StartAttempt(ctx, studentID, quizID)
	if err != nil {
		_ = ws.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	log := h.log.With().Str("student_id", studentID).Str("attempt_id", attempt.ID()).Logger()

	c := &conn{
		send:    make(chan outboundMessage[any], 32),
		closing: make(chan struct{}),
	}
	rec := &wsRecognizer{send: c.enqueue}
	channel := voice.NewChannel(rec, &wsSynthesizer{send: c.enqueue}, h.voice, log, func(transcript string) {
		if _, err := attempt.Hear(ctx, transcript); err != nil {
			log.Debug().Err(err).Str("transcript", transcript).Msg("voice command rejected")
		}
	})

	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range c.send {
			if err := ws.WriteJSON(msg); err != nil {
				log.Debug().Err(err).Msg("ws write error")
				return
			}
		}
	}()

	present := func(update domain.SessionUpdate) {
		c.enqueue(outboundMessage[any]{Type: "update", Payload: update})
		if update.Phase == domain.PhaseCompleted {
			c.completed.Store(true)
			channel.StopListening()
		}
		if update.Speech != "" {
			_ = channel.Speak(ctx, update.Speech)
		}
	}

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-attempt.Updates():
				if !ok {
					return
				}
				present(update)
			case <-c.closing:
				return
			}
		}
	}()

	present(first)

	for {
		var inbound inboundMessage
		if err := ws.ReadJSON(&inbound); err != nil {
			break
		}
		if err := h.handle(ctx, c, attempt, rec, channel, inbound); err != nil {
			c.fail(err)
		}
	}

	close(c.closing)
	channel.StopListening()
	channel.Wait()
	h.service.Leave(studentID, attempt)
	<-updatesDone
	close(c.send)
	<-writerDone
}

// handle applies one inbound message. Session rejections are reported by
// the attempt's own update stream; only errors without an update are
// returned here.
func (h *WSHandler) handle(ctx context.Context, c *conn, attempt *app.Attempt, rec *wsRecognizer, channel *voice.Channel, inbound inboundMessage) error {
	var (
		update domain.SessionUpdate
		err    error
	)
	switch inbound.Type {
	case "select":
		var payload selectPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errors.New("invalid select payload")
		}
		letter, parseErr := domain.ParseLetter(payload.Letter)
		if parseErr != nil {
			return parseErr
		}
		update, err = attempt.Select(ctx, letter)
	case "next":
		update, err = attempt.Confirm(ctx, true)
	case "confirm":
		var payload confirmPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errors.New("invalid confirm payload")
		}
		update, err = attempt.Confirm(ctx, payload.Yes)
	case "repeat":
		var payload repeatPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errors.New("invalid repeat payload")
		}
		kind := domain.IntentRepeatQuestion
		if payload.What == "options" {
			kind = domain.IntentRepeatOptions
		}
		update, err = attempt.Repeat(ctx, kind)
	case "transcript":
		var payload transcriptPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errors.New("invalid transcript payload")
		}
		if rec.deliver(recognition{text: payload.Text}) {
			return nil
		}
		// Typed or late transcripts go straight to the attempt.
		updates, err := attempt.Hear(ctx, payload.Text)
		if len(updates) == 0 {
			return silentErr(err)
		}
		return nil
	case "recognitionError":
		var payload recognitionErrorPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errors.New("invalid recognitionError payload")
		}
		rec.deliver(recognition{err: recognitionErr(payload.Error)})
		return nil
	case "listen":
		var payload listenPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errors.New("invalid listen payload")
		}
		if payload.On && !c.completed.Load() {
			channel.StartListening(ctx)
		} else if !payload.On {
			channel.StopListening()
		}
		return nil
	default:
		return errors.New("unsupported message type")
	}

	if update.Kind == "" {
		return silentErr(err)
	}
	return nil
}

func silentErr(err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
