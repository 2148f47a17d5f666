package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"voice-quiz-service/internal/app"
)

const livenessTimeout = 2 * time.Second

// AttemptStore keeps live attempts in-process (they own goroutines and
// channels) and advertises them in Redis so other instances and operators
// can see who is mid-quiz:
//
//	SET quiz:attempt:{studentID} {attemptID}:{quizID} EX ttl
//
// The key expires ttl after the last input the attempt applied. It is
// informational only; the local map is authoritative.
type AttemptStore struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger

	mu       sync.RWMutex
	attempts map[string]*app.Attempt
}

func NewAttemptStore(client *redis.Client, ttl time.Duration, log zerolog.Logger) *AttemptStore {
	return &AttemptStore{
		client:   client,
		ttl:      ttl,
		log:      log.With().Str("component", "attempt_store").Logger(),
		attempts: make(map[string]*app.Attempt),
	}
}

func (s *AttemptStore) Put(studentID string, attempt *app.Attempt) *app.Attempt {
	s.mu.Lock()
	previous := s.attempts[studentID]
	s.attempts[studentID] = attempt
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), livenessTimeout)
	defer cancel()
	if marked, ok, err := s.Live(ctx, studentID); err == nil && ok && previous == nil {
		s.log.Info().Str("student_id", studentID).Str("marker", marked).Msg("replacing attempt marked live elsewhere")
	}
	value := attempt.ID() + ":" + attempt.QuizID()
	if err := s.client.Set(ctx, livenessKey(studentID), value, s.ttl).Err(); err != nil {
		s.log.Warn().Err(err).Str("student_id", studentID).Msg("failed to mark attempt live")
	}
	return previous
}

func (s *AttemptStore) Get(studentID string) (*app.Attempt, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[studentID]
	return attempt, ok
}

func (s *AttemptStore) Delete(studentID string, attempt *app.Attempt) {
	s.mu.Lock()
	current, ok := s.attempts[studentID]
	if !ok || current != attempt {
		s.mu.Unlock()
		return
	}
	delete(s.attempts, studentID)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), livenessTimeout)
	defer cancel()
	if err := s.client.Del(ctx, livenessKey(studentID)).Err(); err != nil {
		s.log.Warn().Err(err).Str("student_id", studentID).Msg("failed to clear attempt liveness")
	}
}

// Touch extends the liveness key of attempt while it is the registered one.
func (s *AttemptStore) Touch(studentID string, attempt *app.Attempt) {
	s.mu.RLock()
	current := s.attempts[studentID]
	s.mu.RUnlock()
	if current != attempt {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), livenessTimeout)
	defer cancel()
	if err := s.client.Expire(ctx, livenessKey(studentID), s.ttl).Err(); err != nil {
		s.log.Warn().Err(err).Str("student_id", studentID).Msg("failed to refresh attempt liveness")
	}
}

// Live reports the attempt advertised for a student, as "{attemptID}:{quizID}".
func (s *AttemptStore) Live(ctx context.Context, studentID string) (string, bool, error) {
	value, err := s.client.Get(ctx, livenessKey(studentID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func livenessKey(studentID string) string {
	return "quiz:attempt:" + studentID
}
