package memory

import (
	"sync"

	"voice-quiz-service/internal/app"
)

// AttemptStore is an in-memory implementation of app.AttemptRepository.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts map[string]*app.Attempt
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{
		attempts: make(map[string]*app.Attempt),
	}
}

func (s *AttemptStore) Put(studentID string, attempt *app.Attempt) *app.Attempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous := s.attempts[studentID]
	s.attempts[studentID] = attempt
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
	defer s.mu.Unlock()
	if current, ok := s.attempts[studentID]; ok && current == attempt {
		delete(s.attempts, studentID)
	}
}

// Touch is a no-op; in-memory entries do not expire.
func (s *AttemptStore) Touch(string, *app.Attempt) {}
