package memory

import (
	"context"
	"sort"
	"sync"

	"voice-quiz-service/internal/domain"
)

type resultKey struct {
	studentID string
	quizID    string
}

// ResultStore keeps the latest result per (student, quiz) in memory.
type ResultStore struct {
	mu      sync.RWMutex
	results map[resultKey]domain.Result
}

func NewResultStore() *ResultStore {
	return &ResultStore{results: make(map[resultKey]domain.Result)}
}

// RecordResult overwrites any earlier result for the same pair.
func (s *ResultStore) RecordResult(_ context.Context, studentID, quizID string, result domain.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[resultKey{studentID: studentID, quizID: quizID}] = result
	return nil
}

func (s *ResultStore) ResultsForStudent(_ context.Context, studentID string) ([]domain.Result, error) {
	return s.filter(func(k resultKey) bool { return k.studentID == studentID }), nil
}

func (s *ResultStore) ResultsForQuiz(_ context.Context, quizID string) ([]domain.Result, error) {
	return s.filter(func(k resultKey) bool { return k.quizID == quizID }), nil
}

func (s *ResultStore) DeleteForQuiz(_ context.Context, quizID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.results {
		if k.quizID == quizID {
			delete(s.results, k)
		}
	}
	return nil
}

func (s *ResultStore) filter(match func(resultKey) bool) []domain.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Result, 0)
	for k, r := range s.results {
		if match(k) {
			out = append(out, r)
		}
	}
	sortResults(out)
	return out
}

// sortResults orders by completion time, then student, for stable listings.
func sortResults(results []domain.Result) {
	sort.Slice(results, func(i, j int) bool {
		if !results[i].CompletedAt.Equal(results[j].CompletedAt) {
			return results[i].CompletedAt.Before(results[j].CompletedAt)
		}
		if results[i].StudentID != results[j].StudentID {
			return results[i].StudentID < results[j].StudentID
		}
		return results[i].QuizID < results[j].QuizID
	})
}
