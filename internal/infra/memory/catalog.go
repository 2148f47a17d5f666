package memory

import (
	"context"
	"sort"
	"sync"

	"voice-quiz-service/internal/domain"
)

// Catalog is an in-memory quiz catalog (useful for tests/demos).
type Catalog struct {
	mu      sync.RWMutex
	quizzes map[string]domain.Quiz
}

func NewCatalog(quizzes ...domain.Quiz) *Catalog {
	c := &Catalog{quizzes: make(map[string]domain.Quiz, len(quizzes))}
	for _, q := range quizzes {
		c.quizzes[q.ID] = q
	}
	return c
}

func (c *Catalog) ListAvailable(_ context.Context) ([]domain.QuizSummary, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.QuizSummary, 0, len(c.quizzes))
	for _, q := range c.quizzes {
		out = append(out, q.Summary())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (c *Catalog) Get(_ context.Context, quizID string) (domain.Quiz, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if quiz, ok := c.quizzes[quizID]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

func (c *Catalog) Create(_ context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quizzes[quiz.ID] = quiz
	return quiz, nil
}

func (c *Catalog) Delete(_ context.Context, quizID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.quizzes[quizID]; !ok {
		return domain.ErrQuizNotFound
	}
	delete(c.quizzes, quizID)
	return nil
}
