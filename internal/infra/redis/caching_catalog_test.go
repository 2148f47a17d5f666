package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"voice-quiz-service/internal/domain"
	"voice-quiz-service/internal/infra/memory"
)

func TestCachingCatalogCachesInRedis(t *testing.T) {
	mr, client := newTestRedis(t)

	backing := &countingCatalog{Catalog: memory.NewCatalog(sampleQuiz())}
	catalog := NewCachingCatalog(client, backing, time.Minute)

	if _, err := catalog.Get(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if backing.gets != 1 {
		t.Fatalf("expected backing called once, got %d", backing.gets)
	}
	if !mr.Exists("quiz:quiz-1") {
		t.Fatalf("expected quiz cached under quiz:quiz-1")
	}
	ttl := mr.TTL("quiz:quiz-1")
	if ttl < time.Minute || ttl > time.Minute+6*time.Second {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	// Second call should hit cache.
	quiz, err := catalog.Get(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if backing.gets != 1 {
		t.Fatalf("expected cache hit, backing calls=%d", backing.gets)
	}
	if quiz.Questions[1].CorrectAnswer != domain.LetterB {
		t.Fatalf("cached quiz lost its answers: %+v", quiz.Questions[1])
	}
}

func TestCachingCatalogDeleteEvicts(t *testing.T) {
	mr, client := newTestRedis(t)

	catalog := NewCachingCatalog(client, memory.NewCatalog(sampleQuiz()), time.Minute)
	if _, err := catalog.Get(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if err := catalog.Delete(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("delete quiz: %v", err)
	}
	if mr.Exists("quiz:quiz-1") {
		t.Fatalf("expected cache entry evicted")
	}
	if _, err := catalog.Get(context.Background(), "quiz-1"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}

func TestCachingCatalogFallsBackWhenRedisIsDown(t *testing.T) {
	mr, client := newTestRedis(t)
	mr.Close()

	catalog := NewCachingCatalog(client, memory.NewCatalog(sampleQuiz()), time.Minute)
	quiz, err := catalog.Get(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("expected backing catalog to serve the quiz, got %v", err)
	}
	if quiz.ID != "quiz-1" {
		t.Fatalf("unexpected quiz %q", quiz.ID)
	}
}

type countingCatalog struct {
	*memory.Catalog
	gets int
}

func (c *countingCatalog) Get(ctx context.Context, quizID string) (domain.Quiz, error) {
	c.gets++
	return c.Catalog.Get(ctx, quizID)
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:        "quiz-1",
		Title:     "Sample Math Quiz",
		CreatedBy: "teacher-1",
		CreatedAt: time.Date(2024, 11, 22, 9, 0, 0, 0, time.UTC),
		Questions: []domain.Question{
			{Text: "What is 2 + 2?", Options: []string{"3", "4", "5", "6"}, CorrectAnswer: domain.LetterB},
			{Text: "What is 5 × 3?", Options: []string{"12", "15", "18", "20"}, CorrectAnswer: domain.LetterB},
		},
	}
}
