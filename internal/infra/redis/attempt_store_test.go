package redis

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"voice-quiz-service/internal/app"
	"voice-quiz-service/internal/domain"
	"voice-quiz-service/internal/infra/memory"
)

func TestAttemptStoreAdvertisesLiveAttempts(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewAttemptStore(client, 30*time.Minute, zerolog.Nop())
	svc := app.NewQuizService(memory.NewCatalog(sampleQuiz()), memory.NewResultStore(), store, zerolog.Nop())
	ctx := context.Background()

	attempt, _, err := svc.StartAttempt(ctx, "student-1", "quiz-1")
	if err != nil {
		t.Fatalf("start attempt: %v", err)
	}

	value, ok, err := store.Live(ctx, "student-1")
	if err != nil || !ok {
		t.Fatalf("expected live marker, ok=%v err=%v", ok, err)
	}
	if value != attempt.ID()+":quiz-1" {
		t.Fatalf("unexpected marker %q", value)
	}
	if ttl := mr.TTL("quiz:attempt:student-1"); ttl != 30*time.Minute {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	svc.Leave("student-1", attempt)
	if _, ok, _ := store.Live(ctx, "student-1"); ok {
		t.Fatalf("expected marker cleared after leave")
	}
	if _, ok := store.Get("student-1"); ok {
		t.Fatalf("expected attempt removed")
	}
}

func TestAttemptStoreReplaceKeepsNewestMarker(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewAttemptStore(client, time.Minute, zerolog.Nop())
	svc := app.NewQuizService(memory.NewCatalog(sampleQuiz()), memory.NewResultStore(), store, zerolog.Nop())
	ctx := context.Background()

	first, _, err := svc.StartAttempt(ctx, "student-1", "quiz-1")
	if err != nil {
		t.Fatalf("start first: %v", err)
	}
	second, _, err := svc.StartAttempt(ctx, "student-1", "quiz-1")
	if err != nil {
		t.Fatalf("start second: %v", err)
	}

	// Removing the stale attempt must not clear the newer one.
	store.Delete("student-1", first)
	value, ok, _ := store.Live(ctx, "student-1")
	if !ok || !strings.HasPrefix(value, second.ID()) {
		t.Fatalf("expected marker for second attempt, got %q ok=%v", value, ok)
	}
	svc.Leave("student-1", second)
}

func TestAttemptStoreRefreshesMarkerOnActivity(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewAttemptStore(client, time.Minute, zerolog.Nop())
	svc := app.NewQuizService(memory.NewCatalog(sampleQuiz()), memory.NewResultStore(), store, zerolog.Nop())
	ctx := context.Background()

	attempt, _, err := svc.StartAttempt(ctx, "student-1", "quiz-1")
	if err != nil {
		t.Fatalf("start attempt: %v", err)
	}
	defer svc.Leave("student-1", attempt)

	mr.FastForward(40 * time.Second)
	if _, err := attempt.Repeat(ctx, domain.IntentRepeatQuestion); err != nil {
		t.Fatalf("repeat: %v", err)
	}

	// The refresh runs on the attempt goroutine after the reply.
	deadline := time.Now().Add(time.Second)
	for mr.TTL("quiz:attempt:student-1") != time.Minute {
		if time.Now().After(deadline) {
			t.Fatalf("expected ttl refreshed, got %v", mr.TTL("quiz:attempt:student-1"))
		}
		time.Sleep(time.Millisecond)
	}

	mr.FastForward(40 * time.Second)
	if _, ok, _ := store.Live(ctx, "student-1"); !ok {
		t.Fatalf("expected marker to outlive the original ttl after activity")
	}
}
