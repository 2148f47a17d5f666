package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"voice-quiz-service/internal/app"
	"voice-quiz-service/internal/domain"
)

func TestCatalogListsInCreationOrder(t *testing.T) {
	later := sampleQuiz()
	later.ID = "quiz-2"
	later.CreatedAt = later.CreatedAt.Add(time.Hour)
	catalog := NewCatalog(later, sampleQuiz())

	summaries, err := catalog.ListAvailable(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(summaries) != 2 || summaries[0].ID != "quiz-1" || summaries[1].ID != "quiz-2" {
		t.Fatalf("unexpected order %+v", summaries)
	}
	if summaries[0].QuestionCount != 1 {
		t.Fatalf("expected question count 1, got %d", summaries[0].QuestionCount)
	}
	if err := catalog.Delete(context.Background(), "missing"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}

func TestResultStoreKeepsLatestPerPair(t *testing.T) {
	store := NewResultStore()
	ctx := context.Background()
	at := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)

	record := func(studentID, quizID string, score int, offset time.Duration) {
		t.Helper()
		r := domain.Result{QuizID: quizID, StudentID: studentID, Score: score, Total: 2, CompletedAt: at.Add(offset)}
		if err := store.RecordResult(ctx, studentID, quizID, r); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	record("student-1", "quiz-1", 1, 0)
	record("student-1", "quiz-1", 2, time.Minute)
	record("student-2", "quiz-1", 0, -time.Minute)
	record("student-1", "quiz-2", 2, 0)

	mine, _ := store.ResultsForStudent(ctx, "student-1")
	if len(mine) != 2 {
		t.Fatalf("expected 2 results for student-1, got %+v", mine)
	}
	forQuiz, _ := store.ResultsForQuiz(ctx, "quiz-1")
	if len(forQuiz) != 2 || forQuiz[0].StudentID != "student-2" || forQuiz[1].Score != 2 {
		t.Fatalf("unexpected quiz results %+v", forQuiz)
	}

	if err := store.DeleteForQuiz(ctx, "quiz-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if left, _ := store.ResultsForQuiz(ctx, "quiz-1"); len(left) != 0 {
		t.Fatalf("expected quiz-1 results removed, got %+v", left)
	}
	if left, _ := store.ResultsForStudent(ctx, "student-1"); len(left) != 1 {
		t.Fatalf("expected quiz-2 result kept, got %+v", left)
	}
}

func TestAttemptStoreDeleteOnlyMatchingAttempt(t *testing.T) {
	store := NewAttemptStore()
	first, second := &app.Attempt{}, &app.Attempt{}

	if prev := store.Put("student-1", first); prev != nil {
		t.Fatalf("expected no previous attempt")
	}
	if prev := store.Put("student-1", second); prev != first {
		t.Fatalf("expected first attempt to be replaced")
	}

	store.Delete("student-1", first)
	if got, ok := store.Get("student-1"); !ok || got != second {
		t.Fatalf("stale delete removed the current attempt")
	}
	store.Delete("student-1", second)
	if _, ok := store.Get("student-1"); ok {
		t.Fatalf("expected attempt removed")
	}
}
