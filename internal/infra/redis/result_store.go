package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"voice-quiz-service/internal/domain"
)

// ResultStore keeps results in two hashes so both lookups are a single HGETALL:
//
//	HSET results:student:{studentID} {quizID}    {result json}
//	HSET results:quiz:{quizID}       {studentID} {result json}
//
// Writing a field replaces it, which gives last-write-wins per (student, quiz).
type ResultStore struct {
	client *redis.Client
}

func NewResultStore(client *redis.Client) *ResultStore {
	return &ResultStore{client: client}
}

func (s *ResultStore) RecordResult(ctx context.Context, studentID, quizID string, result domain.Result) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, studentKey(studentID), quizID, raw)
		pipe.HSet(ctx, quizKey(quizID), studentID, raw)
		return nil
	})
	if err != nil {
		return fmt.Errorf("record result: %w", err)
	}
	return nil
}

func (s *ResultStore) ResultsForStudent(ctx context.Context, studentID string) ([]domain.Result, error) {
	return s.load(ctx, studentKey(studentID))
}

func (s *ResultStore) ResultsForQuiz(ctx context.Context, quizID string) ([]domain.Result, error) {
	return s.load(ctx, quizKey(quizID))
}

func (s *ResultStore) DeleteForQuiz(ctx context.Context, quizID string) error {
	students, err := s.client.HKeys(ctx, quizKey(quizID)).Result()
	if err != nil {
		return fmt.Errorf("list result students: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, studentID := range students {
			pipe.HDel(ctx, studentKey(studentID), quizID)
		}
		pipe.Del(ctx, quizKey(quizID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete results: %w", err)
	}
	return nil
}

func (s *ResultStore) load(ctx context.Context, key string) ([]domain.Result, error) {
	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("load results: %w", err)
	}
	out := make([]domain.Result, 0, len(fields))
	for field, raw := range fields {
		var r domain.Result
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, fmt.Errorf("unmarshal result %s/%s: %w", key, field, err)
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CompletedAt.Equal(out[j].CompletedAt) {
			return out[i].CompletedAt.Before(out[j].CompletedAt)
		}
		return out[i].StudentID+out[i].QuizID < out[j].StudentID+out[j].QuizID
	})
	return out, nil
}

func studentKey(studentID string) string {
	return "results:student:" + studentID
}

func quizKey(quizID string) string {
	return "results:quiz:" + quizID
}
