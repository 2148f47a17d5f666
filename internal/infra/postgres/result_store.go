package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"voice-quiz-service/internal/domain"
)

// ResultStore upserts one row per (student, quiz) in quiz_results.
type ResultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

func (s *ResultStore) RecordResult(ctx context.Context, studentID, quizID string, result domain.Result) error {
	answers, err := json.Marshal(result.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO quiz_results (student_id, quiz_id, score, total, percentage, answers, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (student_id, quiz_id) DO UPDATE SET
			score = EXCLUDED.score,
			total = EXCLUDED.total,
			percentage = EXCLUDED.percentage,
			answers = EXCLUDED.answers,
			completed_at = EXCLUDED.completed_at`,
		studentID, quizID, result.Score, result.Total, result.Percentage, answers, result.CompletedAt)
	if err != nil {
		return fmt.Errorf("upsert result: %w", err)
	}
	return nil
}

func (s *ResultStore) ResultsForStudent(ctx context.Context, studentID string) ([]domain.Result, error) {
	return s.query(ctx, `WHERE student_id=$1`, studentID)
}

func (s *ResultStore) ResultsForQuiz(ctx context.Context, quizID string) ([]domain.Result, error) {
	return s.query(ctx, `WHERE quiz_id=$1`, quizID)
}

func (s *ResultStore) DeleteForQuiz(ctx context.Context, quizID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM quiz_results WHERE quiz_id=$1`, quizID); err != nil {
		return fmt.Errorf("delete results: %w", err)
	}
	return nil
}

func (s *ResultStore) query(ctx context.Context, where string, arg string) ([]domain.Result, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT quiz_id, student_id, score, total, percentage, answers, completed_at
		FROM quiz_results `+where+`
		ORDER BY completed_at, student_id, quiz_id`, arg)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()
	return scanResults(rows)
}

func scanResults(rows pgx.Rows) ([]domain.Result, error) {
	out := make([]domain.Result, 0)
	for rows.Next() {
		var (
			r   domain.Result
			raw []byte
		)
		if err := rows.Scan(&r.QuizID, &r.StudentID, &r.Score, &r.Total, &r.Percentage, &raw, &r.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if err := json.Unmarshal(raw, &r.Answers); err != nil {
			return nil, fmt.Errorf("unmarshal answers: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	return out, nil
}
