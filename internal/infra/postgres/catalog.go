package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"voice-quiz-service/internal/domain"
)

const uniqueViolation = "23505"

// Catalog stores quizzes with their questions as JSONB.
type Catalog struct {
	pool *pgxpool.Pool
}

func NewCatalog(pool *pgxpool.Pool) *Catalog {
	return &Catalog{pool: pool}
}

func (c *Catalog) ListAvailable(ctx context.Context) ([]domain.QuizSummary, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT id, title, description, created_by, created_at, jsonb_array_length(questions)
		FROM quizzes
		ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	out := make([]domain.QuizSummary, 0)
	for rows.Next() {
		var s domain.QuizSummary
		if err := rows.Scan(&s.ID, &s.Title, &s.Description, &s.CreatedBy, &s.CreatedAt, &s.QuestionCount); err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	return out, nil
}

func (c *Catalog) Get(ctx context.Context, quizID string) (domain.Quiz, error) {
	var (
		quiz domain.Quiz
		raw  []byte
	)
	err := c.pool.QueryRow(ctx, `
		SELECT id, title, description, created_by, created_at, questions
		FROM quizzes WHERE id=$1`, quizID).
		Scan(&quiz.ID, &quiz.Title, &quiz.Description, &quiz.CreatedBy, &quiz.CreatedAt, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	if err := json.Unmarshal(raw, &quiz.Questions); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal questions: %w", err)
	}
	return quiz, nil
}

func (c *Catalog) Create(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	raw, err := json.Marshal(quiz.Questions)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("marshal questions: %w", err)
	}
	_, err = c.pool.Exec(ctx, `
		INSERT INTO quizzes (id, title, description, created_by, created_at, questions)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		quiz.ID, quiz.Title, quiz.Description, quiz.CreatedBy, quiz.CreatedAt, raw)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.Quiz{}, domain.ErrDuplicateTitle
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("insert quiz: %w", err)
	}
	return quiz, nil
}

// Delete removes the quiz; its results go with it through the foreign key.
func (c *Catalog) Delete(ctx context.Context, quizID string) error {
	tag, err := c.pool.Exec(ctx, `DELETE FROM quizzes WHERE id=$1`, quizID)
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}
