package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"voice-quiz-service/internal/app"
	"voice-quiz-service/internal/config"
	"voice-quiz-service/internal/domain"
	"voice-quiz-service/internal/infra/postgres"
	"voice-quiz-service/internal/logger"
)

// NewSeedCmd stores the demo quiz in Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the sample math quiz",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log := logger.Setup(cfg.Log.Level, cfg.Log.Format)
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			pool, err := pgxpool.Connect(cmd.Context(), cfg.Postgres.URL)
			if err != nil {
				return err
			}
			defer pool.Close()
			return seed(cmd.Context(), postgres.NewCatalog(pool), log)
		},
	}
}

func seed(ctx context.Context, catalog app.QuizCatalog, log zerolog.Logger) error {
	quiz := sampleQuiz(time.Now().UTC())
	if _, err := catalog.Get(ctx, quiz.ID); err == nil {
		log.Info().Str("quiz_id", quiz.ID).Msg("sample quiz already present")
		return nil
	} else if !errors.Is(err, domain.ErrQuizNotFound) {
		return err
	}
	if _, err := catalog.Create(ctx, quiz); err != nil {
		return err
	}
	log.Info().Str("quiz_id", quiz.ID).Msg("sample quiz seeded")
	return nil
}

// sampleQuiz is the demo quiz served when no database is configured.
func sampleQuiz(createdAt time.Time) domain.Quiz {
	return domain.Quiz{
		ID:          "demo_quiz_1",
		Title:       "Sample Math Quiz",
		Description: "Basic arithmetic questions for practice",
		CreatedBy:   "demo_teacher",
		CreatedAt:   createdAt,
		Questions: []domain.Question{
			{Text: "What is 2 + 2?", Options: []string{"3", "4", "5", "6"}, CorrectAnswer: domain.LetterB},
			{Text: "What is 5 × 3?", Options: []string{"12", "15", "18", "20"}, CorrectAnswer: domain.LetterB},
		},
	}
}
