package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"voice-quiz-service/internal/app"
	"voice-quiz-service/internal/config"
	"voice-quiz-service/internal/infra/memory"
	"voice-quiz-service/internal/infra/postgres"
	redisstore "voice-quiz-service/internal/infra/redis"
	"voice-quiz-service/internal/logger"
	transport "voice-quiz-service/internal/transport/http"
	"voice-quiz-service/internal/voice"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// stores groups the backends chosen from config.
type stores struct {
	catalog  app.QuizCatalog
	results  app.ResultStore
	attempts app.AttemptRepository
	checks   []transport.HealthCheck
	closers  []func()
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logger.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}

	s, err := buildStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		for _, closeFn := range s.closers {
			closeFn()
		}
	}()

	service := app.NewQuizService(s.catalog, s.results, s.attempts, log)
	voiceOpts := voice.Options{
		RestartDelay:      config.TTLDuration(cfg.Voice.RestartDelay, voice.DefaultOptions().RestartDelay),
		ErrorRestartDelay: config.TTLDuration(cfg.Voice.ErrorRestartDelay, voice.DefaultOptions().ErrorRestartDelay),
	}
	router := transport.NewRouter(log,
		transport.NewWSHandler(service, voiceOpts, log),
		transport.NewRESTHandler(service, log),
		s.checks...,
	)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("starting voice quiz service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down server...")
	case err := <-errCh:
		log.Error().Err(err).Msg("server failed")
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildStores picks Postgres or memory for quizzes and results, and layers
// Redis on top when configured.
func buildStores(ctx context.Context, cfg config.Config, log zerolog.Logger) (*stores, error) {
	s := &stores{}
	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)

	var backing app.QuizCatalog
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, pool.Close)
		s.checks = append(s.checks, transport.HealthCheck{Name: "postgres", Ping: pool.Ping})
		backing = postgres.NewCatalog(pool)
		s.results = postgres.NewResultStore(pool)
		log.Info().Msg("using postgres catalog and results")
	} else {
		backing = memory.NewCatalog(sampleQuiz(time.Now().UTC()))
		s.results = memory.NewResultStore()
		log.Info().Msg("no postgres configured, serving the sample quiz from memory")
	}

	if cfg.Redis.Addr == "" {
		s.catalog = memory.NewCachingCatalog(backing, quizTTL)
		s.attempts = memory.NewAttemptStore()
		return s, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	s.closers = append(s.closers, func() { _ = client.Close() })
	s.checks = append(s.checks, transport.HealthCheck{
		Name: "redis",
		Ping: func(ctx context.Context) error { return client.Ping(ctx).Err() },
	})
	s.catalog = redisstore.NewCachingCatalog(client, backing, quizTTL)
	s.attempts = redisstore.NewAttemptStore(client, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute), log)
	if cfg.Postgres.URL == "" {
		s.results = redisstore.NewResultStore(client)
	}
	log.Info().Str("addr", cfg.Redis.Addr).Msg("using redis")
	return s, nil
}
