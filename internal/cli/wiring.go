package cli

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"quiz-miniapp/internal/app"
	"quiz-miniapp/internal/config"
	"quiz-miniapp/internal/infra/memory"
	pgstore "quiz-miniapp/internal/infra/postgres"
	redisstore "quiz-miniapp/internal/infra/redis"
)

type quizSource interface {
	memory.QuizLoader
	app.QuizCatalog
}

// backend is the quiz service wired to whichever stores are configured.
type backend struct {
	service *app.QuizService
	closers []func()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// openBackend uses Postgres and Redis when configured and falls back to
// in-memory stores seeded with the sample quizzes.
func openBackend(ctx context.Context, cfg config.Config, logger *zap.Logger) (*backend, error) {
	b := &backend{}

	var (
		source  quizSource           = memory.NewQuizStore(sampleQuizzes()...)
		results app.ResultRepository = memory.NewResultStore()
	)
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, pool.Close)
		source = pgstore.NewQuizStore(pool)
		results = pgstore.NewResultStore(pool)
		logger.Info("using postgres storage")
	} else {
		logger.Warn("postgres not configured, using in-memory storage with sample quizzes")
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	attemptTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var (
		quizRepo app.QuizRepository
		attempts app.AttemptRegistry
	)
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.closers = append(b.closers, func() { _ = client.Close() })
		quizRepo = redisstore.NewQuizRepository(client, source, quizTTL)
		attempts = redisstore.NewAttemptStore(client, attemptTTL)
		logger.Info("using redis cache", zap.String("addr", cfg.Redis.Addr))
	} else {
		quizRepo = memory.NewQuizRepository(source, quizTTL)
		attempts = memory.NewAttemptStore(attemptTTL)
	}

	b.service = app.NewQuizService(quizRepo, source, results, attempts,
		app.WithShuffle(cfg.ShuffleEnabled()))
	return b, nil
}
