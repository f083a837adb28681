package cli

import (
	"context"
	"fmt"

	"daily-riddle-bot/internal/app"
	"daily-riddle-bot/internal/config"
	"daily-riddle-bot/internal/infra/jsonfile"
	"daily-riddle-bot/internal/infra/memory"
	pgtables "daily-riddle-bot/internal/infra/postgres"
	redistables "daily-riddle-bot/internal/infra/redis"
	"daily-riddle-bot/internal/logging"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// stores is the persistence wiring selected by storage.driver.
type stores struct {
	questions app.QuestionRepository
	scores    app.ScoreRepository
	used      app.UsedSet
	closers   []func()
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func openStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (*stores, error) {
	s := &stores{used: memory.NewUsedSet()}

	// a configured redis always backs the used set so random cycles survive restarts
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			redisClient.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		s.closers = append(s.closers, func() { redisClient.Close() })
		s.used = redistables.NewUsedSet(redisClient, cfg.Redis.Prefix)
	}

	switch cfg.Storage.Driver {
	case "memory":
		s.questions = memory.NewQuestionRepository()
		s.scores = memory.NewScoreRepository()

	case "redis":
		if redisClient == nil {
			return nil, fmt.Errorf("storage driver redis needs redis.addr")
		}
		s.questions = redistables.NewQuestionRepository(redisClient, cfg.Redis.Prefix)
		s.scores = redistables.NewScoreRepository(redisClient, cfg.Redis.Prefix)

	case "postgres":
		if cfg.Postgres.URL == "" {
			s.Close()
			return nil, fmt.Errorf("storage driver postgres needs postgres.url")
		}
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
			s.Close()
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		s.closers = append(s.closers, pool.Close)
		s.questions = pgtables.NewQuestionRepository(pool)
		s.scores = pgtables.NewScoreRepository(pool)

	default:
		s.questions = jsonfile.NewQuestionRepository(cfg.Storage.QuestionsFile)
		s.scores = jsonfile.NewScoreRepository(cfg.Storage.ScoresFile)
	}

	logger.Info("storage ready",
		zap.String("driver", cfg.Storage.Driver),
		zap.Bool("redis_used_set", redisClient != nil))
	return s, nil
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	return logging.New(logging.Options{
		Level:      cfg.Log.Level,
		Path:       cfg.Log.Path,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
}
