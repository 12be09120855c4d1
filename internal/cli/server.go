package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flashcard-challenge-service/internal/app"
	"flashcard-challenge-service/internal/config"
	"flashcard-challenge-service/internal/generator"
	"flashcard-challenge-service/internal/infra/memory"
	"flashcard-challenge-service/internal/infra/postgres"
	infraredis "flashcard-challenge-service/internal/infra/redis"
	"flashcard-challenge-service/internal/infra/sqlite"
	transport "flashcard-challenge-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the challenge server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// backend is the persistence selected by the storage driver.
type backend struct {
	stores app.Stores
	users  app.UserStore
	close  func()
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.Env)
	defer func() { _ = logger.Sync() }()

	if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
		return err
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	be, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer be.close()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
	cacheTTL := config.TTLDuration(cfg.Challenge.CacheTTL, 10*time.Minute)

	var (
		attempts app.AttemptRepository
		guard    app.FinalizeGuard
	)
	if redisClient != nil {
		be.stores.Questions = infraredis.NewQuestionCache(redisClient, be.stores.Questions, cacheTTL)
		attempts = infraredis.NewAttemptStore(redisClient, redisTTL)
		// the guard outlives any attempt so late duplicates still see it
		guard = infraredis.NewFinalizeGuard(redisClient, 0)
	} else {
		be.stores.Questions = memory.NewQuestionCache(be.stores.Questions, cacheTTL)
		attempts = memory.NewAttemptStore()
		guard = memory.NewFinalizeGuard()
	}

	gen := generator.NewOpenAI(generator.Config{
		BaseURL: cfg.Generator.BaseURL,
		APIKey:  cfg.Generator.APIKey,
		Model:   cfg.Generator.Model,
		Timeout: config.TTLDuration(cfg.Generator.Timeout, 60*time.Second),
	}, logger.Named("generator"))

	service := app.NewChallengeService(be.stores, gen, attempts, guard, logger.Named("challenge"),
		app.WithQuestionCount(cfg.Challenge.QuestionCount),
		app.WithTimedBudget(cfg.Challenge.TimedBudgetSeconds, config.TTLDuration(cfg.Challenge.Tick, time.Second)),
		app.WithStoreConcurrency(cfg.Challenge.StoreConcurrency),
	)
	streaks := app.NewStreakService(be.users, logger.Named("streak"))

	router := transport.NewRouter(transport.RouterConfig{
		Service:     service,
		Streaks:     streaks,
		Limiter:     transport.NewRateLimiter(cfg.RateLimit.Limit, config.TTLDuration(cfg.RateLimit.Window, transport.DefaultRateWindow), nil),
		Logger:      logger.Named("http"),
		JWTSecret:   cfg.Auth.JWTSecret,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// generation calls can take a while; websocket writes set their own deadlines
		WriteTimeout: 90 * time.Second,
	}

	go func() {
		logger.Info("starting challenge service", zap.String("addr", server.Addr), zap.String("storage", cfg.StorageDriver()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openBackend(ctx context.Context, cfg config.Config) (backend, error) {
	switch cfg.StorageDriver() {
	case "postgres":
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return backend{}, fmt.Errorf("connect postgres: %w", err)
		}
		return backend{
			stores: app.Stores{
				Challenges: postgres.NewChallengeStore(pool),
				Questions:  postgres.NewQuestionStore(pool),
				History:    postgres.NewHistoryStore(pool),
				Decks:      postgres.NewDeckStore(pool),
			},
			users: postgres.NewUserStore(pool),
			close: pool.Close,
		}, nil
	case "sqlite":
		db, err := sqlite.Open(sqlitePath(cfg))
		if err != nil {
			return backend{}, err
		}
		return backend{
			stores: app.Stores{
				Challenges: sqlite.NewChallengeStore(db),
				Questions:  sqlite.NewQuestionStore(db),
				History:    sqlite.NewHistoryStore(db),
				Decks:      sqlite.NewDeckStore(db),
			},
			users: sqlite.NewUserStore(db),
			close: func() {
				if sqlDB, err := db.DB(); err == nil {
					_ = sqlDB.Close()
				}
			},
		}, nil
	default:
		return backend{
			stores: app.Stores{
				Challenges: memory.NewChallengeStore(),
				Questions:  memory.NewQuestionStore(),
				History:    memory.NewHistoryStore(),
				Decks:      memory.NewDeckStore(nil),
			},
			users: memory.NewUserStore(),
			close: func() {},
		}, nil
	}
}
