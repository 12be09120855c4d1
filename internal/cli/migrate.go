package cli

import (
	"context"
	"database/sql"
	"fmt"

	"flashcard-challenge-service/internal/config"
	pgmigrations "flashcard-challenge-service/internal/infra/postgres/migrations"
	"flashcard-challenge-service/internal/infra/sqlite"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"
)

// NewMigrateCmd applies database migrations.
func NewMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(cmd.Context(), *configPath)
		},
	}
}

func runMigrations(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.Env)
	defer func() { _ = logger.Sync() }()
	return runMigrationsWithConfig(ctx, cfg, logger)
}

func runMigrationsWithConfig(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	switch cfg.StorageDriver() {
	case "postgres":
		return migratePostgres(ctx, cfg.Postgres.URL, logger)
	case "sqlite":
		db, err := sqlite.Open(sqlitePath(cfg))
		if err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		logger.Info("sqlite schema migrated", zap.String("path", sqlitePath(cfg)))
		return nil
	default:
		logger.Info("memory storage needs no migrations")
		return nil
	}
}

func migratePostgres(ctx context.Context, url string, logger *zap.Logger) error {
	if url == "" {
		return fmt.Errorf("postgres url not configured")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(url)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)

	if err := migrator.Init(ctx); err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	if group.IsZero() {
		logger.Info("postgres schema up to date")
		return nil
	}
	logger.Info("migrations applied", zap.String("group", group.String()))
	return nil
}

func sqlitePath(cfg config.Config) string {
	if cfg.SQLite.Path == "" {
		return "challenges.db"
	}
	return cfg.SQLite.Path
}
