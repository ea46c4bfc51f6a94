package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations applies every pending embedded migration and logs each one.
func RunMigrations(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) error {
	conn, err := sql.Open("pgx", cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("db: open migration connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	migrations, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, conn, migrations)
	if err != nil {
		return fmt.Errorf("db: goose provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("db: apply migrations: %w", err)
	}
	for _, r := range results {
		log.Info("migration applied", "version", r.Source.Version, "file", r.Source.Path, "took", r.Duration)
	}
	return nil
}

// Migrate is RunMigrations retried while the database comes up.
func Migrate(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) error {
	return Retry(ctx, log, "database migrations", connectAttempts, connectBackoff, func() error {
		return RunMigrations(ctx, cfg, log)
	})
}
