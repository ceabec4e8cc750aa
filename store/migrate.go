package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate brings the database schema at dsn up to date.
func Migrate(ctx context.Context, dsn string, logger *slog.Logger) error {
	return runMigrations(ctx, dsn, logger, func(ctx context.Context, db *sql.DB) error {
		return goose.UpContext(ctx, db, "migrations")
	})
}

// Rollback reverts the most recent migration.
func Rollback(ctx context.Context, dsn string, logger *slog.Logger) error {
	return runMigrations(ctx, dsn, logger, func(ctx context.Context, db *sql.DB) error {
		return goose.DownContext(ctx, db, "migrations")
	})
}

// MigrationVersion returns the current schema version.
func MigrationVersion(ctx context.Context, dsn string, logger *slog.Logger) (int64, error) {
	var version int64
	err := runMigrations(ctx, dsn, logger, func(ctx context.Context, db *sql.DB) error {
		v, err := goose.GetDBVersionContext(ctx, db)
		version = v
		return err
	})
	return version, err
}

func runMigrations(ctx context.Context, dsn string, logger *slog.Logger, fn func(context.Context, *sql.DB) error) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{logger})
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}

	db, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := fn(ctx, db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// gooseLogger routes goose output through slog.
type gooseLogger struct {
	logger *slog.Logger
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, v...))
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, v...))
}
