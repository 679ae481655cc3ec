package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

func newProvider(db *sql.DB, migrationsDir string) (*goose.Provider, error) {
	if _, err := os.Stat(migrationsDir); err != nil {
		return nil, fmt.Errorf("failed to open migrations directory: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, os.DirFS(migrationsDir))
	if err != nil {
		return nil, fmt.Errorf("failed to create migration provider: %w", err)
	}
	return provider, nil
}

// RunMigrations applies every pending migration in migrationsDir
func RunMigrations(ctx context.Context, db *sql.DB, migrationsDir string, logger *zap.Logger) error {
	provider, err := newProvider(db, migrationsDir)
	if err != nil {
		return err
	}

	logger.Info("Checking for pending migrations...", zap.String("dir", migrationsDir))

	results, err := provider.Up(ctx)
	if err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	for _, result := range results {
		logger.Info("Applied migration",
			zap.Int64("version", result.Source.Version),
			zap.String("file", result.Source.Path),
			zap.Duration("took", result.Duration),
		)
	}

	logger.Info("Migrations completed successfully", zap.Int("applied", len(results)))
	return nil
}

// PendingMigrations returns the versions that have not been applied yet
func PendingMigrations(ctx context.Context, db *sql.DB, migrationsDir string) ([]int64, error) {
	provider, err := newProvider(db, migrationsDir)
	if err != nil {
		return nil, err
	}

	statuses, err := provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration status: %w", err)
	}

	var pending []int64
	for _, status := range statuses {
		if status.State == goose.StatePending {
			pending = append(pending, status.Source.Version)
		}
	}
	return pending, nil
}
