package repository

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/foyerhq/home-api/internal/config"
)

// Connect opens the Postgres pool, retrying with exponential backoff so the
// service survives starting before the database does.
func Connect(cfg config.DatabaseConfig, logger *zap.Logger) (*sqlx.DB, error) {
	var db *sqlx.DB

	operation := func() error {
		var err error
		db, err = sqlx.Connect("pgx", cfg.DSN())
		if err != nil {
			logger.Warn("database not ready, retrying", zap.Error(err))
			return err
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return db, nil
}

// RunMigrations applies any pending SQL migrations.
func RunMigrations(databaseURL, migrationsPath string) error {
	m, err := migrate.New(fmt.Sprintf("file://%s", migrationsPath), databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() {
		_, _ = m.Close()
	}()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
