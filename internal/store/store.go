// Package store persists analysis results and KPI snapshots in Postgres.
package store

import (
	"context"
	_ "embed"
	"fmt"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/AI-Template-SDK/aeo-insights/internal/config"
)

//go:embed schema.sql
var schema string

type Store struct {
	db     *sqlx.DB
	logger zerolog.Logger
}

func New(db *sqlx.DB, logger zerolog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Connect opens the Postgres pool, retrying with exponential backoff while the database comes up.
func Connect(ctx context.Context, cfg config.DatabaseConfig, maxRetries uint64, logger zerolog.Logger) (*sqlx.DB, error) {
	var db *sqlx.DB
	attempt := 0
	connect := func() error {
		attempt++
		conn, err := sqlx.ConnectContext(ctx, "postgres", cfg.DSN())
		if err != nil {
			logger.Warn().Err(err).Int("attempt", attempt).Str("host", cfg.Host).
				Msg("[Connect] database not reachable yet")
			return err
		}
		db = conn
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx)
	if err := backoff.Retry(connect, policy); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	logger.Info().Str("host", cfg.Host).Str("database", cfg.Name).Msg("[Connect] database connection established")
	return db, nil
}

// EnsureSchema creates the tables and indexes when they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// VisibilityPercent is the stored form of a [0, 1] visibility score.
func VisibilityPercent(v float64) int {
	return int(math.Round(v * 100))
}

func dayRange(day time.Time) (time.Time, time.Time) {
	return day, day.Add(24 * time.Hour)
}
