package dbpool

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/playout-hub/scheduler/internal/platform/env"
)

// New builds a pgx pool for the schedule and media stores. The scheduler is
// a single-editor service, so the pool stays small; limits can still be
// tuned through the environment.
func New(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}

	minConns := env.Int("DB_MIN_CONNS", 1)
	maxConns := env.Int("DB_MAX_CONNS", 8)
	if minConns < 0 {
		minConns = 1
	}
	if maxConns <= 0 {
		maxConns = 8
	}
	if minConns > maxConns {
		minConns = maxConns
	}

	cfg.MinConns = int32(minConns)
	cfg.MaxConns = int32(maxConns)
	cfg.MaxConnLifetime = env.Duration("DB_MAX_CONN_LIFETIME", 30*time.Minute)
	cfg.MaxConnIdleTime = env.Duration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute)
	cfg.HealthCheckPeriod = env.Duration("DB_HEALTH_CHECK_PERIOD", 30*time.Second)

	return pgxpool.NewWithConfig(ctx, cfg)
}
