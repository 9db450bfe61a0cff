// Package database opens the Postgres pool and applies schema migrations.
package database

import (
	"context"
	"fmt"
	"time"

	pgxzerolog "github.com/jackc/pgx-zerolog"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/newrelic/go-agent/v3/integrations/nrpgx5"
	"github.com/rs/zerolog"

	"github.com/axonhq/axon/internal/config"
)

const pingTimeout = 5 * time.Second

// PoolConfig translates the database section into a pgxpool config. Queries
// are traced by New Relic when withNewRelic is set, otherwise logged through
// zerolog at the configured level.
func PoolConfig(cfg config.DatabaseConfig, logger zerolog.Logger, withNewRelic bool) (*pgxpool.Config, error) {
	pgxCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		pgxCfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		pgxCfg.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		pgxCfg.MaxConnLifetime = time.Duration(cfg.ConnMaxLifetime) * time.Second
	}
	if cfg.ConnMaxIdleTime > 0 {
		pgxCfg.MaxConnIdleTime = time.Duration(cfg.ConnMaxIdleTime) * time.Second
	}

	// a pool has a single tracer slot
	if withNewRelic {
		pgxCfg.ConnConfig.Tracer = nrpgx5.NewTracer()
	} else {
		level, err := tracelog.LogLevelFromString(cfg.LogLevel)
		if err != nil {
			level = tracelog.LogLevelWarn
		}
		pgxCfg.ConnConfig.Tracer = &tracelog.TraceLog{
			Logger:   pgxzerolog.NewLogger(logger.With().Str("component", "pgx").Logger()),
			LogLevel: level,
		}
	}
	return pgxCfg, nil
}

// NewPool opens the pool and checks connectivity.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger, withNewRelic bool) (*pgxpool.Pool, error) {
	pgxCfg, err := PoolConfig(cfg, logger, withNewRelic)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}
