package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	// minPoolConns leaves room for the cart listener, which keeps one
	// connection checked out for LISTEN while the process runs.
	minPoolConns = 4
	pingAttempts = 5
)

// Connect opens a pgx connection pool and verifies connectivity, retrying
// the ping while the database is still starting.
func Connect(ctx context.Context, dsn string, logger *zap.Logger) (*pgxpool.Pool, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.MaxConnLifetime = 30 * time.Minute
	if cfg.MaxConns < minPoolConns {
		cfg.MaxConns = minPoolConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	backoff := 500 * time.Millisecond
	for attempt := 1; ; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = pool.Ping(pingCtx)
		cancel()
		if err == nil {
			break
		}
		if attempt == pingAttempts {
			pool.Close()
			return nil, fmt.Errorf("ping db: %w", err)
		}
		logger.Warn("db not reachable yet", zap.Int("attempt", attempt), zap.Duration("retry_in", backoff), zap.Error(err))
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			pool.Close()
			return nil, ctx.Err()
		}
		backoff *= 2
	}

	logger.Info("db connected",
		zap.String("host", cfg.ConnConfig.Host),
		zap.String("database", cfg.ConnConfig.Database),
		zap.Int32("max_conns", cfg.MaxConns))
	return pool, nil
}
