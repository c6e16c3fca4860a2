// Package db owns the Postgres connection pool shared by gorm, goose and
// readiness probes.
package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/gokatarajesh/trivia-api/internal/config"
)

// Connect opens a pgx pool and a database/sql handle backed by the same pool.
func Connect(ctx context.Context, cfg config.Postgres) (*pgxpool.Pool, *sql.DB, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, stdlib.OpenDBFromPool(pool), nil
}
