// Package postgres builds the pgx connection pool used by the plan audit
// store and instruments every query with a span, a log line and an
// optional duration observer.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolConfig tunes the connection pool. Zero values keep pgx defaults.
type PoolConfig struct {
	MaxConns        int32
	MaxConnLifetime time.Duration
}

// NewPool parses databaseURL, attaches the query tracer, connects and
// pings the server.
func NewPool(ctx context.Context, databaseURL string, opts ...PoolConfig) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	for _, o := range opts {
		if o.MaxConns > 0 {
			pcfg.MaxConns = o.MaxConns
		}
		if o.MaxConnLifetime > 0 {
			pcfg.MaxConnLifetime = o.MaxConnLifetime
		}
	}
	pcfg.ConnConfig.Tracer = wrapQueryTracer(otelpgx.NewTracer())

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.NewWithConfig: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}
