package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type DB struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// New creates a database connection pool from a Postgres connection URL.
//
// Why a URL rather than host/port/user fields?
//   - pgxpool.ParseConfig understands postgres:// URLs directly, including
//     sslmode and escaped passwords.
//   - DATABASE_URL is what config.Config stores and what golang-migrate
//     reads too, so both sides see the same database.
func New(ctx context.Context, databaseURL string, logger *zap.Logger) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	// Pool tuning for a chat backend:
	//
	// MaxConns (25): a WebSocket send or a REST call holds a connection
	//   only for one statement (or one short transaction when a chat is
	//   created), so 25 serves far more open sockets than that. It also
	//   leaves room under the usual max_connections of 100 for a second
	//   instance behind the redis fanout.
	//
	// MinConns (5): warm connections for the first sends after a quiet
	//   period.
	//
	// MaxConnLifetime (1h): recycle connections so failovers and DNS
	//   changes are picked up.
	//
	// MaxConnIdleTime (20m): give slots back to Postgres at night.
	//
	// HealthCheckPeriod (1m): find dead idle connections before a
	//   membership check does.
	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 20 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Don't leak a half-open pool if the first ping fails.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping DB: %w", err)
	}

	logger.Info("DB connection established",
		zap.String("host", poolConfig.ConnConfig.Host),
		zap.String("database", poolConfig.ConnConfig.Database),
		zap.Int32("max_conns", poolConfig.MaxConns),
	)
	return &DB{
		pool:   pool,
		logger: logger,
	}, nil
}

func (db *DB) Close() {
	db.logger.Info("closing database connection pool")
	db.pool.Close()
}

func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

func (db *DB) Health(ctx context.Context) error {
	return db.pool.Ping(ctx)
}
