package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"farm-alert-service/internal/logging"
	"farm-alert-service/internal/utils"
)

// Pool is the part of *pgxpool.Pool the data-access layer uses.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// DB is the typed data-access boundary. Core components only ever see models rows.
type DB struct {
	Pool Pool
}

// New opens a pool and pings it, retrying up to attempts times.
func New(ctx context.Context, dsn string, attempts int, logger *logging.Logger) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	err = utils.Retry(ctx, logger, attempts, 2*time.Second, func() error {
		return pool.Ping(ctx)
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return &DB{Pool: pool}, nil
}

// NewWithPool wraps an existing pool.
func NewWithPool(p Pool) *DB {
	return &DB{Pool: p}
}

// Ping checks connectivity.
func (d *DB) Ping(ctx context.Context) error {
	return d.Pool.Ping(ctx)
}

func (d *DB) Close() {
	d.Pool.Close()
}
