// Package postgres provides a rewind.Storage backed by a PostgreSQL table
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kode4food/rewind"
)

type (
	// Storage keeps one row per snapshot key, guarded by a sequence column
	Storage struct {
		pool    *pgxpool.Pool
		queries queries
		owned   bool
	}

	// Config describes the database and table to use
	Config struct {
		DSN   string `mapstructure:"dsn" yaml:"dsn" validate:"required"`
		Table string `mapstructure:"table" yaml:"table"`
	}

	queries struct {
		create       string
		get          string
		set          string
		setSequenced string
		remove       string
	}
)

const DefaultTable = "rewind_snapshots"

var _ rewind.SequencedStorage = (*Storage)(nil)

// Open connects to the database and creates the table if needed
func Open(ctx context.Context, cfg Config) (*Storage, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s, err := NewWithPool(ctx, pool, cfg.Table)
	if err != nil {
		pool.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// NewWithPool uses an existing pool, creating the table if needed. Close
// leaves the pool open
func NewWithPool(
	ctx context.Context, pool *pgxpool.Pool, table string,
) (*Storage, error) {
	if table == "" {
		table = DefaultTable
	}

	s := &Storage{
		pool:    pool,
		queries: makeQueries(pgx.Identifier{table}.Sanitize()),
	}
	if _, err := pool.Exec(ctx, s.queries.create); err != nil {
		return nil, fmt.Errorf("create snapshot table: %w", err)
	}
	return s, nil
}

// Close closes the pool if Open created it
func (s *Storage) Close() error {
	if s.owned {
		s.pool.Close()
	}
	return nil
}

func (s *Storage) Get(ctx context.Context, key string) (string, error) {
	var res string
	err := s.pool.QueryRow(ctx, s.queries.get, key).Scan(&res)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", rewind.ErrNotFound
	}
	return res, err
}

func (s *Storage) Set(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx, s.queries.set, key, value)
	return err
}

// SetSequenced stores value only if seq is newer than the stored sequence
func (s *Storage) SetSequenced(
	ctx context.Context, key, value string, seq int64,
) error {
	_, err := s.pool.Exec(ctx, s.queries.setSequenced, key, value, seq)
	return err
}

func (s *Storage) Remove(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx, s.queries.remove, key)
	return err
}

func makeQueries(table string) queries {
	return queries{
		create: `CREATE TABLE IF NOT EXISTS ` + table + ` (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			seq BIGINT NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		get: `SELECT value FROM ` + table + ` WHERE key = $1`,
		set: `INSERT INTO ` + table + ` (key, value) VALUES ($1, $2)
			ON CONFLICT (key) DO UPDATE
			SET value = EXCLUDED.value, updated_at = now()`,
		setSequenced: `INSERT INTO ` + table + ` (key, value, seq)
			VALUES ($1, $2, $3)
			ON CONFLICT (key) DO UPDATE
			SET value = EXCLUDED.value, seq = EXCLUDED.seq, updated_at = now()
			WHERE ` + table + `.seq < EXCLUDED.seq`,
		remove: `DELETE FROM ` + table + ` WHERE key = $1`,
	}
}
