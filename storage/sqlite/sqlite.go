// Package sqlite provides a rewind.Storage backed by a SQLite database file
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kode4food/rewind"
)

type (
	// Storage keeps one row per snapshot key, guarded by a sequence column
	Storage struct {
		db      *sql.DB
		queries queries
	}

	// Config describes the database file and table to use
	Config struct {
		Path  string `mapstructure:"path" yaml:"path" validate:"required"`
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

// Open opens or creates the database file and its table
func Open(ctx context.Context, cfg Config) (*Storage, error) {
	if dir := filepath.Dir(cfg.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	table := cfg.Table
	if table == "" {
		table = DefaultTable
	}

	s := &Storage{
		db:      db,
		queries: makeQueries(quoteIdentifier(table)),
	}
	if _, err := db.ExecContext(ctx, s.queries.create); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) Get(ctx context.Context, key string) (string, error) {
	var res string
	err := s.db.QueryRowContext(ctx, s.queries.get, key).Scan(&res)
	if errors.Is(err, sql.ErrNoRows) {
		return "", rewind.ErrNotFound
	}
	return res, err
}

func (s *Storage) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, s.queries.set, key, value)
	return err
}

// SetSequenced stores value only if seq is newer than the stored sequence
func (s *Storage) SetSequenced(
	ctx context.Context, key, value string, seq int64,
) error {
	_, err := s.db.ExecContext(ctx, s.queries.setSequenced, key, value, seq)
	return err
}

func (s *Storage) Remove(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, s.queries.remove, key)
	return err
}

func makeQueries(table string) queries {
	return queries{
		create: `CREATE TABLE IF NOT EXISTS ` + table + ` (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			seq INTEGER NOT NULL DEFAULT 0,
			updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		get: `SELECT value FROM ` + table + ` WHERE key = ?`,
		set: `INSERT INTO ` + table + ` (key, value) VALUES (?, ?)
			ON CONFLICT (key) DO UPDATE
			SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		setSequenced: `INSERT INTO ` + table + ` (key, value, seq)
			VALUES (?, ?, ?)
			ON CONFLICT (key) DO UPDATE
			SET value = excluded.value, seq = excluded.seq,
				updated_at = CURRENT_TIMESTAMP
			WHERE ` + table + `.seq < excluded.seq`,
		remove: `DELETE FROM ` + table + ` WHERE key = ?`,
	}
}

func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
