// Package badger provides a rewind.Storage backed by BadgerDB, either on
// disk or entirely in memory
package badger

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/kode4food/rewind"
)

type (
	// Storage keeps snapshots as BadgerDB keys under a common prefix
	Storage struct {
		db     *badger.DB
		prefix string
	}

	// Config describes where the database lives and how it writes
	Config struct {
		Logger     *zap.Logger `mapstructure:"-" yaml:"-"`
		Path       string      `mapstructure:"path" yaml:"path" validate:"required_unless=InMemory true"`
		Prefix     string      `mapstructure:"prefix" yaml:"prefix"`
		InMemory   bool        `mapstructure:"in_memory" yaml:"in_memory"`
		SyncWrites bool        `mapstructure:"sync_writes" yaml:"sync_writes"`
	}

	// badgerLogger adapts a zap logger to BadgerDB's Logger interface
	badgerLogger struct {
		logger *zap.SugaredLogger
	}
)

const DefaultPrefix = "rewind:"

// ErrPathRequired indicates a persistent database was requested without a
// path
var ErrPathRequired = errors.New("path is required for persistent database")

// InMemoryConfig returns a Config for a database that is discarded on Close
func InMemoryConfig() Config {
	return Config{
		InMemory: true,
		Prefix:   DefaultPrefix,
	}
}

// Open opens the database described by cfg
func Open(cfg Config) (*Storage, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, ErrPathRequired
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w",
				cfg.Path, err,
			)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	opts = opts.WithSyncWrites(cfg.SyncWrites)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger.Sugar()})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	return &Storage{
		db:     db,
		prefix: cfg.Prefix,
	}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var res []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.buildKey(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return rewind.ErrNotFound
		}
		if err != nil {
			return err
		}
		res, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return "", err
	}
	return string(res), nil
}

func (s *Storage) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.buildKey(key), []byte(value))
	})
}

func (s *Storage) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(s.buildKey(key))
	})
}

func (s *Storage) buildKey(key string) []byte {
	return []byte(s.prefix + key)
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Errorf(format, args...)
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warnf(format, args...)
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Infof(format, args...)
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debugf(format, args...)
}
