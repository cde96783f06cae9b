// Package bolt provides a rewind.Storage backed by a bbolt database file
package bolt

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/kode4food/rewind"
)

type (
	// Storage keeps snapshots in one bucket and their sequences in another
	Storage struct {
		db        *bolt.DB
		values    []byte
		sequences []byte
	}

	// Config describes the database file and bucket to use
	Config struct {
		Path        string        `mapstructure:"path" yaml:"path" validate:"required"`
		Bucket      string        `mapstructure:"bucket" yaml:"bucket"`
		OpenTimeout time.Duration `mapstructure:"open_timeout" yaml:"open_timeout"`
	}
)

const (
	DefaultBucket      = "rewind"
	DefaultOpenTimeout = time.Second

	sequenceBucketSuffix = ".seq"
)

var _ rewind.SequencedStorage = (*Storage)(nil)

// DefaultConfig returns a Config for the given database path
func DefaultConfig(path string) Config {
	return Config{
		Path:        path,
		Bucket:      DefaultBucket,
		OpenTimeout: DefaultOpenTimeout,
	}
}

// Open opens or creates the database file and its buckets
func Open(cfg Config) (*Storage, error) {
	bucket := cfg.Bucket
	if bucket == "" {
		bucket = DefaultBucket
	}

	db, err := bolt.Open(cfg.Path, 0o600, &bolt.Options{
		Timeout: cfg.OpenTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open bolt database %s: %w", cfg.Path, err)
	}

	s := &Storage{
		db:        db,
		values:    []byte(bucket),
		sequences: []byte(bucket + sequenceBucketSuffix),
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{s.values, s.sequences} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bolt buckets: %w", err)
	}
	return s, nil
}

// Close closes the database file
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var res string
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(s.values).Get([]byte(key))
		if v == nil {
			return rewind.ErrNotFound
		}
		res = string(v)
		return nil
	})
	return res, err
}

func (s *Storage) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.values).Put([]byte(key), []byte(value))
	})
}

// SetSequenced stores value only if seq is newer than the stored sequence
func (s *Storage) SetSequenced(
	ctx context.Context, key, value string, seq int64,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		seqs := tx.Bucket(s.sequences)
		if stored := seqs.Get([]byte(key)); len(stored) == 8 {
			if int64(binary.BigEndian.Uint64(stored)) >= seq {
				return nil
			}
		}

		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(seq))
		if err := seqs.Put([]byte(key), buf); err != nil {
			return err
		}
		return tx.Bucket(s.values).Put([]byte(key), []byte(value))
	})
}

func (s *Storage) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(s.sequences).Delete([]byte(key)); err != nil {
			return err
		}
		return tx.Bucket(s.values).Delete([]byte(key))
	})
}
