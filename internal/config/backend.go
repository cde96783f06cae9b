package config

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kode4food/rewind"
	"github.com/kode4food/rewind/storage/badger"
	"github.com/kode4food/rewind/storage/bolt"
	"github.com/kode4food/rewind/storage/etcd"
	"github.com/kode4food/rewind/storage/file"
	"github.com/kode4food/rewind/storage/postgres"
	"github.com/kode4food/rewind/storage/sqlite"
)

// CloseFunc releases whatever a backend holds open
type CloseFunc func() error

// ErrUnknownBackend indicates a backend name Open does not recognize
var ErrUnknownBackend = errors.New("unknown storage backend")

// OpenStorage opens the backend selected by the Config. The returned
// CloseFunc must be called once the storage is no longer used
func (c Config) OpenStorage(
	ctx context.Context, logger *zap.Logger,
) (rewind.Storage, CloseFunc, error) {
	switch c.Backend {
	case BackendMemory:
		return rewind.NewMemoryStorage(), noClose, nil

	case BackendFile:
		s, err := file.Open(c.File.Dir)
		if err != nil {
			return nil, nil, err
		}
		return s, noClose, nil

	case BackendBolt:
		s, err := bolt.Open(c.Bolt)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	case BackendBadger:
		cfg := c.Badger
		cfg.Logger = logger.Named("badger")
		s, err := badger.Open(cfg)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	case BackendSQLite:
		s, err := sqlite.Open(ctx, c.SQLite)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	case BackendRedis:
		s, err := rewind.NewRedisStorage(ctx, c.Redis)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	case BackendPostgres:
		s, err := postgres.Open(ctx, c.Postgres)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	case BackendEtcd:
		s, err := etcd.New(c.Etcd)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownBackend, c.Backend)
	}
}

func noClose() error {
	return nil
}
