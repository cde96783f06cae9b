package rewind

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

type (
	// RedisStorage is a SequencedStorage backed by Redis or Valkey. Snapshot
	// values and their sequences live under separate keys sharing a prefix
	RedisStorage struct {
		client         *redis.Client
		putSequenced   *redis.Script
		removeSnapshot *redis.Script
		prefix         string
	}

	// RedisConfig describes how to reach Redis and how to prefix keys
	RedisConfig struct {
		Addr     string `mapstructure:"addr" yaml:"addr" validate:"required"`
		Password string `mapstructure:"password" yaml:"password"`
		Prefix   string `mapstructure:"prefix" yaml:"prefix"`
		DB       int    `mapstructure:"db" yaml:"db" validate:"gte=0"`
	}
)

const (
	RedisConnectTimeout = 5 * time.Second

	DefaultRedisEndpoint = "localhost:6379"
	DefaultRedisPrefix   = "rewind"
	DefaultRedisDB       = 0

	valueSuffix    = ":val"
	sequenceSuffix = ":seq"
)

// ErrUnexpectedLuaResult indicates a Lua script returned something other
// than what it was written to return
var ErrUnexpectedLuaResult = errors.New("unexpected result from Lua script")

// DefaultRedisConfig returns a RedisConfig for a local server
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:   DefaultRedisEndpoint,
		Prefix: DefaultRedisPrefix,
		DB:     DefaultRedisDB,
	}
}

// NewRedisStorage connects to Redis and verifies the connection
func NewRedisStorage(
	ctx context.Context, cfg RedisConfig,
) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, RedisConnectTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &RedisStorage{
		client:         client,
		prefix:         cfg.Prefix,
		putSequenced:   redis.NewScript(luaPutSequenced),
		removeSnapshot: redis.NewScript(luaRemoveSnapshot),
	}, nil
}

// Close releases the Redis connection
func (s *RedisStorage) Close() error {
	return s.client.Close()
}

func (s *RedisStorage) Get(ctx context.Context, key string) (string, error) {
	res, err := s.client.Get(ctx, s.buildKey(key, valueSuffix)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return res, err
}

// Set stores value unconditionally, leaving the stored sequence untouched
func (s *RedisStorage) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, s.buildKey(key, valueSuffix), value, 0).Err()
}

// SetSequenced stores value only if seq is newer than the stored sequence.
// A stale write is silently ignored
func (s *RedisStorage) SetSequenced(
	ctx context.Context, key, value string, seq int64,
) error {
	keys := []string{
		s.buildKey(key, valueSuffix),
		s.buildKey(key, sequenceSuffix),
	}
	res, err := s.putSequenced.Run(ctx, s.client, keys, value, seq).Int64()
	if err != nil {
		return err
	}
	if res != 0 && res != 1 {
		return ErrUnexpectedLuaResult
	}
	return nil
}

func (s *RedisStorage) Remove(ctx context.Context, key string) error {
	keys := []string{
		s.buildKey(key, valueSuffix),
		s.buildKey(key, sequenceSuffix),
	}
	return s.removeSnapshot.Run(ctx, s.client, keys).Err()
}

func (s *RedisStorage) buildKey(key, suffix string) string {
	if s.prefix == "" {
		return key + suffix
	}
	return s.prefix + ":" + key + suffix
}
