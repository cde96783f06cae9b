// Package etcd provides a rewind.Storage backed by an etcd cluster
package etcd

import (
	"context"
	"fmt"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/kode4food/rewind"
)

type (
	// Storage keeps snapshots as etcd keys under a common prefix
	Storage struct {
		client *clientv3.Client
		prefix string
		owned  bool
	}

	// Config describes how to reach the cluster
	Config struct {
		Endpoints   []string      `mapstructure:"endpoints" yaml:"endpoints" validate:"required,min=1"`
		Prefix      string        `mapstructure:"prefix" yaml:"prefix"`
		DialTimeout time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`
	}
)

const (
	DefaultEndpoint    = "localhost:2379"
	DefaultPrefix      = "/rewind/"
	DefaultDialTimeout = 5 * time.Second
)

// DefaultConfig returns a Config for a local single-node cluster
func DefaultConfig() Config {
	return Config{
		Endpoints:   []string{DefaultEndpoint},
		Prefix:      DefaultPrefix,
		DialTimeout: DefaultDialTimeout,
	}
}

// New connects to the cluster described by cfg. The connection is closed by
// Close
func New(cfg Config) (*Storage, error) {
	client, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to etcd: %w", err)
	}

	s := NewWithClient(client, cfg.Prefix)
	s.owned = true
	return s, nil
}

// NewWithClient wraps an existing client. Close leaves the client open
func NewWithClient(client *clientv3.Client, prefix string) *Storage {
	return &Storage{
		client: client,
		prefix: prefix,
	}
}

// Close closes the client if New created it
func (s *Storage) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}

func (s *Storage) Get(ctx context.Context, key string) (string, error) {
	resp, err := s.client.Get(ctx, s.prefix+key)
	if err != nil {
		return "", err
	}
	if len(resp.Kvs) == 0 {
		return "", rewind.ErrNotFound
	}
	return string(resp.Kvs[0].Value), nil
}

func (s *Storage) Set(ctx context.Context, key, value string) error {
	_, err := s.client.Put(ctx, s.prefix+key, value)
	return err
}

func (s *Storage) Remove(ctx context.Context, key string) error {
	_, err := s.client.Delete(ctx, s.prefix+key)
	return err
}
