package rewind

import (
	"context"
	"errors"
	"sync"
)

type (
	// Storage is the key-value capability a Persister writes snapshots
	// through. Get returns ErrNotFound when nothing is stored under the key
	Storage interface {
		Get(ctx context.Context, key string) (string, error)
		Set(ctx context.Context, key, value string) error
		Remove(ctx context.Context, key string) error
	}

	// SequencedStorage is implemented by backends that can refuse a write
	// whose sequence is not newer than the one already stored
	SequencedStorage interface {
		Storage
		SetSequenced(ctx context.Context, key, value string, seq int64) error
	}

	// MemoryStorage is a Storage backed by a map. It is mostly useful for
	// tests and for hosts that only need persistence across Controllers in
	// the same process
	MemoryStorage struct {
		mu    sync.RWMutex
		items map[string]string
	}
)

// ErrNotFound indicates that nothing is stored under the requested key
var ErrNotFound = errors.New("snapshot not found")

// NewMemoryStorage returns an empty MemoryStorage
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		items: map[string]string{},
	}
}

func (m *MemoryStorage) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.items[key]; ok {
		return v, nil
	}
	return "", ErrNotFound
}

func (m *MemoryStorage) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *MemoryStorage) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}
