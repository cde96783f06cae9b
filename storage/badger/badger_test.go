package badger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"github.com/kode4food/rewind/internal/storagetest"
	"github.com/kode4food/rewind/storage/badger"
)

func TestInMemory(t *testing.T) {
	cfg := badger.InMemoryConfig()
	cfg.Logger = zaptest.NewLogger(t)

	s, err := badger.Open(cfg)
	assert.NoError(t, err)
	defer func() { _ = s.Close() }()

	storagetest.Run(t, s)
}

func TestOnDisk(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := badger.Open(badger.Config{Path: dir, Prefix: "test:"})
	assert.NoError(t, err)
	assert.NoError(t, s.Set(ctx, "doc", "persisted"))
	assert.NoError(t, s.Close())

	s, err = badger.Open(badger.Config{Path: dir, Prefix: "test:"})
	assert.NoError(t, err)
	defer func() { _ = s.Close() }()

	res, err := s.Get(ctx, "doc")
	assert.NoError(t, err)
	assert.Equal(t, "persisted", res)
}

func TestPathRequired(t *testing.T) {
	_, err := badger.Open(badger.Config{})
	assert.ErrorIs(t, err, badger.ErrPathRequired)
}
