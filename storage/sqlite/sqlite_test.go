package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/rewind/internal/storagetest"
	"github.com/kode4food/rewind/storage/sqlite"
)

func openStorage(t *testing.T) *sqlite.Storage {
	t.Helper()
	s, err := sqlite.Open(context.Background(), sqlite.Config{
		Path: filepath.Join(t.TempDir(), "data", "rewind.sqlite"),
	})
	assert.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStorage(t *testing.T) {
	storagetest.Run(t, openStorage(t))
}

func TestSequenced(t *testing.T) {
	storagetest.RunSequenced(t, openStorage(t))
}

func TestCustomTable(t *testing.T) {
	ctx := context.Background()
	s, err := sqlite.Open(ctx, sqlite.Config{
		Path:  filepath.Join(t.TempDir(), "rewind.sqlite"),
		Table: `odd "name"`,
	})
	assert.NoError(t, err)
	defer func() { _ = s.Close() }()

	assert.NoError(t, s.Set(ctx, "doc", "x"))
	res, err := s.Get(ctx, "doc")
	assert.NoError(t, err)
	assert.Equal(t, "x", res)
}
