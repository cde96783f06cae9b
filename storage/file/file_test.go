package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/rewind/internal/storagetest"
	"github.com/kode4food/rewind/storage/file"
)

func TestStorage(t *testing.T) {
	s, err := file.Open(filepath.Join(t.TempDir(), "snapshots"))
	assert.NoError(t, err)

	storagetest.Run(t, s)
}

func TestFilesStayInDir(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := file.Open(dir)
	assert.NoError(t, err)
	assert.Equal(t, dir, s.Dir())

	assert.NoError(t, s.Set(ctx, "../escape/doc", "x"))

	entries, err := os.ReadDir(dir)
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, "..%2Fescape%2Fdoc.snapshot", entries[0].Name())
}

func TestEmptyDir(t *testing.T) {
	_, err := file.Open("  ")
	assert.ErrorIs(t, err, file.ErrEmptyDir)
}
