package rewind_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/rewind"
)

func TestRegistryReuse(t *testing.T) {
	var opened int
	reg := rewind.NewRegistry(2, func(string) *rewind.Controller[string] {
		opened++
		return rewind.NewController("", rewind.DefaultConfig())
	})
	defer func() { _ = reg.Close() }()

	a := reg.Open("a")
	assert.Same(t, a, reg.Open("a"))
	assert.Equal(t, 1, opened)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistryEvictsLeastRecent(t *testing.T) {
	reg := rewind.NewRegistry(2, func(string) *rewind.Controller[string] {
		return rewind.NewController("", rewind.DefaultConfig())
	})
	defer func() { _ = reg.Close() }()

	a := reg.Open("a")
	b := reg.Open("b")
	reg.Open("a")
	reg.Open("c")
	assert.Equal(t, 2, reg.Len())

	// b was least recently used, so it is closed and ignores edits
	s := b.Set("ignored")
	assert.Equal(t, "", s.Present)

	s = a.Set("kept")
	assert.Equal(t, "kept", s.Present)
	assert.NotSame(t, b, reg.Open("b"))
}

func TestStorageRegistry(t *testing.T) {
	ctx := context.Background()
	storage := rewind.NewMemoryStorage()
	cfg := rewind.DefaultConfig()
	cfg.Persistence.Key = "docs"

	reg := rewind.NewStorageRegistry(1, storage,
		func() string { return "empty" }, cfg,
	)

	for i := range 3 {
		key := fmt.Sprintf("doc-%d", i)
		c := reg.Open(key)
		assert.NoError(t, c.WaitHydrated(ctx))
		assert.Equal(t, "docs:"+key, c.Persister().Key())
		c.Set(key)
	}
	assert.Equal(t, 1, reg.Len())
	assert.NoError(t, reg.Close())
	assert.Equal(t, 0, reg.Len())

	for i := range 3 {
		key := fmt.Sprintf("doc-%d", i)
		raw, err := storage.Get(ctx, "docs:"+key)
		assert.NoError(t, err)
		assert.Contains(t, raw, `"present":"`+key+`"`)
	}

	reg = rewind.NewStorageRegistry(4, storage,
		func() string { return "empty" }, cfg,
	)
	defer func() { _ = reg.Close() }()
	c := reg.Open("doc-1")
	assert.NoError(t, c.WaitHydrated(ctx))
	assert.Equal(t, "doc-1", c.Present())
	assert.Equal(t, []string{"empty"}, c.State().Past)

	assert.NoError(t, reg.Release("doc-1"))
	assert.NoError(t, reg.Release("missing"))
	assert.Equal(t, 0, reg.Len())
}
