// Package storagetest holds the behavior every rewind.Storage backend is
// expected to share, so each backend's tests can run the same checks
package storagetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/rewind"
)

// Run exercises the basic Get, Set and Remove contract against s
func Run(t *testing.T, s rewind.Storage) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing", func(t *testing.T) {
		_, err := s.Get(ctx, "missing")
		assert.ErrorIs(t, err, rewind.ErrNotFound)
		assert.NoError(t, s.Remove(ctx, "missing"))
	})

	t.Run("set and get", func(t *testing.T) {
		assert.NoError(t, s.Set(ctx, "doc", `{"version":1}`))
		res, err := s.Get(ctx, "doc")
		assert.NoError(t, err)
		assert.Equal(t, `{"version":1}`, res)

		assert.NoError(t, s.Set(ctx, "doc", "replaced"))
		res, err = s.Get(ctx, "doc")
		assert.NoError(t, err)
		assert.Equal(t, "replaced", res)
	})

	t.Run("keys are independent", func(t *testing.T) {
		assert.NoError(t, s.Set(ctx, "a/b:c", "one"))
		assert.NoError(t, s.Set(ctx, "a/b", "two"))

		res, err := s.Get(ctx, "a/b:c")
		assert.NoError(t, err)
		assert.Equal(t, "one", res)
		res, err = s.Get(ctx, "a/b")
		assert.NoError(t, err)
		assert.Equal(t, "two", res)
	})

	t.Run("remove", func(t *testing.T) {
		assert.NoError(t, s.Set(ctx, "gone", "x"))
		assert.NoError(t, s.Remove(ctx, "gone"))
		_, err := s.Get(ctx, "gone")
		assert.ErrorIs(t, err, rewind.ErrNotFound)
	})

	t.Run("controller round trip", func(t *testing.T) {
		cfg := rewind.DefaultConfig()
		cfg.Persistence.Key = "history"

		first := rewind.NewController("A", cfg, rewind.WithStorage[string](s))
		assert.NoError(t, first.WaitHydrated(ctx))
		first.Set("B")
		first.Set("C")
		first.Undo()
		assert.NoError(t, first.Close())

		second := rewind.NewController("A", cfg, rewind.WithStorage[string](s))
		defer func() { _ = second.Close() }()
		assert.NoError(t, second.WaitHydrated(ctx))

		st := second.State()
		assert.Equal(t, []string{"A"}, st.Past)
		assert.Equal(t, "B", st.Present)
		assert.Equal(t, []string{"C"}, st.Future)
	})
}

// RunSequenced checks that s refuses writes whose sequence is not newer
// than the stored one, and that Remove resets the sequence
func RunSequenced(t *testing.T, s rewind.SequencedStorage) {
	t.Helper()
	ctx := context.Background()

	assert.NoError(t, s.SetSequenced(ctx, "seq", "second", 20))
	assert.NoError(t, s.SetSequenced(ctx, "seq", "first", 10))
	assert.NoError(t, s.SetSequenced(ctx, "seq", "same", 20))

	res, err := s.Get(ctx, "seq")
	assert.NoError(t, err)
	assert.Equal(t, "second", res)

	assert.NoError(t, s.SetSequenced(ctx, "seq", "third", 30))
	res, err = s.Get(ctx, "seq")
	assert.NoError(t, err)
	assert.Equal(t, "third", res)

	assert.NoError(t, s.Remove(ctx, "seq"))
	assert.NoError(t, s.SetSequenced(ctx, "seq", "fresh", 1))
	res, err = s.Get(ctx, "seq")
	assert.NoError(t, err)
	assert.Equal(t, "fresh", res)
}
