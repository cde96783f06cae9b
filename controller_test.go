package rewind_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/kode4food/rewind"
)

func newStrings(initial string, maxSize int) *rewind.Controller[string] {
	cfg := rewind.DefaultConfig()
	cfg.MaxSize = maxSize
	return rewind.NewController(initial, cfg)
}

func TestUndoRedoScenario(t *testing.T) {
	c := newStrings("A", 0)
	defer func() { _ = c.Close() }()

	s := c.Set("B")
	assert.Equal(t, "B", s.Present)
	assert.Equal(t, []string{"A"}, s.Past)

	s = c.Set("C")
	assert.Equal(t, "C", s.Present)
	assert.Equal(t, []string{"A", "B"}, s.Past)

	s = c.Undo()
	assert.Equal(t, "B", s.Present)
	assert.Equal(t, []string{"A"}, s.Past)
	assert.Equal(t, []string{"C"}, s.Future)

	s = c.Undo()
	assert.Equal(t, "A", s.Present)
	assert.Empty(t, s.Past)
	assert.Equal(t, []string{"B", "C"}, s.Future)

	s = c.Redo()
	assert.Equal(t, "B", s.Present)
	assert.Equal(t, []string{"A"}, s.Past)
	assert.Equal(t, []string{"C"}, s.Future)
}

func TestBoundedPast(t *testing.T) {
	c := newStrings("0", 2)
	defer func() { _ = c.Close() }()

	for _, v := range []string{"1", "2", "3", "4"} {
		c.Set(v)
	}

	s := c.State()
	assert.Equal(t, []string{"2", "3"}, s.Past)
	assert.Equal(t, "4", s.Present)
}

func TestBoundedRedo(t *testing.T) {
	c := newStrings("0", 2)
	defer func() { _ = c.Close() }()

	c.Load(&rewind.State[string]{
		Past:    []string{"a", "b"},
		Present: "c",
		Future:  []string{"d", "e"},
	})
	s := c.Redo()
	assert.Equal(t, []string{"b", "c"}, s.Past)
	assert.Equal(t, "d", s.Present)
	assert.Equal(t, []string{"e"}, s.Future)
}

func TestBoundingKeepsLastValues(t *testing.T) {
	const n, k = 5, 7
	c := rewind.NewController(0, rewind.Config{MaxSize: n})
	defer func() { _ = c.Close() }()

	for i := 1; i <= n+k; i++ {
		c.Set(i)
	}

	s := c.State()
	assert.Len(t, s.Past, n)
	assert.Equal(t, []int{7, 8, 9, 10, 11}, s.Past)
	assert.Equal(t, n+k, s.Present)
}

func TestUndoReversesSet(t *testing.T) {
	c := rewind.NewController(0, rewind.DefaultConfig())
	defer func() { _ = c.Close() }()

	for i := 1; i <= 10; i++ {
		before := c.Present()
		c.Set(i)
		s := c.Undo()
		assert.Equal(t, before, s.Present)
		s = c.Redo()
		assert.Equal(t, i, s.Present)
	}
}

func TestSetIdempotent(t *testing.T) {
	c := newStrings("A", 0)
	defer func() { _ = c.Close() }()

	s1 := c.Set("B")
	s2 := c.Set("B")
	assert.Same(t, s1, s2)
	assert.Equal(t, []string{"A"}, s2.Past)

	s3 := c.Set("B", rewind.WithoutRecord())
	assert.Same(t, s1, s3)
}

func TestSetClearsFuture(t *testing.T) {
	c := newStrings("A", 0)
	defer func() { _ = c.Close() }()

	c.Set("B")
	c.Undo()
	assert.True(t, c.CanRedo())

	s := c.Set("C")
	assert.Empty(t, s.Future)
	assert.False(t, c.CanRedo())
	assert.Equal(t, []string{"A"}, s.Past)
}

func TestSetWithoutRecord(t *testing.T) {
	c := newStrings("A", 0)
	defer func() { _ = c.Close() }()

	c.Set("B")
	c.Undo()

	as := assert.New(t)
	s := c.Set("X", rewind.WithoutRecord(), rewind.KeepFuture())
	as.Equal("X", s.Present)
	as.Empty(s.Past)
	as.Equal([]string{"B"}, s.Future)

	s = c.Set("Y", rewind.WithoutRecord())
	as.Equal("Y", s.Present)
	as.Empty(s.Past)
	as.Empty(s.Future)
}

func TestSetWithoutRecordSameValueClearsFuture(t *testing.T) {
	c := newStrings("A", 0)
	defer func() { _ = c.Close() }()

	c.Set("B")
	before := c.Undo()

	s := c.Set("A", rewind.WithoutRecord(), rewind.KeepFuture())
	assert.Same(t, before, s)

	s = c.Set("A", rewind.WithoutRecord())
	assert.NotSame(t, before, s)
	assert.Equal(t, "A", s.Present)
	assert.Empty(t, s.Future)
}

func TestKeepFutureByDefault(t *testing.T) {
	cfg := rewind.DefaultConfig()
	cfg.KeepFutureByDefault = true
	c := rewind.NewController("A", cfg)
	defer func() { _ = c.Close() }()

	c.Set("B")
	c.Undo()

	s := c.Set("Z", rewind.WithoutRecord())
	assert.Equal(t, []string{"B"}, s.Future)

	s = c.Set("W", rewind.WithoutRecord(), rewind.ClearFuture())
	assert.Empty(t, s.Future)
}

func TestZeroConfigClearsFuture(t *testing.T) {
	c := rewind.NewController("A", rewind.Config{})
	defer func() { _ = c.Close() }()

	c.Set("B")
	c.Undo()
	assert.Equal(t, []string{"B"}, c.State().Future)

	s := c.Set("X", rewind.WithoutRecord())
	assert.Equal(t, "X", s.Present)
	assert.Empty(t, s.Future)
}

func TestUpdate(t *testing.T) {
	c := rewind.NewController(1, rewind.DefaultConfig())
	defer func() { _ = c.Close() }()

	s := c.Update(func(v int) int { return v * 10 })
	assert.Equal(t, 10, s.Present)
	assert.Equal(t, []int{1}, s.Past)

	assert.Same(t, s, c.Update(nil))
}

func TestCommit(t *testing.T) {
	c := newStrings("A", 0)
	defer func() { _ = c.Close() }()

	s := c.Commit()
	assert.Equal(t, []string{"A"}, s.Past)
	assert.Equal(t, "A", s.Present)

	assert.Same(t, s, c.Commit())

	c.Set("B", rewind.WithoutRecord())
	s = c.Commit()
	assert.Equal(t, []string{"A", "B"}, s.Past)
	assert.Equal(t, "B", s.Present)

	s = c.Undo()
	assert.Equal(t, "B", s.Present)
	assert.Equal(t, []string{"B"}, s.Future)
	s = c.Commit()
	assert.Equal(t, []string{"A", "B"}, s.Past)
	assert.Empty(t, s.Future)
}

func TestUndoRedoEmpty(t *testing.T) {
	c := newStrings("A", 0)
	defer func() { _ = c.Close() }()

	s := c.State()
	assert.Same(t, s, c.Undo())
	assert.Same(t, s, c.Redo())
	assert.False(t, c.CanUndo())
	assert.False(t, c.CanRedo())
}

func TestReset(t *testing.T) {
	c := newStrings("A", 0)
	defer func() { _ = c.Close() }()

	c.Set("B")
	c.Set("C")
	c.Undo()

	s := c.Reset()
	assert.Equal(t, "A", s.Present)
	assert.Empty(t, s.Past)
	assert.Empty(t, s.Future)

	s = c.ResetTo("Q")
	assert.Equal(t, "Q", s.Present)
	assert.Empty(t, s.Past)

	c.Set("R")
	s = c.Reset()
	assert.Equal(t, "Q", s.Present)
}

func TestClear(t *testing.T) {
	c := newStrings("A", 0)
	defer func() { _ = c.Close() }()

	s := c.State()
	assert.Same(t, s, c.Clear())

	c.Set("B")
	c.Set("C")
	c.Undo()
	s = c.Clear()
	assert.Equal(t, "B", s.Present)
	assert.Empty(t, s.Past)
	assert.Empty(t, s.Future)
}

func TestLoad(t *testing.T) {
	c := newStrings("A", 2)
	defer func() { _ = c.Close() }()

	s := c.State()
	assert.Same(t, s, c.Load(nil))

	in := &rewind.State[string]{
		Past:    []string{"1", "2", "3"},
		Present: "4",
	}
	s = c.Load(in)
	assert.Equal(t, []string{"2", "3"}, s.Past)
	assert.Equal(t, "4", s.Present)
	assert.NotNil(t, s.Future)
	assert.Empty(t, s.Future)

	in.Past[2] = "changed"
	assert.Equal(t, []string{"2", "3"}, c.State().Past)
}

func TestLoadRaw(t *testing.T) {
	c := newStrings("A", 0)
	defer func() { _ = c.Close() }()

	before := c.State()
	assert.False(t, c.LoadRaw("not json{"))
	assert.False(t, c.LoadRaw("{}"))
	assert.False(t, c.LoadRaw(`{"version":2,"past":[],"present":"x"}`))
	assert.False(t, c.LoadRaw(`{"version":1,"past":[1,2],"present":"x"}`))
	assert.Same(t, before, c.State())

	assert.True(t, c.LoadRaw(
		`{"version":1,"past":["a"],"present":"b","future":"oops"}`,
	))
	s := c.State()
	assert.Equal(t, []string{"a"}, s.Past)
	assert.Equal(t, "b", s.Present)
	assert.Empty(t, s.Future)

	assert.True(t, c.LoadRaw(`{"version":1}`))
	s = c.State()
	assert.Equal(t, "A", s.Present)
	assert.Empty(t, s.Past)
}

func TestExportLoadRaw(t *testing.T) {
	c := newStrings("A", 0)
	defer func() { _ = c.Close() }()

	c.Set("B")
	c.Set("C")
	c.Undo()

	data, err := c.Export()
	assert.NoError(t, err)
	assert.JSONEq(t,
		`{"version":1,"past":["A"],"present":"B","future":["C"]}`, data,
	)

	other := newStrings("Z", 0)
	defer func() { _ = other.Close() }()
	assert.True(t, other.LoadRaw(data))
	assert.Equal(t, c.State(), other.State())
}

func TestSubscribe(t *testing.T) {
	c := newStrings("A", 0)
	defer func() { _ = c.Close() }()

	var seen []string
	unsubscribe := c.Subscribe(func(s *rewind.State[string]) {
		seen = append(seen, s.Present)
		assert.Equal(t, s, c.State())
	})

	c.Set("B")
	c.Set("B")
	c.Undo()
	c.Redo()
	unsubscribe()
	unsubscribe()
	c.Set("C")

	assert.Equal(t, []string{"B", "A", "B"}, seen)
}

func TestSubscribeReentrant(t *testing.T) {
	c := newStrings("A", 0)
	defer func() { _ = c.Close() }()

	var seen []string
	c.Subscribe(func(s *rewind.State[string]) {
		seen = append(seen, s.Present)
		if s.Present == "B" {
			c.Set("C")
		}
	})

	s := c.Set("B")
	assert.Equal(t, "B", s.Present)
	assert.Equal(t, []string{"B", "C"}, seen)
	assert.Equal(t, "C", c.Present())
}

func TestSubscribeConcurrentOrder(t *testing.T) {
	c := rewind.NewController(0, rewind.DefaultConfig())
	defer func() { _ = c.Close() }()

	var mu sync.Mutex
	var seen []int
	var last *rewind.State[int]
	c.Subscribe(func(s *rewind.State[int]) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, s.Present)
		last = s
	})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				c.Update(func(v int) int { return v + 1 })
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Same(t, c.State(), last)
	assert.Len(t, seen, 400)
	for i, v := range seen {
		assert.Equal(t, i+1, v)
	}
}

func TestClosedControllerIgnoresTransitions(t *testing.T) {
	c := newStrings("A", 0)
	c.Set("B")
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())

	s := c.Set("C")
	assert.Equal(t, "B", s.Present)
	assert.Same(t, s, c.Undo())
	assert.Same(t, s, c.Reset())
}

func TestHydratedWithoutStorage(t *testing.T) {
	c := newStrings("A", 0)

	assert.True(t, c.Hydrated())
	assert.NoError(t, c.WaitHydrated(context.Background()))
	assert.Nil(t, c.Persister())

	assert.NotPanics(t, func() { assert.NoError(t, c.Close()) })
	assert.NotPanics(t, func() { assert.NoError(t, c.Close()) })
	assert.NoError(t, c.WaitHydrated(context.Background()))
}

func TestConcurrentTransitions(t *testing.T) {
	c := rewind.NewController(0, rewind.DefaultConfig())
	defer func() { _ = c.Close() }()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				c.Update(func(v int) int { return v + 1 })
			}
		}()
	}
	wg.Wait()

	s := c.State()
	assert.Equal(t, 800, s.Present)
	assert.Len(t, s.Past, 800)
}

func TestWithMetrics(t *testing.T) {
	m := rewind.NewMetrics(nil)
	c := rewind.NewController("A", rewind.DefaultConfig(),
		rewind.WithMetrics[string](m),
		rewind.WithEquality(rewind.Comparable[string]()),
	)
	defer func() { _ = c.Close() }()

	c.Set("B")
	c.Set("B")
	c.Undo()
	c.Undo()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions("set")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Noops("set")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions("undo")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Noops("undo")))
}

func TestWaitHydratedTimeout(t *testing.T) {
	storage := &blockingStorage{release: make(chan struct{})}
	c := rewind.NewController("A", rewind.DefaultConfig(),
		rewind.WithStorage[string](storage),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.WaitHydrated(ctx), context.DeadlineExceeded)
	assert.False(t, c.Hydrated())

	// edits made before hydration operate on the default state
	s := c.Set("B")
	assert.Equal(t, []string{"A"}, s.Past)

	close(storage.release)
	assert.NoError(t, c.WaitHydrated(context.Background()))
	assert.NoError(t, c.Close())
}
