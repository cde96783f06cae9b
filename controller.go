package rewind

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

type (
	// Controller owns one linear timeline of values and mediates every
	// transition on it. All methods are safe for concurrent use. Updaters
	// passed to Update run while the Controller is locked, so they must not
	// call back into it
	Controller[T any] struct {
		state      *State[T]
		initial    T
		codec      snapshotCodec[T]
		equal      Equality[T]
		persister  *Persister[T]
		throttle   *Throttle
		logger     *zap.Logger
		metrics    *Metrics
		clock      func() time.Time
		listeners  map[uint64]Listener[T]
		pending    []*State[T]
		hydrated   chan struct{}
		cancel     context.CancelFunc
		config     Config
		nextID     uint64
		wg         sync.WaitGroup
		mu         sync.Mutex
		closeOnce  sync.Once
		isHydrated bool
		closed     bool
		delivering bool
	}

	// Listener is called with the resulting State after every transition
	// that changed it
	Listener[T any] func(*State[T])

	transition[T any] func(cur *State[T]) *State[T]
)

const (
	opSet     = "set"
	opCommit  = "commit"
	opUndo    = "undo"
	opRedo    = "redo"
	opReset   = "reset"
	opLoad    = "load"
	opClear   = "clear"
	opHydrate = "hydrate"
)

// ErrClosed is returned by WaitHydrated when the Controller was closed before
// hydration completed
var ErrClosed = errors.New("controller closed")

// NewController creates a Controller whose present is initial. If a Storage
// is configured, hydration from it starts in the background and the
// Controller is usable immediately with its default state
func NewController[T any](
	initial T, cfg Config, opts ...Option[T],
) *Controller[T] {
	o := makeOptions(opts)
	ctx, cancel := context.WithCancel(context.Background())

	c := &Controller[T]{
		state:     NewState(initial),
		initial:   initial,
		codec:     newSnapshotCodec[T](o.codec, cfg.Persistence.Version),
		equal:     o.equality,
		logger:    o.logger,
		metrics:   o.metrics,
		clock:     o.clock,
		listeners: map[uint64]Listener[T]{},
		hydrated:  make(chan struct{}),
		cancel:    cancel,
		config:    cfg,
	}
	c.throttle = NewThrottle(cfg.ThrottleWindow, func() { c.Commit() })

	if o.storage == nil {
		c.isHydrated = true
		c.closeOnce.Do(func() { close(c.hydrated) })
		return c
	}

	c.persister = newPersister(o.storage, cfg.Persistence, o)
	c.wg.Add(1)
	go c.hydrate(ctx, initial)
	return c
}

// State returns the current State. The returned State must not be modified
func (c *Controller[T]) State() *State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Present returns the current value
func (c *Controller[T]) Present() T {
	return c.State().Present
}

// CanUndo reports whether Undo would change the State
func (c *Controller[_]) CanUndo() bool {
	return c.State().CanUndo()
}

// CanRedo reports whether Redo would change the State
func (c *Controller[_]) CanRedo() bool {
	return c.State().CanRedo()
}

// Set replaces the present with v. By default the previous present is
// recorded in the past and the future is cleared. Setting a value equal to
// the present records nothing and returns the unchanged State
func (c *Controller[T]) Set(v T, opts ...SetOption) *State[T] {
	return c.Update(func(T) T { return v }, opts...)
}

// Update is Set with the next present computed from the current one
func (c *Controller[T]) Update(fn func(T) T, opts ...SetOption) *State[T] {
	if fn == nil {
		return c.State()
	}
	o := makeSetOptions(opts)
	return c.apply(opSet, o.persist, func(cur *State[T]) *State[T] {
		next := fn(cur.Present)
		same := c.equal(next, cur.Present)

		if o.record {
			if same {
				return cur
			}
			return &State[T]{
				Past:    appendTrimmed(cur.Past, cur.Present, c.config.MaxSize),
				Present: next,
				Future:  []T{},
			}
		}

		drop := o.shouldClearFuture(!c.config.KeepFutureByDefault)
		if same && (!drop || len(cur.Future) == 0) {
			return cur
		}
		future := cur.Future
		if drop {
			future = []T{}
		}
		return &State[T]{
			Past:    cur.Past,
			Present: next,
			Future:  future,
		}
	})
}

// Commit snapshots the present into the past without changing it, and
// clears the future. Committing a present that already tops the past
// creates no duplicate entry
func (c *Controller[T]) Commit() *State[T] {
	return c.apply(opCommit, true, func(cur *State[T]) *State[T] {
		if n := len(cur.Past); n > 0 && c.equal(cur.Past[n-1], cur.Present) {
			if len(cur.Future) == 0 {
				return cur
			}
			return &State[T]{
				Past:    cur.Past,
				Present: cur.Present,
				Future:  []T{},
			}
		}
		return &State[T]{
			Past:    appendTrimmed(cur.Past, cur.Present, c.config.MaxSize),
			Present: cur.Present,
			Future:  []T{},
		}
	})
}

// Mark commits through the Controller's throttle, using its clock. It
// reports whether a commit was attempted. A closed Controller never
// commits, so Mark returns false and leaves the throttle window untouched
func (c *Controller[_]) Mark() bool {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return false
	}
	return c.throttle.Mark(c.clock())
}

// Undo moves the most recent past value into the present
func (c *Controller[T]) Undo() *State[T] {
	return c.apply(opUndo, true, func(cur *State[T]) *State[T] {
		n := len(cur.Past) - 1
		if n < 0 {
			return cur
		}
		return &State[T]{
			Past:    cur.Past[:n:n],
			Present: cur.Past[n],
			Future:  prepend(cur.Present, cur.Future),
		}
	})
}

// Redo moves the nearest future value into the present
func (c *Controller[T]) Redo() *State[T] {
	return c.apply(opRedo, true, func(cur *State[T]) *State[T] {
		if len(cur.Future) == 0 {
			return cur
		}
		return &State[T]{
			Past:    appendTrimmed(cur.Past, cur.Present, c.config.MaxSize),
			Present: cur.Future[0],
			Future:  cur.Future[1:],
		}
	})
}

// Reset discards all history and restores the remembered initial value
func (c *Controller[T]) Reset() *State[T] {
	return c.apply(opReset, true, func(*State[T]) *State[T] {
		return NewState(c.initial)
	})
}

// ResetTo discards all history, makes v the present, and remembers v as the
// value future calls to Reset restore
func (c *Controller[T]) ResetTo(v T) *State[T] {
	return c.apply(opReset, true, func(*State[T]) *State[T] {
		c.initial = v
		return NewState(v)
	})
}

// Load replaces the entire State with a copy of s, trimming its past to the
// configured bound. A nil s is ignored
func (c *Controller[T]) Load(s *State[T]) *State[T] {
	if s == nil {
		return c.State()
	}
	return c.apply(opLoad, true, func(*State[T]) *State[T] {
		return c.normalize(s)
	})
}

// LoadRaw replaces the entire State with a serialized snapshot, as produced
// by Export. Malformed data is ignored, and LoadRaw reports whether the
// snapshot was usable
func (c *Controller[T]) LoadRaw(data string) bool {
	c.mu.Lock()
	initial := c.initial
	c.mu.Unlock()

	s := c.codec.Sanitize(data, initial)
	if s == nil {
		c.metrics.transition(opLoad, false)
		return false
	}
	c.Load(s)
	return true
}

// Export serializes the current State in the same format used for storage
func (c *Controller[T]) Export() (string, error) {
	return c.codec.Encode(c.State())
}

// Clear empties the past and future, keeping the present
func (c *Controller[T]) Clear() *State[T] {
	return c.apply(opClear, true, func(cur *State[T]) *State[T] {
		if len(cur.Past) == 0 && len(cur.Future) == 0 {
			return cur
		}
		return NewState(cur.Present)
	})
}

// Subscribe registers a Listener and returns a function that removes it.
// Listeners run after the Controller is unlocked, so they may call back
// into it. States are delivered one at a time in transition order, so the
// last State a Listener sees is the Controller's current one
func (c *Controller[T]) Subscribe(l Listener[T]) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = l
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

// Persister returns the Controller's Persister, or nil if no Storage was
// configured
func (c *Controller[T]) Persister() *Persister[T] {
	return c.persister
}

// Hydrated reports whether the initial read from storage has completed
func (c *Controller[_]) Hydrated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isHydrated
}

// WaitHydrated blocks until hydration completes, the Controller is closed,
// or ctx is done
func (c *Controller[_]) WaitHydrated(ctx context.Context) error {
	select {
	case <-c.hydrated:
		if !c.Hydrated() {
			return ErrClosed
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close tears the Controller down. A hydration still in flight is
// discarded, later transitions are ignored, and queued writes are flushed
// to storage before Close returns
func (c *Controller[_]) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.closeOnce.Do(func() { close(c.hydrated) })
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
	if c.persister != nil {
		return c.persister.Close()
	}
	return nil
}

func (c *Controller[T]) apply(
	op string, persist bool, fn transition[T],
) *State[T] {
	c.mu.Lock()
	cur := c.state
	if c.closed {
		c.mu.Unlock()
		return cur
	}

	next := fn(cur)
	if next == cur {
		c.mu.Unlock()
		c.metrics.transition(op, false)
		return cur
	}

	c.state = next
	if persist && c.persister != nil {
		c.persister.Write(next)
	}
	c.enqueueLocked(next)
	c.mu.Unlock()

	c.metrics.transition(op, true)
	c.deliver()
	return next
}

func (c *Controller[T]) hydrate(ctx context.Context, fallback T) {
	defer c.wg.Done()

	res := c.persister.Read(ctx, fallback)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.metrics.hydration(hydrateDiscarded)
		c.logger.Debug("Discarding hydration for closed controller",
			zap.String("key", c.persister.Key()),
		)
		return
	}

	if res != nil {
		c.state = c.normalize(res)
		res = c.state
		c.enqueueLocked(res)
	}
	c.isHydrated = true
	c.closeOnce.Do(func() { close(c.hydrated) })
	c.mu.Unlock()

	if res == nil {
		c.metrics.hydration(hydrateEmpty)
		c.logger.Debug("No stored history, keeping default state",
			zap.String("key", c.persister.Key()),
		)
		return
	}

	c.metrics.hydration(hydrateRestored)
	c.metrics.transition(opHydrate, true)
	c.logger.Debug("History restored from storage",
		zap.String("key", c.persister.Key()),
		zap.Int("past", len(res.Past)),
		zap.Int("future", len(res.Future)),
	)
	c.deliver()
}

func (c *Controller[T]) normalize(s *State[T]) *State[T] {
	past := s.Past
	if past == nil {
		past = []T{}
	}
	future := s.Future
	if future == nil {
		future = []T{}
	}
	return &State[T]{
		Past:    cloneSlice(Trim(past, c.config.MaxSize)),
		Present: s.Present,
		Future:  cloneSlice(future),
	}
}

func (c *Controller[T]) listenersLocked() []Listener[T] {
	if len(c.listeners) == 0 {
		return nil
	}
	res := make([]Listener[T], 0, len(c.listeners))
	for _, l := range c.listeners {
		res = append(res, l)
	}
	return res
}

func (c *Controller[T]) enqueueLocked(s *State[T]) {
	if len(c.listeners) > 0 {
		c.pending = append(c.pending, s)
	}
}

// deliver hands pending States to the listeners in the order they were
// installed. Only one goroutine delivers at a time; a transition made while
// another is delivering, including one made by a Listener, is picked up by
// that delivery loop
func (c *Controller[T]) deliver() {
	c.mu.Lock()
	if c.delivering {
		c.mu.Unlock()
		return
	}
	c.delivering = true

	for len(c.pending) > 0 {
		s := c.pending[0]
		c.pending[0] = nil
		c.pending = c.pending[1:]
		listeners := c.listenersLocked()
		c.mu.Unlock()
		notify(listeners, s)
		c.mu.Lock()
	}
	c.delivering = false
	c.mu.Unlock()
}

func notify[T any](listeners []Listener[T], s *State[T]) {
	for _, l := range listeners {
		l(s)
	}
}
