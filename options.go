package rewind

import (
	"time"

	"go.uber.org/zap"
)

type (
	// Option configures a Controller or a Persister
	Option[T any] func(*options[T])

	// SetOption adjusts a single Set or Update call
	SetOption func(*setOptions)

	options[T any] struct {
		equality Equality[T]
		storage  Storage
		codec    Codec
		logger   *zap.Logger
		metrics  *Metrics
		clock    func() time.Time
	}

	setOptions struct {
		clearFuture *bool
		record      bool
		persist     bool
	}
)

// WithEquality replaces the default DeepEqual policy
func WithEquality[T any](eq Equality[T]) Option[T] {
	return func(o *options[T]) {
		if eq != nil {
			o.equality = eq
		}
	}
}

// WithStorage enables persistence through the provided Storage
func WithStorage[T any](s Storage) Option[T] {
	return func(o *options[T]) {
		o.storage = s
	}
}

// WithCodec replaces the default JSONCodec
func WithCodec[T any](c Codec) Option[T] {
	return func(o *options[T]) {
		if c != nil {
			o.codec = c
		}
	}
}

// WithLogger sets the logger used to report swallowed persistence failures
func WithLogger[T any](l *zap.Logger) Option[T] {
	return func(o *options[T]) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics attaches counters to the Controller and its Persister
func WithMetrics[T any](m *Metrics) Option[T] {
	return func(o *options[T]) {
		o.metrics = m
	}
}

// WithClock replaces time.Now as the source of time for Mark
func WithClock[T any](clock func() time.Time) Option[T] {
	return func(o *options[T]) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithoutRecord replaces the present without pushing a history entry
func WithoutRecord() SetOption {
	return func(o *setOptions) {
		o.record = false
	}
}

// KeepFuture preserves the redo future on an unrecorded Set
func KeepFuture() SetOption {
	return func(o *setOptions) {
		f := false
		o.clearFuture = &f
	}
}

// ClearFuture clears the redo future on an unrecorded Set, regardless of
// Config.KeepFutureByDefault
func ClearFuture() SetOption {
	return func(o *setOptions) {
		t := true
		o.clearFuture = &t
	}
}

// WithoutPersist suppresses the storage write for a single Set
func WithoutPersist() SetOption {
	return func(o *setOptions) {
		o.persist = false
	}
}

func makeOptions[T any](opts []Option[T]) *options[T] {
	o := &options[T]{
		equality: DeepEqual[T](),
		codec:    JSONCodec{},
		logger:   zap.NewNop(),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func makeSetOptions(opts []SetOption) *setOptions {
	o := &setOptions{
		record:  true,
		persist: true,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *setOptions) shouldClearFuture(byDefault bool) bool {
	if o.clearFuture != nil {
		return *o.clearFuture
	}
	return byDefault
}
