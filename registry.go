package rewind

import "errors"

type (
	// Registry keeps the most recently used Controllers open, one per
	// document key. A Controller pushed out of the Registry is closed, which
	// flushes its pending writes, and the next Open for its key builds a new
	// one that hydrates from storage
	Registry[T any] struct {
		cache *lruCache[*Controller[T]]
		open  OpenFunc[T]
	}

	// OpenFunc builds the Controller for a document key
	OpenFunc[T any] func(key string) *Controller[T]
)

// NewRegistry creates a Registry holding at most size open Controllers
func NewRegistry[T any](size int, open OpenFunc[T]) *Registry[T] {
	return &Registry[T]{
		cache: newLRUCache[*Controller[T]](size),
		open:  open,
	}
}

// NewStorageRegistry creates a Registry whose Controllers all persist to
// the same Storage, each under its own key. The key given to Open is
// appended to cfg.Persistence.Key
func NewStorageRegistry[T any](
	size int, storage Storage, initial func() T, cfg Config,
	opts ...Option[T],
) *Registry[T] {
	base := cfg.Persistence.Key
	return NewRegistry(size, func(key string) *Controller[T] {
		docCfg := cfg
		docCfg.Persistence.Key = base + ":" + key
		all := append([]Option[T]{WithStorage[T](storage)}, opts...)
		return NewController(initial(), docCfg, all...)
	})
}

// Open returns the Controller for key, building it if it isn't open
func (r *Registry[T]) Open(key string) *Controller[T] {
	c, evicted := r.cache.Get(key, func() *Controller[T] {
		return r.open(key)
	})
	for _, e := range evicted {
		_ = e.Close()
	}
	return c
}

// Release closes the Controller for key, if it is open
func (r *Registry[_]) Release(key string) error {
	if c, ok := r.cache.Remove(key); ok {
		return c.Close()
	}
	return nil
}

// Len returns the number of open Controllers
func (r *Registry[_]) Len() int {
	return r.cache.Len()
}

// Close closes every open Controller
func (r *Registry[_]) Close() error {
	var errs []error
	for _, c := range r.cache.Drain() {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
