package registry

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Registry memoizes one value per key. The first Get for
// a key runs the constructor; concurrent callers for the
// same key wait for that single construction and share
// its result. A failed construction is not memoized.
type Registry[V any] struct {
	mu     sync.RWMutex
	values map[string]V
	group  singleflight.Group
}

// New returns an empty Registry.
func New[V any]() *Registry[V] {
	return &Registry[V]{values: make(map[string]V)}
}

// Get returns the value registered under key, calling
// build to construct it when absent.
func (r *Registry[V]) Get(
	key string,
	build func() (V, error),
) (V, error) {
	if v, ok := r.Lookup(key); ok {
		return v, nil
	}

	res, err, _ := r.group.Do(key, func() (any, error) {
		// Another flight may have stored the value
		// between Lookup and Do.
		if v, ok := r.Lookup(key); ok {
			return v, nil
		}

		v, err := build()
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.values[key] = v
		r.mu.Unlock()

		return v, nil
	})
	if err != nil {
		var zero V

		return zero, fmt.Errorf(
			"building registry entry %q: %w", key, err,
		)
	}

	v, _ := res.(V)

	return v, nil
}

// Lookup returns the value for key without building it.
func (r *Registry[V]) Lookup(key string) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.values[key]

	return v, ok
}
