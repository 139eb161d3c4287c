package registry

import "sync"

// Registry is a thread-safe registry for values indexed by key.
// It uses sync.RWMutex for read-heavy workloads.
type Registry[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
}

// New creates a new empty registry.
func New[K comparable, V any]() *Registry[K, V] {
	return &Registry[K, V]{
		entries: make(map[K]V),
	}
}

// Keys returns all keys in the registry.
// The order is not guaranteed.
func (r *Registry[K, V]) Keys() []K {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]K, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	return keys
}

// Update atomically replaces the value for key with the result of fn.
// fn receives the current value and whether it exists. If fn returns an
// error the registry is left untouched and the error is returned.
func (r *Registry[K, V]) Update(key K, fn func(current V, exists bool) (V, error)) (V, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.entries[key]
	next, err := fn(current, ok)
	if err != nil {
		return current, err
	}
	r.entries[key] = next
	return next, nil
}

// View calls fn with the current value for key while holding the read lock.
// fn must not retain references that it later mutates.
func (r *Registry[K, V]) View(key K, fn func(current V, exists bool)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.entries[key]
	fn(v, ok)
}

// GetOrCreate returns the value for a key, creating it with the factory
// function if it doesn't exist. The factory is called at most once per key,
// even under concurrent access. created reports whether this call stored it.
func (r *Registry[K, V]) GetOrCreate(key K, factory func() V) (v V, created bool) {
	// Fast path: check if already exists
	r.mu.RLock()
	v, ok := r.entries[key]
	r.mu.RUnlock()
	if ok {
		return v, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if v, ok := r.entries[key]; ok {
		return v, false
	}

	v = factory()
	r.entries[key] = v
	return v, true
}
