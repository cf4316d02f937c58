// Package registry provides a concurrency-safe keyed registry, used to pair
// a value registered by a producer with a later claim by a consumer running
// on another goroutine.
//
// Every operation holds a single mutex for the duration of one map
// operation only. Callers do any slow work, like closing the value they got
// back, after the call returns.
package registry

import "sync"

// Registry maps keys to values. The zero value is not usable; use New.
type Registry[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]V
}

// New returns an empty Registry.
func New[K comparable, V any]() *Registry[K, V] {
	return &Registry[K, V]{entries: make(map[K]V)}
}

// Swap stores v under k. If k already had a value, it is returned together
// with replaced == true; the caller now owns it.
func (r *Registry[K, V]) Swap(k K, v V) (prev V, replaced bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, replaced = r.entries[k]
	r.entries[k] = v
	return prev, replaced
}

// Take removes the value stored under k and returns it. ok is false if k
// was absent, in which case the registry is left untouched.
func (r *Registry[K, V]) Take(k K) (v V, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok = r.entries[k]
	if ok {
		delete(r.entries, k)
	}
	return v, ok
}

// Has reports whether k currently has a value.
func (r *Registry[K, V]) Has(k K) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.entries[k]
	return ok
}

// Len returns the number of entries.
func (r *Registry[K, V]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.entries)
}

// Keys returns the current keys in no particular order.
func (r *Registry[K, V]) Keys() []K {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]K, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	return keys
}

// Drain removes and returns all entries at once.
func (r *Registry[K, V]) Drain() map[K]V {
	r.mu.Lock()
	defer r.mu.Unlock()

	drained := r.entries
	r.entries = make(map[K]V, len(drained))
	return drained
}
