// Package registry provides a generic, ordered registry of named components
// such as extraction engines and search providers.
package registry

import (
	"sort"
	"sync"
)

// Named is anything with a stable name.
type Named interface {
	Name() string
}

// Registry keeps components in registration order and indexes them by name.
// Registering a name twice replaces the earlier entry in place.
type Registry[T Named] struct {
	mu     sync.RWMutex
	items  []T
	byName map[string]int
}

// New creates an empty registry.
func New[T Named]() *Registry[T] {
	return &Registry[T]{byName: make(map[string]int)}
}

// Register adds a component to the registry.
func (r *Registry[T]) Register(item T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i, ok := r.byName[item.Name()]; ok {
		r.items[i] = item
		return
	}
	r.byName[item.Name()] = len(r.items)
	r.items = append(r.items, item)
}

// Get returns the component registered under name.
func (r *Registry[T]) Get(name string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.byName[name]
	if !ok {
		var zero T
		return zero, false
	}
	return r.items[i], true
}

// All returns all registered components in registration order.
func (r *Registry[T]) All() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]T, len(r.items))
	copy(result, r.items)
	return result
}

// Names returns the registered names, sorted.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered components.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
