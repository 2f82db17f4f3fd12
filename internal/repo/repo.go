// Package repo provides a per-entity component repository with scoped access guards.
//
// Every entity gets its own lock. Callers acquire a guard immediately before use and
// release it immediately after; guards must never be cached across calls.
package repo

import (
	"cmp"
	"slices"
	"sync"
)

// Repository maps keys to components, each protected by its own RWMutex.
type Repository[K cmp.Ordered, V any] struct {
	mu      sync.RWMutex
	entries map[K]*slot[V]
	create  func(K) V
}

type slot[V any] struct {
	mu  sync.RWMutex
	val V
}

// New creates a repository. create builds a default component for Ensure; it may be nil
// if the repository is only populated through Put.
func New[K cmp.Ordered, V any](create func(K) V) *Repository[K, V] {
	return &Repository[K, V]{
		entries: make(map[K]*slot[V]),
		create:  create,
	}
}

// Guard is a scoped read or write handle on one component.
type Guard[V any] struct {
	val     V
	release func()
}

// Value returns the guarded component.
func (g *Guard[V]) Value() V {
	return g.val
}

// Release drops the lock. Calling Release twice is a no-op.
func (g *Guard[V]) Release() {
	if g.release != nil {
		g.release()
		g.release = nil
	}
}

func (r *Repository[K, V]) lookup(k K) (*slot[V], bool) {
	r.mu.RLock()
	s, ok := r.entries[k]
	r.mu.RUnlock()
	return s, ok
}

// Put stores v under k, replacing any existing component.
func (r *Repository[K, V]) Put(k K, v V) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.entries[k]; ok {
		s.mu.Lock()
		s.val = v
		s.mu.Unlock()
		return
	}
	r.entries[k] = &slot[V]{val: v}
}

// Delete removes the component for k.
func (r *Repository[K, V]) Delete(k K) {
	r.mu.Lock()
	delete(r.entries, k)
	r.mu.Unlock()
}

// Has reports whether a component exists for k.
func (r *Repository[K, V]) Has(k K) bool {
	_, ok := r.lookup(k)
	return ok
}

// Len returns the number of components.
func (r *Repository[K, V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Keys returns all keys in ascending order.
func (r *Repository[K, V]) Keys() []K {
	r.mu.RLock()
	keys := make([]K, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	r.mu.RUnlock()
	slices.Sort(keys)
	return keys
}

// Get acquires a read guard. The component must not be mutated through it.
func (r *Repository[K, V]) Get(k K) (*Guard[V], bool) {
	s, ok := r.lookup(k)
	if !ok {
		return nil, false
	}
	s.mu.RLock()
	return &Guard[V]{val: s.val, release: s.mu.RUnlock}, true
}

// GetForWrite acquires an exclusive write guard.
func (r *Repository[K, V]) GetForWrite(k K) (*Guard[V], bool) {
	s, ok := r.lookup(k)
	if !ok {
		return nil, false
	}
	s.mu.Lock()
	return &Guard[V]{val: s.val, release: s.mu.Unlock}, true
}

// Ensure acquires a write guard, creating the component first if it does not exist.
// It returns false when the component is missing and no create func was supplied.
func (r *Repository[K, V]) Ensure(k K) (*Guard[V], bool) {
	if g, ok := r.GetForWrite(k); ok {
		return g, true
	}
	if r.create == nil {
		return nil, false
	}
	r.mu.Lock()
	s, ok := r.entries[k]
	if !ok {
		s = &slot[V]{val: r.create(k)}
		r.entries[k] = s
	}
	r.mu.Unlock()
	s.mu.Lock()
	return &Guard[V]{val: s.val, release: s.mu.Unlock}, true
}

// Read runs fn under a read guard. It reports whether the component existed.
func (r *Repository[K, V]) Read(k K, fn func(V)) bool {
	g, ok := r.Get(k)
	if !ok {
		return false
	}
	defer g.Release()
	fn(g.Value())
	return true
}

// Write runs fn under a write guard. It reports whether the component existed.
func (r *Repository[K, V]) Write(k K, fn func(V)) bool {
	g, ok := r.GetForWrite(k)
	if !ok {
		return false
	}
	defer g.Release()
	fn(g.Value())
	return true
}

// WriteAll runs fn for every component concurrently, one goroutine per component,
// each holding only that component's write guard.
func (r *Repository[K, V]) WriteAll(fn func(K, V)) {
	var wg sync.WaitGroup
	for _, k := range r.Keys() {
		g, ok := r.GetForWrite(k)
		if !ok {
			continue
		}
		wg.Add(1)
		go func(k K, g *Guard[V]) {
			defer wg.Done()
			defer g.Release()
			fn(k, g.Value())
		}(k, g)
	}
	wg.Wait()
}
