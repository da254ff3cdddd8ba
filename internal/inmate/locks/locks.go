// Package locks serializes mutating work on a single inmate. Concurrent
// requests for the same (jurisdiction, id) pair take turns; requests for
// different inmates never contend.
package locks

import (
	"sync"

	"ibp/pkg/domain"
)

type key struct {
	jurisdiction domain.Jurisdiction
	id           int
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// Registry hands out per-inmate locks. The zero value is not usable; use
// NewRegistry.
type Registry struct {
	mu      sync.Mutex
	entries map[key]*entry
}

// NewRegistry builds an empty lock registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[key]*entry)}
}

// Lock acquires the lock for one inmate, blocking until it is free. The
// returned function releases it. Locks are reference counted, so the
// registry holds no state for inmates nobody is touching.
func (r *Registry) Lock(jurisdiction domain.Jurisdiction, id int) (release func()) {
	k := key{jurisdiction: jurisdiction, id: id}

	r.mu.Lock()
	e, ok := r.entries[k]
	if !ok {
		e = &entry{}
		r.entries[k] = e
	}
	e.refs++
	r.mu.Unlock()

	e.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()

			r.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(r.entries, k)
			}
			r.mu.Unlock()
		})
	}
}

// With runs fn while holding the lock for one inmate.
func (r *Registry) With(jurisdiction domain.Jurisdiction, id int, fn func() error) error {
	release := r.Lock(jurisdiction, id)
	defer release()
	return fn()
}
