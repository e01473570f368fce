// Package work tracks in-flight asynchronous operations so callers can
// inspect, wait for, or release them in bulk. A handle is a member of its
// registry exactly while its operation is running; every completion path
// removes it exactly once.
package work

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Registry is a concurrent set of in-flight handles.
type Registry struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*Handle
	empty   chan struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	empty := make(chan struct{})
	close(empty)
	return &Registry{
		entries: make(map[uuid.UUID]*Handle),
		empty:   empty,
	}
}

// Register adds the handle. Registering an already closed handle is a
// no-op, so a completion racing the start path cannot leak an entry.
func (r *Registry) Register(h *Handle) {
	if h == nil || h.Closed() {
		return
	}
	h.registry.Store(r)

	r.mu.Lock()
	defer r.mu.Unlock()

	// Close may have won between the check above and taking the lock
	if h.Closed() {
		return
	}
	if len(r.entries) == 0 {
		r.empty = make(chan struct{})
	}
	r.entries[h.id] = h
}

// Unregister removes the handle. Removing a handle that is absent, or that
// another path already removed, is a no-op.
func (r *Registry) Unregister(h *Handle) {
	if h == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[h.id]; !ok {
		return
	}
	delete(r.entries, h.id)
	if len(r.entries) == 0 {
		close(r.empty)
	}
}

// Snapshot returns a point-in-time copy of the current entries. The caller
// iterates its own slice; no registry lock is held.
func (r *Registry) Snapshot() []*Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Handle, 0, len(r.entries))
	for _, h := range r.entries {
		out = append(out, h)
	}
	return out
}

// Len reports the number of in-flight operations.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// CloseAll releases every currently registered handle. Best effort,
// intended for shutdown; operations registered concurrently with CloseAll
// may survive it.
func (r *Registry) CloseAll() {
	for _, h := range r.Snapshot() {
		h.Close()
	}
}

// Wait blocks until the registry is empty or ctx is done.
func (r *Registry) Wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		empty := r.empty
		r.mu.Unlock()

		select {
		case <-empty:
			// recheck: a register may have raced the wakeup
			r.mu.Lock()
			n := len(r.entries)
			r.mu.Unlock()
			if n == 0 {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
