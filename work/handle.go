package work

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Handle identifies one in-flight operation. It carries the operation's
// resource-release callback and a done channel that closes when the
// operation completes, is canceled, or is closed explicitly.
type Handle struct {
	id      uuid.UUID
	name    string
	release func()
	done    chan struct{}
	once    sync.Once

	registry atomic.Pointer[Registry]
}

// NewHandle creates a handle for one operation. release runs exactly once,
// on whichever completion path reaches Close first; it may be nil.
func NewHandle(name string, release func()) *Handle {
	return &Handle{
		id:      uuid.New(),
		name:    name,
		release: release,
		done:    make(chan struct{}),
	}
}

// ID returns the handle identity.
func (h *Handle) ID() uuid.UUID {
	return h.id
}

// Name returns the operation label given at construction.
func (h *Handle) Name() string {
	return h.name
}

// Done returns a channel that closes when the handle is closed.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Closed reports whether Close has run.
func (h *Handle) Closed() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Close releases the operation's resources and removes the handle from its
// registry. Every completion path funnels through Close; calling it more
// than once, from any goroutine, is a no-op.
func (h *Handle) Close() {
	h.once.Do(func() {
		if h.release != nil {
			h.release()
		}
		close(h.done)
	})
	if r := h.registry.Load(); r != nil {
		r.Unregister(h)
	}
}
