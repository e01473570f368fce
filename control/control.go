// Package control wires commands to UI controls through explicit
// composition: a wrapper holding a typed, optional reference to a bound
// command, instead of a stringly keyed property bag on the widget.
package control

import (
	"context"
	"sync"

	"github.com/goliatone/go-dispatch"
	"github.com/goliatone/go-dispatch/observable"
)

// Control mirrors one widget's command binding. The widget's visual state
// follows the command's disabled condition through the SetDisabled hook;
// triggering the widget invokes the command. The toolkit side supplies
// only the hook, nothing else.
type Control struct {
	mu          sync.Mutex
	command     dispatch.Command
	setDisabled func(bool)
	sub         observable.Subscription
}

// Option configures a Control.
type Option func(*Control)

// WithDisabledHook sets the callback that pushes the disabled state into
// the widget.
func WithDisabledHook(fn func(disabled bool)) Option {
	return func(c *Control) {
		c.setDisabled = fn
	}
}

// New creates an unbound control.
func New(opts ...Option) *Control {
	c := &Control{}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Attach binds cmd to the control, replacing any previous binding. The
// disabled hook fires immediately with the command's current state and on
// every later change.
func (c *Control) Attach(cmd dispatch.Command) {
	c.mu.Lock()
	if c.sub != nil {
		c.sub.Unsubscribe()
		c.sub = nil
	}
	c.command = cmd
	hook := c.setDisabled
	if cmd != nil && hook != nil {
		c.sub = cmd.Disabled().Subscribe(hook)
	}
	c.mu.Unlock()

	if cmd != nil && hook != nil {
		hook(cmd.Disabled().Get())
	}
}

// Detach removes the binding, leaving the widget's state untouched.
func (c *Control) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sub != nil {
		c.sub.Unsubscribe()
		c.sub = nil
	}
	c.command = nil
}

// Command returns the bound command, or nil.
func (c *Control) Command() dispatch.Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.command
}

// Trigger fires the bound command, mirroring the widget's default action.
// An unbound or disabled control is a no-op; the command's own gate makes
// the disabled check authoritative even when the visual state lags.
func (c *Control) Trigger(ctx context.Context) error {
	c.mu.Lock()
	cmd := c.command
	c.mu.Unlock()

	if cmd == nil {
		return nil
	}
	return cmd.Invoke(ctx)
}
