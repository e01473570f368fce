package dispatch

import (
	"context"

	"github.com/goliatone/go-dispatch/observable"
)

// Command is the parameter-free view of a unit that wiring code (widget
// wrappers, schedulers, CLI hosts) consumes.
type Command interface {
	Invoke(ctx context.Context) error
	IsEnabled() bool
	IsRunning() bool
	Running() observable.Observable[bool]
	Disabled() observable.Observable[bool]
}

// Bound pairs a unit with an immutable parameter snapshot, producing a
// zero-argument callable. The pairing is a new value; the original unit is
// not mutated and keeps gating executions across all of its bindings.
type Bound[T any] struct {
	unit  *Unit[T]
	param T
}

// Bind creates a Bound value invoking the unit with param.
func (u *Unit[T]) Bind(param T) *Bound[T] {
	return &Bound[T]{unit: u, param: param}
}

// Invoke executes the underlying unit with the bound parameter.
func (b *Bound[T]) Invoke(ctx context.Context) error {
	return b.unit.ExecuteWith(ctx, b.param)
}

// Param returns the bound parameter snapshot.
func (b *Bound[T]) Param() T { return b.param }

// Unit returns the underlying unit.
func (b *Bound[T]) Unit() *Unit[T] { return b.unit }

func (b *Bound[T]) IsEnabled() bool { return b.unit.IsEnabled() }

func (b *Bound[T]) IsRunning() bool { return b.unit.IsRunning() }

func (b *Bound[T]) Running() observable.Observable[bool] { return b.unit.Running() }

func (b *Bound[T]) Disabled() observable.Observable[bool] { return b.unit.Disabled() }
