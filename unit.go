// Package dispatch implements a reactive unit-of-work engine for UI
// applications: commands that know whether they are enabled and running,
// execute on a chosen context (caller, worker, or the UI loop), and never
// overlap their own executions.
package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-dispatch/observable"
	"github.com/goliatone/go-dispatch/uithread"
	"github.com/goliatone/go-dispatch/work"
	"github.com/goliatone/go-errors"
)

// ErrorHandler receives failures from executions whose caller is gone by
// the time they fail (Background and UIAsync actions, failed UIAsync
// marshals).
type ErrorHandler func(error)

// Unit binds an action, an enablement condition, and a dispatch mode.
//
// Acceptance is a single atomic check-and-set: an execution is accepted
// only while the unit is enabled and not running, and the running flag's
// true-then-false transition for one execution is visible before the next
// can be accepted. The flag is reset on every exit path, including action
// errors, panics on worker goroutines, and marshal failures.
type Unit[T any] struct {
	mu   sync.Mutex
	busy bool

	action  Action[T]
	mode    Mode
	name    string
	timeout time.Duration

	enabled observable.Observable[bool]
	running *observable.Value[bool]

	loop     *uithread.Loop
	registry *work.Registry
	logger   Logger
	onError  ErrorHandler
}

// Option defines the functional option signature for units.
type Option[T any] func(*Unit[T])

// WithMode sets the dispatch mode. Default is Inline.
func WithMode[T any](m Mode) Option[T] {
	return func(u *Unit[T]) {
		u.mode = m
	}
}

// WithEnabledWhen supplies the externally owned enablement condition. The
// unit keeps a non-owning reference; the condition is fixed at
// construction. Nil means always enabled.
func WithEnabledWhen[T any](cond observable.Observable[bool]) Option[T] {
	return func(u *Unit[T]) {
		if cond != nil {
			u.enabled = cond
		}
	}
}

// WithLoop supplies the UI loop used by UISync and UIAsync modes.
func WithLoop[T any](l *uithread.Loop) Option[T] {
	return func(u *Unit[T]) {
		u.loop = l
	}
}

// WithRegistry tracks Background and UIAsync executions in r for their
// duration.
func WithRegistry[T any](r *work.Registry) Option[T] {
	return func(u *Unit[T]) {
		u.registry = r
	}
}

// WithLogger sets the unit logger.
func WithLogger[T any](l Logger) Option[T] {
	return func(u *Unit[T]) {
		if l != nil {
			u.logger = l
		}
	}
}

// WithErrorHandler sets the failure channel for executions with no caller
// to report to.
func WithErrorHandler[T any](h ErrorHandler) Option[T] {
	return func(u *Unit[T]) {
		if h == nil {
			h = func(error) {}
		}
		u.onError = h
	}
}

// WithTimeout bounds each execution with a derived context deadline.
func WithTimeout[T any](d time.Duration) Option[T] {
	return func(u *Unit[T]) {
		u.timeout = d
	}
}

// WithName labels the unit in logs and work-registry entries.
func WithName[T any](name string) Option[T] {
	return func(u *Unit[T]) {
		u.name = name
	}
}

// NewUnit constructs a unit from an action and options, applying defaults
// if unset.
func NewUnit[T any](action Action[T], opts ...Option[T]) (*Unit[T], error) {
	if action == nil {
		return nil, errors.New("action cannot be nil", errors.CategoryBadInput).
			WithTextCode(ErrCodeNilAction)
	}

	u := &Unit[T]{
		action:  action,
		mode:    Inline,
		name:    "command",
		enabled: observable.Const(true),
		running: observable.NewValue(false),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(u)
		}
	}
	if u.logger == nil {
		u.logger = NewFmtLogger(nil)
	}
	if u.onError == nil {
		logger := u.logger
		name := u.name
		u.onError = func(err error) {
			logger.Error("command %s failed: %v", name, err)
		}
	}
	return u, nil
}

// MustUnit is NewUnit for static wiring where a nil action is a programming
// error.
func MustUnit[T any](action Action[T], opts ...Option[T]) *Unit[T] {
	u, err := NewUnit(action, opts...)
	if err != nil {
		panic(err)
	}
	return u
}

// Name returns the unit label.
func (u *Unit[T]) Name() string { return u.name }

// Mode returns the dispatch mode fixed at construction.
func (u *Unit[T]) Mode() Mode { return u.mode }

// IsEnabled returns a snapshot of the enablement condition.
func (u *Unit[T]) IsEnabled() bool { return u.enabled.Get() }

// IsRunning returns a snapshot of the running flag.
func (u *Unit[T]) IsRunning() bool { return u.running.Get() }

// Running exposes the owned running flag read-only.
func (u *Unit[T]) Running() observable.Observable[bool] { return u.running }

// Enabled exposes the enablement condition.
func (u *Unit[T]) Enabled() observable.Observable[bool] { return u.enabled }

// Executable derives the execution gate: enabled and not running. Readers
// always observe a value consistent with the latest writes to either input.
func (u *Unit[T]) Executable() observable.Observable[bool] {
	return observable.And(u.enabled, observable.Not(u.running))
}

// Disabled derives the condition widget wiring consumes: not enabled, or
// running.
func (u *Unit[T]) Disabled() observable.Observable[bool] {
	return observable.Or(observable.Not(u.enabled), u.running)
}

// Execute runs the unit with the zero parameter.
func (u *Unit[T]) Execute(ctx context.Context) error {
	var zero T
	return u.ExecuteWith(ctx, zero)
}

// ExecuteWith dispatches the action with param on the unit's mode. A call
// while the unit is disabled or already running is a silent no-op; the
// parameter is never consulted by the gate. Inline and UISync return the
// action's error; Background and UIAsync return once the execution has
// been handed off.
func (u *Unit[T]) ExecuteWith(ctx context.Context, param T) error {
	_, err := u.TryExecute(ctx, param)
	return err
}

// TryExecute is ExecuteWith plus an accepted flag, for callers that need
// to distinguish a rejected execution from a successful one.
func (u *Unit[T]) TryExecute(ctx context.Context, param T) (bool, error) {
	if !u.accept() {
		return false, nil
	}

	switch u.mode {
	case Background:
		u.runBackground(ctx, param)
		return true, nil
	case UISync:
		return true, u.runUISync(ctx, param)
	case UIAsync:
		u.runUIAsync(ctx, param)
		return true, nil
	default:
		return true, u.runInline(ctx, param)
	}
}

// Invoke satisfies Command, executing with the zero parameter.
func (u *Unit[T]) Invoke(ctx context.Context) error {
	return u.Execute(ctx)
}

// accept performs the atomic check-and-set that gates execution. busy is
// the authoritative bit; the running observable mirrors it for readers and
// is flipped outside the unit mutex so listeners cannot deadlock the gate.
func (u *Unit[T]) accept() bool {
	u.mu.Lock()
	if u.busy || !u.enabled.Get() {
		u.mu.Unlock()
		return false
	}
	u.busy = true
	u.mu.Unlock()

	u.running.Set(true)
	return true
}

// release reverses accept. The running observable flips back before the
// gate reopens, so no reader can accept execution N+1 while still
// observing execution N as running.
func (u *Unit[T]) release() {
	u.running.Set(false)
	u.mu.Lock()
	u.busy = false
	u.mu.Unlock()
}

func (u *Unit[T]) runInline(ctx context.Context, param T) error {
	defer u.release()
	return u.invoke(ctx, param)
}

func (u *Unit[T]) runUISync(ctx context.Context, param T) error {
	defer u.release()

	if u.loop == nil {
		return errNoLoop(u.mode)
	}

	var actionErr error
	if err := u.loop.Invoke(func() {
		actionErr = u.invoke(ctx, param)
	}); err != nil {
		return wrapMarshalError(err)
	}
	return actionErr
}

func (u *Unit[T]) runBackground(ctx context.Context, param T) {
	handle := u.newHandle(ctx)
	go func() {
		defer u.release()
		defer handle.Close()

		if err := u.runRecovered(handle.Context(), param); err != nil {
			u.onError(err)
		}
	}()
}

func (u *Unit[T]) runUIAsync(ctx context.Context, param T) {
	handle := u.newHandle(ctx)
	go func() {
		defer handle.Close()

		err := u.runRecovered(handle.Context(), param)
		finish := func() {
			u.release()
			if err != nil {
				u.onError(err)
			}
		}

		if u.loop == nil {
			u.onError(errNoLoop(u.mode))
			finish()
			return
		}
		if postErr := u.loop.Post(finish); postErr != nil {
			u.onError(wrapMarshalError(postErr))
			finish()
		}
	}()
}

// runRecovered executes the action on the current goroutine and converts a
// panic into an error so worker goroutines report through the error
// handler instead of crashing the process.
func (u *Unit[T]) runRecovered(ctx context.Context, param T) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = panicError(u.name, rec)
		}
	}()
	return u.invoke(ctx, param)
}

func (u *Unit[T]) invoke(ctx context.Context, param T) error {
	ctx, cancel := u.contextWithSettings(ctx)
	defer cancel()
	return u.action.Execute(ctx, param)
}

func (u *Unit[T]) contextWithSettings(parent context.Context) (context.Context, context.CancelFunc) {
	if u.timeout != 0 {
		return context.WithTimeout(parent, u.timeout)
	}
	return parent, func() {}
}

// newHandle creates the work handle one asynchronous execution holds for
// its duration. Releasing the handle cancels the execution context, which
// is what registry-level cancellation means: stop tracking and release
// resources, not interrupt a non-cooperative action.
func (u *Unit[T]) newHandle(ctx context.Context) *executionHandle {
	ctx, cancel := context.WithCancel(ctx)
	h := work.NewHandle(u.name, func() { cancel() })
	if u.registry != nil {
		u.registry.Register(h)
	}
	return &executionHandle{Handle: h, ctx: ctx}
}

type executionHandle struct {
	*work.Handle
	ctx context.Context
}

func (h *executionHandle) Context() context.Context { return h.ctx }
