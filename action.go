package dispatch

import (
	"context"
	"strings"

	"github.com/goliatone/go-errors"
)

// Action is the work a unit performs. It is owned exclusively by the unit
// that binds it; the engine never runs it for two accepted executions at
// the same time.
type Action[T any] interface {
	Execute(ctx context.Context, param T) error
}

// ActionFunc is an adapter that lets you use a function as an Action[T]
type ActionFunc[T any] func(ctx context.Context, param T) error

// Execute calls the underlying function
func (f ActionFunc[T]) Execute(ctx context.Context, param T) error {
	return f(ctx, param)
}

// Mode selects the execution context for a unit's action. It is fixed for
// the life of the unit.
type Mode int

const (
	// Inline runs the action synchronously on the calling goroutine.
	Inline Mode = iota
	// Background runs the action on a fresh worker goroutine; the caller
	// does not block.
	Background
	// UISync runs the action on the UI loop and blocks the caller until it
	// finishes. A caller already on the UI loop runs it inline.
	UISync
	// UIAsync runs the action on a worker and posts the completion back to
	// the UI loop without blocking the caller.
	UIAsync
)

func (m Mode) String() string {
	switch m {
	case Inline:
		return "inline"
	case Background:
		return "background"
	case UISync:
		return "ui_sync"
	case UIAsync:
		return "ui_async"
	default:
		return "unknown"
	}
}

// ParseMode maps a config string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inline", "":
		return Inline, nil
	case "background":
		return Background, nil
	case "ui_sync", "ui-sync", "uisync":
		return UISync, nil
	case "ui_async", "ui-async", "uiasync":
		return UIAsync, nil
	default:
		return Inline, errors.New("unknown dispatch mode: "+s, errors.CategoryBadInput).
			WithTextCode(ErrCodeInvalidMode)
	}
}
