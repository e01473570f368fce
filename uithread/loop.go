// Package uithread provides the single designated UI goroutine and the two
// marshaling operations the execution engine needs from it: identity
// ("am I on the UI goroutine?") and submission (post, or post and wait).
package uithread

import (
	"sync"
	"sync/atomic"

	"github.com/goliatone/go-errors"
	"github.com/petermattis/goid"
)

const ErrCodeLoopNotRunning = "LOOP_NOT_RUNNING"

// ErrNotRunning is returned by Post and Invoke when the loop has not been
// started or has already stopped.
var ErrNotRunning = errors.New("ui loop is not running", errors.CategoryConflict).
	WithTextCode(ErrCodeLoopNotRunning)

const defaultQueueSize = 128

// Loop owns one goroutine that serially executes submitted work. Exactly one
// goroutine is the loop goroutine between Start and Stop; work submitted
// with Post or Invoke runs there in submission order.
type Loop struct {
	mu      sync.Mutex
	tasks   chan func()
	quit    chan struct{}
	exited  chan struct{}
	running bool

	gid atomic.Int64
}

// New creates a stopped loop. Call Start before submitting work.
func New() *Loop {
	return &Loop{}
}

// Start spawns the loop goroutine. It returns once the goroutine is
// accepting work, so IsCurrent and Post are reliable immediately after.
func (l *Loop) Start() error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return errors.New("ui loop already started", errors.CategoryConflict).
			WithTextCode("LOOP_ALREADY_STARTED")
	}
	l.tasks = make(chan func(), defaultQueueSize)
	l.quit = make(chan struct{})
	l.exited = make(chan struct{})
	l.running = true
	tasks, quit, exited := l.tasks, l.quit, l.exited
	l.mu.Unlock()

	ready := make(chan struct{})
	go l.run(tasks, quit, exited, ready)
	<-ready
	return nil
}

func (l *Loop) run(tasks chan func(), quit, exited chan struct{}, ready chan struct{}) {
	l.gid.Store(goid.Get())
	close(ready)
	defer close(exited)

	for {
		select {
		case fn := <-tasks:
			fn()
		case <-quit:
			// run everything already accepted, then exit
			for {
				select {
				case fn := <-tasks:
					fn()
				default:
					return
				}
			}
		}
	}
}

// Stop shuts the loop down and blocks until the loop goroutine has finished
// every task it had accepted. Stopping a stopped loop is a no-op.
func (l *Loop) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	quit, exited := l.quit, l.exited
	l.mu.Unlock()

	close(quit)
	<-exited
	l.gid.Store(0)
}

// Running reports whether the loop is accepting work.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// IsCurrent reports whether the caller is on the loop goroutine.
func (l *Loop) IsCurrent() bool {
	id := l.gid.Load()
	return id != 0 && id == goid.Get()
}

// Post submits fn to run on the loop goroutine without waiting for it.
// Submitted work is guaranteed to run, even if Stop races the submission.
//
// The send happens under the loop mutex. Stop needs the same mutex to flip
// running off, so a send that saw running==true completes before Stop can
// begin draining; the task lands in the queue while the loop goroutine is
// still committed to run it. A full queue does not deadlock the send: the
// loop goroutine drains tasks without touching the mutex.
func (l *Loop) Post(fn func()) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return ErrNotRunning
	}
	l.tasks <- fn
	return nil
}

// Invoke runs fn on the loop goroutine and waits for it to finish. When the
// caller already is the loop goroutine, fn runs directly; submitting and
// waiting from the loop would deadlock it.
func (l *Loop) Invoke(fn func()) error {
	if l.IsCurrent() {
		fn()
		return nil
	}

	done := make(chan struct{})
	if err := l.Post(func() {
		defer close(done)
		fn()
	}); err != nil {
		return err
	}
	<-done
	return nil
}
