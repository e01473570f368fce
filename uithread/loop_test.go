package uithread

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPostBeforeStartFails(t *testing.T) {
	l := New()
	if err := l.Post(func() {}); !errors.Is(err, ErrNotRunning) {
		t.Errorf("expected ErrNotRunning, got %v", err)
	}
	if err := l.Invoke(func() {}); !errors.Is(err, ErrNotRunning) {
		t.Errorf("expected ErrNotRunning, got %v", err)
	}
}

func TestInvokeRunsOnLoopGoroutine(t *testing.T) {
	l := New()
	if err := l.Start(); err != nil {
		t.Fatal(err)
	}
	defer l.Stop()

	var onLoop atomic.Bool
	if err := l.Invoke(func() {
		onLoop.Store(l.IsCurrent())
	}); err != nil {
		t.Fatal(err)
	}
	if !onLoop.Load() {
		t.Error("invoked function did not run on the loop goroutine")
	}
	if l.IsCurrent() {
		t.Error("test goroutine should not be the loop goroutine")
	}
}

func TestInvokeBlocksUntilDone(t *testing.T) {
	l := New()
	if err := l.Start(); err != nil {
		t.Fatal(err)
	}
	defer l.Stop()

	var value atomic.Int32
	if err := l.Invoke(func() {
		time.Sleep(20 * time.Millisecond)
		value.Store(42)
	}); err != nil {
		t.Fatal(err)
	}
	// visible immediately after Invoke returns
	if value.Load() != 42 {
		t.Errorf("expected 42 after Invoke returned, got %d", value.Load())
	}
}

func TestInvokeFromLoopRunsInline(t *testing.T) {
	l := New()
	if err := l.Start(); err != nil {
		t.Fatal(err)
	}
	defer l.Stop()

	var nested atomic.Bool
	err := l.Invoke(func() {
		// a nested Invoke from the loop goroutine must not deadlock
		if err := l.Invoke(func() { nested.Store(true) }); err != nil {
			t.Error(err)
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	if !nested.Load() {
		t.Error("nested invoke did not run")
	}
}

func TestPostedTasksRunSerially(t *testing.T) {
	l := New()
	if err := l.Start(); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		n := i
		if err := l.Post(func() {
			defer wg.Done()
			mu.Lock()
			order = append(order, n)
			mu.Unlock()
		}); err != nil {
			t.Fatal(err)
		}
	}
	wg.Wait()
	l.Stop()

	for i, n := range order {
		if n != i {
			t.Fatalf("tasks ran out of order: %v", order)
		}
	}
}

func TestStopRunsAcceptedWork(t *testing.T) {
	l := New()
	if err := l.Start(); err != nil {
		t.Fatal(err)
	}

	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		if err := l.Post(func() { ran.Add(1) }); err != nil {
			t.Fatal(err)
		}
	}
	l.Stop()

	if ran.Load() != 10 {
		t.Errorf("expected all accepted tasks to run before Stop returned, ran %d", ran.Load())
	}

	if err := l.Post(func() {}); !errors.Is(err, ErrNotRunning) {
		t.Errorf("expected ErrNotRunning after Stop, got %v", err)
	}
}

func TestAcceptedPostAlwaysRuns(t *testing.T) {
	// Posts racing Stop must either fail with ErrNotRunning or run; a nil
	// return with the task silently dropped would strand Invoke callers.
	for i := 0; i < 200; i++ {
		l := New()
		if err := l.Start(); err != nil {
			t.Fatal(err)
		}

		var accepted, ran atomic.Int32
		var wg sync.WaitGroup
		for p := 0; p < 4; p++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := l.Post(func() { ran.Add(1) }); err == nil {
					accepted.Add(1)
				}
			}()
		}
		l.Stop()
		wg.Wait()

		if ran.Load() != accepted.Load() {
			t.Fatalf("iteration %d: accepted %d posts but ran %d", i, accepted.Load(), ran.Load())
		}
	}
}

func TestRestartAfterStop(t *testing.T) {
	l := New()
	if err := l.Start(); err != nil {
		t.Fatal(err)
	}
	l.Stop()

	if err := l.Start(); err != nil {
		t.Fatal(err)
	}
	defer l.Stop()

	if err := l.Invoke(func() {}); err != nil {
		t.Errorf("expected invoke to work after restart, got %v", err)
	}
}

func TestDoubleStartFails(t *testing.T) {
	l := New()
	if err := l.Start(); err != nil {
		t.Fatal(err)
	}
	defer l.Stop()

	if err := l.Start(); err == nil {
		t.Error("expected second Start to fail")
	}
}
