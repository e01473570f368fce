package schedule

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goliatone/go-dispatch"
)

func TestScheduleFuncValidation(t *testing.T) {
	s := New()
	if _, err := s.ScheduleFunc("", func(context.Context) error { return nil }); err == nil {
		t.Error("expected error for empty expression")
	}
	if _, err := s.ScheduleFunc("* * * * *", nil); err == nil {
		t.Error("expected error for nil trigger")
	}
	if _, err := s.ScheduleFunc("not a cron expr", func(context.Context) error { return nil }); err == nil {
		t.Error("expected error for invalid expression")
	}
}

func TestScheduleAfterRunsCommand(t *testing.T) {
	var calls atomic.Int32
	unit := dispatch.MustUnit(dispatch.ActionFunc[int](func(ctx context.Context, _ int) error {
		calls.Add(1)
		return nil
	}))

	s := New()
	h, err := s.ScheduleAfter(10*time.Millisecond, unit)
	if err != nil {
		t.Fatal(err)
	}

	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("trigger never fired")
	}

	if calls.Load() != 1 {
		t.Errorf("expected 1 run, got %d", calls.Load())
	}
	if h.Status() != TriggerStatusCompleted {
		t.Errorf("expected completed, got %s", h.Status())
	}
}

func TestScheduleAfterCancelPreventsRun(t *testing.T) {
	var calls atomic.Int32
	unit := dispatch.MustUnit(dispatch.ActionFunc[int](func(ctx context.Context, _ int) error {
		calls.Add(1)
		return nil
	}))

	s := New()
	h, err := s.ScheduleAfter(100*time.Millisecond, unit)
	if err != nil {
		t.Fatal(err)
	}
	h.Cancel()

	time.Sleep(200 * time.Millisecond)
	if calls.Load() != 0 {
		t.Errorf("canceled trigger still ran %d times", calls.Load())
	}
	if h.Status() != TriggerStatusCanceled {
		t.Errorf("expected canceled, got %s", h.Status())
	}
}

func TestScheduleAfterFailureReachesErrorHandler(t *testing.T) {
	boom := stderrors.New("boom")
	errs := make(chan error, 1)

	unit := dispatch.MustUnit(dispatch.ActionFunc[int](func(ctx context.Context, _ int) error {
		return boom
	}))

	s := New(WithErrorHandler(func(err error) { errs <- err }))
	h, err := s.ScheduleAfter(time.Millisecond, unit)
	if err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-errs:
		if !stderrors.Is(got, boom) {
			t.Errorf("expected action error, got %v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("error handler never fired")
	}

	<-h.Done()
	if h.Status() != TriggerStatusFailed {
		t.Errorf("expected failed, got %s", h.Status())
	}
	if !stderrors.Is(h.Err(), boom) {
		t.Errorf("expected handle to record the error, got %v", h.Err())
	}
}

func TestRecurringTriggerSurvivesFailedTick(t *testing.T) {
	boom := stderrors.New("boom")
	var calls atomic.Int32

	s := New(WithParser(SecondsParser), WithErrorHandler(func(error) {}))
	h, err := s.ScheduleFunc("* * * * * *", func(context.Context) error {
		if calls.Add(1) == 1 {
			return boom
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.Stop(context.Background())

	deadline := time.Now().Add(5 * time.Second)
	for calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if calls.Load() < 2 {
		t.Fatal("trigger never fired again after a failed tick")
	}
	if !stderrors.Is(h.Err(), boom) {
		t.Errorf("expected handle to record the tick error, got %v", h.Err())
	}
	if got := h.Status(); isTerminalStatus(got) {
		t.Errorf("recurring trigger went terminal after one failure: %s", got)
	}
}

func TestCronTickRespectsUnitGate(t *testing.T) {
	var current, max atomic.Int32

	unit := dispatch.MustUnit(
		dispatch.ActionFunc[int](func(ctx context.Context, _ int) error {
			n := current.Add(1)
			for {
				old := max.Load()
				if n <= old || max.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(1500 * time.Millisecond)
			current.Add(-1)
			return nil
		}),
		dispatch.WithMode[int](dispatch.Background),
	)

	s := New(WithParser(SecondsParser))
	h, err := s.ScheduleCommand("* * * * * *", unit)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Cancel()

	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.Stop(context.Background())

	// several ticks fire while the action is still running; the unit's
	// gate rejects the overlap
	time.Sleep(3 * time.Second)
	if max.Load() > 1 {
		t.Errorf("scheduler drove %d overlapping executions", max.Load())
	}
}

func TestStopMarksHandles(t *testing.T) {
	s := New()
	h, err := s.ScheduleFunc("* * * * *", func(context.Context) error { return nil })
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
	if h.Status() != TriggerStatusStopped {
		t.Errorf("expected stopped, got %s", h.Status())
	}
	select {
	case <-h.Done():
	default:
		t.Error("done channel not closed after Stop")
	}
}
