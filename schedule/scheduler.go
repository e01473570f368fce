// Package schedule triggers commands on cron expressions or one-shot
// timers. A trigger only asks the command to run; the command's own gate
// still decides whether a tick is accepted, so an overdue tick arriving
// while the previous execution is running is silently skipped.
package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-dispatch"
	rcron "github.com/robfig/cron/v3"
)

// Scheduler wraps cron functionality.
type Scheduler struct {
	mu           sync.Mutex
	cron         *rcron.Cron
	location     *time.Location
	errorHandler func(error)
	logger       dispatch.Logger
	parser       Parser

	nextHandleID int64
	handles      map[int64]*triggerHandle
}

// New creates a scheduler instance with the provided options.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		location: time.Local,
		parser:   StandardParser,
		handles:  make(map[int64]*triggerHandle),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.logger == nil {
		s.logger = dispatch.NewFmtLogger(nil)
	}
	if s.errorHandler == nil {
		logger := s.logger
		s.errorHandler = func(err error) {
			logger.Error("scheduled command failed: %v", err)
		}
	}

	s.cron = rcron.New(s.build()...)
	return s
}

// ScheduleCommand runs cmd on every tick of expr.
func (s *Scheduler) ScheduleCommand(expr string, cmd dispatch.Command) (Handle, error) {
	return s.ScheduleFunc(expr, cmd.Invoke)
}

// ScheduleFunc runs fn on every tick of expr.
func (s *Scheduler) ScheduleFunc(expr string, fn func(context.Context) error) (Handle, error) {
	if expr == "" {
		return nil, dispatch.WrapError(ErrCodeEmptyExpression, "cron expression cannot be empty", nil)
	}
	if fn == nil {
		return nil, dispatch.WrapError(ErrCodeNilTrigger, "trigger target cannot be nil", nil)
	}

	h := s.newHandle()
	job := rcron.FuncJob(func() {
		status := h.Status()
		if isTerminalStatus(status) {
			return
		}

		h.setStatus(TriggerStatusRunning, nil)
		if err := fn(context.Background()); err != nil {
			// a recurring trigger outlives one bad tick: record the error,
			// report it, and stay schedulable for the next tick
			h.setStatus(TriggerStatusIdle, err)
			s.errorHandler(err)
			return
		}
		if !isTerminalStatus(h.Status()) {
			h.setStatus(TriggerStatusIdle, nil)
		}
	})

	entryID, err := s.cron.AddJob(expr, job)
	if err != nil {
		return nil, dispatch.WrapError(ErrCodeInvalidExpression, "failed to add job", err)
	}
	h.entryID = int(entryID)
	s.storeHandle(h)
	return h, nil
}

// ScheduleAfter runs cmd once after delay.
func (s *Scheduler) ScheduleAfter(delay time.Duration, cmd dispatch.Command) (Handle, error) {
	if cmd == nil {
		return nil, dispatch.WrapError(ErrCodeNilTrigger, "trigger target cannot be nil", nil)
	}
	if delay < 0 {
		delay = 0
	}

	h := s.newHandle()
	s.storeHandle(h)

	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-h.Done():
			return
		}

		if isTerminalStatus(h.Status()) {
			return
		}
		h.setStatus(TriggerStatusRunning, nil)
		if err := cmd.Invoke(context.Background()); err != nil {
			h.setTerminal(TriggerStatusFailed, err)
			s.errorHandler(err)
			s.removeStoredHandle(h.id)
			return
		}
		h.setTerminal(TriggerStatusCompleted, nil)
		s.removeStoredHandle(h.id)
	}()

	return h, nil
}

// Start begins firing scheduled triggers.
func (s *Scheduler) Start(_ context.Context) error {
	s.cron.Start()
	return nil
}

// Stop stops firing triggers and marks active handles as stopped.
func (s *Scheduler) Stop(_ context.Context) error {
	s.cron.Stop()

	var handles []*triggerHandle
	s.mu.Lock()
	for _, h := range s.handles {
		handles = append(handles, h)
	}
	s.handles = make(map[int64]*triggerHandle)
	s.mu.Unlock()

	for _, h := range handles {
		if h == nil {
			continue
		}
		if h.entryID > 0 {
			s.cron.Remove(rcron.EntryID(h.entryID))
		}
		if isTerminalStatus(h.Status()) {
			continue
		}
		h.setTerminal(TriggerStatusStopped, nil)
	}
	return nil
}

func (s *Scheduler) removeHandle(id int64) {
	h := s.removeStoredHandle(id)
	if h == nil {
		return
	}
	if h.entryID > 0 {
		s.cron.Remove(rcron.EntryID(h.entryID))
	}
}

func (s *Scheduler) removeStoredHandle(id int64) *triggerHandle {
	if s == nil || id == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.handles[id]
	delete(s.handles, id)
	return h
}

func (s *Scheduler) storeHandle(h *triggerHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handles[h.id] = h
}

func (s *Scheduler) newHandle() *triggerHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextHandleID++
	return &triggerHandle{
		scheduler: s,
		id:        s.nextHandleID,
		status:    TriggerStatusScheduled,
		done:      make(chan struct{}),
	}
}

// build converts implementation-agnostic options to rcron options.
func (s *Scheduler) build() []rcron.Option {
	opts := make([]rcron.Option, 0)

	if s.location != nil {
		opts = append(opts, rcron.WithLocation(s.location))
	}

	switch s.parser {
	case SecondsParser:
		opts = append(opts, rcron.WithParser(rcron.NewParser(
			rcron.Second|rcron.Minute|rcron.Hour|rcron.Dom|rcron.Month|rcron.Dow|rcron.Descriptor,
		)))
	default:
		opts = append(opts, rcron.WithParser(rcron.NewParser(
			rcron.Minute|rcron.Hour|rcron.Dom|rcron.Month|rcron.Dow|rcron.Descriptor,
		)))
	}

	if s.errorHandler != nil {
		opts = append(opts, rcron.WithChain(
			rcron.Recover(&errorHandlerAdapter{handler: s.errorHandler}),
		))
	}

	if s.logger != nil {
		opts = append(opts, rcron.WithLogger(&loggerAdapter{logger: s.logger}))
	}

	return opts
}

func isTerminalStatus(status TriggerStatus) bool {
	switch status {
	case TriggerStatusCompleted, TriggerStatusCanceled, TriggerStatusFailed, TriggerStatusStopped:
		return true
	default:
		return false
	}
}
