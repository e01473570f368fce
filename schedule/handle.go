package schedule

import "sync"

// TriggerStatus reports a trigger handle state.
type TriggerStatus string

const (
	TriggerStatusScheduled TriggerStatus = "scheduled"
	TriggerStatusRunning   TriggerStatus = "running"
	TriggerStatusIdle      TriggerStatus = "idle"
	TriggerStatusCompleted TriggerStatus = "completed"
	TriggerStatusCanceled  TriggerStatus = "canceled"
	TriggerStatusFailed    TriggerStatus = "failed"
	TriggerStatusStopped   TriggerStatus = "stopped"
)

// Handle controls one scheduled trigger.
type Handle interface {
	Cancel()
	Status() TriggerStatus
	Err() error
	Done() <-chan struct{}
	ID() int64
}

type triggerHandle struct {
	scheduler *Scheduler
	id        int64
	entryID   int
	done      chan struct{}

	mu     sync.RWMutex
	status TriggerStatus
	err    error
	once   sync.Once
}

func (h *triggerHandle) Cancel() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		if h.scheduler != nil {
			h.scheduler.removeHandle(h.id)
		}
		h.setTerminal(TriggerStatusCanceled, nil)
	})
}

func (h *triggerHandle) Status() TriggerStatus {
	if h == nil {
		return TriggerStatusStopped
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

func (h *triggerHandle) Err() error {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.err
}

func (h *triggerHandle) Done() <-chan struct{} {
	if h == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return h.done
}

func (h *triggerHandle) ID() int64 {
	if h == nil {
		return 0
	}
	return h.id
}

func (h *triggerHandle) setStatus(status TriggerStatus, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if isTerminalStatus(h.status) {
		return
	}
	h.status = status
	if err != nil {
		h.err = err
	}
}

func (h *triggerHandle) setTerminal(status TriggerStatus, err error) {
	h.mu.Lock()
	alreadyTerminal := isTerminalStatus(h.status)
	if !alreadyTerminal {
		h.status = status
		if err != nil {
			h.err = err
		}
	}
	h.mu.Unlock()

	if !alreadyTerminal {
		select {
		case <-h.done:
		default:
			close(h.done)
		}
	}
}
