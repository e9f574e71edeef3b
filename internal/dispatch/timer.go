// File: internal/dispatch/timer.go
// Author: momentics <momentics@gmail.com>
//
// TimerManager (C5): registry of armed timers with (delay, period),
// supporting in-place callback replace with parameters preserved. Built on
// internal/concurrency.Scheduler, itself completed from the teacher's
// broken scheduler.go stub into a container/heap timer queue.

package dispatch

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/tpcore/api"
	"github.com/momentics/tpcore/internal/concurrency"
)

type timerEntry struct {
	mu         sync.Mutex // exclusive with Replace; swap is exclusive with invocation
	delay      time.Duration
	period     time.Duration
	wrapper    Wrapper
	handle     api.Cancelable
	dispatched chan struct{} // closed+recreated around each in-flight invocation
	busy       bool
}

// TimerManager implements the Timer Manager component (C5).
type TimerManager struct {
	scheduler *concurrency.Scheduler
	registry  *Registry[*timerEntry]
	draining  atomic.Bool
}

// NewTimerManager binds a Timer Manager to the pool's shared scheduler.
func NewTimerManager(scheduler *concurrency.Scheduler) *TimerManager {
	return &TimerManager{
		scheduler: scheduler,
		registry:  NewRegistry[*timerEntry](),
	}
}

// SubmitTimer arms fn to run once after delay (period == 0) or repeatedly
// every period after the first fire.
func (m *TimerManager) SubmitTimer(delay, period time.Duration, fn any) (api.TimerID, error) {
	if m.draining.Load() {
		return api.TimerID{}, api.ErrResourceExhausted("submit_timer: pool is tearing down")
	}
	w, err := newTimerWrapper(fn)
	if err != nil {
		return api.TimerID{}, err
	}
	entry := &timerEntry{delay: delay, period: period, wrapper: w, dispatched: make(chan struct{})}
	close(entry.dispatched) // starts idle, not mid-dispatch
	idx, gen := m.registry.Insert(entry)
	id := api.MakeTimerID(idx, gen)
	if err := m.arm(id, entry); err != nil {
		m.registry.Remove(idx, gen)
		return api.TimerID{}, err
	}
	return id, nil
}

// SubmitTimerDeadline computes delay = max(0, deadline-now) and forwards to
// SubmitTimer; a deadline already in the past fires immediately.
func (m *TimerManager) SubmitTimerDeadline(deadline time.Time, period time.Duration, fn any) (api.TimerID, error) {
	return m.SubmitTimer(clampDeadline(deadline, time.Now()), period, fn)
}

func (m *TimerManager) arm(id api.TimerID, entry *timerEntry) error {
	fire := func() { m.fire(id, entry) }
	var h api.Cancelable
	var err error
	if entry.period > 0 {
		h, err = m.scheduler.SchedulePeriodic(entry.delay.Nanoseconds(), entry.period.Nanoseconds(), fire)
	} else {
		h, err = m.scheduler.Schedule(entry.delay.Nanoseconds(), fire)
	}
	if err != nil {
		return api.WrapEngineError(err)
	}
	entry.handle = h
	return nil
}

// fire runs one dispatch of entry's current wrapper, serialized against
// Replace/Cancel via entry.mu. The scheduler already drops a periodic
// task's tick while that task's previous firing is still running; busy
// tracking below enforces "at most one invocation executes at a time" for
// this entry independently of that.
func (m *TimerManager) fire(id api.TimerID, entry *timerEntry) {
	entry.mu.Lock()
	if entry.busy {
		// A prior firing is still in flight; this port's
		// serialization discipline drops the overlapping tick rather than
		// queuing it, matching "at most one invocation executes at a time".
		entry.mu.Unlock()
		return
	}
	entry.busy = true
	entry.dispatched = make(chan struct{})
	w := entry.wrapper
	period := entry.period
	entry.mu.Unlock()

	func() {
		defer func() {
			if r := recover(); r != nil {
				logPanic(r)
			}
		}()
		w.invoke(instance{api.KindTimer}, nil)
	}()

	entry.mu.Lock()
	entry.busy = false
	close(entry.dispatched)
	entry.mu.Unlock()

	if period == 0 {
		m.registry.Remove(id.Index(), id.Gen())
	}
}

// ReplaceTimer disarms the timer, waits for any in-flight callback to
// finish, swaps in fn, and re-arms with the originally-submitted
// (delay, period), restarting the phase (spec Design Note 9.5, kept
// literal per this port's Open Question decision).
func (m *TimerManager) ReplaceTimer(id api.TimerID, fn any) (api.TimerID, error) {
	entry, ok := m.registry.Get(id.Index(), id.Gen())
	if !ok {
		return api.TimerID{}, api.ErrNotFound("replace_timer: unknown timer id")
	}
	w, err := newTimerWrapper(fn)
	if err != nil {
		return api.TimerID{}, err
	}

	entry.mu.Lock()
	handle := entry.handle
	entry.mu.Unlock()
	// handle.Cancel() may itself block on the scheduler joining an
	// already-dispatched firing of fire(id, entry), which needs entry.mu to
	// run to completion; it must never be called while entry.mu is held.
	if handle != nil {
		handle.Cancel()
	}

	entry.mu.Lock()
	done := entry.dispatched
	entry.mu.Unlock()
	<-done // wait for any in-flight callback to finish

	entry.mu.Lock()
	entry.wrapper = w
	entry.mu.Unlock()

	if err := m.arm(id, entry); err != nil {
		return api.TimerID{}, err
	}
	return id, nil
}

// CancelTimer disarms the timer, waits for callbacks to finish, and erases
// the registry slot.
func (m *TimerManager) CancelTimer(id api.TimerID) error {
	entry, ok := m.registry.Get(id.Index(), id.Gen())
	if !ok {
		return api.ErrNotFound("cancel_timer: unknown timer id")
	}
	entry.mu.Lock()
	handle := entry.handle
	entry.mu.Unlock()
	if handle != nil {
		handle.Cancel()
	}
	entry.mu.Lock()
	done := entry.dispatched
	entry.mu.Unlock()
	<-done
	m.registry.Remove(id.Index(), id.Gen())
	return nil
}

// CancelTimers disarms and erases every armed timer.
func (m *TimerManager) CancelTimers() {
	m.registry.DrainAll(func(idx, gen uint32, entry *timerEntry) {
		entry.mu.Lock()
		handle := entry.handle
		entry.mu.Unlock()
		if handle != nil {
			handle.Cancel()
		}
		entry.mu.Lock()
		done := entry.dispatched
		entry.mu.Unlock()
		<-done
	})
}

func (m *TimerManager) Shutdown() {
	m.draining.Store(true)
	m.CancelTimers()
}
