// File: internal/dispatch/work.go
// Author: momentics <momentics@gmail.com>
//
// WorkManager (C3): a lock-free LIFO of one-shot wrappers drained by the
// shared worker engine, with cooperative wait_all and imperative
// cancel_all. Grounded on internal/concurrency's WorkStack (this port's
// generalization of the teacher's SPSC lockFreeQueue) feeding
// concurrency.Executor.

package dispatch

import (
	"sync/atomic"
	"time"

	"github.com/momentics/tpcore/api"
	"github.com/momentics/tpcore/control"
	"github.com/momentics/tpcore/internal/concurrency"
)

const workWaitTick = 2 * time.Millisecond

// WorkManager implements the Work Manager component (C3).
type WorkManager struct {
	stack    *concurrency.WorkStack[Wrapper]
	executor *concurrency.Executor

	submitted atomic.Int64
	completed atomic.Int64
	inFlight  atomic.Int64
	draining  atomic.Bool
}

// NewWorkManager binds a Work Manager to the pool's shared executor.
func NewWorkManager(executor *concurrency.Executor) *WorkManager {
	return &WorkManager{
		stack:    concurrency.NewWorkStack[Wrapper](),
		executor: executor,
	}
}

// SubmitWork constructs a wrapper for fn, pushes it onto the LIFO, and
// notifies the executor that one more work slot is ready.
func (m *WorkManager) SubmitWork(fn any) error {
	if m.draining.Load() {
		return api.ErrResourceExhausted("submit_work: pool is tearing down")
	}
	w, err := newWorkWrapper(fn)
	if err != nil {
		return err
	}
	m.stack.Push(w)
	m.submitted.Add(1)
	if err := m.executor.Submit(m.dispatchThunk); err != nil {
		// The wrapper stays queued; a later successful Submit (or a
		// cancel_all sweep) will still drain it, so no state is leaked.
		return api.WrapEngineError(err)
	}
	return nil
}

// dispatchThunk pops one wrapper and invokes it. An empty stack is
// tolerated silently (spec Design Note 9.3: engine overshoot).
func (m *WorkManager) dispatchThunk() {
	w, ok := m.stack.Pop()
	if !ok {
		return
	}
	m.inFlight.Add(1)
	defer func() {
		if r := recover(); r != nil {
			logPanic(r)
		}
		m.inFlight.Add(-1)
		m.completed.Add(1)
	}()
	w.invoke(instance{api.KindWork}, nil)
}

// WaitWorks blocks until every submitted work item has completed, or the
// cancel probe reports true, in which case CancelWorks runs and
// WaitWorks returns false.
func (m *WorkManager) WaitWorks(probe api.CancelProbe) bool {
	if probe == nil {
		probe = func() bool { return false }
	}
	for {
		if m.submitted.Load() == m.completed.Load() {
			return true
		}
		time.Sleep(workWaitTick)
		if probe() {
			m.CancelWorks()
			return false
		}
	}
}

// CancelWorks waits for in-flight callbacks to finish, then drops every
// wrapper still queued without invoking it, logging the drained count.
func (m *WorkManager) CancelWorks() {
	for m.inFlight.Load() > 0 {
		time.Sleep(workWaitTick)
	}
	var dropped int64
	for {
		if _, ok := m.stack.Pop(); ok {
			dropped++
			continue
		}
		break
	}
	m.completed.Add(dropped)
	control.Log(api.SeverityNormal, "tasks cancelled and %d left unprocessed", dropped)
}

// Shutdown marks the manager as draining (rejecting new submissions) and
// runs CancelWorks, for use by Pool.Shutdown during teardown.
func (m *WorkManager) Shutdown() {
	m.draining.Store(true)
	m.CancelWorks()
}

// Stats reports submitted, completed, and in-flight work counts.
func (m *WorkManager) Stats() map[string]int64 {
	return map[string]int64{
		"submitted": m.submitted.Load(),
		"completed": m.completed.Load(),
		"in_flight": m.inFlight.Load(),
	}
}

func logPanic(r any) {
	if msg, ok := r.(string); ok && msg != "" {
		control.Log(api.SeverityError, "work callback panicked: %s", msg)
		return
	}
	if err, ok := r.(error); ok && err != nil {
		control.Log(api.SeverityError, "work callback panicked: %v", err)
		return
	}
	control.Log(api.SeverityCritical, "work callback panicked with no diagnostic message")
}
