// File: internal/dispatch/wait.go
// Author: momentics <momentics@gmail.com>
//
// WaitManager (C4): registry of armed waits keyed by a stable generational
// id, each backed by a dedicated watch goroutine running
// internal/concurrency.WatchWait. One-shot semantics: a wait's context is
// erased from the registry the instant its dispatch thunk (signaled or
// timed-out) returns.

package dispatch

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/tpcore/api"
	"github.com/momentics/tpcore/internal/concurrency"
)

type waitEntry struct {
	handle   api.Waitable
	timeout  time.Duration
	wrapper  Wrapper
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// WaitManager implements the Wait Manager component (C4).
type WaitManager struct {
	registry *Registry[*waitEntry]
	draining atomic.Bool
}

// NewWaitManager returns an empty Wait Manager.
func NewWaitManager() *WaitManager {
	return &WaitManager{registry: NewRegistry[*waitEntry]()}
}

// SubmitWait arms handle for a one-shot signal/timeout watch. timeout ==
// api.NoTimeout waits forever.
func (m *WaitManager) SubmitWait(handle api.Waitable, timeout time.Duration, fn any) (api.WaitID, error) {
	if m.draining.Load() {
		return api.WaitID{}, api.ErrResourceExhausted("submit_wait: pool is tearing down")
	}
	w, err := newWaitWrapper(fn)
	if err != nil {
		return api.WaitID{}, err
	}
	entry := &waitEntry{
		handle:  handle,
		timeout: timeout,
		wrapper: w,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	idx, gen := m.registry.Insert(entry)
	id := api.MakeWaitID(idx, gen)
	go m.watch(id, entry)
	return id, nil
}

func (m *WaitManager) watch(id api.WaitID, entry *waitEntry) {
	defer close(entry.done)
	result := concurrency.WatchWait(entry.handle, entry.timeout, nil, entry.stop)
	if result == concurrency.WaitAborted {
		return
	}
	var triggerResult api.WaitTriggerResult
	if result == concurrency.WaitSignaled {
		triggerResult = api.Signaled
	} else {
		triggerResult = api.TimedOut
	}
	func() {
		defer func() {
			if r := recover(); r != nil {
				logPanic(r)
			}
		}()
		entry.wrapper.invoke(instance{api.KindWait}, waitPayload{Result: triggerResult})
	}()
	m.registry.Remove(id.Index(), id.Gen())
}

// CancelWait disarms the wait, blocking until no future invocation of its
// closure can begin, then erases its registry slot.
func (m *WaitManager) CancelWait(id api.WaitID) error {
	entry, ok := m.registry.Get(id.Index(), id.Gen())
	if !ok {
		return api.ErrNotFound("cancel_wait: unknown wait id")
	}
	entry.stopOnce.Do(func() { close(entry.stop) })
	<-entry.done
	m.registry.Remove(id.Index(), id.Gen())
	return nil
}

// CancelWaits disarms and erases every armed wait.
func (m *WaitManager) CancelWaits() {
	m.registry.DrainAll(func(idx, gen uint32, entry *waitEntry) {
		entry.stopOnce.Do(func() { close(entry.stop) })
		<-entry.done
	})
}

func (m *WaitManager) Shutdown() {
	m.draining.Store(true)
	m.CancelWaits()
}
