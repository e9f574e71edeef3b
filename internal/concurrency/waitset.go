// File: internal/concurrency/waitset.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// WatchWait is the Wait Manager's polling primitive: it cooperatively
// blocks a dedicated goroutine on an api.Waitable, an optional timeout, and
// an optional cancel probe (the Wait Manager passes none), using the same
// doubling-backoff shape the
// upstream eventloop.go used for its handler dispatch loop (spin briefly,
// then back off up to a ceiling, then yield the P).

package concurrency

import (
	"runtime"
	"time"

	"github.com/momentics/tpcore/api"
)

const (
	waitBackoffCeiling = time.Millisecond
	waitBackoffStart   = time.Microsecond
)

// WaitResult reports why WatchWait returned.
type WaitResult int

const (
	// WaitSignaled means the Waitable transitioned to the signaled state.
	WaitSignaled WaitResult = iota
	// WaitTimedOut means timeout elapsed with no signal observed.
	WaitTimedOut
	// WaitCanceled means the cancel probe returned true before a signal.
	WaitCanceled
	// WaitAborted means the stop channel closed (pool teardown).
	WaitAborted
)

// WatchWait polls w until it signals, timeout elapses (api.NoTimeout means
// never), probe reports true, or stop closes. Only the cancel probe branch
// is consulted cooperatively per poll, matching the spec's cooperative
// cancellation model: cancellation is observed, never preempted.
func WatchWait(w api.Waitable, timeout time.Duration, probe api.CancelProbe, stop <-chan struct{}) WaitResult {
	var deadline time.Time
	hasDeadline := timeout != api.NoTimeout && timeout >= 0
	if hasDeadline {
		deadline = time.Now().Add(timeout)
	}
	backoff := waitBackoffStart
	for {
		if w.Signaled() {
			return WaitSignaled
		}
		select {
		case <-stop:
			return WaitAborted
		default:
		}
		if probe != nil && probe() {
			return WaitCanceled
		}
		if hasDeadline && !time.Now().Before(deadline) {
			return WaitTimedOut
		}
		if backoff < waitBackoffCeiling {
			time.Sleep(backoff)
			backoff *= 2
		} else {
			runtime.Gosched()
			time.Sleep(waitBackoffCeiling)
		}
	}
}
