//go:build windows
// +build windows

// File: internal/concurrency/io_engine_windows.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Windows IO engine backing the IO Manager, built on the IOCP reactor
// adapted from reactor/reactor_windows.go. GetQueuedCompletionStatus
// reports one completion per call, so the poll loop here drives the
// reactor's Wait one event at a time instead of the epoll engine's batch.

package concurrency

import (
	"sync/atomic"

	"github.com/momentics/tpcore/api"
	"github.com/momentics/tpcore/reactor"
)

// IOCompletion pairs a reactor event's opaque UserData (the IO Manager's
// registry slot index/generation) with the outcome delivered to the armed
// callback.
type IOCompletion struct {
	UserData uintptr
	Outcome  api.IOOutcome
}

// IOEngine multiplexes IOCP completions onto a single completions channel.
type IOEngine struct {
	r       reactor.EventReactor
	out     chan IOCompletion
	stopCh  chan struct{}
	pending atomic.Int64
}

// NewIOEngine constructs and starts the platform IO engine.
func NewIOEngine() (*IOEngine, error) {
	r, err := reactor.NewReactor()
	if err != nil {
		return nil, api.WrapEngineError(err)
	}
	e := &IOEngine{r: r, out: make(chan IOCompletion), stopCh: make(chan struct{})}
	go e.pollLoop()
	return e, nil
}

// Arm registers source for completion notification, tagging events with
// userData (the IO Manager's registry slot index/generation).
func (e *IOEngine) Arm(source api.IOSource, userData uintptr) error {
	if err := e.r.Register(source.Fd(), userData); err != nil {
		return api.WrapEngineError(err)
	}
	e.pending.Add(1)
	return nil
}

// Disarm releases a successfully-armed source (cancel_io's post-success
// path). IOCP has no way to detach a handle short of closing it, so this
// forwards to CancelIoEx to stop any I/O still pending against source.
func (e *IOEngine) Disarm(source api.IOSource) error {
	e.pending.Add(-1)
	if err := e.r.Unregister(source.Fd()); err != nil {
		return api.WrapEngineError(err)
	}
	return nil
}

// Abort releases an armed source whose caller-initiated async operation
// never started (abort_io). The pending-arm count always drops even if
// CancelIoEx reports nothing was queued, since abort_io's contract is
// about this engine's own bookkeeping, not the OS-level operation.
func (e *IOEngine) Abort(source api.IOSource) error {
	e.pending.Add(-1)
	_ = e.r.Unregister(source.Fd())
	return nil
}

// PendingArms reports the number of sources currently registered with the
// reactor but not yet disarmed or aborted.
func (e *IOEngine) PendingArms() int64 { return e.pending.Load() }

// Completions returns the channel completions are delivered on.
func (e *IOEngine) Completions() <-chan IOCompletion { return e.out }

// Close stops the poll loop and releases the IOCP handle.
func (e *IOEngine) Close() error {
	select {
	case <-e.stopCh:
	default:
		close(e.stopCh)
	}
	return e.r.Close()
}

func (e *IOEngine) pollLoop() {
	batch := make([]reactor.Event, 1)
	for {
		select {
		case <-e.stopCh:
			return
		default:
		}
		n, err := e.r.Wait(batch)
		if err != nil {
			select {
			case <-e.stopCh:
				return
			default:
			}
			continue
		}
		for i := 0; i < n; i++ {
			ev := batch[i]
			c := IOCompletion{
				UserData: ev.UserData,
				Outcome:  api.IOOutcome{Bytes: int(ev.BytesTransferred), Err: ev.Err},
			}
			select {
			case e.out <- c:
			case <-e.stopCh:
				return
			}
		}
	}
}
