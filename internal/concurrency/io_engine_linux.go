//go:build linux
// +build linux

// File: internal/concurrency/io_engine_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux IO engine backing the IO Manager, built on the epoll reactor
// adapted from reactor/reactor_linux.go.

package concurrency

import (
	"sync/atomic"

	"golang.org/x/sys/unix"

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

// IOEngine multiplexes IO completions for every armed api.IOSource onto a
// single completions channel, buffered through a RingBuffer to decouple
// the reactor's poll loop from the dispatch consumer's pace.
type IOEngine struct {
	r        reactor.EventReactor
	buf      *RingBuffer[IOCompletion]
	out      chan IOCompletion
	stopCh   chan struct{}
	batch    []reactor.Event
	unwedged chan struct{}
	pending  atomic.Int64
}

// NewIOEngine constructs and starts the platform IO engine.
func NewIOEngine() (*IOEngine, error) {
	r, err := reactor.NewReactor()
	if err != nil {
		return nil, api.WrapEngineError(err)
	}
	e := &IOEngine{
		r:        r,
		buf:      NewRingBuffer[IOCompletion](1024),
		out:      make(chan IOCompletion),
		stopCh:   make(chan struct{}),
		batch:    make([]reactor.Event, 128),
		unwedged: make(chan struct{}, 1),
	}
	go e.pollLoop()
	go e.drainLoop()
	return e, nil
}

// Arm registers source for completion notification, tagging events with
// userData (the IO Manager's registry slot index/generation packed into a
// uintptr).
func (e *IOEngine) Arm(source api.IOSource, userData uintptr) error {
	if err := e.r.Register(source.Fd(), userData); err != nil {
		return api.WrapEngineError(err)
	}
	e.pending.Add(1)
	return nil
}

// Disarm releases a successfully-armed source's epoll registration
// (cancel_io's post-success path). A completion already queued ahead of
// the EPOLL_CTL_DEL may still be delivered once more; the IO Manager's
// registry erase (which happens before Disarm is called) makes that
// delivery a harmless drop.
func (e *IOEngine) Disarm(source api.IOSource) error {
	e.pending.Add(-1)
	if err := e.r.Unregister(source.Fd()); err != nil {
		return api.WrapEngineError(err)
	}
	return nil
}

// Abort releases an armed source whose caller-initiated async operation
// never started (abort_io). Like Disarm, it drops the pending-arm
// accounting even if the underlying Unregister call fails; unlike Disarm,
// it never reports that failure and always returns nil, since by
// definition nothing was ever queued against source at the OS level.
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

// Close stops the poll and drain loops and releases the reactor.
func (e *IOEngine) Close() error {
	select {
	case <-e.stopCh:
	default:
		close(e.stopCh)
	}
	return e.r.Close()
}

func (e *IOEngine) pollLoop() {
	for {
		select {
		case <-e.stopCh:
			return
		default:
		}
		n, err := e.r.Wait(e.batch)
		if err != nil {
			select {
			case <-e.stopCh:
				return
			default:
			}
			continue
		}
		for i := 0; i < n; i++ {
			ev := e.batch[i]
			outcome := api.IOOutcome{}
			switch {
			case ev.Err != nil:
				outcome.Err = ev.Err
			case ev.Readable:
				// epoll's readiness model carries no byte count of its
				// own; FIONREAD reports bytes currently queued for read
				// without consuming them, leaving the caller's own
				// subsequent read untouched.
				if avail, ierr := unix.IoctlGetInt(int(ev.Fd), unix.TIOCINQ); ierr == nil {
					outcome.Bytes = avail
				}
			}
			c := IOCompletion{UserData: ev.UserData, Outcome: outcome}
			for !e.buf.Enqueue(c) {
				select {
				case <-e.stopCh:
					return
				default:
				}
			}
		}
		select {
		case e.unwedged <- struct{}{}:
		default:
		}
	}
}

func (e *IOEngine) drainLoop() {
	for {
		if c, ok := e.buf.Dequeue(); ok {
			select {
			case e.out <- c:
			case <-e.stopCh:
				return
			}
			continue
		}
		select {
		case <-e.unwedged:
		case <-e.stopCh:
			return
		}
	}
}
