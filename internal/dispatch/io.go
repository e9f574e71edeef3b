// File: internal/dispatch/io.go
// Author: momentics <momentics@gmail.com>
//
// IOManager (C6): registry of IO completion hooks armed against a
// user-provided api.IOSource. Built on internal/concurrency.IOEngine,
// itself adapted from the teacher's reactor/reactor_linux.go epoll
// backend. The registry's (index, generation) pair is packed into the
// reactor's uintptr UserData slot to correlate a completion back to its
// entry without a second lookup structure.
//
// dispatchLoop and CancelIO/AbortIO/CancelIOs race over the same completion:
// the dispatch loop peeks the registry (Get, not Remove) before it has
// actually invoked the entry's wrapper, so a cancel landing in that window
// must not be allowed to report success while the peeked invocation still
// runs. Each ioEntry carries a claim: whichever side, dispatch or cancel,
// calls claim() first owns doing the real work (invoke-and-erase, or
// disarm/abort-and-erase) and closes entry.done when it finishes; the loser
// blocks on entry.done and returns once the winner is done, mirroring
// wait.go's entry.done join and, in spirit, the ground truth's blocking
// WaitForThreadpoolIoCallbacks join in IoManager::Close.

package dispatch

import (
	"sync"
	"sync/atomic"

	"github.com/momentics/tpcore/api"
	"github.com/momentics/tpcore/internal/concurrency"
)

type ioEntry struct {
	wrapper Wrapper
	source  api.IOSource

	mu      sync.Mutex
	claimed bool
	done    chan struct{}
}

// claim reports whether the caller won the race to handle this entry's one
// and only resolution (dispatch or cancel). The winner must close e.done
// once it has finished; a loser must wait on e.done instead of acting.
func (e *ioEntry) claim() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.claimed {
		return false
	}
	e.claimed = true
	return true
}

// IOManager implements the IO Manager component (C6).
type IOManager struct {
	engine   *concurrency.IOEngine
	registry *Registry[*ioEntry]
	stopCh   chan struct{}
	draining atomic.Bool
}

// NewIOManager binds an IO Manager to the pool's platform IO engine and
// starts its completion dispatch loop.
func NewIOManager(engine *concurrency.IOEngine) *IOManager {
	m := &IOManager{
		engine:   engine,
		registry: NewRegistry[*ioEntry](),
		stopCh:   make(chan struct{}),
	}
	go m.dispatchLoop()
	return m
}

func packUserData(index, generation uint32) uintptr {
	return uintptr(generation)<<32 | uintptr(index)
}

func unpackUserData(u uintptr) (index, generation uint32) {
	return uint32(u & 0xffffffff), uint32(u >> 32)
}

func (m *IOManager) dispatchLoop() {
	completions := m.engine.Completions()
	if completions == nil {
		return
	}
	for {
		select {
		case c, ok := <-completions:
			if !ok {
				return
			}
			idx, gen := unpackUserData(c.UserData)
			entry, ok := m.registry.Get(idx, gen)
			if !ok {
				continue // already cancelled/aborted; drop the stale completion
			}
			if !entry.claim() {
				continue // a concurrent CancelIO/AbortIO/CancelIOs already won this entry
			}
			m.invokeAndErase(idx, gen, entry, c.Outcome)
		case <-m.stopCh:
			return
		}
	}
}

func (m *IOManager) invokeAndErase(idx, gen uint32, entry *ioEntry, outcome api.IOOutcome) {
	defer func() {
		if r := recover(); r != nil {
			logPanic(r)
		}
		m.registry.Remove(idx, gen)
		close(entry.done)
	}()
	entry.wrapper.invoke(instance{api.KindIO}, ioPayload{
		Overlapped:       0,
		Status:           outcome.Err,
		BytesTransferred: outcome.Bytes,
	})
}

// SubmitIO arms source for completion notification and returns its id. The
// caller must initiate its own asynchronous IO against source next; if
// that initiation fails synchronously, the caller must call AbortIO.
func (m *IOManager) SubmitIO(source api.IOSource, fn any) (api.IOID, error) {
	if m.draining.Load() {
		return api.IOID{}, api.ErrResourceExhausted("submit_io: pool is tearing down")
	}
	w, err := newIOWrapper(fn)
	if err != nil {
		return api.IOID{}, err
	}
	entry := &ioEntry{wrapper: w, source: source, done: make(chan struct{})}
	idx, gen := m.registry.Insert(entry)
	id := api.MakeIOID(idx, gen)
	if err := m.engine.Arm(source, packUserData(idx, gen)); err != nil {
		m.registry.Remove(idx, gen)
		return api.IOID{}, err
	}
	return id, nil
}

// CancelIO cancels an armed IO whose async operation started successfully.
// If a completion for id is already being dispatched, CancelIO blocks until
// that invocation finishes before returning, so no invocation of the
// wrapper ever begins after CancelIO has returned.
func (m *IOManager) CancelIO(id api.IOID) error {
	entry, ok := m.registry.Get(id.Index(), id.Gen())
	if !ok {
		return api.ErrNotFound("cancel_io: unknown io id")
	}
	if !entry.claim() {
		<-entry.done
		return nil
	}
	m.registry.Remove(id.Index(), id.Gen())
	err := m.engine.Disarm(entry.source)
	close(entry.done)
	return err
}

// AbortIO cancels an armed IO whose caller-initiated async operation
// failed to start; without this call the engine-side trigger would leak
// since no completion will ever arrive. It joins an already-dispatching
// completion the same way CancelIO does.
func (m *IOManager) AbortIO(id api.IOID) error {
	entry, ok := m.registry.Get(id.Index(), id.Gen())
	if !ok {
		return api.ErrNotFound("abort_io: unknown io id")
	}
	if !entry.claim() {
		<-entry.done
		return nil
	}
	m.registry.Remove(id.Index(), id.Gen())
	err := m.engine.Abort(entry.source)
	close(entry.done)
	return err
}

// CancelIOs cancels every armed IO, joining any completion already
// dispatching for an entry before DrainAll erases its slot.
func (m *IOManager) CancelIOs() {
	m.registry.DrainAll(func(_, _ uint32, entry *ioEntry) {
		if !entry.claim() {
			<-entry.done
			return
		}
		m.engine.Disarm(entry.source)
		close(entry.done)
	})
}

func (m *IOManager) Shutdown() {
	m.draining.Store(true)
	m.CancelIOs()
	close(m.stopCh)
	m.engine.Close()
}
