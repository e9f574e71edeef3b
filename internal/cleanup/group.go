// File: internal/cleanup/group.go
// Author: momentics <momentics@gmail.com>
//
// Group is the Cleanup Group (spec Data Model entity 2): a teardown
// barrier every managed trigger enrolls into. Its enrollment ledger uses
// github.com/eapache/queue, present in the teacher's go.mod but never
// wired into the observed source. A FIFO ring buffer is a natural fit for
// an append-mostly, drain-once-in-order structure like this one.

package cleanup

import (
	"sync"

	"github.com/eapache/queue"
)

// Group accumulates a drain closure per enrolled trigger handle and runs
// them all, in enrollment order, exactly once, when the Pool tears down.
// Drain closures must be idempotent: a one-shot object that already
// completed naturally is still enrolled here, and its closure will run
// again harmlessly during teardown.
type Group struct {
	mu       sync.Mutex
	q        *queue.Queue
	drained  bool
	drainSig chan struct{}
}

// New returns an empty cleanup group.
func New() *Group {
	return &Group{q: queue.New(), drainSig: make(chan struct{})}
}

// Enroll appends drain to the ledger. Called by the Pool Façade's Submit*
// methods once a trigger handle has been successfully armed. If the group has already
// drained, drain runs immediately instead of being silently lost.
func (g *Group) Enroll(drain func()) {
	g.mu.Lock()
	drained := g.drained
	if !drained {
		g.q.Add(drain)
	}
	g.mu.Unlock()
	if drained {
		drain()
	}
}

// Draining reports whether Drain has been called, letting the Pool Façade
// reject new submissions with ResourceExhausted per Design Note 9.6.
func (g *Group) Draining() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.drained
}

// Drain runs every enrolled closure exactly once, in enrollment order, and
// marks the group as drained so subsequent Enroll calls run immediately
// instead of queuing. Idempotent: a second call is a no-op.
func (g *Group) Drain() {
	g.mu.Lock()
	if g.drained {
		g.mu.Unlock()
		return
	}
	g.drained = true
	n := g.q.Length()
	closures := make([]func(), 0, n)
	for i := 0; i < n; i++ {
		closures = append(closures, g.q.Remove().(func()))
	}
	close(g.drainSig)
	g.mu.Unlock()

	for _, fn := range closures {
		fn()
	}
}

// Done signals once Drain has completed removing every ledger entry to run
// (the closures themselves may still be executing).
func (g *Group) Done() <-chan struct{} { return g.drainSig }
