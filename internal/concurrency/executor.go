// File: internal/concurrency/executor.go
// Package concurrency implements the shared worker-goroutine pool the Work
// Manager submits onto.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Executor dispatches tasks across worker goroutines, using per-worker local
// queues and a global queue fallback. The lockFreeQueue type is defined in
// lock_free_queue.go. NUMA pinning and dynamic resize, present in the
// upstream version of this file, are dropped: the dispatcher's Non-goals
// exclude runtime pool resizing and CPU affinity is orthogonal to callback
// dispatch correctness.

package concurrency

import (
	"errors"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/momentics/tpcore/api"
)

var _ api.Executor = (*Executor)(nil)

// ErrExecutorClosed is returned by Submit once Close has completed, and also
// when the chosen worker's local queue and the global queue are both full.
var ErrExecutorClosed = errors.New("concurrency: executor is closed")

// TaskFunc is a unit of work to execute.
type TaskFunc = func()

// Executor manages a fixed-size pool of worker goroutines.
type Executor struct {
	globalQueue chan TaskFunc              // fallback queue for tasks when local queues are full
	localQueues []*lockFreeQueue[TaskFunc] // per-worker lock-free queues
	workers     []*worker                  // worker instances
	closeCh     chan struct{}              // signals executor shutdown
	closed      int32                      // atomic flag: 1 if closed
	numWorkers  int32                      // fixed number of workers

	// statistics
	totalTasks     int64
	completedTasks int64
}

// NewExecutor creates a new Executor with the given number of workers.
// If numWorkers <= 0, defaults to runtime.NumCPU().
func NewExecutor(numWorkers int) *Executor {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	e := &Executor{
		globalQueue: make(chan TaskFunc, numWorkers*4),
		closeCh:     make(chan struct{}),
		numWorkers:  int32(numWorkers),
	}
	e.localQueues = make([]*lockFreeQueue[TaskFunc], numWorkers)
	e.workers = make([]*worker, numWorkers)
	for i := 0; i < numWorkers; i++ {
		e.localQueues[i] = NewLockFreeQueue[TaskFunc](1024)
	}
	for i := 0; i < numWorkers; i++ {
		w := &worker{
			id:         i,
			executor:   e,
			localQueue: e.localQueues[i],
		}
		e.workers[i] = w
		go w.run()
	}
	return e
}

// Submit enqueues a task for execution, returning ErrExecutorClosed if the
// executor has been closed or if both the chosen local queue and the global
// queue are full (Submit never blocks).
func (e *Executor) Submit(task TaskFunc) error {
	if atomic.LoadInt32(&e.closed) == 1 {
		return ErrExecutorClosed
	}
	n := atomic.AddInt64(&e.totalTasks, 1)
	idx := int(n % int64(e.NumWorkers()))
	if e.localQueues[idx].Enqueue(task) {
		return nil
	}
	select {
	case e.globalQueue <- task:
		return nil
	case <-e.closeCh:
		return ErrExecutorClosed
	default:
		return ErrExecutorClosed
	}
}

// NumWorkers returns the fixed number of worker goroutines.
func (e *Executor) NumWorkers() int {
	return int(atomic.LoadInt32(&e.numWorkers))
}

// Close stops accepting new tasks and signals every worker to drain its
// local queue and exit. Close is idempotent.
func (e *Executor) Close() {
	if atomic.CompareAndSwapInt32(&e.closed, 0, 1) {
		close(e.closeCh)
	}
}

// Stats returns basic executor metrics for control.DebugProbes.
func (e *Executor) Stats() map[string]int64 {
	var localQueued int64
	for _, q := range e.localQueues {
		localQueued += int64(q.Len())
	}
	return map[string]int64{
		"total_tasks":     atomic.LoadInt64(&e.totalTasks),
		"completed_tasks": atomic.LoadInt64(&e.completedTasks),
		"pending_tasks":   atomic.LoadInt64(&e.totalTasks) - atomic.LoadInt64(&e.completedTasks),
		"num_workers":     int64(e.NumWorkers()),
		"local_queued":    localQueued,
		"global_queued":   int64(len(e.globalQueue)),
	}
}

// worker represents a single executor goroutine.
type worker struct {
	id         int
	executor   *Executor
	localQueue *lockFreeQueue[TaskFunc]
}

// run drains the local queue first, then the shared global queue, backing
// off briefly when both are empty. Once Close fires it keeps running its
// own local queue until that is empty and then exits; tasks still left in
// the global queue at that point are not run.
func (w *worker) run() {
	for {
		if task, ok := w.localQueue.Dequeue(); ok {
			w.executeTask(task)
			continue
		}
		select {
		case task := <-w.executor.globalQueue:
			w.executeTask(task)
			continue
		default:
		}
		select {
		case <-w.executor.closeCh:
			if task, ok := w.localQueue.Dequeue(); ok {
				w.executeTask(task)
				continue
			}
			return
		case task := <-w.executor.globalQueue:
			w.executeTask(task)
		case <-time.After(time.Millisecond):
		}
	}
}

// executeTask runs the task and updates statistics, recovering from panics
// raised by the callback so one misbehaving task never kills a worker.
func (w *worker) executeTask(task TaskFunc) {
	defer func() {
		recover()
		atomic.AddInt64(&w.executor.completedTasks, 1)
	}()
	task()
}
