// File: internal/concurrency/scheduler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// High-precision timer scheduler backing the Timer Manager. Grounded on the
// upstream scheduler.go's intent (a container/heap-ordered timer queue) and
// completed from scratch: the upstream file referenced an unexported
// unsafe.Pointer prefetch step and never defined Schedule/Cancel/NewScheduler
// despite tests/scheduler_timer_test.go calling all three.
//
// Cancel joins a task already claimed for dispatch before returning, mirroring
// the blocking WaitForThreadpoolTimerCallbacks join the Windows original uses
// in TimerManager::CloseInternal: a task is "claimed" the instant fireDue pops
// it off the heap, and Cancel must not report success while that claimed
// firing is still running on another goroutine.

package concurrency

import (
	"container/heap"
	"sync"
	"time"

	"github.com/momentics/tpcore/api"
)

var _ api.Scheduler = (*Scheduler)(nil)

// Scheduler runs delayed and periodic callbacks off a single timer heap,
// implementing api.Scheduler.
type Scheduler struct {
	mu     sync.Mutex
	heap   timerHeap
	notify chan struct{}
	stopCh chan struct{}
	nextID uint64
}

// NewScheduler starts a scheduler's background dispatch goroutine.
func NewScheduler() *Scheduler {
	s := &Scheduler{
		notify: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
	}
	go s.run()
	return s
}

// schedulerEpoch anchors Now; time.Since reads Go's monotonic clock.
var schedulerEpoch = time.Now()

// Now returns monotonic time in nanoseconds.
func (s *Scheduler) Now() int64 { return int64(time.Since(schedulerEpoch)) }

// scheduledTask is a single armed entry in the heap.
type scheduledTask struct {
	deadline int64 // in Now() nanoseconds
	period   int64 // 0 for one-shot
	fn       func()
	index    int
	canceled bool
	id       uint64

	// dispatching and fired track a task claimed for dispatch by fireDue
	// but not yet run to completion, guarded by the same s.mu critical
	// section that pops the task off the heap. This closes the window a
	// heap-index check alone cannot see: a periodic task is re-pushed onto
	// the heap (reacquiring index >= 0) in the same critical section it is
	// claimed for its current firing, so Cancel must consult dispatching
	// independently of index to block for a genuinely in-flight callback.
	dispatching bool
	fired       chan struct{}
}

// taskHandle implements api.Cancelable for a scheduled task.
type taskHandle struct {
	s    *Scheduler
	task *scheduledTask
	done chan struct{}
	once sync.Once
	err  error
}

func (h *taskHandle) Done() <-chan struct{} { return h.done }
func (h *taskHandle) Err() error            { return h.err }

func (h *taskHandle) Cancel() error {
	h.s.mu.Lock()
	if h.task.index >= 0 {
		h.task.canceled = true
		heap.Remove(&h.s.heap, h.task.index)
	}
	// dispatching and the heap index are independent: a periodic task is
	// re-pushed (index >= 0) in the very critical section that claims it
	// for its current firing (dispatching = true), so both can hold at
	// once. Removing it from the heap only prevents its NEXT firing; the
	// one already claimed must still be waited out below.
	dispatching := h.task.dispatching
	fired := h.task.fired
	h.s.mu.Unlock()
	if dispatching {
		<-fired
	}
	h.once.Do(func() { close(h.done) })
	return nil
}

// Schedule arms fn to run once after delayNanos elapses, implementing
// api.Scheduler.
func (s *Scheduler) Schedule(delayNanos int64, fn func()) (api.Cancelable, error) {
	return s.schedule(delayNanos, 0, fn)
}

// SchedulePeriodic arms fn to run every periodNanos, first firing after
// delayNanos.
func (s *Scheduler) SchedulePeriodic(delayNanos, periodNanos int64, fn func()) (api.Cancelable, error) {
	return s.schedule(delayNanos, periodNanos, fn)
}

func (s *Scheduler) schedule(delayNanos, periodNanos int64, fn func()) (*taskHandle, error) {
	if delayNanos < 0 {
		delayNanos = 0
	}
	s.mu.Lock()
	s.nextID++
	t := &scheduledTask{
		deadline: s.Now() + delayNanos,
		period:   periodNanos,
		fn:       fn,
		id:       s.nextID,
	}
	heap.Push(&s.heap, t)
	s.mu.Unlock()
	select {
	case s.notify <- struct{}{}:
	default:
	}
	return &taskHandle{s: s, task: t, done: make(chan struct{})}, nil
}

// Cancel cancels a scheduled task via its api.Cancelable handle,
// implementing api.Scheduler.
func (s *Scheduler) Cancel(c api.Cancelable) error {
	return c.Cancel()
}

// Close stops the dispatch goroutine. Pending one-shot tasks never fire;
// periodic tasks never re-arm.
func (s *Scheduler) Close() {
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
}

func (s *Scheduler) run() {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	for {
		s.mu.Lock()
		if s.heap.Len() == 0 {
			s.mu.Unlock()
			select {
			case <-s.notify:
				continue
			case <-s.stopCh:
				return
			}
		}
		next := s.heap[0]
		wait := time.Duration(next.deadline - s.Now())
		s.mu.Unlock()
		if wait <= 0 {
			s.fireDue()
			continue
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)
		select {
		case <-timer.C:
			s.fireDue()
		case <-s.notify:
		case <-s.stopCh:
			return
		}
	}
}

func (s *Scheduler) fireDue() {
	now := s.Now()
	var due []*scheduledTask
	s.mu.Lock()
	for s.heap.Len() > 0 && s.heap[0].deadline <= now {
		t := heap.Pop(&s.heap).(*scheduledTask)
		if t.canceled {
			continue
		}
		if t.period > 0 {
			t.deadline = now + t.period
			t.canceled = false
			heap.Push(&s.heap, t)
		}
		if t.dispatching {
			// A previous firing of this periodic task is still in flight;
			// drop this tick rather than clobber its in-flight fired
			// channel. It was already re-pushed above for the next period.
			continue
		}
		// Claim the task for dispatch in the same critical section that
		// pops (and, for periodic tasks, re-pushes) it, so Cancel never
		// observes a task that looks idle but is about to run.
		t.dispatching = true
		t.fired = make(chan struct{})
		due = append(due, t)
	}
	s.mu.Unlock()
	for _, t := range due {
		go s.dispatch(t)
	}
}

// dispatch runs a claimed task's callback and clears its in-flight state
// afterward, releasing any Cancel call blocked on t.fired.
func (s *Scheduler) dispatch(t *scheduledTask) {
	defer func() {
		s.mu.Lock()
		t.dispatching = false
		fired := t.fired
		s.mu.Unlock()
		close(fired)
	}()
	t.fn()
}

// timerHeap implements container/heap.Interface, ordered by deadline.
type timerHeap []*scheduledTask

func (h timerHeap) Len() int           { return len(h) }
func (h timerHeap) Less(i, j int) bool { return h[i].deadline < h[j].deadline }
func (h timerHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *timerHeap) Push(x interface{}) {
	t := x.(*scheduledTask)
	t.index = len(*h)
	*h = append(*h, t)
}
func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
