// File: internal/concurrency/workstack.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// WorkStack is a lock-free multi-producer/multi-consumer LIFO built on the
// classic Treiber stack algorithm. The upstream lockFreeQueue in
// lock_free_queue.go is documented as single-producer/single-consumer and
// cannot serve the Work Manager, where every caller goroutine is a producer
// and every executor worker is a consumer; this generalizes the same
// lock-free intent (CAS loop over an atomic head, no mutex) to the MPMC
// case with an explicit LIFO ordering, matching PTP_WORK's "most recently
// submitted work item runs next when several are ready" scheduling hint.

package concurrency

import "sync/atomic"

type workNode[T any] struct {
	value T
	next  atomic.Pointer[workNode[T]]
}

// WorkStack is a lock-free MPMC LIFO stack of T.
type WorkStack[T any] struct {
	head atomic.Pointer[workNode[T]]
	size atomic.Int64
}

// NewWorkStack returns an empty stack.
func NewWorkStack[T any]() *WorkStack[T] {
	return &WorkStack[T]{}
}

// Push adds value to the top of the stack.
func (s *WorkStack[T]) Push(value T) {
	n := &workNode[T]{value: value}
	for {
		old := s.head.Load()
		n.next.Store(old)
		if s.head.CompareAndSwap(old, n) {
			s.size.Add(1)
			return
		}
	}
}

// Pop removes and returns the top value; ok is false if the stack is empty.
func (s *WorkStack[T]) Pop() (value T, ok bool) {
	for {
		old := s.head.Load()
		if old == nil {
			return value, false
		}
		next := old.next.Load()
		if s.head.CompareAndSwap(old, next) {
			s.size.Add(-1)
			return old.value, true
		}
	}
}

// Len returns an approximate count of items currently on the stack. Under
// concurrent Push/Pop this is a snapshot, not a linearizable count.
func (s *WorkStack[T]) Len() int {
	return int(s.size.Load())
}
