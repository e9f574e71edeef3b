package concurrency

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestExecutorRunsSubmittedTasks(t *testing.T) {
	e := NewExecutor(4)
	defer e.Close()

	var count int64
	const n = 200
	for i := 0; i < n; i++ {
		if err := e.Submit(func() { atomic.AddInt64(&count, 1) }); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt64(&count) != n && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := atomic.LoadInt64(&count); got != n {
		t.Fatalf("count = %d, want %d", got, n)
	}
}

func TestExecutorRecoversFromPanic(t *testing.T) {
	e := NewExecutor(2)
	defer e.Close()

	var ran int64
	e.Submit(func() { panic("boom") })
	e.Submit(func() { atomic.AddInt64(&ran, 1) })

	deadline := time.Now().Add(time.Second)
	for atomic.LoadInt64(&ran) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if atomic.LoadInt64(&ran) == 0 {
		t.Fatalf("a panicking task must not prevent later tasks from running")
	}
}

func TestExecutorSubmitAfterCloseFails(t *testing.T) {
	e := NewExecutor(1)
	e.Close()
	if err := e.Submit(func() {}); err != ErrExecutorClosed {
		t.Fatalf("Submit after Close = %v, want ErrExecutorClosed", err)
	}
}

func TestExecutorCloseIdempotent(t *testing.T) {
	e := NewExecutor(1)
	e.Close()
	e.Close() // must not panic
}

func TestExecutorNumWorkersDefaultsToNumCPU(t *testing.T) {
	e := NewExecutor(0)
	defer e.Close()
	if e.NumWorkers() <= 0 {
		t.Fatalf("NumWorkers() = %d, want > 0", e.NumWorkers())
	}
}
