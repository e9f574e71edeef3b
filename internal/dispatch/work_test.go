package dispatch

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/momentics/tpcore/internal/concurrency"
)

func TestWorkManagerSubmitAndWait(t *testing.T) {
	ex := concurrency.NewExecutor(4)
	defer ex.Close()
	m := NewWorkManager(ex)

	var ran int32
	const n = 50
	for i := 0; i < n; i++ {
		if err := m.SubmitWork(func() { atomic.AddInt32(&ran, 1) }); err != nil {
			t.Fatalf("SubmitWork: %v", err)
		}
	}
	if ok := m.WaitWorks(nil); !ok {
		t.Fatalf("WaitWorks returned false without cancellation")
	}
	if got := atomic.LoadInt32(&ran); got != n {
		t.Fatalf("ran = %d, want %d", got, n)
	}
}

func TestWorkManagerCancelWorksDropsQueued(t *testing.T) {
	ex := concurrency.NewExecutor(1)
	defer ex.Close()
	m := NewWorkManager(ex)

	block := make(chan struct{})
	started := make(chan struct{})
	if err := m.SubmitWork(func() {
		close(started)
		<-block
	}); err != nil {
		t.Fatalf("SubmitWork: %v", err)
	}
	<-started

	for i := 0; i < 10; i++ {
		if err := m.SubmitWork(func() {}); err != nil {
			t.Fatalf("SubmitWork: %v", err)
		}
	}
	close(block)
	m.CancelWorks()
	if got := m.submitted.Load(); got != m.completed.Load() {
		t.Fatalf("after CancelWorks, submitted(%d) must equal completed(%d)", got, m.completed.Load())
	}
}

func TestWorkManagerRejectsSubmitAfterShutdown(t *testing.T) {
	ex := concurrency.NewExecutor(2)
	defer ex.Close()
	m := NewWorkManager(ex)
	m.Shutdown()
	if err := m.SubmitWork(func() {}); err == nil {
		t.Fatalf("SubmitWork after Shutdown must fail")
	}
}

func TestWorkManagerWaitWorksHonorsCancelProbe(t *testing.T) {
	ex := concurrency.NewExecutor(1)
	defer ex.Close()
	m := NewWorkManager(ex)

	block := make(chan struct{})
	started := make(chan struct{})
	m.SubmitWork(func() {
		close(started)
		<-block
	})
	<-started

	var probed int32
	probe := func() bool {
		n := atomic.AddInt32(&probed, 1)
		if n > 2 {
			close(block) // let the in-flight task finish so CancelWorks can return
		}
		return n > 2
	}
	done := make(chan bool)
	go func() { done <- m.WaitWorks(probe) }()

	select {
	case ok := <-done:
		if ok {
			t.Fatalf("WaitWorks must return false once the cancel probe fires")
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("WaitWorks did not honor the cancel probe in time")
	}
}
