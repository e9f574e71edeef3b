package dispatch

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/momentics/tpcore/internal/concurrency"
)

func TestTimerManagerOneShot(t *testing.T) {
	sched := concurrency.NewScheduler()
	defer sched.Close()
	m := NewTimerManager(sched)

	fired := make(chan struct{}, 1)
	if _, err := m.SubmitTimer(5*time.Millisecond, 0, func() { fired <- struct{}{} }); err != nil {
		t.Fatalf("SubmitTimer: %v", err)
	}
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatalf("one-shot timer never fired")
	}
}

func TestTimerManagerPeriodic(t *testing.T) {
	sched := concurrency.NewScheduler()
	defer sched.Close()
	m := NewTimerManager(sched)

	var count int32
	id, err := m.SubmitTimer(2*time.Millisecond, 5*time.Millisecond, func() {
		atomic.AddInt32(&count, 1)
	})
	if err != nil {
		t.Fatalf("SubmitTimer: %v", err)
	}
	time.Sleep(40 * time.Millisecond)
	if err := m.CancelTimer(id); err != nil {
		t.Fatalf("CancelTimer: %v", err)
	}
	if atomic.LoadInt32(&count) < 2 {
		t.Fatalf("periodic timer fired only %d times in 40ms at a 5ms period", count)
	}
}

func TestTimerManagerReplacePreservesSchedule(t *testing.T) {
	sched := concurrency.NewScheduler()
	defer sched.Close()
	m := NewTimerManager(sched)

	origFired := make(chan struct{}, 1)
	id, err := m.SubmitTimer(50*time.Millisecond, 0, func() { origFired <- struct{}{} })
	if err != nil {
		t.Fatalf("SubmitTimer: %v", err)
	}

	replacedFired := make(chan struct{}, 1)
	if _, err := m.ReplaceTimer(id, func() { replacedFired <- struct{}{} }); err != nil {
		t.Fatalf("ReplaceTimer: %v", err)
	}

	select {
	case <-origFired:
		t.Fatalf("original callback fired after Replace swapped it out")
	case <-replacedFired:
	case <-time.After(2 * time.Second):
		t.Fatalf("replaced timer never fired")
	}
}

func TestTimerManagerCancelTimersDisarmsAll(t *testing.T) {
	sched := concurrency.NewScheduler()
	defer sched.Close()
	m := NewTimerManager(sched)

	fired := make(chan struct{}, 10)
	for i := 0; i < 5; i++ {
		if _, err := m.SubmitTimer(20*time.Millisecond, 0, func() { fired <- struct{}{} }); err != nil {
			t.Fatalf("SubmitTimer: %v", err)
		}
	}
	m.CancelTimers()
	select {
	case <-fired:
		t.Fatalf("a timer fired despite CancelTimers")
	case <-time.After(60 * time.Millisecond):
	}
	if m.registry.Len() != 0 {
		t.Fatalf("registry must be empty after CancelTimers")
	}
}

func TestTimerManagerCancelTimerJoinsInFlightFiring(t *testing.T) {
	sched := concurrency.NewScheduler()
	defer sched.Close()
	m := NewTimerManager(sched)

	inFlight := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool

	id, err := m.SubmitTimer(2*time.Millisecond, 0, func() {
		close(inFlight)
		<-release
		finished.Store(true)
	})
	if err != nil {
		t.Fatalf("SubmitTimer: %v", err)
	}

	select {
	case <-inFlight:
	case <-time.After(2 * time.Second):
		t.Fatalf("timer never started firing")
	}

	cancelDone := make(chan struct{})
	go func() {
		m.CancelTimer(id)
		close(cancelDone)
	}()

	select {
	case <-cancelDone:
		t.Fatalf("CancelTimer returned before the in-flight callback finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)

	select {
	case <-cancelDone:
	case <-time.After(2 * time.Second):
		t.Fatalf("CancelTimer never returned after callback finished")
	}
	if !finished.Load() {
		t.Fatalf("callback did not run to completion before CancelTimer returned")
	}
}

func TestTimerManagerRejectsSubmitAfterShutdown(t *testing.T) {
	sched := concurrency.NewScheduler()
	defer sched.Close()
	m := NewTimerManager(sched)
	m.Shutdown()
	if _, err := m.SubmitTimer(time.Millisecond, 0, func() {}); err == nil {
		t.Fatalf("SubmitTimer after Shutdown must fail")
	}
}
