package cleanup

import (
	"sync/atomic"
	"testing"
)

func TestGroupDrainRunsEveryEnrollmentOnce(t *testing.T) {
	g := New()
	var count int32
	const n = 20
	for i := 0; i < n; i++ {
		g.Enroll(func() { atomic.AddInt32(&count, 1) })
	}
	g.Drain()
	if got := atomic.LoadInt32(&count); got != n {
		t.Fatalf("count = %d, want %d", got, n)
	}
	g.Drain() // second call must be a no-op
	if got := atomic.LoadInt32(&count); got != n {
		t.Fatalf("count after second Drain = %d, want %d (Drain must be idempotent)", got, n)
	}
}

func TestGroupEnrollAfterDrainRunsImmediately(t *testing.T) {
	g := New()
	g.Drain()
	ran := make(chan struct{}, 1)
	g.Enroll(func() { ran <- struct{}{} })
	select {
	case <-ran:
	default:
		t.Fatalf("Enroll after Drain must run its closure immediately, not queue it")
	}
}

func TestGroupDrainOrderIsFIFO(t *testing.T) {
	g := New()
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		g.Enroll(func() { order = append(order, i) })
	}
	g.Drain()
	for i, v := range order {
		if v != i {
			t.Fatalf("order = %v, want enrollment order 0..4", order)
		}
	}
}

func TestGroupDoneClosesAfterDrain(t *testing.T) {
	g := New()
	select {
	case <-g.Done():
		t.Fatalf("Done must not be closed before Drain")
	default:
	}
	g.Drain()
	select {
	case <-g.Done():
	default:
		t.Fatalf("Done must be closed once Drain has run")
	}
}

func TestGroupDraining(t *testing.T) {
	g := New()
	if g.Draining() {
		t.Fatalf("a fresh group must not report Draining")
	}
	g.Drain()
	if !g.Draining() {
		t.Fatalf("Draining must report true after Drain")
	}
}
