package dispatch

import (
	"errors"
	"testing"
	"time"

	"github.com/momentics/tpcore/api"
)

func TestNewWorkWrapperPlainFunc(t *testing.T) {
	called := false
	w, err := newWorkWrapper(func() { called = true })
	if err != nil {
		t.Fatalf("newWorkWrapper: %v", err)
	}
	w.invoke(instance{api.KindWork}, nil)
	if !called {
		t.Fatalf("plain func() was not invoked")
	}
}

func TestNewWorkWrapperWithInstance(t *testing.T) {
	var gotKind api.Kind
	w, err := newWorkWrapper(func(inst api.Instance) { gotKind = inst.Kind() })
	if err != nil {
		t.Fatalf("newWorkWrapper: %v", err)
	}
	w.invoke(instance{api.KindWork}, nil)
	if gotKind != api.KindWork {
		t.Fatalf("Kind() = %v, want %v", gotKind, api.KindWork)
	}
}

func TestNewWorkWrapperRejectsWrongShape(t *testing.T) {
	if _, err := newWorkWrapper(func(int) {}); err == nil {
		t.Fatalf("expected an error for an unsupported callback shape")
	}
}

func TestNewWaitWrapperShapes(t *testing.T) {
	var got api.WaitTriggerResult
	w, err := newWaitWrapper(func(r api.WaitTriggerResult) { got = r })
	if err != nil {
		t.Fatalf("newWaitWrapper: %v", err)
	}
	w.invoke(instance{api.KindWait}, waitPayload{Result: api.TimedOut})
	if got != api.TimedOut {
		t.Fatalf("Result = %v, want %v", got, api.TimedOut)
	}

	var gotInst api.Instance
	w2, err := newWaitWrapper(func(inst api.Instance, r api.WaitTriggerResult) {
		gotInst = inst
		got = r
	})
	if err != nil {
		t.Fatalf("newWaitWrapper: %v", err)
	}
	w2.invoke(instance{api.KindWait}, waitPayload{Result: api.Signaled})
	if got != api.Signaled || gotInst.Kind() != api.KindWait {
		t.Fatalf("with-instance wait callback did not receive expected args")
	}
}

func TestNewIOWrapperShapes(t *testing.T) {
	sentinel := errors.New("boom")
	var gotErr error
	var gotBytes int
	w, err := newIOWrapper(func(overlapped uintptr, status error, n int) {
		gotErr = status
		gotBytes = n
	})
	if err != nil {
		t.Fatalf("newIOWrapper: %v", err)
	}
	w.invoke(instance{api.KindIO}, ioPayload{Status: sentinel, BytesTransferred: 42})
	if gotErr != sentinel || gotBytes != 42 {
		t.Fatalf("io callback got (%v, %d), want (%v, 42)", gotErr, gotBytes, sentinel)
	}
}

func TestClampDeadline(t *testing.T) {
	now := time.Now()
	if d := clampDeadline(now.Add(-time.Hour), now); d != 0 {
		t.Fatalf("a deadline in the past must clamp to 0, got %v", d)
	}
	if d := clampDeadline(now.Add(time.Second), now); d <= 0 {
		t.Fatalf("a future deadline must yield a positive duration, got %v", d)
	}
}

func TestKindString(t *testing.T) {
	cases := map[api.Kind]string{api.KindWork: "work", api.KindWait: "wait", api.KindTimer: "timer", api.KindIO: "io"}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Fatalf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}
