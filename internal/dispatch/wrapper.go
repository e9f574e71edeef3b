// File: internal/dispatch/wrapper.go
// Author: momentics <momentics@gmail.com>
//
// Wrapper is the erased dynamic dispatch boxed by every ObjectContext,
// grounded on Design Note 9.1: a tagged-by-kind context owning a boxed
// interface with one method invoke(instance, payload), payload shaped per
// kind so the wrapper's internals stay strongly typed instead of reaching
// for reflection.

package dispatch

import (
	"time"

	"github.com/momentics/tpcore/api"
)

// instance is the concrete api.Instance every wrapper hands to a
// "with instance" callback.
type instance struct{ kind api.Kind }

func (i instance) Kind() api.Kind { return i.kind }

// waitPayload/ioPayload are the trigger-arg shapes for the two kinds that
// carry one. Work and Timer callbacks receive no trigger-args.
type waitPayload struct {
	Result api.WaitTriggerResult
}

type ioPayload struct {
	Overlapped       uintptr
	Status           error
	BytesTransferred int
}

// Wrapper is the boxed, single-method erased dispatch target every
// ObjectContext owns.
type Wrapper interface {
	invoke(inst api.Instance, payload any)
}

// funcWrapper adapts a normalized closure into a Wrapper. The two
// supported call shapes (with/without api.Instance) are collapsed into this
// single form once, at construction time, so invoke never has to
// type-switch on the hot path.
type funcWrapper struct {
	call func(inst api.Instance, payload any)
}

func (w *funcWrapper) invoke(inst api.Instance, payload any) { w.call(inst, payload) }

// newWorkWrapper accepts func() or func(api.Instance) and normalizes it.
func newWorkWrapper(fn any) (Wrapper, error) {
	switch f := fn.(type) {
	case func():
		return &funcWrapper{call: func(api.Instance, any) { f() }}, nil
	case func(api.Instance):
		return &funcWrapper{call: func(inst api.Instance, _ any) { f(inst) }}, nil
	default:
		return nil, api.ErrInvalidArgument("submit_work: fn must be func() or func(api.Instance)")
	}
}

// newTimerWrapper accepts func() or func(api.Instance); timers carry no
// trigger-args either.
func newTimerWrapper(fn any) (Wrapper, error) {
	switch f := fn.(type) {
	case func():
		return &funcWrapper{call: func(api.Instance, any) { f() }}, nil
	case func(api.Instance):
		return &funcWrapper{call: func(inst api.Instance, _ any) { f(inst) }}, nil
	default:
		return nil, api.ErrInvalidArgument("submit_timer: fn must be func() or func(api.Instance)")
	}
}

// newWaitWrapper accepts func(api.WaitTriggerResult) or
// func(api.Instance, api.WaitTriggerResult).
func newWaitWrapper(fn any) (Wrapper, error) {
	switch f := fn.(type) {
	case func(api.WaitTriggerResult):
		return &funcWrapper{call: func(_ api.Instance, payload any) {
			f(payload.(waitPayload).Result)
		}}, nil
	case func(api.Instance, api.WaitTriggerResult):
		return &funcWrapper{call: func(inst api.Instance, payload any) {
			f(inst, payload.(waitPayload).Result)
		}}, nil
	default:
		return nil, api.ErrInvalidArgument("submit_wait: fn must be func(api.WaitTriggerResult) or func(api.Instance, api.WaitTriggerResult)")
	}
}

// newIOWrapper accepts func(uintptr, error, int) or
// func(api.Instance, uintptr, error, int), taking (overlapped, status, bytes).
func newIOWrapper(fn any) (Wrapper, error) {
	switch f := fn.(type) {
	case func(uintptr, error, int):
		return &funcWrapper{call: func(_ api.Instance, payload any) {
			p := payload.(ioPayload)
			f(p.Overlapped, p.Status, p.BytesTransferred)
		}}, nil
	case func(api.Instance, uintptr, error, int):
		return &funcWrapper{call: func(inst api.Instance, payload any) {
			p := payload.(ioPayload)
			f(inst, p.Overlapped, p.Status, p.BytesTransferred)
		}}, nil
	default:
		return nil, api.ErrInvalidArgument("submit_io: fn must be func(uintptr, error, int) or func(api.Instance, uintptr, error, int)")
	}
}

// clampDeadline implements SubmitTimerDeadline's "deadline in the past
// fires immediately" boundary behavior.
func clampDeadline(deadline time.Time, now time.Time) time.Duration {
	if d := deadline.Sub(now); d > 0 {
		return d
	}
	return 0
}
