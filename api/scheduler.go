// Package api
// Author: momentics
//
// Scheduler contract backing the Timer Manager (C5). Implemented by
// internal/concurrency.Scheduler's container/heap timer queue.

package api

// Scheduler abstracts the timer engine the Timer Manager arms one-shot and
// periodic callbacks against.
type Scheduler interface {
    // Schedule arms fn to run once after delayNanos elapses.
    Schedule(delayNanos int64, fn func()) (Cancelable, error)

    // SchedulePeriodic arms fn to run every periodNanos, first firing after
    // delayNanos, backing SubmitTimer's period > 0 case.
    SchedulePeriodic(delayNanos, periodNanos int64, fn func()) (Cancelable, error)

    // Cancel cancels a previously scheduled callback.
    Cancel(c Cancelable) error

    // Now returns monotonic time in nanoseconds.
    Now() int64
}
