// Package api
// Author: momentics
//
// Executor contract for parallel task dispatch and custom eventloop integration.

package api

// Executor abstracts parallel task and custom eventloop execution. Dynamic
// resize, present on the teacher's concrete Executor, is intentionally not
// part of this contract; pool sizing is fixed at construction.
type Executor interface {
    // Submit schedules task for execution.
    Submit(task func()) error

    // NumWorkers returns current number of active worker routines.
    NumWorkers() int
}
