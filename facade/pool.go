// File: facade/pool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Pool is the Pool Façade (C7): composes the Environment, Cleanup Group,
// and four Kind Managers, routes every public operation to the relevant
// manager, and orchestrates teardown. Grounded on the teacher's
// facade/hioload.go composition-root pattern (Config/DefaultConfig,
// aggregated subsystems behind one struct, api.GracefulShutdown), rebuilt
// around the dispatcher's own components instead of the WS transport
// stack.

package facade

import (
	"runtime"
	"sync"
	"time"

	"github.com/momentics/tpcore/api"
	"github.com/momentics/tpcore/control"
	"github.com/momentics/tpcore/internal/cleanup"
	"github.com/momentics/tpcore/internal/concurrency"
	"github.com/momentics/tpcore/internal/dispatch"
)

// Pool is the dispatcher's public entry point.
type Pool struct {
	env       control.Environment
	executor  *concurrency.Executor
	scheduler *concurrency.Scheduler
	ioEngine  *concurrency.IOEngine
	cleanup   *cleanup.Group

	work  *dispatch.WorkManager
	wait  *dispatch.WaitManager
	timer *dispatch.TimerManager
	io    *dispatch.IOManager

	debug   *control.DebugProbes
	metrics *control.MetricsRegistry

	mu     sync.Mutex
	closed bool
}

var (
	_ api.GracefulShutdown = (*Pool)(nil)
	_ api.Debug            = (*Pool)(nil)
)

// New constructs a Pool from env, normalizing it first. Construction
// builds the Environment's derived resources, the Cleanup Group, and the
// four Managers in that order; any step's failure unwinds every prior step
// and returns a ResourceExhausted error, matching the fail-on-arm policy.
func New(env control.Environment) (*Pool, error) {
	env = env.Normalize()

	workers := runtime.NumCPU()
	if env.Flavor == control.FlavorCustom {
		workers = env.MaxThreads
	}
	executor := concurrency.NewExecutor(workers)

	scheduler := concurrency.NewScheduler()

	ioEngine, err := concurrency.NewIOEngine()
	if err != nil {
		scheduler.Close()
		executor.Close()
		return nil, api.ErrResourceExhausted("pool: io engine unavailable: " + err.Error())
	}

	grp := cleanup.New()

	p := &Pool{
		env:       env,
		executor:  executor,
		scheduler: scheduler,
		ioEngine:  ioEngine,
		cleanup:   grp,
		work:      dispatch.NewWorkManager(executor),
		wait:      dispatch.NewWaitManager(),
		timer:     dispatch.NewTimerManager(scheduler),
		io:        dispatch.NewIOManager(ioEngine),
		debug:     control.NewDebugProbes(),
		metrics:   control.NewMetricsRegistry(),
	}

	control.RegisterPlatformProbes(p.debug)
	p.debug.RegisterProbe("executor.stats", func() any { return p.executor.Stats() })
	p.debug.RegisterProbe("work.stats", func() any { return p.work.Stats() })
	p.debug.RegisterProbe("metrics.snapshot", func() any { return p.metrics.GetSnapshot() })
	p.metrics.Set("executor.workers", int64(p.executor.NumWorkers()))

	return p, nil
}

// --- Work (C3) ---

// SubmitWork enqueues a one-shot immediate callback. fn must be func() or
// func(api.Instance); callers normally pass a plain func().
func (p *Pool) SubmitWork(fn any) error {
	if p.cleanup.Draining() {
		return api.ErrResourceExhausted("submit_work: pool is tearing down")
	}
	if err := p.work.SubmitWork(fn); err != nil {
		return err
	}
	p.metrics.Incr("work.submitted", 1)
	return nil
}

// WaitWorks blocks until every submitted work item has completed or the
// environment's cancel probe reports true.
func (p *Pool) WaitWorks() bool { return p.work.WaitWorks(p.env.CancelProbe) }

// CancelWorks drops all queued work and blocks until in-flight work
// completes.
func (p *Pool) CancelWorks() { p.work.CancelWorks() }

// --- Wait (C4) ---

// SubmitWait arms handle for a one-shot signal/timeout watch. timeout ==
// api.NoTimeout waits forever.
func (p *Pool) SubmitWait(handle api.Waitable, timeout time.Duration, fn any) (api.WaitID, error) {
	if p.cleanup.Draining() {
		return api.WaitID{}, api.ErrResourceExhausted("submit_wait: pool is tearing down")
	}
	id, err := p.wait.SubmitWait(handle, timeout, fn)
	if err != nil {
		return id, err
	}
	p.metrics.Incr("wait.submitted", 1)
	p.cleanup.Enroll(func() { p.wait.CancelWait(id) })
	return id, nil
}

// CancelWait cancels one armed wait.
func (p *Pool) CancelWait(id api.WaitID) error { return p.wait.CancelWait(id) }

// CancelWaits cancels every armed wait.
func (p *Pool) CancelWaits() { p.wait.CancelWaits() }

// --- Timer (C5) ---

// SubmitTimer arms fn to run once after delay, or repeatedly every period
// after the first fire when period > 0.
func (p *Pool) SubmitTimer(delay, period time.Duration, fn any) (api.TimerID, error) {
	if p.cleanup.Draining() {
		return api.TimerID{}, api.ErrResourceExhausted("submit_timer: pool is tearing down")
	}
	id, err := p.timer.SubmitTimer(delay, period, fn)
	if err != nil {
		return id, err
	}
	p.metrics.Incr("timer.submitted", 1)
	p.cleanup.Enroll(func() { p.timer.CancelTimer(id) })
	return id, nil
}

// SubmitTimerDeadline computes delay = max(0, deadline-now) and forwards
// to SubmitTimer.
func (p *Pool) SubmitTimerDeadline(deadline time.Time, period time.Duration, fn any) (api.TimerID, error) {
	if p.cleanup.Draining() {
		return api.TimerID{}, api.ErrResourceExhausted("submit_timer_deadline: pool is tearing down")
	}
	id, err := p.timer.SubmitTimerDeadline(deadline, period, fn)
	if err != nil {
		return id, err
	}
	p.metrics.Incr("timer.submitted", 1)
	p.cleanup.Enroll(func() { p.timer.CancelTimer(id) })
	return id, nil
}

// ReplaceTimer swaps a timer's callback in place, preserving its
// originally-submitted (delay, period), and returns the same id.
func (p *Pool) ReplaceTimer(id api.TimerID, fn any) (api.TimerID, error) {
	return p.timer.ReplaceTimer(id, fn)
}

// CancelTimer cancels one armed timer.
func (p *Pool) CancelTimer(id api.TimerID) error { return p.timer.CancelTimer(id) }

// CancelTimers cancels every armed timer.
func (p *Pool) CancelTimers() { p.timer.CancelTimers() }

// --- IO (C6) ---

// SubmitIO arms source for completion notification. The caller must
// initiate its own asynchronous IO against source next; if that initiation
// fails synchronously, the caller must call AbortIO.
func (p *Pool) SubmitIO(source api.IOSource, fn any) (api.IOID, error) {
	if p.cleanup.Draining() {
		return api.IOID{}, api.ErrResourceExhausted("submit_io: pool is tearing down")
	}
	id, err := p.io.SubmitIO(source, fn)
	if err != nil {
		return id, err
	}
	p.metrics.Incr("io.submitted", 1)
	p.cleanup.Enroll(func() { p.io.CancelIO(id) })
	return id, nil
}

// CancelIO cancels an armed IO whose async operation started successfully.
func (p *Pool) CancelIO(id api.IOID) error { return p.io.CancelIO(id) }

// AbortIO cancels an armed IO whose caller-initiated async operation
// failed to start.
func (p *Pool) AbortIO(id api.IOID) error { return p.io.AbortIO(id) }

// CancelIOs cancels every armed IO.
func (p *Pool) CancelIOs() { p.io.CancelIOs() }

// CancelAll is shorthand for the four per-kind cancellations.
func (p *Pool) CancelAll() {
	p.CancelWorks()
	p.CancelWaits()
	p.CancelTimers()
	p.CancelIOs()
}

// Shutdown implements api.GracefulShutdown: a single drain call on the
// Cleanup Group runs every late enrollment first, then each Manager's own
// Shutdown cancels and joins its outstanding triggers (IOManager's also
// closes the shared IO engine), and finally the shared executor and
// scheduler are released. Idempotent.
func (p *Pool) Shutdown() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.cleanup.Drain()
	p.work.Shutdown()
	p.wait.Shutdown()
	p.timer.Shutdown()
	p.io.Shutdown()
	p.executor.Close()
	p.scheduler.Close()
	return nil
}

// DumpState implements api.Debug.
func (p *Pool) DumpState() map[string]any { return p.debug.DumpState() }

// RegisterProbe implements api.Debug.
func (p *Pool) RegisterProbe(name string, fn func() any) { p.debug.RegisterProbe(name, fn) }

// Names implements api.Debug.
func (p *Pool) Names() []string { return p.debug.Names() }
