// Package periodictask implements PeriodicTask, a cancellable,
// restartable periodic-execution primitive built on the shared event loop
// and a lock-free atomic state cell. This is the hardest concurrency code
// in the module, driven by eventloop.Async and taskstate.Spin
// instead of condition variables.
package periodictask

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/arashi-labs/meshrpc/clock"
	"github.com/arashi-labs/meshrpc/directorylog"
	"github.com/arashi-labs/meshrpc/eventloop"
	"github.com/arashi-labs/meshrpc/future"
	"github.com/arashi-labs/meshrpc/strand"
	"github.com/arashi-labs/meshrpc/taskstate"
)

// Task states.
const (
	Stopped int32 = iota
	Starting
	Scheduled
	Running
	Rescheduling
	Stopping
	Triggering
	TriggerReady
)

// StateName returns the human-readable name of a task state, for logging.
func StateName(s int32) string {
	switch s {
	case Stopped:
		return "Stopped"
	case Starting:
		return "Starting"
	case Scheduled:
		return "Scheduled"
	case Running:
		return "Running"
	case Rescheduling:
		return "Rescheduling"
	case Stopping:
		return "Stopping"
	case Triggering:
		return "Triggering"
	case TriggerReady:
		return "TriggerReady"
	default:
		return "Unknown"
	}
}

// Callback is the user code a PeriodicTask repeats. It is invoked with a
// context carrying this task's own identity, so the callback can call
// Stop/AsyncStop/Start/Trigger on its own task without deadlocking (see
// ContextTask).
type Callback func(ctx context.Context)

var (
	// ErrNotConfigured is returned by Start if no callback or no positive
	// period has been set.
	ErrNotConfigured = errors.New("periodictask: callback and period must be set before start")
	// ErrNotStopped is returned by the config setters when called outside
	// the Stopped state.
	ErrNotStopped = errors.New("periodictask: configuration is only legal while stopped")
	// ErrCallbackAlreadySet is returned by SetCallback on a second call.
	ErrCallbackAlreadySet = errors.New("periodictask: callback already set")
)

type selfKey struct{}

// ContextTask returns the PeriodicTask whose callback is currently executing
// on ctx, or nil if ctx was not derived from a callback invocation.
func ContextTask(ctx context.Context) *PeriodicTask {
	t, _ := ctx.Value(selfKey{}).(*PeriodicTask)
	return t
}

// A PeriodicTask repeats a callback on a fixed period, driven by an
// eventloop.EventLoop and optionally serialized through a strand.Strand. The
// zero value is not usable; construct one with New.
type PeriodicTask struct {
	el  *eventloop.EventLoop
	clk clock.Clock
	log *directorylog.Logger

	// cfgMu guards the configuration fields below; they may only change
	// while the state cell reads Stopped.
	cfgMu      sync.Mutex
	name       string
	cb         Callback
	cbSet      bool
	period     time.Duration
	str        *strand.Strand
	compensate bool

	cell  *taskstate.Cell
	stats *statAgg

	// task is the pending scheduled future. It is written only by the
	// goroutine that owns the Rescheduling state, and read only after a
	// successful CAS out of Scheduled/Triggering/TriggerReady into a state
	// that owns it exclusively.
	task *future.Future[struct{}]

	doneMu sync.Mutex
	done   chan struct{} // closed when the cell reaches Stopped
}

// New returns an unconfigured, Stopped PeriodicTask. Call the Set* methods
// to configure it, then Start.
func New(el *eventloop.EventLoop, clk clock.Clock, log *directorylog.Logger) *PeriodicTask {
	p := &PeriodicTask{
		el:   el,
		clk:  clk,
		log:  log,
		cell: taskstate.New(Stopped),
		done: closedChan(),
	}
	p.stats = newStatAgg("(unnamed)", clk, log)
	return p
}

func closedChan() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}

func (p *PeriodicTask) spinCfg() taskstate.SpinConfig {
	return taskstate.DefaultSpinConfig(func(attempt int) {
		p.log.Warnf("periodic task %q: state cell contended, backing off (attempt %d)", p.name, attempt)
	})
}

func (p *PeriodicTask) isStoppedTerminal(s int32) bool { return s == Stopped }

// SetName sets the task's name, used in log lines. Legal only while Stopped.
func (p *PeriodicTask) SetName(name string) error {
	p.cfgMu.Lock()
	defer p.cfgMu.Unlock()
	if p.cell.Load() != Stopped {
		return ErrNotStopped
	}
	p.name = name
	p.stats.name = name
	return nil
}

// SetCallback sets the callback to repeat. Legal only while Stopped, and
// only once: a second call returns ErrCallbackAlreadySet.
func (p *PeriodicTask) SetCallback(cb Callback) error {
	p.cfgMu.Lock()
	defer p.cfgMu.Unlock()
	if p.cell.Load() != Stopped {
		return ErrNotStopped
	}
	if p.cbSet {
		return ErrCallbackAlreadySet
	}
	p.cb = cb
	p.cbSet = true
	return nil
}

// SetPeriod sets the repeat period. Legal only while Stopped.
func (p *PeriodicTask) SetPeriod(period time.Duration) error {
	p.cfgMu.Lock()
	defer p.cfgMu.Unlock()
	if p.cell.Load() != Stopped {
		return ErrNotStopped
	}
	if err := clock.CheckPeriod(period); err != nil {
		return err
	}
	p.period = period
	return nil
}

// SetStrand routes every callback invocation through str instead of running
// directly on the event loop. Legal only while Stopped. Pass nil to clear.
func (p *PeriodicTask) SetStrand(str *strand.Strand) error {
	p.cfgMu.Lock()
	defer p.cfgMu.Unlock()
	if p.cell.Load() != Stopped {
		return ErrNotStopped
	}
	p.str = str
	return nil
}

// SetCompensateCallbackTime, if enabled, subtracts the previous run's wall
// time from the next delay so the period is measured end-to-end rather than
// gap-to-gap. Legal only while Stopped.
func (p *PeriodicTask) SetCompensateCallbackTime(v bool) error {
	p.cfgMu.Lock()
	defer p.cfgMu.Unlock()
	if p.cell.Load() != Stopped {
		return ErrNotStopped
	}
	p.compensate = v
	return nil
}

// IsRunning reports whether the task is anywhere other than Stopped.
func (p *PeriodicTask) IsRunning() bool { return p.cell.Load() != Stopped }

// State returns the task's current state, for diagnostics and tests.
func (p *PeriodicTask) State() int32 { return p.cell.Load() }

func (p *PeriodicTask) isSelf(ctx context.Context) bool { return ContextTask(ctx) == p }

func (p *PeriodicTask) doneChan() chan struct{} {
	p.doneMu.Lock()
	defer p.doneMu.Unlock()
	return p.done
}

func (p *PeriodicTask) resetDoneChan() {
	p.doneMu.Lock()
	p.done = make(chan struct{})
	p.doneMu.Unlock()
}

func (p *PeriodicTask) signalStopped() {
	p.doneMu.Lock()
	select {
	case <-p.done:
		// already closed (shouldn't happen, but idempotent just in case)
	default:
		close(p.done)
	}
	p.doneMu.Unlock()
}

// Start transitions a Stopped task through Starting → Rescheduling and
// schedules the first run at delay 0 (immediate) or the configured period.
// If the task is not Stopped, Start is a no-op. If called from inside the
// task's own callback, Start returns immediately without reentering.
func (p *PeriodicTask) Start(ctx context.Context, immediate bool) error {
	if p.isSelf(ctx) {
		return nil
	}
	p.cfgMu.Lock()
	configured := p.cbSet && p.period > 0
	p.cfgMu.Unlock()
	if !configured {
		return ErrNotConfigured
	}

	if !p.cell.CAS(Stopped, Starting) {
		return nil // already running: no-op
	}
	p.resetDoneChan()
	p.cell.CAS(Starting, Rescheduling) // sole owner; always succeeds

	delay := p.period
	if immediate {
		delay = 0
	}
	p.scheduleNext(delay)
	return nil
}

// scheduleNext must be called while the cell holds Rescheduling (the caller
// just CAS'd into it). It assigns the new pending future before publishing
// the Scheduled state, per the Rescheduling invariant.
func (p *PeriodicTask) scheduleNext(delay time.Duration) {
	fn := func() (struct{}, error) {
		if p.str != nil {
			p.str.Go(p.onFire)
		} else {
			p.onFire()
		}
		return struct{}{}, nil
	}
	f := eventloop.Async(p.el, fn, delay)
	p.task = f
	p.cell.CAS(Rescheduling, Scheduled)
}

// onFire runs on an event loop worker (or strand) goroutine once a scheduled
// entry's deadline elapses. It owns the Scheduled/Triggering/TriggerReady →
// Running transition, invokes the callback, and either reschedules or
// completes the stop protocol.
func (p *PeriodicTask) onFire() {
	res := taskstate.Spin(p.cell, []int32{Scheduled, Triggering, TriggerReady}, Running, p.isStoppedTerminal, p.spinCfg())
	if res == taskstate.AlreadyTerminal {
		return
	}

	ctx := context.WithValue(context.Background(), selfKey{}, p)

	startWall := p.clk.Now()
	startUser, startSys := cpuTimes()

	var caught interface{}
	func() {
		defer func() { caught = recover() }()
		p.cb(ctx)
	}()

	wall := p.clk.Now().Sub(startWall)
	user, sys := cpuTimes()
	p.stats.record(wall, user-startUser, sys-startSys)

	if caught != nil {
		p.log.Infof("periodic task %q: callback fault: %v", p.name, caught)
		taskstate.Spin(p.cell, []int32{Running}, Stopped, nil, p.spinCfg())
		p.signalStopped()
		return
	}

	if p.cell.CAS(Running, Rescheduling) {
		delay := p.period
		if p.compensate {
			delay -= wall
			if delay < 0 {
				delay = 0
			}
		}
		p.scheduleNext(delay)
		return
	}

	// Running → Rescheduling lost the race: stop() must have already moved
	// Running → Stopping while the callback was executing.
	if !p.cell.CAS(Stopping, Stopped) {
		p.log.Errorf("periodic task %q: expected Stopping after callback completion, observed %s",
			p.name, StateName(p.cell.Load()))
	}
	p.signalStopped()
}

// asyncStopLocked performs the stop-inducing CAS transitions and cancels any
// pending future, without waiting for Stopped to be observed.
func (p *PeriodicTask) asyncStopLocked() {
	if p.cell.CAS(Scheduled, Stopping) {
		if t := p.task; t != nil {
			t.Cancel()
		}
		p.cell.CAS(Stopping, Stopped)
		p.signalStopped()
		return
	}
	if p.cell.CAS(Running, Stopping) {
		// The running callback will observe Stopping on completion (see
		// onFire) and finish the transition to Stopped itself.
		return
	}
	// Any other state (Starting, Rescheduling, Triggering, TriggerReady,
	// already Stopped/Stopping) has no stop-inducing transition defined;
	// leave the in-flight transition alone rather than abort it.
}

// AsyncStop requests that the task stop, without waiting for it to do so.
func (p *PeriodicTask) AsyncStop(ctx context.Context) error {
	if p.isSelf(ctx) {
		return nil
	}
	p.asyncStopLocked()
	return nil
}

// Stop requests that the task stop and blocks until it reaches Stopped.
// Calling Stop from inside the task's own callback returns immediately
// without waiting, to avoid deadlock. After Stop returns, the task is
// restartable.
func (p *PeriodicTask) Stop(ctx context.Context) error {
	if p.isSelf(ctx) {
		return nil
	}
	done := p.doneChan()
	p.asyncStopLocked()
	<-done
	return nil
}

// Trigger requests that the next scheduled invocation fire immediately. If
// the task is Scheduled, it moves to Triggering, cancels the pending future,
// and moves to TriggerReady; if cancellation won the race against the event
// loop dispatching the entry, a new run is scheduled at delay 0. If the
// pending future had already started dispatching, onFire's own CAS ladder
// (which accepts Triggering and TriggerReady as sources) picks it up as a
// normal run. In any other state, Trigger is a no-op.
func (p *PeriodicTask) Trigger(ctx context.Context) error {
	if !p.cell.CAS(Scheduled, Triggering) {
		return nil
	}
	pending := p.task
	p.cell.CAS(Triggering, TriggerReady)

	if pending != nil && pending.Cancel() {
		p.cell.CAS(TriggerReady, Rescheduling)
		p.scheduleNext(0)
	}
	return nil
}
