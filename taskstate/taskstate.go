// Package taskstate provides the lock-free atomic state cell used by
// periodictask's state machine: an int32 cell offering compare-and-swap and
// a bounded spin-with-backoff helper for PeriodicTask's "persist forever"
// transition discipline.
package taskstate

import (
	"time"

	"go.uber.org/atomic"
)

// A Cell is a lock-free holder of a small integer state, backed by
// go.uber.org/atomic so transitions never take a mutex.
type Cell struct {
	v atomic.Int32
}

// New returns a Cell initialized to the given state.
func New(initial int32) *Cell {
	c := &Cell{}
	c.v.Store(initial)
	return c
}

// Load returns the current state.
func (c *Cell) Load() int32 { return c.v.Load() }

// Store unconditionally sets the state. Used only for initialization; state
// machine transitions should use CAS.
func (c *Cell) Store(v int32) { c.v.Store(v) }

// CAS atomically sets the cell to new if it currently holds old, and
// reports whether the swap happened. This is the "set-if-equals" primitive
// every PeriodicTask transition is built from.
func (c *Cell) CAS(old, new int32) bool { return c.v.CompareAndSwap(old, new) }

// SpinResult is returned by Spin to describe how a transition completed.
type SpinResult int

const (
	// Transitioned means the cell reached `to` from one of the accepted
	// `from` states via this call's own CAS.
	Transitioned SpinResult = iota
	// AlreadyTerminal means the cell was observed in a terminal state (as
	// judged by isTerminal) before a transition could be performed; the
	// spin gives up without error, per the "never abort the state machine"
	// discipline — the caller decides whether this is acceptable.
	AlreadyTerminal
)

// SpinConfig controls Spin's backoff behavior.
type SpinConfig struct {
	// BackoffAfter is the number of failed attempts after which Spin starts
	// sleeping between retries. Default 1000.
	BackoffAfter int
	// BackoffInterval is the sleep duration used once backoff engages.
	// Default 1ms.
	BackoffInterval time.Duration
	// OnBackoff, if non-nil, is invoked the first time backoff engages (and
	// on each subsequent sleep), so callers can emit a warning log exactly
	// once per sustained contention episode if they wish.
	OnBackoff func(attempt int)
}

// DefaultSpinConfig spins, then backs off 1ms after 1000 failed attempts,
// logging a warning.
func DefaultSpinConfig(onBackoff func(attempt int)) SpinConfig {
	return SpinConfig{
		BackoffAfter:    1000,
		BackoffInterval: time.Millisecond,
		OnBackoff:       onBackoff,
	}
}

// Spin repeatedly attempts to CAS the cell from one of `from` to `to`, until
// it succeeds or isTerminal(current) reports true for the currently observed
// state (in which case Spin gives up and reports AlreadyTerminal). Spin
// never returns without the cell having reached either `to` or a terminal
// state — it is never permitted to simply abandon the state machine
// mid-transition, per the "persist forever" discipline.
func Spin(c *Cell, from []int32, to int32, isTerminal func(int32) bool, cfg SpinConfig) SpinResult {
	attempt := 0
	for {
		cur := c.Load()
		for _, f := range from {
			if cur == f && c.CAS(f, to) {
				return Transitioned
			}
		}
		if isTerminal != nil && isTerminal(cur) {
			return AlreadyTerminal
		}

		attempt++
		if attempt > cfg.BackoffAfter {
			if cfg.OnBackoff != nil {
				cfg.OnBackoff(attempt)
			}
			time.Sleep(cfg.BackoffInterval)
		}
	}
}
