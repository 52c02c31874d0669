package directory

import "go.uber.org/atomic"

// Lameduck mode reports the directory unhealthy without shutting it down.
// It is an atomic flag rather than a bare bool since the directory's
// Health RPC may be polled concurrently with normal traffic.
type lameduck struct {
	v atomic.Bool
}

func (l *lameduck) set(v bool)  { l.v.Store(v) }
func (l *lameduck) get() bool   { return l.v.Load() }

// SetLameduck flips the directory into or out of lameduck mode: Health
// continues to answer Ping but reports unhealthy, letting an orchestrator
// drain traffic before a planned shutdown.
func (d *Directory) SetLameduck(v bool) { d.lameduckState.set(v) }

// Health reports whether the directory considers itself healthy: it has
// finished self-hosting bootstrap and is not in lameduck mode. This is the
// directory's own liveness, not that of any registered endpoint — the
// directory never checks liveness of entries in its registries.
func (d *Directory) Health() bool {
	return d.initialized && !d.lameduckState.get()
}

// Ping always succeeds if the directory process is reachable at all; unlike
// Health it ignores lameduck mode.
func (d *Directory) Ping() bool { return true }
