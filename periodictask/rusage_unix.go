//go:build unix

package periodictask

import (
	"syscall"
	"time"
)

// cpuTimes returns the process's cumulative user and system CPU time, used
// to compute the per-run delta recorded by statAgg. Unix-only, consistent
// with the rest of this module's reliance on zmq4's unix-oriented transport;
// non-unix builds report zero (see rusage_other.go).
func cpuTimes() (user, sys time.Duration) {
	var ru syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &ru); err != nil {
		return 0, 0
	}
	return time.Duration(ru.Utime.Nano()), time.Duration(ru.Stime.Nano())
}
