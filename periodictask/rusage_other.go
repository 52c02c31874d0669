//go:build !unix

package periodictask

import "time"

// cpuTimes is unavailable on non-unix builds; user/sys are reported as zero
// and only wall time is meaningful there.
func cpuTimes() (user, sys time.Duration) { return 0, 0 }
