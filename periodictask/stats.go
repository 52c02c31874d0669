package periodictask

import (
	"sync"
	"time"

	"github.com/arashi-labs/meshrpc/clock"
	"github.com/arashi-labs/meshrpc/directorylog"
)

// flushInterval is how often the running aggregate is logged and reset.
const flushInterval = 20 * time.Second

// statAgg accumulates wall/user/sys time across callback runs and flushes an
// aggregate log line every flushInterval, keeping memory bounded regardless
// of how many callback runs occur between flushes.
type statAgg struct {
	mu    sync.Mutex
	name  string
	clk   clock.Clock
	log   *directorylog.Logger
	since time.Time

	count            int
	wall, user, sys  time.Duration
	maxWall          time.Duration
}

func newStatAgg(name string, clk clock.Clock, log *directorylog.Logger) *statAgg {
	return &statAgg{name: name, clk: clk, log: log, since: clk.Now()}
}

// record adds one callback run's timings and flushes if flushInterval has
// elapsed since the last flush.
func (s *statAgg) record(wall, user, sys time.Duration) {
	s.mu.Lock()
	s.count++
	s.wall += wall
	s.user += user
	s.sys += sys
	if wall > s.maxWall {
		s.maxWall = wall
	}
	now := s.clk.Now()
	elapsed := now.Sub(s.since)
	if elapsed < flushInterval {
		s.mu.Unlock()
		return
	}
	count, wallSum, userSum, sysSum, maxWall := s.count, s.wall, s.user, s.sys, s.maxWall
	s.count, s.wall, s.user, s.sys, s.maxWall = 0, 0, 0, 0, 0
	s.since = now
	s.mu.Unlock()

	if count == 0 {
		return
	}
	s.log.Infof("periodic task %q: %d runs in %s, wall=%s (avg %s, max %s) user=%s sys=%s",
		s.name, count, elapsed.Round(time.Millisecond), wallSum.Round(time.Millisecond),
		(wallSum / time.Duration(count)).Round(time.Millisecond), maxWall.Round(time.Millisecond),
		userSum.Round(time.Millisecond), sysSum.Round(time.Millisecond))
}
