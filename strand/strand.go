// Package strand implements a serial executor layered on an
// eventloop.EventLoop: at most one callback submitted to a given Strand
// runs at a time, and callbacks submitted to the same Strand run in
// submission order. Callbacks submitted to different Strands may still run
// concurrently with each other, since each Strand only serializes its own
// submissions.
package strand

import (
	"sync"

	"github.com/arashi-labs/meshrpc/eventloop"
)

// A Strand serializes execution of callbacks submitted through Go, using
// the given EventLoop as its underlying thread pool.
type Strand struct {
	el *eventloop.EventLoop

	mu      sync.Mutex
	queue   []func()
	running bool
}

// New returns a Strand backed by el.
func New(el *eventloop.EventLoop) *Strand {
	return &Strand{el: el}
}

// Go submits fn to run on the strand. It returns immediately; fn runs
// later, serialized with respect to every other callback submitted to this
// Strand.
func (s *Strand) Go(fn func()) {
	s.mu.Lock()
	s.queue = append(s.queue, fn)
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.el.Go(s.drain)
}

// drain runs queued callbacks one at a time until the queue empties, then
// releases the "running" flag. If another Go call races in after the queue
// appears empty but before the flag is released, it will see running==true
// and simply append, relying on drain's final re-check under the lock.
func (s *Strand) drain() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.running = false
			s.mu.Unlock()
			return
		}
		fn := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		fn()
	}
}
