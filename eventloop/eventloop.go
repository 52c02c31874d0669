// Package eventloop implements a thread-pool-backed executor with delayed
// dispatch: Async(el, fn, delay) returns a future.Future bound to fn's
// eventual result. It is the event loop described as C2 in the design: a
// pool of worker goroutines drains a priority queue keyed on dispatch
// deadline.
package eventloop

import (
	"container/heap"
	"runtime"
	"sync"
	"time"

	"github.com/creachadair/taskgroup"

	"github.com/arashi-labs/meshrpc/clock"
	"github.com/arashi-labs/meshrpc/future"
)

// An EventLoop runs queued callbacks no earlier than their scheduled
// deadline, using a bounded pool of worker goroutines. The zero value is
// not usable; construct one with New.
type EventLoop struct {
	workers int
	sem     chan struct{} // bounds concurrently-running callbacks to `workers`
	tasks   *taskgroup.Group
	clk     clock.Clock

	mu      sync.Mutex
	q       taskHeap
	byID    map[uint64]*taskEntry
	nextID  uint64
	wake    chan struct{}
	closed  bool
	closeWG sync.WaitGroup
}

// An Option configures an EventLoop constructed by New.
type Option func(*EventLoop)

// WithWorkers overrides the default worker count (runtime.GOMAXPROCS(0)).
func WithWorkers(n int) Option {
	return func(el *EventLoop) {
		if n > 0 {
			el.workers = n
		}
	}
}

// WithClock overrides the time source used to compute and check task
// deadlines (default clock.Real{}). Tests inject a clock.Virtual so a
// periodictask driven by this EventLoop can be fast-forwarded
// deterministically: after Advance, call Poke to make the dispatch loop
// re-evaluate the queue against the new virtual time.
func WithClock(c clock.Clock) Option {
	return func(el *EventLoop) {
		el.clk = c
	}
}

// New constructs and starts an EventLoop.
func New(opts ...Option) *EventLoop {
	el := &EventLoop{
		workers: runtime.GOMAXPROCS(0),
		clk:     clock.Real{},
		byID:    make(map[uint64]*taskEntry),
		wake:    make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(el)
	}
	el.sem = make(chan struct{}, el.workers)
	el.tasks = taskgroup.New(nil)

	el.closeWG.Add(1)
	go el.dispatchLoop()
	return el
}

type taskEntry struct {
	id           uint64
	deadline     time.Time
	seq          uint64
	run          func()
	cancelFuture func() bool // settles the bound future to Cancelled
	index        int         // heap index, maintained by taskHeap
}

type taskHeap []*taskEntry

func (h taskHeap) Len() int { return len(h) }
func (h taskHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].seq < h[j].seq
	}
	return h[i].deadline.Before(h[j].deadline)
}
func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *taskHeap) Push(x any) {
	e := x.(*taskEntry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Async schedules fn to run no earlier than delay from now, and returns a
// Future bound to fn's result. A zero delay means "dispatch as soon as a
// worker is free." Cancelling the returned Future before fn has started
// removes it from the queue; cancelling after it has started has no effect
// on the running call.
func Async[T any](el *EventLoop, fn func() (T, error), delay time.Duration) *future.Future[T] {
	el.mu.Lock()
	if el.closed {
		el.mu.Unlock()
		return future.Failed[T](errClosed)
	}

	el.nextID++
	id := el.nextID
	el.mu.Unlock()

	f := future.New[T](func() { el.cancel(id) })

	entry := &taskEntry{
		id:           id,
		deadline:     el.clk.Now().Add(delay),
		seq:          id,
		cancelFuture: f.Cancel,
		run: func() {
			v, err := fn()
			if err != nil {
				f.Reject(err)
			} else {
				f.Resolve(v)
			}
		},
	}

	el.mu.Lock()
	if el.closed {
		el.mu.Unlock()
		f.Reject(errClosed)
		return f
	}
	heap.Push(&el.q, entry)
	el.byID[id] = entry
	el.mu.Unlock()
	el.pokeDispatcher()

	return f
}

// cancel removes id's entry from the queue and settles its bound future to
// Cancelled. It is reached two ways: a caller invoking Future.Cancel (which
// settles the future first, then calls back here through the onCancel hook
// to drop the bookkeeping, so cancelFuture's settle is a harmless no-op),
// and Shutdown's drain path (which reaches cancel first and needs
// cancelFuture to actually settle the future).
func (el *EventLoop) cancel(id uint64) {
	el.mu.Lock()
	e, ok := el.byID[id]
	if !ok {
		el.mu.Unlock()
		return
	}
	delete(el.byID, id)
	heap.Remove(&el.q, e.index)
	el.mu.Unlock()
	e.cancelFuture()
}

func (el *EventLoop) pokeDispatcher() {
	select {
	case el.wake <- struct{}{}:
	default:
	}
}

// Poke wakes the dispatch loop so it re-evaluates the queue against the
// current clock reading immediately, instead of waiting for its next timer
// tick. Real-clock callers never need this; it exists for tests driving an
// EventLoop with WithClock(virtualClock): after Advance, call Poke to
// dispatch any entries whose deadline the advance just crossed.
func (el *EventLoop) Poke() { el.pokeDispatcher() }

// dispatchLoop is the single goroutine responsible for moving ready entries
// from the priority queue into the worker pool. It never runs user code
// itself.
func (el *EventLoop) dispatchLoop() {
	defer el.closeWG.Done()

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		el.mu.Lock()
		if el.closed && el.q.Len() == 0 {
			el.mu.Unlock()
			return
		}
		var wait time.Duration = -1
		if el.q.Len() > 0 {
			wait = el.q[0].deadline.Sub(el.clk.Now())
		}
		el.mu.Unlock()

		if wait < 0 && el.q.Len() == 0 {
			// Nothing queued; block until poked or closed.
			<-el.wake
			continue
		}
		if wait <= 0 {
			el.runReady()
			continue
		}

		timer.Reset(wait)
		select {
		case <-timer.C:
			el.runReady()
		case <-el.wake:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}
	}
}

// runReady pops every entry whose deadline has elapsed and hands it to a
// worker, blocking on the semaphore when all workers are busy.
func (el *EventLoop) runReady() {
	for {
		el.mu.Lock()
		if el.q.Len() == 0 || el.q[0].deadline.After(el.clk.Now()) {
			el.mu.Unlock()
			return
		}
		e := heap.Pop(&el.q).(*taskEntry)
		delete(el.byID, e.id)
		el.mu.Unlock()

		el.sem <- struct{}{}
		run := e.run
		el.tasks.Go(func() error {
			defer func() { <-el.sem }()
			run()
			return nil
		})
	}
}

// Shutdown drains the queue, cancelling every pending entry, then waits for
// in-flight callbacks to finish. After Shutdown returns, Async always
// fails with a closed-loop error.
func (el *EventLoop) Shutdown() {
	el.mu.Lock()
	if el.closed {
		el.mu.Unlock()
		return
	}
	el.closed = true
	pending := make([]uint64, 0, len(el.byID))
	for id := range el.byID {
		pending = append(pending, id)
	}
	el.mu.Unlock()

	for _, id := range pending {
		el.cancel(id)
	}
	el.pokeDispatcher()
	el.closeWG.Wait()
	el.tasks.Wait()
}

// Go implements future.Dispatcher, letting an EventLoop be used directly as
// the Async dispatcher target for future.Future.Connect.
func (el *EventLoop) Go(fn func()) {
	el.sem <- struct{}{}
	el.tasks.Go(func() error {
		defer func() { <-el.sem }()
		fn()
		return nil
	})
}

var errClosed = closedError{}

type closedError struct{}

func (closedError) Error() string { return "meshrpc/eventloop: event loop is shut down" }
