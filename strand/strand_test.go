package strand

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/arashi-labs/meshrpc/eventloop"
)

func TestStrandRunsInSubmissionOrder(t *testing.T) {
	el := eventloop.New(eventloop.WithWorkers(4))
	defer el.Shutdown()

	s := New(el)

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	wg.Add(5)

	for i := 0; i < 5; i++ {
		i := i
		s.Go(func() {
			time.Sleep(2 * time.Millisecond)
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
		})
	}

	wg.Wait()
	for i, v := range order {
		if v != i {
			t.Fatalf("order = %v, want [0 1 2 3 4]", order)
		}
	}
}

func TestStrandNeverOverlaps(t *testing.T) {
	el := eventloop.New(eventloop.WithWorkers(8))
	defer el.Shutdown()

	s := New(el)

	var inFlight int32
	var maxSeen int32
	var wg sync.WaitGroup
	wg.Add(20)

	for i := 0; i < 20; i++ {
		s.Go(func() {
			n := atomic.AddInt32(&inFlight, 1)
			for {
				m := atomic.LoadInt32(&maxSeen)
				if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			wg.Done()
		})
	}

	wg.Wait()
	if maxSeen != 1 {
		t.Fatalf("max concurrent strand callbacks = %d, want 1", maxSeen)
	}
}
