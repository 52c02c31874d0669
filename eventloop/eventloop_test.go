package eventloop

import (
	"errors"
	"testing"
	"time"

	"github.com/arashi-labs/meshrpc/future"
)

func TestAsyncImmediate(t *testing.T) {
	el := New(WithWorkers(2))
	defer el.Shutdown()

	f := Async(el, func() (int, error) { return 41, nil }, 0)
	v, err := f.Wait()
	if err != nil || v != 41 {
		t.Fatalf("Wait() = (%d, %v), want (41, nil)", v, err)
	}
}

func TestAsyncError(t *testing.T) {
	el := New(WithWorkers(1))
	defer el.Shutdown()

	wantErr := errors.New("boom")
	f := Async(el, func() (int, error) { return 0, wantErr }, 0)
	_, err := f.Wait()
	if err != wantErr {
		t.Fatalf("Wait() err = %v, want %v", err, wantErr)
	}
}

func TestAsyncDelayOrdering(t *testing.T) {
	el := New(WithWorkers(4))
	defer el.Shutdown()

	var mu chanSlice
	mu.init()

	Async(el, func() (int, error) { mu.append(1); return 1, nil }, 30*time.Millisecond)
	Async(el, func() (int, error) { mu.append(0); return 0, nil }, 0)

	time.Sleep(80 * time.Millisecond)

	got := mu.snapshot()
	if len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Fatalf("dispatch order = %v, want [0 1]", got)
	}
}

func TestCancelPendingRemovesFromQueue(t *testing.T) {
	el := New(WithWorkers(1))
	defer el.Shutdown()

	ran := make(chan struct{}, 1)
	f := Async(el, func() (int, error) {
		ran <- struct{}{}
		return 1, nil
	}, 100*time.Millisecond)

	if !f.Cancel() {
		t.Fatal("Cancel on a not-yet-started entry should succeed")
	}

	select {
	case <-ran:
		t.Fatal("cancelled task still ran")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestShutdownWaitsForInFlight(t *testing.T) {
	el := New(WithWorkers(1))

	started := make(chan struct{})
	finished := make(chan struct{})
	Async(el, func() (int, error) {
		close(started)
		time.Sleep(50 * time.Millisecond)
		close(finished)
		return 0, nil
	}, 0)

	<-started
	el.Shutdown()

	select {
	case <-finished:
	default:
		t.Fatal("Shutdown returned before the in-flight task finished")
	}
}

func TestShutdownCancelsPendingFutures(t *testing.T) {
	el := New(WithWorkers(1))

	ran := make(chan struct{}, 1)
	f := Async(el, func() (int, error) {
		ran <- struct{}{}
		return 1, nil
	}, time.Hour)

	el.Shutdown()

	v, err := f.Wait()
	if f.Status() != future.Cancelled {
		t.Fatalf("Status() = %v, want Cancelled (v=%d, err=%v)", f.Status(), v, err)
	}

	select {
	case <-ran:
		t.Fatal("shutdown-cancelled task still ran")
	default:
	}
}

// chanSlice is a tiny concurrency-safe append-only slice helper for tests.
type chanSlice struct {
	c chan int
	n int
}

func (s *chanSlice) init() { s.c = make(chan int, 16) }

func (s *chanSlice) append(v int) { s.c <- v }

func (s *chanSlice) snapshot() []int {
	var out []int
	for {
		select {
		case v := <-s.c:
			out = append(out, v)
		default:
			return out
		}
	}
}
