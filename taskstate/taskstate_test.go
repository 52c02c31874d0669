package taskstate

import (
	"sync"
	"testing"
)

func TestCASOnlyOneWinner(t *testing.T) {
	c := New(0)

	const n = 50
	var wg sync.WaitGroup
	wins := make(chan int, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			if c.CAS(0, 1) {
				wins <- i
			}
		}()
	}
	wg.Wait()
	close(wins)

	count := 0
	for range wins {
		count++
	}
	if count != 1 {
		t.Fatalf("got %d winners, want exactly 1", count)
	}
	if c.Load() != 1 {
		t.Fatalf("final state = %d, want 1", c.Load())
	}
}

func TestSpinTransitions(t *testing.T) {
	c := New(0)
	go func() {
		c.CAS(0, 1)
	}()

	result := Spin(c, []int32{1}, 2, nil, DefaultSpinConfig(nil))
	if result != Transitioned {
		t.Fatalf("Spin result = %v, want Transitioned", result)
	}
	if c.Load() != 2 {
		t.Fatalf("state = %d, want 2", c.Load())
	}
}

func TestSpinGivesUpOnTerminal(t *testing.T) {
	c := New(99) // a state not in `from` and judged terminal
	isTerminal := func(s int32) bool { return s == 99 }

	result := Spin(c, []int32{1}, 2, isTerminal, DefaultSpinConfig(nil))
	if result != AlreadyTerminal {
		t.Fatalf("Spin result = %v, want AlreadyTerminal", result)
	}
}
