package registry

import (
	"sort"
	"sync"
	"testing"
)

func TestSetGetRemove(t *testing.T) {
	r := New[string, int]()
	r.Set("a", 1)
	if v, ok := r.Get("a"); !ok || v != 1 {
		t.Fatalf("Get(a) = (%d, %v), want (1, true)", v, ok)
	}
	if !r.Remove("a") {
		t.Fatal("Remove(a) = false, want true")
	}
	if _, ok := r.Get("a"); ok {
		t.Fatal("entry still present after Remove")
	}
	if r.Remove("a") {
		t.Fatal("Remove on absent key = true, want false")
	}
}

func TestSetIfAbsentFirstWins(t *testing.T) {
	r := New[string, int]()
	if !r.SetIfAbsent("a", 1) {
		t.Fatal("first SetIfAbsent should succeed")
	}
	if r.SetIfAbsent("a", 2) {
		t.Fatal("second SetIfAbsent should fail, leaving original value")
	}
	v, _ := r.Get("a")
	if v != 1 {
		t.Fatalf("value = %d, want 1 (first writer wins)", v)
	}
}

func TestSnapshotKeysAndEntries(t *testing.T) {
	r := New[string, int]()
	r.Set("a", 1)
	r.Set("b", 2)

	keys := r.SnapshotKeys()
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("keys = %v, want [a b]", keys)
	}

	entries := r.SnapshotEntries()
	sum := 0
	for _, e := range entries {
		sum += e.Value
	}
	if sum != 3 {
		t.Fatalf("entries sum = %d, want 3", sum)
	}
}

func TestFilterRemoveCallsPredicateOutsideLock(t *testing.T) {
	r := New[string, int]()
	for i := 0; i < 5; i++ {
		r.Set(string(rune('a'+i)), i)
	}

	removed := r.FilterRemove(func(k string, v int) bool {
		// Reentrant call into the same registry; would deadlock if
		// FilterRemove held the lock while invoking predicate.
		r.Contains(k)
		return v%2 == 0
	})
	if removed != 3 {
		t.Fatalf("removed = %d, want 3", removed)
	}
	if r.Len() != 2 {
		t.Fatalf("remaining = %d, want 2", r.Len())
	}
}

func TestConcurrentAccess(t *testing.T) {
	r := New[int, int]()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Set(i, i*i)
			r.Get(i)
			r.Contains(i)
		}()
	}
	wg.Wait()
	if r.Len() != 100 {
		t.Fatalf("Len() = %d, want 100", r.Len())
	}
}
