package queue

import "testing"

func TestPush(t *testing.T) {
	q := New[int](3)
	a, b, c := q.Push(3), q.Push(4), q.Push(5)
	if !(a && b && c) {
		t.Fatal("could not push three elements")
	}
}

func TestPushLimit(t *testing.T) {
	q := New[int](2)
	a, b, c := q.Push(3), q.Push(4), q.Push(5)
	if !(a && b) || c {
		t.Fatal("could push past capacity:", a, b, c)
	}
}

func TestPopEmpty(t *testing.T) {
	q := New[int](10)
	if _, ok := q.Pop(); ok {
		t.Fatal("popped from empty queue")
	}
}

func TestPopOrder(t *testing.T) {
	q := New[int](10)
	q.Push(1)
	q.Push(2)
	q.Push(3)

	a, _ := q.Pop()
	b, _ := q.Pop()
	c, _ := q.Pop()
	if a != 1 || b != 2 || c != 3 {
		t.Fatal("bad contents:", a, b, c)
	}
	if _, ok := q.Pop(); ok {
		t.Fatal("yields element past end")
	}
}

func TestLenAfterWraparound(t *testing.T) {
	q := New[int](3)
	q.Push(2)
	q.Push(3)
	q.Push(4)
	q.Pop()
	q.Pop()
	q.Push(5)
	if q.Len() != 2 {
		t.Fatal("wrong length", q.Len())
	}
	q.Pop()
	v, _ := q.Pop()
	if v != 5 {
		t.Fatal("unexpected value", v)
	}
}

func TestPeekDoesNotRemove(t *testing.T) {
	q := New[int](10)
	q.Push(2)
	v, ok := q.Peek()
	if !ok || v != 2 {
		t.Fatal("wrong peeked element:", v, ok)
	}
	if q.Len() != 1 {
		t.Fatal("peek should not remove the element")
	}
}
