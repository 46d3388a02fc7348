package session

import "testing"

func TestReplayWindow(t *testing.T) {
	var w replayWindow
	steps := []struct {
		counter uint64
		want    bool
	}{
		{1, true},
		{1, false},
		{3, true},
		{2, true},
		{2, false},
		{5000, true},
		{5000 - ReplayWindow, true},
		{5000 - ReplayWindow - 1, false},
		{100, false},
		{4999, true},
		{5000, false},
		{1 << 40, true},
		{5001, false},
	}
	for i, s := range steps {
		if got := w.check(s.counter); got != s.want {
			t.Fatalf("step %d: check(%d) = %v, want %v", i, s.counter, got, s.want)
		}
	}
}

func TestInboxCompaction(t *testing.T) {
	q := NewInbox(0)
	for i := 0; i < 1000; i++ {
		q.Push("x")
		if i%3 == 0 {
			q.Pop()
		}
	}
	n := q.Len()
	for i := 0; i < n; i++ {
		if _, ok := q.Pop(); !ok {
			t.Fatalf("Pop %d failed with %d queued", i, q.Len())
		}
	}
	if q.Len() != 0 {
		t.Fatalf("inbox not drained")
	}
}

func TestReplayWindowForget(t *testing.T) {
	var w replayWindow
	w.check(10)
	w.check(12)
	w.forget(10)
	if !w.check(10) {
		t.Fatalf("forgotten counter rejected")
	}
	if w.check(12) {
		t.Fatalf("forget cleared a neighbour")
	}

	w.check(5000)
	w.forget(12)
	if w.check(12) {
		t.Fatalf("counter behind the window accepted after forget")
	}
	w.forget(6000)
	if !w.check(6000) {
		t.Fatalf("forget ahead of the window had an effect")
	}
}
