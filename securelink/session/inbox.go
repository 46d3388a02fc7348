package session

import (
	"errors"
	"sync"
)

var ErrInboxFull = errors.New("session: inbox full")

// Inbox is a FIFO of decrypted plaintexts. Push and Pop are safe for
// concurrent use; an empty inbox is a normal state, not an error.
type Inbox struct {
	mu    sync.Mutex
	items []string
	head  int
	limit int
}

// NewInbox returns an inbox holding at most limit items, or any number
// when limit is 0.
func NewInbox(limit int) *Inbox {
	return &Inbox{limit: limit}
}

// Push appends s. It returns false when the inbox is full.
func (q *Inbox) Push(s string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.limit > 0 && len(q.items)-q.head >= q.limit {
		return false
	}
	q.items = append(q.items, s)
	return true
}

// Pop removes and returns the oldest item.
func (q *Inbox) Pop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.head == len(q.items) {
		return "", false
	}
	s := q.items[q.head]
	q.items[q.head] = ""
	q.head++

	switch {
	case q.head == len(q.items):
		q.items = q.items[:0]
		q.head = 0
	case q.head >= 64 && q.head*2 >= len(q.items):
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	return s, true
}

// Len returns the number of queued items.
func (q *Inbox) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}
