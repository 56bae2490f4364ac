package mailer

import (
	"context"
	"sync"
)

// Queue is an unbounded FIFO buffer between many producing goroutines and
// one consuming worker. Enqueue appends under a mutex and never waits on the
// consumer; Dequeue blocks until a message arrives or the context is
// cancelled.
//
// The notify channel has capacity one and carries wake-ups, not messages:
// a producer nudges it after appending, and the consumer drains the slice
// until empty before sleeping on it again. A lost nudge is harmless because
// the consumer re-checks the slice on every wake-up.
type Queue struct {
	mu     sync.Mutex
	items  []Message
	notify chan struct{}
}

func NewQueue() *Queue {
	return &Queue{notify: make(chan struct{}, 1)}
}

// Enqueue appends m to the tail of the queue. It never blocks on consumer
// backlog; once this returns, the message's fate is independent of the
// caller's lifetime.
func (q *Queue) Enqueue(m Message) {
	q.mu.Lock()
	q.items = append(q.items, m)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default: // consumer already has a pending wake-up
	}
}

// Dequeue removes and returns the head of the queue, blocking until a
// message is available or ctx is cancelled. Returns ctx.Err() on
// cancellation.
func (q *Queue) Dequeue(ctx context.Context) (Message, error) {
	for {
		if m, ok := q.pop(); ok {
			return m, nil
		}
		select {
		case <-ctx.Done():
			return Message{}, ctx.Err()
		case <-q.notify:
		}
	}
}

// Len reports the number of queued messages. Exposed for the health
// endpoint and for tests.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) pop() (Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Message{}, false
	}
	m := q.items[0]
	q.items = q.items[1:]
	return m, true
}
