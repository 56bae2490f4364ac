package mailer

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue()
	q.Enqueue(Message{Subject: "one"})
	q.Enqueue(Message{Subject: "two"})
	q.Enqueue(Message{Subject: "three"})

	ctx := context.Background()
	for _, want := range []string{"one", "two", "three"} {
		m, err := q.Dequeue(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, m.Subject)
	}
	assert.Equal(t, 0, q.Len())
}

func TestQueue_EnqueueNeverBlocksOnBacklog(t *testing.T) {
	q := NewQueue()

	// No consumer at all; a large burst of enqueues must still finish fast.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10_000; i++ {
			q.Enqueue(Message{Subject: fmt.Sprintf("m-%d", i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("enqueue blocked on consumer backlog")
	}
	assert.Equal(t, 10_000, q.Len())
}

func TestQueue_DequeueBlocksUntilEnqueue(t *testing.T) {
	q := NewQueue()
	ctx := context.Background()

	got := make(chan Message, 1)
	go func() {
		m, err := q.Dequeue(ctx)
		if err == nil {
			got <- m
		}
	}()

	// Give the consumer time to park, then wake it.
	time.Sleep(50 * time.Millisecond)
	q.Enqueue(Message{Subject: "late"})

	select {
	case m := <-got:
		assert.Equal(t, "late", m.Subject)
	case <-time.After(5 * time.Second):
		t.Fatal("dequeue never woke up")
	}
}

func TestQueue_DequeueHonoursCancellation(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() {
		_, err := q.Dequeue(ctx)
		errc <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("dequeue did not observe cancellation")
	}
}

func TestQueue_ManyProducersSingleConsumer(t *testing.T) {
	q := NewQueue()
	const producers = 8
	const perProducer = 250

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Enqueue(Message{Subject: fmt.Sprintf("p%d-%d", p, i)})
			}
		}(p)
	}
	wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	seen := make(map[string]bool)
	for i := 0; i < producers*perProducer; i++ {
		m, err := q.Dequeue(ctx)
		require.NoError(t, err)
		require.False(t, seen[m.Subject], "duplicate delivery of %s", m.Subject)
		seen[m.Subject] = true
	}
	assert.Equal(t, 0, q.Len())
}
