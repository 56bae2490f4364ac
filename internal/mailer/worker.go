package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Worker is the single background consumer of the queue. Start it once from
// the composition root; it loops between waiting on the queue and sending
// one message at a time until its context is cancelled.
//
// Delivery failures are logged and the message is dropped — there is no
// retry or dead-letter path. A transport outage therefore loses messages;
// callers that cannot tolerate that need a durable queue in front.
type Worker struct {
	queue       *Queue
	transport   Transport
	sendTimeout time.Duration
}

func NewWorker(queue *Queue, transport Transport, sendTimeout time.Duration) *Worker {
	if sendTimeout <= 0 {
		sendTimeout = 30 * time.Second
	}
	return &Worker{queue: queue, transport: transport, sendTimeout: sendTimeout}
}

// Run consumes the queue until ctx is cancelled, then returns nil. Any
// in-flight delivery is bounded by the per-send timeout, so shutdown never
// hangs indefinitely.
func (w *Worker) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "mail worker started")
	for {
		m, err := w.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				slog.InfoContext(ctx, "mail worker stopping", "queued", w.queue.Len())
				return nil
			}
			return fmt.Errorf("mailer: dequeue: %w", err)
		}

		w.send(ctx, m)
	}
}

func (w *Worker) send(ctx context.Context, m Message) {
	// The send context is detached from cancellation but keeps the deadline:
	// a shutdown signal should not abort a delivery that is already on the
	// wire, only bound how long it may take.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.sendTimeout)
	defer cancel()

	if err := w.transport.Send(sendCtx, m); err != nil {
		slog.ErrorContext(ctx, "email delivery failed, message dropped",
			"to", m.To,
			"subject", m.Subject,
			"error", err,
		)
		return
	}
	slog.InfoContext(ctx, "email sent", "to", m.To, "subject", m.Subject)
}
