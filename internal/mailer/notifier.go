package mailer

import (
	"context"
	"fmt"
	"strings"

	"github.com/mjurado/orderpipe/internal/events"
	"github.com/mjurado/orderpipe/internal/order/domain"
)

// Notifier subscribes to order confirmations and enqueues the confirmation
// email. It only enqueues — actual delivery is the worker's job — so the
// confirming request returns without waiting on any mail I/O.
type Notifier struct {
	queue *Queue
}

func NewNotifier(queue *Queue) *Notifier {
	return &Notifier{queue: queue}
}

// Register subscribes the notifier on the bus.
func (n *Notifier) Register(bus *events.Bus) {
	bus.Subscribe(domain.OrderConfirmedName, "mailer.Notifier", n.handleOrderConfirmed)
}

func (n *Notifier) handleOrderConfirmed(_ context.Context, e events.Event) error {
	ev, ok := e.(domain.OrderConfirmed)
	if !ok {
		return fmt.Errorf("mailer: unexpected event type %T", e)
	}
	if ev.CustomerEmail == "" {
		return fmt.Errorf("mailer: order %d confirmed without customer email", ev.OrderID)
	}

	n.queue.Enqueue(Message{
		To:      ev.CustomerEmail,
		Subject: fmt.Sprintf("Order %s confirmed", ev.OrderNumber),
		Body:    renderConfirmationBody(ev),
	})
	return nil
}

func renderConfirmationBody(ev domain.OrderConfirmed) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your order %s from %s has been confirmed.\n\n",
		ev.OrderNumber, ev.OrderDate.Format("2006-01-02"))
	for _, it := range ev.Items {
		fmt.Fprintf(&b, "  %d x %s @ %.2f = %.2f\n",
			it.Quantity, it.ProductName, it.UnitPrice, it.LineTotal)
	}
	fmt.Fprintf(&b, "\nTotal: %.2f\n", ev.TotalAmount)
	return b.String()
}
