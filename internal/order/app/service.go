// Package app implements the order command operations. Each operation is a
// thin sequence over the ports: resolve collaborators, run the aggregate's
// rule, save, and — for confirmation — publish the event strictly after the
// save commits.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/mjurado/orderpipe/internal/events"
	"github.com/mjurado/orderpipe/internal/order/domain"
	"github.com/mjurado/orderpipe/internal/order/ports"
	"github.com/mjurado/orderpipe/internal/pricing"
)

// NewLine is a requested order line: the client names the product and how
// many; name and unit price always come from the pricing source, never from
// the client.
type NewLine struct {
	ProductID string
	Quantity  int
}

// Service wires the aggregate to its collaborators.
type Service struct {
	repo      ports.Repository
	pricing   pricing.Lookup
	customers ports.CustomerDirectory
	bus       *events.Bus
	tracer    trace.Tracer
}

func NewService(repo ports.Repository, lookup pricing.Lookup, customers ports.CustomerDirectory, bus *events.Bus) *Service {
	return &Service{
		repo:      repo,
		pricing:   lookup,
		customers: customers,
		bus:       bus,
		tracer:    otel.Tracer("orderpipe/order"),
	}
}

// CreateOrder creates a PENDING order for the customer with the given lines.
// Every product is priced up front; any pricing failure aborts the whole
// creation — no partially-priced order is ever saved.
func (s *Service) CreateOrder(ctx context.Context, customerID string, date time.Time, lines []NewLine) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "CreateOrder")
	defer span.End()

	if _, err := s.customers.Lookup(ctx, customerID); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	o := domain.New(customerID, newOrderNumber(), date)
	for _, l := range lines {
		p, err := s.pricing.Lookup(ctx, l.ProductID)
		if err != nil {
			return nil, fmt.Errorf("create order: %w", err)
		}
		if err := o.AddItem(p.ProductID, p.Name, l.Quantity, p.UnitPrice); err != nil {
			return nil, fmt.Errorf("create order: %w", err)
		}
	}

	if err := s.repo.Save(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	slog.InfoContext(ctx, "order created", "order_id", o.ID, "number", o.Number, "customer_id", customerID)
	return o, nil
}

// AddItem prices the product and adds it to the order, merging into an
// existing line when the product is already present.
func (s *Service) AddItem(ctx context.Context, orderID int64, productID string, quantity int) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "AddItem")
	defer span.End()

	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("add item: %w", err)
	}

	// Pricing is resolved before the aggregate is touched, so a lookup
	// failure leaves the order exactly as it was.
	p, err := s.pricing.Lookup(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("add item: %w", err)
	}
	if err := o.AddItem(p.ProductID, p.Name, quantity, p.UnitPrice); err != nil {
		return nil, fmt.Errorf("add item: %w", err)
	}

	if err := s.repo.Save(ctx, o); err != nil {
		return nil, fmt.Errorf("add item: %w", err)
	}
	return o, nil
}

// RemoveItem removes the line with the given id. Removing an absent line is
// a no-op, matching the aggregate's contract.
func (s *Service) RemoveItem(ctx context.Context, orderID, lineID int64) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "RemoveItem")
	defer span.End()

	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("remove item: %w", err)
	}
	if err := o.RemoveItem(lineID); err != nil {
		return nil, fmt.Errorf("remove item: %w", err)
	}
	if err := s.repo.Save(ctx, o); err != nil {
		return nil, fmt.Errorf("remove item: %w", err)
	}
	return o, nil
}

// Confirm transitions the order to CONFIRMED and publishes the confirmation
// event. The sequence is strict: commit first, publish second — subscribers
// must never hear about a state that did not actually commit. Subscriber
// failures are logged but do not fail the command; the confirmation already
// happened and its side effects are invisible to the caller by design.
func (s *Service) Confirm(ctx context.Context, orderID int64) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "ConfirmOrder")
	defer span.End()

	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("confirm order: %w", err)
	}

	cust, err := s.customers.Lookup(ctx, o.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("confirm order: %w", err)
	}

	ev, err := o.Confirm()
	if err != nil {
		return nil, fmt.Errorf("confirm order: %w", err)
	}
	ev.CustomerEmail = cust.Email

	if err := s.repo.Save(ctx, o); err != nil {
		return nil, fmt.Errorf("confirm order: %w", err)
	}

	if err := s.bus.Publish(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "order confirmed but event delivery failed",
			"order_id", o.ID, "error", err)
	}

	slog.InfoContext(ctx, "order confirmed", "order_id", o.ID, "number", o.Number, "total", ev.TotalAmount)
	return o, nil
}

// Cancel moves the order to CANCELLED.
func (s *Service) Cancel(ctx context.Context, orderID int64) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "CancelOrder")
	defer span.End()

	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("cancel order: %w", err)
	}
	if err := o.Cancel(); err != nil {
		return nil, fmt.Errorf("cancel order: %w", err)
	}
	if err := s.repo.Save(ctx, o); err != nil {
		return nil, fmt.Errorf("cancel order: %w", err)
	}
	return o, nil
}

// Get loads one order.
func (s *Service) Get(ctx context.Context, orderID int64) (*domain.Order, error) {
	return s.repo.Get(ctx, orderID)
}

// newOrderNumber returns a short human-readable unique order number,
// e.g. "ORD-9F2C41A7".
func newOrderNumber() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "ORD-" + raw[:8]
}
