// Package reporting turns order confirmations into rows in a dimensional
// mart: one fact row per confirmed order item, surrounded by date, customer
// and product dimensions keyed by their natural source-system ids.
//
// Ingestion is idempotent. Events may be delivered more than once (the bus
// makes no delivery-count promise and a future broker may be at-least-once);
// the store's uniqueness constraint on (order id, order item id) turns a
// re-delivery into a silent no-op instead of duplicate facts.
package reporting

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/mjurado/orderpipe/internal/events"
	"github.com/mjurado/orderpipe/internal/order/domain"
)

// Mart is the port to the dimensional store. Ingest must treat one event as
// one atomic unit: either every dimension and fact row for the event is
// committed, or none are, so a partial failure stays cleanly retryable.
type Mart interface {
	Ingest(ctx context.Context, ev domain.OrderConfirmed) error
}

// DateKey encodes a calendar date as the mart's integer date-dimension key,
// e.g. 2025-06-15 → 20250615. Deterministic, so the same order date always
// maps to the same dimension row.
func DateKey(t time.Time) int {
	y, m, d := t.UTC().Date()
	return y*10000 + int(m)*100 + d
}

// Ingestor subscribes to order confirmations and forwards them to the mart.
type Ingestor struct {
	mart   Mart
	tracer trace.Tracer
}

func NewIngestor(mart Mart) *Ingestor {
	return &Ingestor{mart: mart, tracer: otel.Tracer("orderpipe/reporting")}
}

// Register subscribes the ingestor on the bus.
func (i *Ingestor) Register(bus *events.Bus) {
	bus.Subscribe(domain.OrderConfirmedName, "reporting.Ingestor", i.handleOrderConfirmed)
}

func (i *Ingestor) handleOrderConfirmed(ctx context.Context, e events.Event) error {
	ev, ok := e.(domain.OrderConfirmed)
	if !ok {
		return fmt.Errorf("reporting: unexpected event type %T", e)
	}

	ctx, span := i.tracer.Start(ctx, "IngestOrderConfirmed")
	defer span.End()

	if err := i.mart.Ingest(ctx, ev); err != nil {
		return fmt.Errorf("reporting: ingest order %d: %w", ev.OrderID, err)
	}
	return nil
}
