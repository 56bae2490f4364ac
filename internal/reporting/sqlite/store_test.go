package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mjurado/orderpipe/internal/events"
	"github.com/mjurado/orderpipe/internal/order/domain"
	"github.com/mjurado/orderpipe/internal/reporting"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "mart.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func confirmationEvent() domain.OrderConfirmed {
	return domain.OrderConfirmed{
		OrderID:       1,
		CustomerID:    "cust-42",
		CustomerEmail: "cust42@example.com",
		OrderNumber:   "ORD-AB12",
		OrderDate:     time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
		TotalAmount:   89.96,
		Items: []domain.ConfirmedItem{
			{LineID: 1, ProductID: "prod-10", ProductName: "Widget", Quantity: 3, UnitPrice: 19.99, LineTotal: 59.97},
			{LineID: 2, ProductID: "prod-11", ProductName: "Gadget", Quantity: 1, UnitPrice: 29.99, LineTotal: 29.99},
		},
		OccurredAt: time.Now().UTC(),
	}
}

func TestIngest_OneFactRowPerItem(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Ingest(ctx, confirmationEvent()))

	n, err := store.FactCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	dates, customers, products, err := store.DimCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, dates)
	assert.Equal(t, 1, customers)
	assert.Equal(t, 2, products)
}

func TestIngest_RedeliveryIsNoOp(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	ev := confirmationEvent()

	require.NoError(t, store.Ingest(ctx, ev))
	require.NoError(t, store.Ingest(ctx, ev))

	n, err := store.FactCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "re-delivery must not duplicate facts")

	dates, customers, products, err := store.DimCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, dates)
	assert.Equal(t, 1, customers)
	assert.Equal(t, 2, products)
}

func TestIngest_SharedDimensionsAcrossOrders(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first := confirmationEvent()
	require.NoError(t, store.Ingest(ctx, first))

	second := confirmationEvent()
	second.OrderID = 2
	second.OrderNumber = "ORD-CD34"
	require.NoError(t, store.Ingest(ctx, second))

	// Same customer, products and date: dims are reused, facts accumulate.
	dates, customers, products, err := store.DimCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, dates)
	assert.Equal(t, 1, customers)
	assert.Equal(t, 2, products)

	n1, err := store.FactCount(ctx, 1)
	require.NoError(t, err)
	n2, err := store.FactCount(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n1)
	assert.Equal(t, 2, n2)
}

func TestIngest_FactMeasuresMatchEvent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Ingest(ctx, confirmationEvent()))

	var quantity int
	var unitPrice, lineTotal, orderTotal float64
	var orderNumber string
	var dateKey int
	err := store.db.QueryRowContext(ctx, `
		SELECT quantity, unit_price, line_total, order_total, order_number, date_key
		FROM   fact_order_item
		WHERE  order_id = 1 AND order_item_id = 1`).
		Scan(&quantity, &unitPrice, &lineTotal, &orderTotal, &orderNumber, &dateKey)
	require.NoError(t, err)

	assert.Equal(t, 3, quantity)
	assert.InDelta(t, 19.99, unitPrice, 1e-9)
	assert.InDelta(t, 59.97, lineTotal, 1e-9)
	assert.InDelta(t, 89.96, orderTotal, 1e-9)
	assert.Equal(t, "ORD-AB12", orderNumber)
	assert.Equal(t, 20250615, dateKey)
}

func TestIngestor_SubscribesAndIngests(t *testing.T) {
	store := openTestStore(t)
	bus := events.NewBus()
	reporting.NewIngestor(store).Register(bus)

	ev := confirmationEvent()
	require.NoError(t, bus.Publish(context.Background(), ev))
	require.NoError(t, bus.Publish(context.Background(), ev)) // duplicate delivery

	n, err := store.FactCount(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
