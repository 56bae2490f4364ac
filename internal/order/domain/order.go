// Package domain holds the Order aggregate and its invariants.
//
// The aggregate is the single consistency boundary for an order and its
// lines: external code reads the lines through Items() but can only change
// them through AddItem/RemoveItem, which enforce the status-based mutability
// rule and the merge-on-duplicate-product rule. The total amount is never
// stored anywhere — it is recomputed from the lines on every call, so it
// cannot drift from its components.
package domain

import "time"

// Item is one order line. Name and unit price are captured from the pricing
// source at the moment the line is added; they are a snapshot, not a live
// product reference.
type Item struct {
	LineID      int64
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   float64
}

// LineTotal is quantity × unit price. Computed, never persisted.
func (i Item) LineTotal() float64 {
	return float64(i.Quantity) * i.UnitPrice
}

// Order is the aggregate root. The scalar fields are exported for adapters
// to read; the item collection and its line-id counter are unexported so
// every mutation goes through the aggregate's methods.
type Order struct {
	ID         int64
	CustomerID string
	Number     string
	Date       time.Time // calendar date; normalised to midnight UTC
	Status     Status
	Version    int64 // concurrency token, bumped by the repository on save
	CreatedAt  time.Time
	UpdatedAt  time.Time

	items      []Item
	nextLineID int64
}

// New creates a PENDING order with no lines. The ID stays zero until the
// repository assigns one on first save.
func New(customerID, number string, date time.Time) *Order {
	now := time.Now().UTC()
	return &Order{
		CustomerID: customerID,
		Number:     number,
		Date:       truncateToDay(date),
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
		nextLineID: 1,
	}
}

// Rehydrate rebuilds an aggregate from persisted state. Items must be in
// stable line-id order; the line-id counter is recovered from the highest
// persisted line id.
func Rehydrate(id int64, customerID, number string, date time.Time, status Status,
	version int64, createdAt, updatedAt time.Time, items []Item) *Order {
	o := &Order{
		ID:         id,
		CustomerID: customerID,
		Number:     number,
		Date:       date,
		Status:     status,
		Version:    version,
		CreatedAt:  createdAt,
		UpdatedAt:  updatedAt,
		items:      append([]Item(nil), items...),
		nextLineID: 1,
	}
	for _, it := range items {
		if it.LineID >= o.nextLineID {
			o.nextLineID = it.LineID + 1
		}
	}
	return o
}

// Items returns a copy of the lines in insertion order. Mutating the
// returned slice has no effect on the aggregate.
func (o *Order) Items() []Item {
	return append([]Item(nil), o.items...)
}

// TotalAmount is the sum of line totals across current items, recomputed on
// every call.
func (o *Order) TotalAmount() float64 {
	var total float64
	for _, it := range o.items {
		total += it.LineTotal()
	}
	return total
}

// AddItem appends a line, or — when a line with the same product id already
// exists — merges into it by summing quantities so an order never carries two
// lines for one product. Fails when the order is no longer PENDING.
func (o *Order) AddItem(productID, productName string, quantity int, unitPrice float64) error {
	if !o.Status.Mutable() {
		return invalidStateErr("add item", o.Status)
	}
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	for i := range o.items {
		if o.items[i].ProductID == productID {
			o.items[i].Quantity += quantity
			o.touch()
			return nil
		}
	}
	o.items = append(o.items, Item{
		LineID:      o.nextLineID,
		ProductID:   productID,
		ProductName: productName,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
	})
	o.nextLineID++
	o.touch()
	return nil
}

// RemoveItem deletes the line with the given line id. Removing a line that
// does not exist is a no-op, not an error. Fails when the order is no longer
// PENDING.
func (o *Order) RemoveItem(lineID int64) error {
	if !o.Status.Mutable() {
		return invalidStateErr("remove item", o.Status)
	}
	for i := range o.items {
		if o.items[i].LineID == lineID {
			o.items = append(o.items[:i], o.items[i+1:]...)
			o.touch()
			return nil
		}
	}
	return nil
}

// Confirm transitions the order from PENDING to CONFIRMED and returns the
// frozen event snapshot describing the order at that moment. Confirming an
// order in any other state fails and leaves the order untouched.
//
// CustomerEmail is left blank on the snapshot — the aggregate does not know
// customer contact details; the caller fills it in before publishing.
func (o *Order) Confirm() (OrderConfirmed, error) {
	if o.Status != StatusPending {
		return OrderConfirmed{}, invalidStateErr("confirm", o.Status)
	}
	o.Status = StatusConfirmed
	o.touch()
	return newOrderConfirmed(o), nil
}

// Cancel moves the order to CANCELLED. Allowed from any non-terminal state.
func (o *Order) Cancel() error {
	if !o.Status.CanTransitionTo(StatusCancelled) {
		return invalidStateErr("cancel", o.Status)
	}
	o.Status = StatusCancelled
	o.touch()
	return nil
}

// Advance moves the order one step along the happy path (CONFIRMED →
// PROCESSING → SHIPPED → DELIVERED).
func (o *Order) Advance(target Status) error {
	if !o.Status.CanTransitionTo(target) {
		return invalidStateErr("advance", o.Status)
	}
	o.Status = target
	o.touch()
	return nil
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
