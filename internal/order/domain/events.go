package domain

import "time"

// OrderConfirmedName is the bus topic for the confirmation event.
const OrderConfirmedName = "orders.OrderConfirmed"

// ConfirmedItem is a frozen copy of one order line at confirmation time.
type ConfirmedItem struct {
	LineID      int64   `json:"line_id"`
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	LineTotal   float64 `json:"line_total"`
}

// OrderConfirmed is the immutable snapshot published when an order reaches
// CONFIRMED. It is produced exactly once, carries copies (not references) of
// every line, and must never be regenerated or mutated after publication —
// the mail and reporting subscribers rely on it being a frozen fact.
type OrderConfirmed struct {
	OrderID       int64           `json:"order_id"`
	CustomerID    string          `json:"customer_id"`
	CustomerEmail string          `json:"customer_email"`
	OrderNumber   string          `json:"order_number"`
	OrderDate     time.Time       `json:"order_date"`
	TotalAmount   float64         `json:"total_amount"`
	Items         []ConfirmedItem `json:"items"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// EventName implements events.Event.
func (OrderConfirmed) EventName() string { return OrderConfirmedName }

func newOrderConfirmed(o *Order) OrderConfirmed {
	items := make([]ConfirmedItem, len(o.items))
	for i, it := range o.items {
		items[i] = ConfirmedItem{
			LineID:      it.LineID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			LineTotal:   it.LineTotal(),
		}
	}
	return OrderConfirmed{
		OrderID:     o.ID,
		CustomerID:  o.CustomerID,
		OrderNumber: o.Number,
		OrderDate:   o.Date,
		TotalAmount: o.TotalAmount(),
		Items:       items,
		OccurredAt:  time.Now().UTC(),
	}
}
