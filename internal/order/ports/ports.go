// Package ports declares the interfaces the order command side depends on.
// Adapters (SQLite, in-memory) implement them; the service never imports an
// adapter package.
package ports

import (
	"context"
	"errors"

	"github.com/mjurado/orderpipe/internal/order/domain"
)

// ErrVersionConflict is returned by Repository.Save when the aggregate's
// version no longer matches the stored row — i.e. another request saved the
// same order in between. This is the mechanism that keeps two concurrent
// confirmations of one order from both succeeding.
var ErrVersionConflict = errors.New("order was modified concurrently")

// Repository persists Order aggregates.
type Repository interface {
	// Get loads one aggregate with its items in stable line order.
	// Returns domain.ErrOrderNotFound (wrapped) for unknown ids.
	Get(ctx context.Context, id int64) (*domain.Order, error)

	// Save persists the aggregate. On first save it assigns the numeric id
	// and writes Version 1; on subsequent saves it checks the version token
	// and returns ErrVersionConflict on a stale write. The aggregate's ID
	// and Version fields are updated in place on success.
	Save(ctx context.Context, o *domain.Order) error
}

// Customer is the directory's view of a customer — just enough to address
// the confirmation email.
type Customer struct {
	ID    string
	Name  string
	Email string
}

// CustomerDirectory resolves customer ids. Returns
// domain.ErrCustomerNotFound (wrapped) for unknown ids.
type CustomerDirectory interface {
	Lookup(ctx context.Context, customerID string) (Customer, error)
}
