// Package memory provides in-memory implementations of the order ports for
// tests and local development. The repository applies the same version-token
// rule as the SQLite adapter so concurrency tests behave identically against
// either.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/mjurado/orderpipe/internal/order/domain"
	"github.com/mjurado/orderpipe/internal/order/ports"
)

type storedOrder struct {
	order   domain.Order
	items   []domain.Item
	version int64
}

// Repository is a mutex-guarded map of orders.
type Repository struct {
	mu     sync.Mutex
	nextID int64
	orders map[int64]storedOrder
}

var _ ports.Repository = (*Repository)(nil)

func NewRepository() *Repository {
	return &Repository{nextID: 1, orders: make(map[int64]storedOrder)}
}

func (r *Repository) Get(_ context.Context, id int64) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("memory: order %d: %w", id, domain.ErrOrderNotFound)
	}
	o := st.order
	return domain.Rehydrate(o.ID, o.CustomerID, o.Number, o.Date, o.Status,
		st.version, o.CreatedAt, o.UpdatedAt, st.items), nil
}

func (r *Repository) Save(_ context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if o.ID == 0 {
		o.ID = r.nextID
		r.nextID++
		o.Version = 1
	} else {
		st, ok := r.orders[o.ID]
		if !ok {
			return fmt.Errorf("memory: order %d: %w", o.ID, domain.ErrOrderNotFound)
		}
		if st.version != o.Version {
			return fmt.Errorf("memory: order %d version %d: %w", o.ID, o.Version, ports.ErrVersionConflict)
		}
		o.Version++
	}

	r.orders[o.ID] = storedOrder{order: *o, items: o.Items(), version: o.Version}
	return nil
}

// Directory is an in-memory CustomerDirectory.
type Directory struct {
	mu        sync.RWMutex
	customers map[string]ports.Customer
}

var _ ports.CustomerDirectory = (*Directory)(nil)

func NewDirectory(customers ...ports.Customer) *Directory {
	d := &Directory{customers: make(map[string]ports.Customer, len(customers))}
	for _, c := range customers {
		d.customers[c.ID] = c
	}
	return d
}

func (d *Directory) Put(c ports.Customer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.customers[c.ID] = c
}

func (d *Directory) Lookup(_ context.Context, customerID string) (ports.Customer, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.customers[customerID]
	if !ok {
		return ports.Customer{}, fmt.Errorf("memory: customer %q: %w", customerID, domain.ErrCustomerNotFound)
	}
	return c, nil
}
