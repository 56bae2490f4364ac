// Package pricing is the collaborator that resolves product ids into display
// names and current unit prices. The order flows treat it as a remote call
// that can fail independently of the order's own rules: a lookup failure
// aborts the mutation before anything is saved, and "unknown product" is an
// explicit value branch, never a panic.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrProductNotFound is returned for product ids the pricing source does not
// know.
var ErrProductNotFound = errors.New("product not found")

// ProductDetails is the pricing source's answer for one product id.
type ProductDetails struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
}

// Lookup resolves a product id. Implementations return ErrProductNotFound
// (possibly wrapped) for unknown ids.
type Lookup interface {
	Lookup(ctx context.Context, productID string) (ProductDetails, error)
}

// StaticCatalog is an in-memory Lookup backed by a fixed product table.
// Used in tests and local runs where no real pricing service exists.
type StaticCatalog struct {
	mu       sync.RWMutex
	products map[string]ProductDetails
}

func NewStaticCatalog(products ...ProductDetails) *StaticCatalog {
	c := &StaticCatalog{products: make(map[string]ProductDetails, len(products))}
	for _, p := range products {
		c.products[p.ProductID] = p
	}
	return c
}

// Put adds or replaces a product.
func (c *StaticCatalog) Put(p ProductDetails) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[p.ProductID] = p
}

func (c *StaticCatalog) Lookup(_ context.Context, productID string) (ProductDetails, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[productID]
	if !ok {
		return ProductDetails{}, fmt.Errorf("pricing: product %q: %w", productID, ErrProductNotFound)
	}
	return p, nil
}
