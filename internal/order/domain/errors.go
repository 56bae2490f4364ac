package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for business-rule violations. Callers branch on these with
// errors.Is; the HTTP layer maps them to response codes. They are deliberately
// distinct: "order not found" and "item not found" are different conditions
// and must never be conflated.
var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrItemNotFound     = errors.New("order item not found")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrInvalidState     = errors.New("order is not in a modifiable state")
	ErrInvalidQuantity  = errors.New("quantity must be positive")
)

// invalidStateErr wraps ErrInvalidState with the status that blocked the
// operation, so logs and responses can say which state the order was in.
func invalidStateErr(op string, s Status) error {
	return fmt.Errorf("%s: %w (status %s)", op, ErrInvalidState, s)
}
