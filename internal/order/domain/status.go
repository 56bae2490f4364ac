package domain

// Status represents the lifecycle state of an order.
//
// The lifecycle is linear — PENDING → CONFIRMED → PROCESSING → SHIPPED →
// DELIVERED — with CANCELLED reachable as an alternate terminal state from
// any non-terminal state before delivery. Only PENDING orders accept item
// mutations.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusConfirmed  Status = "CONFIRMED"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
)

// next maps each status to the single status that follows it on the happy
// path. Terminal states map to nothing.
var next = map[Status]Status{
	StatusPending:    StatusConfirmed,
	StatusConfirmed:  StatusProcessing,
	StatusProcessing: StatusShipped,
	StatusShipped:    StatusDelivered,
}

// CanTransitionTo reports whether moving from s to target is a legal
// lifecycle step.
func (s Status) CanTransitionTo(target Status) bool {
	if target == StatusCancelled {
		return !s.Terminal()
	}
	return next[s] == target
}

// Mutable reports whether the item collection may still be changed.
// Once an order leaves PENDING its lines are frozen.
func (s Status) Mutable() bool {
	return s == StatusPending
}

// Terminal reports whether the order has reached an end state.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusProcessing,
		StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}
