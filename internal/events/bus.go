// Package events provides the in-process publish/subscribe bus that connects
// the order command side to its subscribers (mail notification, reporting
// ingestion).
//
// Publication is fire-to-all and synchronous: every handler registered for
// the event's name runs, sequentially, within the publishing call. The bus
// does not retry failed handlers and does not persist events for replay — if
// the process dies mid-publish the event is gone. Durability, if ever needed,
// belongs in an outbox between the repository save and Publish, not in here.
package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Event is anything that can be published on the bus. EventName doubles as
// the subscription key.
type Event interface {
	EventName() string
}

// HandlerFunc reacts to a published event. Handlers receive the same event
// value the publisher produced and must treat it as immutable.
type HandlerFunc func(ctx context.Context, e Event) error

type subscription struct {
	name string // handler name, for logs only
	fn   HandlerFunc
}

// Bus is a minimal in-process event bus. Safe for concurrent use; in
// practice all Subscribe calls happen at startup in the composition root and
// Publish calls come from request handlers.
type Bus struct {
	mu   sync.RWMutex
	subs map[string][]subscription
}

func NewBus() *Bus {
	return &Bus{subs: make(map[string][]subscription)}
}

// Subscribe registers fn for every event whose EventName equals eventName.
// handlerName identifies the subscriber in logs.
func (b *Bus) Subscribe(eventName, handlerName string, fn HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[eventName] = append(b.subs[eventName], subscription{name: handlerName, fn: fn})
}

// Publish delivers e to every handler subscribed to its name, in
// registration order. A failing handler does not stop delivery to the
// remaining handlers; all failures are joined into the returned error so the
// publisher can decide what to do with them.
func (b *Bus) Publish(ctx context.Context, e Event) error {
	b.mu.RLock()
	subs := b.subs[e.EventName()]
	b.mu.RUnlock()

	var errs []error
	for _, sub := range subs {
		if err := sub.fn(ctx, e); err != nil {
			slog.ErrorContext(ctx, "event handler failed",
				"event", e.EventName(),
				"handler", sub.name,
				"error", err,
			)
			errs = append(errs, fmt.Errorf("handler %s: %w", sub.name, err))
		}
	}
	return errors.Join(errs...)
}
