// Package events provides an in-process implementation of the driven
// EventBus port. Handlers run synchronously on the publishing goroutine.
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/custodia-labs/revstore/internal/core/domain"
	"github.com/custodia-labs/revstore/internal/core/ports/driven"
)

// Ensure Bus implements the interface.
var _ driven.EventBus = (*Bus)(nil)

// Handler receives published events.
type Handler func(ctx context.Context, event domain.Event) error

// Bus dispatches events to the handlers subscribed to their kind.
type Bus struct {
	mu       sync.RWMutex
	handlers map[domain.EventKind][]Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[domain.EventKind][]Handler)}
}

// Subscribe registers h for events of the given kind.
func (b *Bus) Subscribe(kind domain.EventKind, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], h)
}

// SubscribeAll registers h for every event kind.
func (b *Bus) SubscribeAll(h Handler) {
	b.Subscribe(domain.EventResourceChanged, h)
	b.Subscribe(domain.EventSubscriptionChanged, h)
}

// Publish runs the kind's handlers in registration order. Every handler
// runs even if an earlier one fails; failures are joined.
func (b *Bus) Publish(ctx context.Context, event domain.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[event.Kind]...)
	b.mu.RUnlock()

	var errs []error
	for i, h := range handlers {
		if err := h(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("handler %d for %s: %w", i, event.Kind, err))
		}
	}
	return errors.Join(errs...)
}
