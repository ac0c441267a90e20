// Package events is the embedding application's event bus.
//
// The loopback listener only knows [server.Emitter]; a [Bus] fans each named event out to the handlers registered
// for it, such as the log and desktop notification sinks in this package.
package events

import (
	"errors"
	"fmt"
	"sync"
)

// Handler receives the payload of an event.
type Handler func(payload string) error

// Bus dispatches named events to registered handlers in registration order.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// NewBus creates an empty [Bus].
func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

// On registers h for event.
func (b *Bus) On(event string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], h)
}

// Emit calls every handler registered for event. All handlers run even when one fails; their errors are joined.
//
// An event with no handlers is not an error.
func (b *Bus) Emit(event, payload string) error {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[event]...)
	b.mu.RUnlock()

	var errs []error
	for _, h := range handlers {
		if err := h(payload); err != nil {
			errs = append(errs, fmt.Errorf("%s handler: %w", event, err))
		}
	}
	return errors.Join(errs...)
}
