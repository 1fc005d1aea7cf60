package events

import "github.com/GiovanniFerrara/thebox/internal/telemetry"

// Handler receives a published event.
type Handler func(Event)

// Bus is a synchronous, typed pub/sub dispatcher. Subscribe registers
// a handler for one event type; SubscribeAll registers a wildcard
// handler invoked for every event, in addition to its type-specific
// handlers. Handlers run in subscription order and a panic in one
// handler is caught and logged rather than aborting dispatch to the
// handlers that follow.
type Bus struct {
	handlers map[EventType][]Handler
	wildcard []Handler
	log      telemetry.Logger
}

// NewBus returns an empty Bus. log may be nil, in which case handler
// panics are silently swallowed.
func NewBus(log telemetry.Logger) *Bus {
	return &Bus{handlers: make(map[EventType][]Handler), log: log}
}

// Subscribe registers handler to run whenever an event of type t is
// published.
func (b *Bus) Subscribe(t EventType, handler Handler) {
	b.handlers[t] = append(b.handlers[t], handler)
}

// SubscribeAll registers handler to run for every published event,
// regardless of type.
func (b *Bus) SubscribeAll(handler Handler) {
	b.wildcard = append(b.wildcard, handler)
}

// Publish dispatches event to its type-specific handlers, then to
// every wildcard handler, in registration order.
func (b *Bus) Publish(event Event) {
	for _, h := range b.handlers[event.Type] {
		b.dispatch(h, event)
	}
	for _, h := range b.wildcard {
		b.dispatch(h, event)
	}
}

func (b *Bus) dispatch(handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil && b.log != nil {
			b.log.Error("event handler panicked", "event", event, "recovered", r)
		}
	}()
	handler(event)
}
