package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Handler receives published events.
type Handler func(event *Event)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus is an in-process publish/subscribe hub. Handlers run synchronously on the
// publishing goroutine, in subscription order; a panicking handler is logged and does not
// stop delivery to the others.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]subscription
	nextID      uint64
	log         zerolog.Logger
}

// NewBus creates a new event bus
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		subscribers: make(map[EventType][]subscription),
		log:         log.With().Str("component", "event_bus").Logger(),
	}
}

// Subscribe registers handler for eventType and returns a function that removes it.
func (b *Bus) Subscribe(eventType EventType, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subscribers[eventType] = append(b.subscribers[eventType], subscription{id: id, handler: handler})

	return func() { b.unsubscribe(eventType, id) }
}

// SubscribeAll registers handler for every known event type.
func (b *Bus) SubscribeAll(handler Handler) func() {
	unsubscribers := make([]func(), 0, len(AllEventTypes))
	for _, eventType := range AllEventTypes {
		unsubscribers = append(unsubscribers, b.Subscribe(eventType, handler))
	}
	return func() {
		for _, unsubscribe := range unsubscribers {
			unsubscribe()
		}
	}
}

func (b *Bus) unsubscribe(eventType EventType, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[eventType]
	for i, s := range subs {
		if s.id == id {
			b.subscribers[eventType] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Emit publishes an event to every handler subscribed to eventType.
func (b *Bus) Emit(eventType EventType, module string, data map[string]interface{}) {
	event := &Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
		Module:    module,
	}

	b.mu.RLock()
	subs := make([]subscription, len(b.subscribers[eventType]))
	copy(subs, b.subscribers[eventType])
	b.mu.RUnlock()

	for _, s := range subs {
		b.deliver(s.handler, event)
	}
}

// EmitTyped publishes typed event data.
func (b *Bus) EmitTyped(module string, data EventData) {
	b.Emit(data.EventType(), module, convertEventDataToMap(data))
}

func (b *Bus) deliver(handler Handler, event *Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().
				Interface("panic", r).
				Str("event_type", string(event.Type)).
				Msg("Event handler panicked")
		}
	}()
	handler(event)
}

// SubscriberCount returns the number of handlers subscribed to eventType.
func (b *Bus) SubscriberCount(eventType EventType) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[eventType])
}
