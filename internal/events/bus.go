// Package events implements the in-process event bus the agent uses to tell
// the UI that locally stored data changed. Emission is synchronous so a
// writer knows every listener has observed the change before it returns.
package events

import (
	"context"
	"sync"

	"conecta/internal/middleware"
)

// Event names published by the stores.
const (
	PostUpdated         = "post-updated"
	ConversationUpdated = "conversation-updated"
	NotificationAdded   = "notification-added"
)

// Handler receives the payload published with an event.
type Handler func(ctx context.Context, payload any)

// Subscription is the handle returned by Subscribe. Unsubscribe is safe to
// call more than once.
type Subscription struct {
	bus   *Bus
	event string
	id    uint64
}

// Unsubscribe removes the handler from the bus.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.bus == nil {
		return
	}
	s.bus.remove(s.event, s.id)
	s.bus = nil
}

type subscriber struct {
	id uint64
	fn Handler
}

// Bus is a synchronous publish/subscribe dispatcher. Handlers for an event
// run in the order they subscribed, on the goroutine calling Emit. A panic
// in one handler is recovered and does not stop delivery to the rest.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string][]subscriber
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string][]subscriber)}
}

// Subscribe registers fn for the named event.
func (b *Bus) Subscribe(event string, fn Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs[event] = append(b.subs[event], subscriber{id: id, fn: fn})

	return &Subscription{bus: b, event: event, id: id}
}

// Emit delivers payload to every subscriber of event, in subscription order.
func (b *Bus) Emit(ctx context.Context, event string, payload any) {
	b.mu.RLock()
	// Copy the slice so handlers may subscribe or unsubscribe while we
	// deliver without holding the lock across handler calls.
	subs := make([]subscriber, len(b.subs[event]))
	copy(subs, b.subs[event])
	b.mu.RUnlock()

	middleware.EventsEmitted.WithLabelValues(event).Inc()

	for _, s := range subs {
		b.dispatch(ctx, event, s, payload)
	}
}

func (b *Bus) dispatch(ctx context.Context, event string, s subscriber, payload any) {
	defer func() {
		if r := recover(); r != nil {
			middleware.Logger.ErrorContext(ctx, "event handler panicked",
				"event", event, "panic", r)
		}
	}()
	s.fn(ctx, payload)
}

// SubscriberCount reports how many handlers are attached to event.
func (b *Bus) SubscriberCount(event string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[event])
}

func (b *Bus) remove(event string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[event]
	for i, s := range subs {
		if s.id == id {
			b.subs[event] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}
