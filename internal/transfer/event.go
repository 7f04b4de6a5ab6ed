package transfer

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/soundvault/soundvault/internal/catalog"
	"github.com/soundvault/soundvault/internal/logctx"
)

// EventType defines the set of events the download manager emits.
type EventType string

const (
	EventProgress      EventType = "progress"
	EventCompleted     EventType = "completed"
	EventFailed        EventType = "failed"
	EventCancelled     EventType = "cancelled"
	EventAlreadyCached EventType = "already_cached"
)

// Terminal reports whether this is the last event a reference will see for
// the current transfer.
func (t EventType) Terminal() bool {
	return t == EventCompleted || t == EventFailed || t == EventCancelled
}

// Event is the payload delivered to observers. Observers receive copies,
// never the Transfer itself.
type Event struct {
	Type      EventType
	Reference catalog.Reference
	Progress  float64 // set for EventProgress
	LocalPath string  // set for EventCompleted and EventAlreadyCached
	Err       error   // set for EventFailed
}

// Observer receives every event for every transfer, regardless of which
// caller initiated it. Delivery happens synchronously on the publishing
// goroutine; observers needing a specific execution context (a UI loop, an
// HTTP response writer) do their own marshaling.
type Observer interface {
	HandleTransferEvent(event Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(event Event)

func (f ObserverFunc) HandleTransferEvent(event Event) {
	f(event)
}

// Subscription is the stable handle returned by Subscribe. Unsubscribing
// marks it stale; a stale subscription is skipped by in-flight publishes
// instead of faulting.
type Subscription struct {
	id       uuid.UUID
	observer Observer
	stale    atomic.Bool
}

// Multicast fans events out to all current subscribers in subscription
// order. A panicking observer is isolated: delivery continues with the next
// subscriber and the subscriber set stays intact for future events.
type Multicast struct {
	mu   sync.Mutex
	subs []*Subscription
}

func NewMulticast() *Multicast {
	return &Multicast{}
}

// Subscribe registers an observer and returns its handle.
func (m *Multicast) Subscribe(observer Observer) *Subscription {
	sub := &Subscription{id: uuid.New(), observer: observer}

	m.mu.Lock()
	m.subs = append(m.subs, sub)
	m.mu.Unlock()

	return sub
}

// Unsubscribe removes the subscription. Safe to call more than once and
// while a publish is in flight.
func (m *Multicast) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	sub.stale.Store(true)

	m.mu.Lock()
	defer m.mu.Unlock()

	for i, s := range m.subs {
		if s.id == sub.id {
			m.subs = append(m.subs[:i], m.subs[i+1:]...)

			break
		}
	}
}

// Publish delivers the event to every currently live subscriber,
// synchronously, in subscription order.
func (m *Multicast) Publish(ctx context.Context, event Event) {
	m.mu.Lock()
	subs := make([]*Subscription, len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	for _, sub := range subs {
		if sub.stale.Load() {
			continue
		}

		m.deliver(ctx, sub, event)
	}
}

func (m *Multicast) deliver(ctx context.Context, sub *Subscription, event Event) {
	defer func() {
		if r := recover(); r != nil {
			logctx.LoggerFromContext(ctx).Error("observer panic during event delivery",
				"event_type", string(event.Type),
				"reference", event.Reference.String(),
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()

	sub.observer.HandleTransferEvent(event)
}
