package transfer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func progressEvent(value float64) Event {
	return Event{
		Type:      EventProgress,
		Reference: "https://cdn.example.com/audio/a.mp3",
		Progress:  value,
	}
}

func TestMulticast_DeliversInSubscriptionOrder(t *testing.T) {
	m := NewMulticast()

	var order []string

	m.Subscribe(ObserverFunc(func(Event) { order = append(order, "first") }))
	m.Subscribe(ObserverFunc(func(Event) { order = append(order, "second") }))
	m.Subscribe(ObserverFunc(func(Event) { order = append(order, "third") }))

	m.Publish(context.Background(), progressEvent(0.5))

	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestMulticast_UnsubscribeStopsDelivery(t *testing.T) {
	m := NewMulticast()

	var delivered int

	sub := m.Subscribe(ObserverFunc(func(Event) { delivered++ }))

	m.Publish(context.Background(), progressEvent(0.1))
	require.Equal(t, 1, delivered)

	m.Unsubscribe(sub)
	m.Unsubscribe(sub) // safe to repeat

	m.Publish(context.Background(), progressEvent(0.2))
	assert.Equal(t, 1, delivered)
}

func TestMulticast_PanicDoesNotStopDelivery(t *testing.T) {
	m := NewMulticast()

	var delivered []float64

	m.Subscribe(ObserverFunc(func(Event) { panic("observer exploded") }))
	m.Subscribe(ObserverFunc(func(e Event) { delivered = append(delivered, e.Progress) }))

	m.Publish(context.Background(), progressEvent(0.3))
	require.Equal(t, []float64{0.3}, delivered)

	// The subscriber set survives for future notifications.
	m.Publish(context.Background(), progressEvent(0.6))
	assert.Equal(t, []float64{0.3, 0.6}, delivered)
}

func TestMulticast_UnsubscribeDuringPublishIsSkipped(t *testing.T) {
	m := NewMulticast()

	var second *Subscription

	var delivered int

	m.Subscribe(ObserverFunc(func(Event) { m.Unsubscribe(second) }))
	second = m.Subscribe(ObserverFunc(func(Event) { delivered++ }))

	m.Publish(context.Background(), progressEvent(0.4))

	assert.Zero(t, delivered, "a subscription removed mid-publish must be skipped, not faulted")
}

func TestEventType_Terminal(t *testing.T) {
	assert.True(t, EventCompleted.Terminal())
	assert.True(t, EventFailed.Terminal())
	assert.True(t, EventCancelled.Terminal())
	assert.False(t, EventProgress.Terminal())
	assert.False(t, EventAlreadyCached.Terminal())
}
