package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubSendAndBroadcast(t *testing.T) {
	hub := NewHub(nil)
	a := NewClient("a", "")
	b := NewClient("b", "")
	hub.Register(a)
	hub.Register(b)

	assert.True(t, hub.Send("a", &Event{Kind: EventTypingUsers}))
	assert.False(t, hub.Send("missing", &Event{Kind: EventTypingUsers}))
	assert.Equal(t, 2, hub.Broadcast(&Event{Kind: EventMessagesCleared}))

	assert.Len(t, drain(a), 2)
	got := drain(b)
	require.Len(t, got, 1)
	assert.Equal(t, EventMessagesCleared, got[0].Kind)
}

func TestHubDropsForSlowConsumer(t *testing.T) {
	hub := NewHub(nil)
	slow := NewClient("slow", "")
	fast := NewClient("fast", "")
	hub.Register(slow)
	hub.Register(fast)

	for range clientEventBuffer {
		hub.Send("slow", &Event{Kind: EventTypingUsers})
	}

	// A full buffer must not block delivery to others.
	assert.Equal(t, 1, hub.Broadcast(&Event{Kind: EventDataCleared}))
	assert.False(t, hub.Send("slow", &Event{Kind: EventDataCleared}))
	assert.Len(t, drain(fast), 1)
	assert.Len(t, drain(slow), clientEventBuffer)
}

func TestHubUnregisterClosesEvents(t *testing.T) {
	hub := NewHub(nil)
	a := NewClient("a", "")
	hub.Register(a)
	require.Equal(t, 1, hub.Len())

	assert.True(t, hub.Unregister(a))
	assert.False(t, hub.Unregister(a))
	assert.Equal(t, 0, hub.Len())

	_, ok := <-a.Events
	assert.False(t, ok)
	assert.False(t, hub.Send("a", &Event{Kind: EventTypingUsers}))
}

func TestHubUnregisterIgnoresStaleClient(t *testing.T) {
	hub := NewHub(nil)
	first := NewClient("a", "")
	second := NewClient("a", "")
	hub.Register(first)
	hub.Register(second)

	assert.False(t, hub.Unregister(first))
	assert.Equal(t, 1, hub.Len())
}
