package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wirechat-relay/internal/store"
	"github.com/vovakirdan/wirechat-relay/internal/store/sqlite"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// drain returns every event currently buffered on c.
func drain(c *Client) []*Event {
	var out []*Event
	for {
		select {
		case ev, ok := <-c.Events:
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}

func ofKind(events []*Event, kind EventKind) []*Event {
	var out []*Event
	for _, ev := range events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func newTestCoordinator(t *testing.T) (*Coordinator, store.Store) {
	t.Helper()
	st := newTestStore(t)
	return New(st, nil), st
}

// connect opens a connection and joins it as identity unless identity is empty.
// Events produced by the join are drained.
func connect(t *testing.T, c *Coordinator, connID, identity string) *Client {
	t.Helper()
	client := NewClient(connID, "")
	c.Connect(client)
	if identity != "" {
		require.NoError(t, c.Join(context.Background(), client, identity))
	}
	return client
}

func drainAll(clients ...*Client) {
	for _, c := range clients {
		drain(c)
	}
}

// recordingGateway captures everything the core emits.
type recordingGateway struct {
	sent       map[string][]*Event
	broadcasts []*Event
}

func newRecordingGateway() *recordingGateway {
	return &recordingGateway{sent: make(map[string][]*Event)}
}

func (g *recordingGateway) Send(connID string, ev *Event) bool {
	g.sent[connID] = append(g.sent[connID], ev)
	return true
}

func (g *recordingGateway) Broadcast(ev *Event) int {
	g.broadcasts = append(g.broadcasts, ev)
	return 1
}

func (g *recordingGateway) kinds() []EventKind {
	out := make([]EventKind, 0, len(g.broadcasts))
	for _, ev := range g.broadcasts {
		out = append(out, ev.Kind)
	}
	return out
}

func (g *recordingGateway) reset() {
	g.sent = make(map[string][]*Event)
	g.broadcasts = nil
}
