package core

import (
	"sort"
	"sync"
)

// Presence derives the online list and the typing set from the Registry and
// broadcasts every change. Broadcasts are serialized so clients never observe
// an older snapshot after a newer one.
type Presence struct {
	registry *Registry
	gateway  Gateway

	mu     sync.Mutex
	typing map[string]string // connID -> identity
}

// NewPresence builds a tracker over registry that announces through gateway.
func NewPresence(registry *Registry, gateway Gateway) *Presence {
	return &Presence{
		registry: registry,
		gateway:  gateway,
		typing:   make(map[string]string),
	}
}

// Snapshot returns the online participants at call time.
func (p *Presence) Snapshot() []PresenceEntry {
	return p.registry.Snapshot()
}

// Joined announces a new binding: the full list, a user_left notice when the
// connection gave up another identity (released), then user_joined. The
// renamed connection and the superseded one drop out of the typing set.
func (p *Presence) Joined(identity, connID, released, superseded string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.gateway.Broadcast(&Event{Kind: EventUserList, Presence: p.registry.Snapshot()})
	if released != "" {
		p.gateway.Broadcast(&Event{Kind: EventUserLeft, User: &PresenceEntry{Identity: released, ConnectionID: connID}})
	}
	p.gateway.Broadcast(&Event{Kind: EventUserJoined, User: &PresenceEntry{Identity: identity, ConnectionID: connID}})

	stale := false
	if released != "" {
		stale = p.clearTypingLocked(connID) || stale
	}
	if superseded != "" {
		stale = p.clearTypingLocked(superseded) || stale
	}
	if stale {
		p.gateway.Broadcast(&Event{Kind: EventTypingUsers, Typing: p.typingLocked()})
	}
}

// Left announces a closed connection. bound reports whether the connection
// still held its identity when it closed; orphaned connections leave silently.
func (p *Presence) Left(identity, connID string, bound bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.typing, connID)

	p.gateway.Broadcast(&Event{Kind: EventUserList, Presence: p.registry.Snapshot()})
	if bound {
		p.gateway.Broadcast(&Event{Kind: EventUserLeft, User: &PresenceEntry{Identity: identity, ConnectionID: connID}})
	}
	p.gateway.Broadcast(&Event{Kind: EventTypingUsers, Typing: p.typingLocked()})
}

// SetTyping updates the typing flag of connID and broadcasts the typing list.
// Connections without an identity cannot start typing.
func (p *Presence) SetTyping(connID string, isTyping bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	identity, bound := p.registry.IdentityOf(connID)
	_, wasTyping := p.typing[connID]

	switch {
	case isTyping && bound:
		p.typing[connID] = identity
	case !isTyping:
		delete(p.typing, connID)
		if !bound && !wasTyping {
			return
		}
	default:
		return
	}

	p.gateway.Broadcast(&Event{Kind: EventTypingUsers, Typing: p.typingLocked()})
}

// TypingUsers returns the identities currently composing, ordered by name.
func (p *Presence) TypingUsers() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.typingLocked()
}

func (p *Presence) clearTypingLocked(connID string) bool {
	if _, ok := p.typing[connID]; !ok {
		return false
	}
	delete(p.typing, connID)
	return true
}

func (p *Presence) typingLocked() []string {
	users := make([]string, 0, len(p.typing))
	for _, identity := range p.typing {
		users = append(users, identity)
	}
	sort.Strings(users)
	return users
}
