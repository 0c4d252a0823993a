package core

import (
	"sort"
	"sync"
)

// Registry maps live connections to participant identities and back. It is the
// single source of truth for who is online on which connection.
//
// A participant has at most one addressable connection. Binding an identity that
// is already bound elsewhere supersedes the old connection: it stays open but is
// no longer reachable by identity lookup.
type Registry struct {
	mu         sync.RWMutex
	byConn     map[string]string // connID -> identity
	byIdentity map[string]string // identity -> connID
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byConn:     make(map[string]string),
		byIdentity: make(map[string]string),
	}
}

// Bind associates connID with identity and returns the connection id it
// superseded, if any. Rebinding the same pair is a no-op.
func (r *Registry) Bind(connID, identity string) (superseded string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// A connection re-joining under another name releases its old identity.
	if old, ok := r.byConn[connID]; ok && old != identity {
		if r.byIdentity[old] == connID {
			delete(r.byIdentity, old)
		}
	}

	if prev, ok := r.byIdentity[identity]; ok && prev != connID {
		delete(r.byConn, prev)
		superseded = prev
	}

	r.byConn[connID] = identity
	r.byIdentity[identity] = connID
	return superseded
}

// Unbind removes the binding of connID. Unknown connections are a no-op.
func (r *Registry) Unbind(connID string) (identity string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity, ok = r.byConn[connID]
	if !ok {
		return "", false
	}
	delete(r.byConn, connID)
	if r.byIdentity[identity] == connID {
		delete(r.byIdentity, identity)
	}
	return identity, true
}

// ConnectionOf returns the live connection bound to identity.
func (r *Registry) ConnectionOf(identity string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	connID, ok := r.byIdentity[identity]
	return connID, ok
}

// IdentityOf returns the identity bound to connID.
func (r *Registry) IdentityOf(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	identity, ok := r.byConn[connID]
	return identity, ok
}

// Snapshot returns every binding ordered by identity.
func (r *Registry) Snapshot() []PresenceEntry {
	r.mu.RLock()
	entries := make([]PresenceEntry, 0, len(r.byIdentity))
	for identity, connID := range r.byIdentity {
		entries = append(entries, PresenceEntry{Identity: identity, ConnectionID: connID})
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Identity < entries[j].Identity
	})
	return entries
}
