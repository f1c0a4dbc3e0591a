// Package presence keeps the identity/connection registry, the only shared
// mutable state of the relay core.
package presence

import (
	"slices"
	"sync"

	"github.com/samber/lo"
)

// Registry maps each online identity to exactly one live connection and each
// registered connection back to its identity. Both maps are mutated together
// under mu, so every operation is individually atomic.
type Registry struct {
	mu         sync.RWMutex
	byIdentity map[Identity]Conn
	byConn     map[string]Identity

	// transition serialises a registry mutation with the announcement that
	// describes it, keeping announcement order equal to transition order.
	transition sync.Mutex
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byIdentity: make(map[Identity]Conn),
		byConn:     make(map[string]Identity),
	}
}

// Register binds id to conn. An existing handle for id is replaced and
// becomes unreachable; it is not closed. If conn was bound to another
// identity, that binding is dropped so the reverse map stays one-to-one.
func (r *Registry) Register(id Identity, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byIdentity[id]; ok {
		delete(r.byConn, prev.ID())
	}
	if prevID, ok := r.byConn[conn.ID()]; ok && prevID != id {
		delete(r.byIdentity, prevID)
	}

	r.byIdentity[id] = conn
	r.byConn[conn.ID()] = id
}

// UnregisterByIdentity removes the entry for id and reports whether one
// existed.
func (r *Registry) UnregisterByIdentity(id Identity) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.byIdentity[id]
	if !ok {
		return false
	}
	delete(r.byIdentity, id)
	delete(r.byConn, conn.ID())
	return true
}

// UnregisterByHandle removes the entry whose handle is conn and returns the
// identity it belonged to. A handle that was never registered, or that has
// been superseded by a newer registration, is not found.
func (r *Registry) UnregisterByHandle(conn Conn) (Identity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byConn[conn.ID()]
	if !ok {
		return "", false
	}
	delete(r.byConn, conn.ID())
	delete(r.byIdentity, id)
	return id, true
}

// Lookup returns the handle currently registered for id.
func (r *Registry) Lookup(id Identity) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.byIdentity[id]
	return conn, ok
}

// IsOnline reports whether id has a registered handle.
func (r *Registry) IsOnline(id Identity) bool {
	_, ok := r.Lookup(id)
	return ok
}

// IdentityOf returns the identity conn is registered under.
func (r *Registry) IdentityOf(conn Conn) (Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byConn[conn.ID()]
	return id, ok
}

// Len returns the number of online identities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byIdentity)
}

// Identities returns a sorted snapshot of the online identities.
func (r *Registry) Identities() []Identity {
	r.mu.RLock()
	ids := lo.Keys(r.byIdentity)
	r.mu.RUnlock()

	slices.Sort(ids)
	return ids
}

// Connections returns a snapshot of every registered handle.
func (r *Registry) Connections() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Values(r.byIdentity)
}

// WithTransition runs fn while holding the transition lock. fn must not call
// WithTransition again.
func (r *Registry) WithTransition(fn func()) {
	r.transition.Lock()
	defer r.transition.Unlock()
	fn()
}
