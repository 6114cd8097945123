package hub

import (
	"sync"

	"ride-realtime/internal/domain/user"
)

// Identity binds an open connection to the user and role it presented at
// join time. The hub trusts these values as given; see the protocol notes on
// the unverified-identity limitation.
type Identity struct {
	ConnID string
	UserID string
	Role   user.Role
}

// ConnectionRegistry is the identity-by-connection map. It is one of the two
// pieces of state the hub owns; everything else is derived per event.
type ConnectionRegistry struct {
	mu     sync.RWMutex
	byConn map[string]Identity
}

// NewConnectionRegistry creates an empty registry.
func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{byConn: make(map[string]Identity)}
}

// Put stores or replaces the identity for a connection. Rejoining with a new
// role or user overwrites the previous identity.
func (r *ConnectionRegistry) Put(id Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byConn[id.ConnID] = id
}

// Get returns the identity registered for a connection, if any.
func (r *ConnectionRegistry) Get(connID string) (Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byConn[connID]
	return id, ok
}

// Remove deletes and returns the identity for a connection.
func (r *ConnectionRegistry) Remove(connID string) (Identity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byConn[connID]
	if ok {
		delete(r.byConn, connID)
	}
	return id, ok
}

// Count returns the number of registered identities.
func (r *ConnectionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}
