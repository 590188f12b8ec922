package websocket

import (
	"sort"
	"sync"

	"livechat/pkg/chat"
)

// Conn is one live connection as seen by the registry and router.
type Conn interface {
	ID() string
	UserID() string
	// Push enqueues ev without blocking. It reports false when the event was
	// dropped because the connection is closed or its queue is full.
	Push(ev chat.Event) bool
	Close()
}

// Registry maps each user to its single live connection. The most recent
// registration for a user wins, and unregistering checks connection identity
// so a stale connection can never evict a newer one. Connections without a
// user id are tracked for broadcasts only.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]Conn
	byConn map[string]string
	conns  map[string]Conn
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]Conn),
		byConn: make(map[string]string),
		conns:  make(map[string]Conn),
	}
}

// Register maps userID to c and returns the connection it replaced, if any.
func (r *Registry) Register(userID string, c Conn) (previous Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.byUser[userID]; ok && old.ID() != c.ID() {
		delete(r.byConn, old.ID())
		previous = old
	}
	if oldUser, ok := r.byConn[c.ID()]; ok && oldUser != userID {
		delete(r.byUser, oldUser)
	}

	r.byUser[userID] = c
	r.byConn[c.ID()] = userID
	r.conns[c.ID()] = c
	return previous
}

// Attach tracks c as live without binding it to a user.
func (r *Registry) Attach(c Conn) {
	r.mu.Lock()
	r.conns[c.ID()] = c
	r.mu.Unlock()
}

// Unregister forgets c. It returns the user c was registered for and true
// only when c was that user's current connection.
func (r *Registry) Unregister(c Conn) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.conns, c.ID())

	userID, ok := r.byConn[c.ID()]
	if !ok {
		return "", false
	}
	delete(r.byConn, c.ID())

	if cur, ok := r.byUser[userID]; ok && cur.ID() == c.ID() {
		delete(r.byUser, userID)
		return userID, true
	}
	return "", false
}

func (r *Registry) Lookup(userID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byUser[userID]
	return c, ok
}

// All returns every live connection, registered or not.
func (r *Registry) All() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Conn, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	return out
}

// UserIDs returns the registered user ids in sorted order.
func (r *Registry) UserIDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.byUser))
	for id := range r.byUser {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// Len returns the number of registered users.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}

// Connections returns the number of live connections.
func (r *Registry) Connections() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
