// Package presence owns the in-memory mapping between user identities and
// their live connections. It is the only mutable structure shared between
// connection handlers, so every forward/inverse update happens under one lock.
package presence

import (
	"sync"

	"wander-core/contract"
)

// Table tracks at most one primary connection per user (last-connect-wins)
// with a forward index for targeted delivery and a reverse index so a
// closing transport can find the identity it was bound to.
type Table struct {
	mu     sync.RWMutex
	byUser map[string]contract.Connection // forward: userID -> connection
	byConn map[string]string              // reverse: connection id -> userID
}

func NewTable() *Table {
	return &Table{
		byUser: make(map[string]contract.Connection),
		byConn: make(map[string]string),
	}
}

// SetOnline binds a user to a connection, replacing any prior binding.
// The replaced connection's reverse entry is cleared in the same critical
// section so no reader can observe an orphaned back-reference.
func (t *Table) SetOnline(userID string, conn contract.Connection) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if old, ok := t.byUser[userID]; ok {
		delete(t.byConn, old.ID())
	}
	t.byUser[userID] = conn
	t.byConn[conn.ID()] = userID
}

// SetOffline removes the binding owned by the given connection and
// returns the identity that went offline. Both map entries go in one
// critical section: a reconnect that already replaced this connection
// leaves no reverse entry for it, so the fresh binding stays untouched.
func (t *Table) SetOffline(connID string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	userID, ok := t.byConn[connID]
	if !ok {
		return "", false
	}
	delete(t.byConn, connID)
	delete(t.byUser, userID)
	return userID, true
}

func (t *Table) ConnectionFor(userID string) (contract.Connection, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	conn, ok := t.byUser[userID]
	return conn, ok
}

func (t *Table) UserFor(connID string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	userID, ok := t.byConn[connID]
	return userID, ok
}

func (t *Table) OnlineUserIDs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]string, 0, len(t.byUser))
	for id := range t.byUser {
		ids = append(ids, id)
	}
	return ids
}

// Connections snapshots every live connection for fanout. The slice is a
// copy: delivery happens outside the lock and must tolerate entries that
// go stale in the meantime.
func (t *Table) Connections() []contract.Connection {
	t.mu.RLock()
	defer t.mu.RUnlock()
	conns := make([]contract.Connection, 0, len(t.byUser))
	for _, c := range t.byUser {
		conns = append(conns, c)
	}
	return conns
}
