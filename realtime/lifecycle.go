package realtime

import (
	"context"
	"fmt"
	"log/slog"

	"wander-core/contract"
	"wander-core/domain"
	"wander-core/domain/event"
	"wander-core/errors"

	"github.com/samber/lo"
)

// Lifecycle binds and unbinds connections to user identities and
// broadcasts presence snapshots on every change.
type Lifecycle struct {
	log   *slog.Logger
	table contract.IPresenceTable
	hub   *Hub
}

func NewLifecycle(log *slog.Logger, table contract.IPresenceTable, hub *Hub) *Lifecycle {
	return &Lifecycle{log: log, table: table, hub: hub}
}

// Bind moves a connection from connecting to bound: the identity claims
// the connection in the presence table (last-connect-wins) and every
// session receives the refreshed snapshot.
func (l *Lifecycle) Bind(ctx context.Context, conn contract.Connection, userID string) error {
	if !domain.ValidIdentity(userID) {
		return errors.NewValidationError("userId", "not a valid identity reference")
	}
	l.table.SetOnline(userID, conn)
	l.log.Info(fmt.Sprintf("User %s bound to connection %s", userID, conn.ID()))
	l.hub.Broadcast(ctx, l.Snapshot())
	return nil
}

// Unbind handles a transport disconnect. A connection that was never
// bound, or whose user already rebound on a fresh transport, produces
// no presence change and no broadcast.
func (l *Lifecycle) Unbind(ctx context.Context, conn contract.Connection) {
	userID, ok := l.table.SetOffline(conn.ID())
	if !ok {
		return
	}
	l.log.Info(fmt.Sprintf("User %s went offline (connection %s)", userID, conn.ID()))
	l.hub.Broadcast(ctx, l.Snapshot())
}

// Snapshot is the full list of online identities.
func (l *Lifecycle) Snapshot() event.OnlineUsers {
	ids := l.table.OnlineUserIDs()
	return event.OnlineUsers{
		Users: lo.Map(ids, func(id string, _ int) event.OnlineUser {
			return event.OnlineUser{ID: id}
		}),
	}
}
