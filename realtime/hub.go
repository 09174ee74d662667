// Package realtime implements the presence, routing, delivery-status and
// notification components behind the bidirectional event channel.
package realtime

import (
	"context"
	"fmt"
	"log/slog"

	"wander-core/contract"
	"wander-core/domain/event"
	"wander-core/observability"
)

// Hub owns event delivery towards live connections. Targeted delivery is
// the default; legacyBroadcast restores the historical fan-out of private
// events to every connected session.
type Hub struct {
	log             *slog.Logger
	table           contract.IPresenceTable
	monitor         *observability.Monitor
	legacyBroadcast bool
}

func NewHub(log *slog.Logger, table contract.IPresenceTable,
	monitor *observability.Monitor, legacyBroadcast bool) *Hub {
	return &Hub{log: log, table: table, monitor: monitor, legacyBroadcast: legacyBroadcast}
}

// Broadcast fans an event out to every currently connected session.
// A stale handle is a session that just went offline: the failure is
// logged and swallowed, never surfaced to anyone.
func (h *Hub) Broadcast(ctx context.Context, e event.ServerEvent) {
	for _, conn := range h.table.Connections() {
		h.consume(ctx, conn, e)
	}
}

// Deliver sends an event to the named users' connections, or to everyone
// when legacy broadcast mode is on. Offline users are skipped silently.
func (h *Hub) Deliver(ctx context.Context, e event.ServerEvent, userIDs ...string) {
	if h.legacyBroadcast {
		h.Broadcast(ctx, e)
		return
	}
	seen := make(map[string]struct{}, len(userIDs))
	for _, userID := range userIDs {
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}
		h.Push(ctx, userID, e)
	}
}

// Push targets a single user's connection. Returns false when the user
// has no live connection; the caller decides whether store-only is enough.
func (h *Hub) Push(ctx context.Context, userID string, e event.ServerEvent) bool {
	conn, ok := h.table.ConnectionFor(userID)
	if !ok {
		return false
	}
	h.consume(ctx, conn, e)
	return true
}

func (h *Hub) consume(ctx context.Context, conn contract.Connection, e event.ServerEvent) {
	if err := conn.Consume(ctx, e); err != nil {
		// Closed transport or shed on a full buffer: normal, non-fatal
		h.monitor.IncrEventsDropped()
		h.log.Debug(fmt.Sprintf("Dropped %s event for connection %s: %v", e.EventName(), conn.ID(), err))
		return
	}
	h.monitor.IncrEventsDelivered()
}
