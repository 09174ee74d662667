// Package observability aggregates runtime gauges for the heartbeat
// worker and the debug inspector.
package observability

import (
	"sync/atomic"
)

// Stats is a point-in-time snapshot of the realtime core.
type Stats struct {
	OnlineUsers       int    `json:"online_users"`
	MessagesRouted    uint64 `json:"messages_routed"`
	StatusUpdates     uint64 `json:"status_updates"`
	NotificationsSent uint64 `json:"notifications_sent"`
	EventsDelivered   uint64 `json:"events_delivered"`
	EventsDropped     uint64 `json:"events_dropped"`
}

// Monitor collects counters from the delivery path. All increments are
// atomic; the hot path never takes a lock here.
type Monitor struct {
	messagesRouted    atomic.Uint64
	statusUpdates     atomic.Uint64
	notificationsSent atomic.Uint64
	eventsDelivered   atomic.Uint64
	eventsDropped     atomic.Uint64
}

func NewMonitor() *Monitor {
	return &Monitor{}
}

func (m *Monitor) IncrMessagesRouted()    { m.messagesRouted.Add(1) }
func (m *Monitor) IncrStatusUpdates()     { m.statusUpdates.Add(1) }
func (m *Monitor) IncrNotificationsSent() { m.notificationsSent.Add(1) }
func (m *Monitor) IncrEventsDelivered()   { m.eventsDelivered.Add(1) }
func (m *Monitor) IncrEventsDropped()     { m.eventsDropped.Add(1) }

// Snapshot reads every counter; onlineUsers is injected by the caller
// because the presence table owns that number.
func (m *Monitor) Snapshot(onlineUsers int) Stats {
	return Stats{
		OnlineUsers:       onlineUsers,
		MessagesRouted:    m.messagesRouted.Load(),
		StatusUpdates:     m.statusUpdates.Load(),
		NotificationsSent: m.notificationsSent.Load(),
		EventsDelivered:   m.eventsDelivered.Load(),
		EventsDropped:     m.eventsDropped.Load(),
	}
}
