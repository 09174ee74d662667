// Package event defines the closed set of wire events exchanged over the
// realtime channel. Every server-originated payload implements ServerEvent
// so the transport can wrap it in a tagged envelope without reflection.
package event

import (
	"wander-core/domain"

	"github.com/google/uuid"
)

// Client-originated event names.
const (
	UserConnected       = "userConnected"
	SendMessage         = "sendMessage"
	UpdateMessageStatus = "updateMessageStatus"
	MarkAsRead          = "markAsRead"
	MarkAllRead         = "markAllRead"
)

// Server-originated event names.
const (
	UpdateOnlineUsers      = "updateOnlineUsers"
	ReceiveMessage         = "receiveMessage"
	NewMessageNotification = "newMessageNotification"
	MessageStatusUpdated   = "messageStatusUpdated"
	PersonalNotification   = "personalNotification"
	NewNotification        = "newNotification"
	NotificationUpdated    = "notificationUpdated"
	NotificationDeleted    = "notificationDeleted"
	ErrorName              = "error"
)

type ServerEvent interface {
	EventName() string
}

// OnlineUser is one entry of a presence snapshot.
type OnlineUser struct {
	ID string `json:"id"`
}

// OnlineUsers is the presence snapshot broadcast to every connection.
type OnlineUsers struct {
	Users []OnlineUser `json:"users"`
}

func (OnlineUsers) EventName() string { return UpdateOnlineUsers }

// MessageReceived carries a fully populated message to live connections.
type MessageReceived struct {
	domain.Message
}

func (MessageReceived) EventName() string { return ReceiveMessage }

// MessageAlert is the lightweight push targeted at the receiver only.
type MessageAlert struct {
	SenderID string `json:"senderId"`
	Text     string `json:"text"`
}

func (MessageAlert) EventName() string { return NewMessageNotification }

// StatusUpdated propagates a delivery-status transition.
type StatusUpdated struct {
	MessageID uuid.UUID            `json:"messageId"`
	Status    domain.MessageStatus `json:"status"`
}

func (StatusUpdated) EventName() string { return MessageStatusUpdated }

// NotificationPushed targets the single recipient's connection.
type NotificationPushed struct {
	domain.Notification
}

func (NotificationPushed) EventName() string { return PersonalNotification }

// NotificationAnnounced is a recipient-less notification fanned out to all.
type NotificationAnnounced struct {
	domain.Notification
}

func (NotificationAnnounced) EventName() string { return NewNotification }

type NotificationChanged struct {
	domain.Notification
}

func (NotificationChanged) EventName() string { return NotificationUpdated }

type NotificationRemoved struct {
	ID uuid.UUID `json:"id"`
}

func (NotificationRemoved) EventName() string { return NotificationDeleted }

// Failure is sent to the originating connection only; passive recipients
// never see errors caused by others' actions.
type Failure struct {
	Message string `json:"message"`
}

func (Failure) EventName() string { return ErrorName }
