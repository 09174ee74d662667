// Package domain contains core concepts of the realtime messaging system.
// This file defines point-to-point Messages and their delivery status.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"time"

	"github.com/google/uuid"
)

type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
)

// Valid reports whether the status belongs to the closed sent/delivered/read set.
func (s MessageStatus) Valid() bool {
	switch s {
	case StatusSent, StatusDelivered, StatusRead:
		return true
	}
	return false
}

// Message is a persisted point-to-point chat entry.
// The status field is the only mutable part; it is owned by the
// delivery-status tracker once the message exists.
type Message struct {
	ID         uuid.UUID     `json:"id"`
	SenderID   string        `json:"senderId"`
	ReceiverID string        `json:"receiverId"`
	Text       string        `json:"text"`
	Lang       string        `json:"lang,omitempty"` // ISO 639-1, detected at intake
	Status     MessageStatus `json:"status"`
	CreatedAt  time.Time     `json:"createdAt"`

	// Display projections resolved from the identity directory.
	// Transient: never persisted as owned data.
	Sender   Profile `json:"sender,omitempty"`
	Receiver Profile `json:"receiver,omitempty"`
}
