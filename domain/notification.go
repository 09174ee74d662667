// This file defines Notification entities raised by producer events
// (new message, follow, system announcements).
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Notification is a persisted alert for a recipient.
// An empty RecipientID addresses no single user: such notifications are
// system-wide announcements fanned out to every live connection.
type Notification struct {
	ID          uuid.UUID `json:"id"`
	RecipientID string    `json:"recipientId,omitempty"`
	SenderID    string    `json:"senderId,omitempty"`
	Content     string    `json:"content"`
	Type        string    `json:"type"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Broadcast reports whether the notification addresses every connected session.
func (n Notification) Broadcast() bool {
	return n.RecipientID == ""
}
