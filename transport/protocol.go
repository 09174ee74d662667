package transport

import (
	"encoding/json"
	"fmt"

	"wander-core/domain/event"

	"github.com/google/uuid"
)

// Envelope frames every line on the wire, in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type ConnectPayload struct {
	UserID string `json:"userId"`
}

type SendMessagePayload struct {
	ReceiverID string `json:"receiverId"`
	Text       string `json:"text"`
}

type UpdateStatusPayload struct {
	MessageID uuid.UUID `json:"messageId"`
	Status    string    `json:"status"`
}

type MarkReadPayload struct {
	NotificationID uuid.UUID `json:"notificationId"`
}

// DecodeEnvelope parses one wire line. The payload stays raw so the
// dispatcher can bind it to the right command type.
func DecodeEnvelope(line []byte) (Envelope, error) {
	var envelope Envelope
	if err := json.Unmarshal(line, &envelope); err != nil {
		return Envelope{}, fmt.Errorf("malformed envelope: %w", err)
	}
	if envelope.Event == "" {
		return Envelope{}, fmt.Errorf("envelope without event name")
	}
	return envelope, nil
}

// EncodeEvent frames a server event as one newline-terminated wire line.
func EncodeEvent(e event.ServerEvent) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", e.EventName(), err)
	}
	line, err := json.Marshal(Envelope{Event: e.EventName(), Data: data})
	if err != nil {
		return nil, fmt.Errorf("encoding %s envelope: %w", e.EventName(), err)
	}
	return append(line, '\n'), nil
}
