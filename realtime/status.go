package realtime

import (
	"context"
	stderrors "errors"
	"log/slog"

	"wander-core/contract"
	"wander-core/domain"
	"wander-core/domain/event"
	"wander-core/errors"
	"wander-core/observability"
)

// StatusTracker applies delivery-status transitions and echoes them to
// both parties of the conversation.
type StatusTracker struct {
	log      *slog.Logger
	messages contract.IMessageRepository
	hub      *Hub
	monitor  *observability.Monitor
}

func NewStatusTracker(log *slog.Logger, messages contract.IMessageRepository,
	hub *Hub, monitor *observability.Monitor) *StatusTracker {
	return &StatusTracker{log: log, messages: messages, hub: hub, monitor: monitor}
}

// UpdateStatus persists the new status for one message. An unknown
// message id is tolerated silently (the record may already be gone),
// signalled by applied=false with no error. An invalid status is a
// validation failure and is reported to the caller.
func (t *StatusTracker) UpdateStatus(ctx context.Context, cmd domain.UpdateStatusCommand) (domain.Message, bool, error) {
	if err := cmd.Validate(); err != nil {
		return domain.Message{}, false, err
	}

	msg, err := t.messages.UpdateStatus(cmd.MessageID, cmd.Status)
	if err != nil {
		if stderrors.Is(err, errors.ErrMessageNotFound) {
			t.log.Debug("Status update for unknown message", "id", cmd.MessageID)
			return domain.Message{}, false, nil
		}
		return domain.Message{}, false, errors.PersistenceError{Op: "status update", Err: err}
	}
	t.monitor.IncrStatusUpdates()

	t.hub.Deliver(ctx, event.StatusUpdated{MessageID: msg.ID, Status: msg.Status},
		msg.SenderID, msg.ReceiverID)
	return msg, true, nil
}
