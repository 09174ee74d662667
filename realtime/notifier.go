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

	"github.com/google/uuid"
)

// Notifier creates notifications and fans them out, either to every
// live connection for announcements or to the single recipient.
type Notifier struct {
	log           *slog.Logger
	notifications contract.INotificationRepository
	hub           *Hub
	monitor       *observability.Monitor
	now           contract.Clock
}

func NewNotifier(log *slog.Logger, notifications contract.INotificationRepository,
	hub *Hub, monitor *observability.Monitor, now contract.Clock) *Notifier {
	return &Notifier{
		log:           log,
		notifications: notifications,
		hub:           hub,
		monitor:       monitor,
		now:           now,
	}
}

// Create persists a notification and fans it out. An empty recipient
// makes it an announcement for everyone currently online; otherwise it
// is pushed to the recipient alone.
func (n *Notifier) Create(ctx context.Context, cmd domain.CreateNotificationCommand) (domain.Notification, error) {
	if err := cmd.Validate(); err != nil {
		return domain.Notification{}, err
	}

	notification := domain.Notification{
		ID:          uuid.New(),
		RecipientID: cmd.RecipientID,
		SenderID:    cmd.SenderID,
		Content:     cmd.Content,
		Type:        cmd.Type,
		CreatedAt:   n.now().UTC(),
	}
	if err := n.notifications.Store(notification); err != nil {
		return domain.Notification{}, errors.PersistenceError{Op: "notification store", Err: err}
	}
	n.monitor.IncrNotificationsSent()

	if notification.Broadcast() {
		n.hub.Broadcast(ctx, event.NotificationAnnounced{Notification: notification})
	} else {
		n.hub.Push(ctx, notification.RecipientID, event.NotificationPushed{Notification: notification})
	}
	return notification, nil
}

// MarkRead flips one notification to read. Only its recipient may flip
// a targeted notification. The updated record goes back to the actor;
// in legacy mode every connection also hears about it.
func (n *Notifier) MarkRead(ctx context.Context, actorID string, id uuid.UUID) (domain.Notification, error) {
	notification, err := n.notifications.Get(id)
	if err != nil {
		if stderrors.Is(err, errors.ErrNotificationNotFound) {
			return domain.Notification{}, err
		}
		return domain.Notification{}, errors.PersistenceError{Op: "notification get", Err: err}
	}
	if !notification.Broadcast() && notification.RecipientID != actorID {
		return domain.Notification{}, errors.ErrNotRecipient
	}

	notification, err = n.notifications.MarkRead(id)
	if err != nil {
		if stderrors.Is(err, errors.ErrNotificationNotFound) {
			return domain.Notification{}, err
		}
		return domain.Notification{}, errors.PersistenceError{Op: "notification mark read", Err: err}
	}

	n.hub.Deliver(ctx, event.NotificationChanged{Notification: notification}, actorID)
	return notification, nil
}

// MarkAllRead flips every unread notification addressed to the actor.
func (n *Notifier) MarkAllRead(ctx context.Context, actorID string) (int, error) {
	if !domain.ValidIdentity(actorID) {
		return 0, errors.NewValidationError("recipientId", "malformed identity")
	}
	touched, err := n.notifications.MarkAllRead(actorID)
	if err != nil {
		return 0, errors.PersistenceError{Op: "notification mark all read", Err: err}
	}
	if touched > 0 {
		n.log.Info("Marked notifications as read", "recipient", actorID, "count", touched)
	}
	return touched, nil
}

// Delete removes a notification. Only its recipient may delete a
// targeted notification; announcements have no owner to check.
func (n *Notifier) Delete(ctx context.Context, actorID string, id uuid.UUID) error {
	notification, err := n.notifications.Get(id)
	if err != nil {
		if stderrors.Is(err, errors.ErrNotificationNotFound) {
			return err
		}
		return errors.PersistenceError{Op: "notification get", Err: err}
	}
	if !notification.Broadcast() && notification.RecipientID != actorID {
		return errors.ErrNotRecipient
	}
	if err := n.notifications.Delete(id); err != nil {
		return errors.PersistenceError{Op: "notification delete", Err: err}
	}

	n.hub.Deliver(ctx, event.NotificationRemoved{ID: id}, actorID)
	return nil
}
