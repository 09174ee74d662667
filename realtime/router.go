package realtime

import (
	"context"
	"fmt"
	"log/slog"

	"wander-core/contract"
	"wander-core/domain"
	"wander-core/domain/event"
	"wander-core/errors"
	"wander-core/moderation"
	"wander-core/observability"

	"github.com/abadojack/whatlanggo"
	"github.com/google/uuid"
)

// Router validates, persists and delivers point-to-point messages.
type Router struct {
	log       *slog.Logger
	messages  contract.IMessageRepository
	search    contract.IMessageSearch
	directory contract.IIdentityDirectory
	moderator *moderation.Moderator
	hub       *Hub
	monitor   *observability.Monitor
	now       contract.Clock
}

func NewRouter(log *slog.Logger, messages contract.IMessageRepository,
	search contract.IMessageSearch, directory contract.IIdentityDirectory,
	moderator *moderation.Moderator, hub *Hub, monitor *observability.Monitor,
	now contract.Clock) *Router {
	return &Router{
		log:       log,
		messages:  messages,
		search:    search,
		directory: directory,
		moderator: moderator,
		hub:       hub,
		monitor:   monitor,
		now:       now,
	}
}

// Send routes one message: validate, censor, persist with status sent,
// annotate display projections, then deliver to live connections and push
// the lightweight alert to the receiver. The write is attempted at most
// once; a store failure surfaces to the sender and nothing is delivered.
func (r *Router) Send(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error) {
	if err := cmd.Validate(); err != nil {
		return domain.Message{}, err
	}

	text, censoredWords := r.moderator.Censor(cmd.Text)
	info := whatlanggo.Detect(cmd.Text)
	if len(censoredWords) > 0 {
		r.log.Warn("Censored outgoing message",
			"sender", cmd.SenderID,
			"lang", info.Lang.Iso6391(),
			"words", len(censoredWords))
	}

	msg := domain.Message{
		ID:         uuid.New(),
		SenderID:   cmd.SenderID,
		ReceiverID: cmd.ReceiverID,
		Text:       text,
		Lang:       info.Lang.Iso6391(),
		Status:     domain.StatusSent,
		CreatedAt:  r.now().UTC(),
	}

	if err := r.messages.Store(msg); err != nil {
		return domain.Message{}, errors.PersistenceError{Op: "message store", Err: err}
	}
	if err := r.search.Index(msg); err != nil {
		// Search is best-effort; the message itself is safe
		r.log.Warn("Failed to index message", "id", msg.ID, "error", err)
	}
	r.monitor.IncrMessagesRouted()

	msg.Sender = r.profileOf(cmd.SenderID)
	msg.Receiver = r.profileOf(cmd.ReceiverID)

	// The store call was a suspension point: presence is re-checked now,
	// and a receiver that vanished in between is simply offline.
	r.hub.Deliver(ctx, event.MessageReceived{Message: msg}, msg.SenderID, msg.ReceiverID)
	r.hub.Push(ctx, msg.ReceiverID, event.MessageAlert{SenderID: msg.SenderID, Text: msg.Text})

	return msg, nil
}

// profileOf resolves a display projection, falling back to the raw id so
// a missing directory entry never blocks delivery.
func (r *Router) profileOf(userID string) domain.Profile {
	profile, err := r.directory.Profile(userID)
	if err != nil {
		r.log.Debug(fmt.Sprintf("No profile for %s, using id as display name", userID))
		return domain.Profile{ID: userID, Username: userID}
	}
	if profile.ID == "" {
		profile.ID = userID
	}
	return profile
}
