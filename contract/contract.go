package contract

import (
	"context"
	"reflect"
	"time"

	"wander-core/domain"
	"wander-core/domain/event"

	"github.com/google/uuid"
)

// EventSink receives server events destined for one consumer.
type EventSink interface {
	Consume(ctx context.Context, e event.ServerEvent) error
}

// Connection is the opaque handle for one live bidirectional channel.
// It exists only while the transport session is open and is never
// embedded inside persisted entities.
type Connection interface {
	EventSink
	ID() string
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

type WorkerName string

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker
// lifecycle events, avoiding manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// IPresenceTable is the single source of truth for who is online.
type IPresenceTable interface {
	SetOnline(userID string, conn Connection)
	SetOffline(connID string) (string, bool)
	ConnectionFor(userID string) (Connection, bool)
	UserFor(connID string) (string, bool)
	OnlineUserIDs() []string
	Connections() []Connection
}

// IIdentityDirectory resolves opaque ids to display projections.
// External collaborator, consumed read-only.
type IIdentityDirectory interface {
	Profile(userID string) (domain.Profile, error)
}

// IProfileWriter is the producer side of the identity directory. The
// realtime core never writes profiles; only the HTTP surface does.
type IProfileWriter interface {
	Put(profile domain.Profile) error
}

// ChatHead is the most-recent message of one conversation counterpart.
type ChatHead struct {
	PeerID string
	Last   domain.Message
}

type IMessageRepository interface {
	Store(msg domain.Message) error
	Get(id uuid.UUID) (domain.Message, error)
	UpdateStatus(id uuid.UUID, status domain.MessageStatus) (domain.Message, error)
	Thread(a, b string, cursor *string) ([]domain.Message, *string, error)
	ChatHeads(userID string) ([]ChatHead, error)
}

type INotificationRepository interface {
	Store(n domain.Notification) error
	Get(id uuid.UUID) (domain.Notification, error)
	MarkRead(id uuid.UUID) (domain.Notification, error)
	MarkAllRead(recipientID string) (int, error)
	Delete(id uuid.UUID) error
	ListByRecipient(recipientID string) ([]domain.Notification, error)
}

// IMessageSearch indexes message bodies for full-text lookup.
type IMessageSearch interface {
	Index(msg domain.Message) error
	Search(ctx context.Context, userID, query string, limit int) ([]uuid.UUID, error)
}

// Clock exists so tests can pin timestamps.
type Clock func() time.Time
