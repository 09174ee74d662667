package realtime

import (
	"context"
	stderrors "errors"
	"log/slog"
	"testing"
	"time"

	"wander-core/contract"
	"wander-core/domain"
	"wander-core/domain/event"
	apperrors "wander-core/errors"
	"wander-core/moderation"
	"wander-core/observability"
	"wander-core/presence"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type recordingConn struct {
	id     string
	events []event.ServerEvent
}

func (c *recordingConn) ID() string { return c.id }

func (c *recordingConn) Consume(_ context.Context, e event.ServerEvent) error {
	c.events = append(c.events, e)
	return nil
}

type sheddingConn struct {
	id string
}

func (c sheddingConn) ID() string { return c.id }

func (c sheddingConn) Consume(_ context.Context, _ event.ServerEvent) error {
	return apperrors.ErrSlowConsumer
}

func (c *recordingConn) named(name string) []event.ServerEvent {
	var out []event.ServerEvent
	for _, e := range c.events {
		if e.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}

type memMessages struct {
	byID map[uuid.UUID]domain.Message
}

func newMemMessages() *memMessages {
	return &memMessages{byID: make(map[uuid.UUID]domain.Message)}
}

func (m *memMessages) Store(msg domain.Message) error {
	m.byID[msg.ID] = msg
	return nil
}

func (m *memMessages) Get(id uuid.UUID) (domain.Message, error) {
	msg, ok := m.byID[id]
	if !ok {
		return domain.Message{}, apperrors.ErrMessageNotFound
	}
	return msg, nil
}

func (m *memMessages) UpdateStatus(id uuid.UUID, status domain.MessageStatus) (domain.Message, error) {
	msg, ok := m.byID[id]
	if !ok {
		return domain.Message{}, apperrors.ErrMessageNotFound
	}
	msg.Status = status
	m.byID[id] = msg
	return msg, nil
}

func (m *memMessages) Thread(_, _ string, _ *string) ([]domain.Message, *string, error) {
	return nil, nil, nil
}

func (m *memMessages) ChatHeads(_ string) ([]contract.ChatHead, error) {
	return nil, nil
}

type memNotifications struct {
	byID map[uuid.UUID]domain.Notification
}

func newMemNotifications() *memNotifications {
	return &memNotifications{byID: make(map[uuid.UUID]domain.Notification)}
}

func (m *memNotifications) Store(n domain.Notification) error {
	m.byID[n.ID] = n
	return nil
}

func (m *memNotifications) Get(id uuid.UUID) (domain.Notification, error) {
	n, ok := m.byID[id]
	if !ok {
		return domain.Notification{}, apperrors.ErrNotificationNotFound
	}
	return n, nil
}

func (m *memNotifications) MarkRead(id uuid.UUID) (domain.Notification, error) {
	n, ok := m.byID[id]
	if !ok {
		return domain.Notification{}, apperrors.ErrNotificationNotFound
	}
	n.Read = true
	m.byID[id] = n
	return n, nil
}

func (m *memNotifications) MarkAllRead(recipientID string) (int, error) {
	touched := 0
	for id, n := range m.byID {
		if n.RecipientID == recipientID && !n.Read {
			n.Read = true
			m.byID[id] = n
			touched++
		}
	}
	return touched, nil
}

func (m *memNotifications) Delete(id uuid.UUID) error {
	delete(m.byID, id)
	return nil
}

func (m *memNotifications) ListByRecipient(_ string) ([]domain.Notification, error) {
	return nil, nil
}

type memSearch struct {
	indexed []domain.Message
}

func (s *memSearch) Index(msg domain.Message) error {
	s.indexed = append(s.indexed, msg)
	return nil
}

func (s *memSearch) Search(_ context.Context, _, _ string, _ int) ([]uuid.UUID, error) {
	return nil, nil
}

type memDirectory struct {
	profiles map[string]domain.Profile
}

func (d *memDirectory) Profile(userID string) (domain.Profile, error) {
	profile, ok := d.profiles[userID]
	if !ok {
		return domain.Profile{}, apperrors.ErrProfileNotFound
	}
	return profile, nil
}

type fixture struct {
	table         *presence.Table
	hub           *Hub
	lifecycle     *Lifecycle
	router        *Router
	tracker       *StatusTracker
	notifier      *Notifier
	messages      *memMessages
	notifications *memNotifications
	search        *memSearch
}

func newFixture(t *testing.T, legacyBroadcast bool) *fixture {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	moderator, err := moderation.NewModerator([]string{"scammer"}, '*')
	require.NoError(t, err)

	table := presence.NewTable()
	monitor := observability.NewMonitor()
	hub := NewHub(log, table, monitor, legacyBroadcast)
	messages := newMemMessages()
	notifications := newMemNotifications()
	search := &memSearch{}
	directory := &memDirectory{profiles: map[string]domain.Profile{
		"alice": {ID: "alice", Username: "Alice", Avatar: "alice.png"},
	}}
	now := func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

	return &fixture{
		table:         table,
		hub:           hub,
		lifecycle:     NewLifecycle(log, table, hub),
		router:        NewRouter(log, messages, search, directory, moderator, hub, monitor, now),
		tracker:       NewStatusTracker(log, messages, hub, monitor),
		notifier:      NewNotifier(log, notifications, hub, monitor, now),
		messages:      messages,
		notifications: notifications,
		search:        search,
	}
}

func (f *fixture) connect(t *testing.T, ctx context.Context, userID string) *recordingConn {
	t.Helper()
	conn := &recordingConn{id: uuid.NewString()}
	require.NoError(t, f.lifecycle.Bind(ctx, conn, userID))
	return conn
}

func TestRouter_SendToOnlineReceiver(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t, false)

	// Given two connected users and a bystander
	alice := f.connect(t, ctx, "alice")
	bob := f.connect(t, ctx, "bob")
	carol := f.connect(t, ctx, "carol")

	// When alice sends bob a message
	msg, err := f.router.Send(ctx, domain.SendMessageCommand{
		SenderID:   "alice",
		ReceiverID: "bob",
		Text:       "see you in Lisbon",
	})

	// Then it is persisted as sent and delivered to both parties
	req.NoError(err)
	req.Equal(domain.StatusSent, msg.Status)
	stored, err := f.messages.Get(msg.ID)
	req.NoError(err)
	req.Equal("see you in Lisbon", stored.Text)

	req.Len(bob.named(event.ReceiveMessage), 1)
	req.Len(alice.named(event.ReceiveMessage), 1)

	// And only the receiver gets the lightweight alert
	alerts := bob.named(event.NewMessageNotification)
	req.Len(alerts, 1)
	req.Equal("alice", alerts[0].(event.MessageAlert).SenderID)
	req.Empty(alice.named(event.NewMessageNotification))

	// And the bystander hears nothing about the conversation
	req.Empty(carol.named(event.ReceiveMessage))
	req.Empty(carol.named(event.NewMessageNotification))

	// And sender projection comes from the directory, receiver falls back to its id
	req.Equal("Alice", msg.Sender.Username)
	req.Equal("bob", msg.Receiver.Username)
}

func TestRouter_SendToOfflineReceiverStoresOnly(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t, false)

	// Given only the sender is connected
	alice := f.connect(t, ctx, "alice")

	// When she messages an offline user
	msg, err := f.router.Send(ctx, domain.SendMessageCommand{
		SenderID:   "alice",
		ReceiverID: "bob",
		Text:       "ping me when you land",
	})

	// Then the message is stored and the sender still gets her echo
	req.NoError(err)
	_, err = f.messages.Get(msg.ID)
	req.NoError(err)
	req.Len(alice.named(event.ReceiveMessage), 1)
	req.Empty(alice.named(event.ErrorName))
}

func TestRouter_SendCensorsAndIndexes(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t, false)
	f.connect(t, ctx, "alice")

	msg, err := f.router.Send(ctx, domain.SendMessageCommand{
		SenderID:   "alice",
		ReceiverID: "bob",
		Text:       "that guy is a scammer",
	})

	req.NoError(err)
	req.Equal("that guy is a *******", msg.Text)
	req.Len(f.search.indexed, 1)
	req.Equal(msg.ID, f.search.indexed[0].ID)
}

func TestRouter_MalformedReceiverRejectedWithoutPersisting(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t, false)
	f.connect(t, ctx, "alice")

	_, err := f.router.Send(ctx, domain.SendMessageCommand{
		SenderID:   "alice",
		ReceiverID: "not a valid id!",
		Text:       "hi",
	})

	var validation apperrors.ValidationError
	req.ErrorAs(err, &validation)
	req.Empty(f.messages.byID)
	req.Empty(f.search.indexed)
}

func TestStatusTracker_UpdateReachesBothParties(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t, false)
	alice := f.connect(t, ctx, "alice")
	bob := f.connect(t, ctx, "bob")
	carol := f.connect(t, ctx, "carol")

	msg, err := f.router.Send(ctx, domain.SendMessageCommand{
		SenderID: "alice", ReceiverID: "bob", Text: "hey",
	})
	req.NoError(err)

	updated, applied, err := f.tracker.UpdateStatus(ctx, domain.UpdateStatusCommand{
		MessageID: msg.ID,
		Status:    domain.StatusRead,
	})

	req.NoError(err)
	req.True(applied)
	req.Equal(domain.StatusRead, updated.Status)

	stored, err := f.messages.Get(msg.ID)
	req.NoError(err)
	req.Equal(domain.StatusRead, stored.Status)

	req.Len(alice.named(event.MessageStatusUpdated), 1)
	req.Len(bob.named(event.MessageStatusUpdated), 1)
	req.Empty(carol.named(event.MessageStatusUpdated))
}

func TestStatusTracker_UnknownMessageIsSilentNoOp(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t, false)
	alice := f.connect(t, ctx, "alice")

	_, applied, err := f.tracker.UpdateStatus(ctx, domain.UpdateStatusCommand{
		MessageID: uuid.New(),
		Status:    domain.StatusDelivered,
	})

	req.NoError(err)
	req.False(applied)
	req.Empty(alice.named(event.MessageStatusUpdated))
	req.Empty(alice.named(event.ErrorName))
}

func TestStatusTracker_InvalidStatusRejected(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t, false)

	_, applied, err := f.tracker.UpdateStatus(ctx, domain.UpdateStatusCommand{
		MessageID: uuid.New(),
		Status:    domain.MessageStatus("archived"),
	})

	var validation apperrors.ValidationError
	req.ErrorAs(err, &validation)
	req.False(applied)
}

func TestLifecycle_PresenceSnapshotFollowsConnections(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t, false)

	// Given two users come online
	alice := f.connect(t, ctx, "alice")
	bob := f.connect(t, ctx, "bob")

	snapshots := bob.named(event.UpdateOnlineUsers)
	req.Len(snapshots, 1)
	req.Len(snapshots[0].(event.OnlineUsers).Users, 2)

	// When bob disconnects
	f.lifecycle.Unbind(ctx, bob)

	// Then the remaining user sees a one-entry snapshot
	snapshots = alice.named(event.UpdateOnlineUsers)
	last := snapshots[len(snapshots)-1].(event.OnlineUsers)
	req.Len(last.Users, 1)
	req.Equal("alice", last.Users[0].ID)

	// And unbinding an unknown connection is harmless
	f.lifecycle.Unbind(ctx, &recordingConn{id: uuid.NewString()})
}

func TestLifecycle_StaleDisconnectKeepsFreshBinding(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t, false)

	// Given bob rebound on a fresh transport before the old one closed
	old := f.connect(t, ctx, "bob")
	fresh := f.connect(t, ctx, "bob")

	// When the old transport reports its disconnect
	f.lifecycle.Unbind(ctx, old)

	// Then bob stays online on the fresh connection
	req.Equal([]string{"bob"}, f.table.OnlineUserIDs())
	req.True(f.hub.Push(ctx, "bob", event.MessageAlert{SenderID: "alice", Text: "hi"}))
	req.Len(fresh.named(event.NewMessageNotification), 1)
	req.Empty(old.named(event.NewMessageNotification))
}

func TestHub_ShedDeliveryCountsAsDropped(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	table := presence.NewTable()
	monitor := observability.NewMonitor()
	hub := NewHub(log, table, monitor, false)

	// Given a bound connection that sheds everything
	table.SetOnline("bob", sheddingConn{id: uuid.NewString()})

	// When an event is pushed at it
	hub.Push(ctx, "bob", event.MessageAlert{SenderID: "alice", Text: "hi"})

	// Then the monitor records a drop, not a delivery
	stats := monitor.Snapshot(len(table.OnlineUserIDs()))
	req.Equal(uint64(1), stats.EventsDropped)
	req.Zero(stats.EventsDelivered)
}

func TestLifecycle_RejectsMalformedIdentity(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t, false)

	err := f.lifecycle.Bind(ctx, &recordingConn{id: uuid.NewString()}, "white space")

	var validation apperrors.ValidationError
	req.ErrorAs(err, &validation)
	req.Empty(f.table.OnlineUserIDs())
}

func TestNotifier_TargetedPushReachesRecipientOnly(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t, false)
	alice := f.connect(t, ctx, "alice")
	bob := f.connect(t, ctx, "bob")

	created, err := f.notifier.Create(ctx, domain.CreateNotificationCommand{
		RecipientID: "bob",
		SenderID:    "alice",
		Content:     "alice liked your trip to Porto",
		Type:        "like",
	})

	req.NoError(err)
	req.False(created.Broadcast())
	req.Len(bob.named(event.PersonalNotification), 1)
	req.Empty(alice.named(event.PersonalNotification))
}

func TestNotifier_AnnouncementReachesEveryone(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t, false)
	alice := f.connect(t, ctx, "alice")
	bob := f.connect(t, ctx, "bob")

	created, err := f.notifier.Create(ctx, domain.CreateNotificationCommand{
		Content: "maintenance window tonight",
		Type:    "system",
	})

	req.NoError(err)
	req.True(created.Broadcast())
	req.Len(alice.named(event.NewNotification), 1)
	req.Len(bob.named(event.NewNotification), 1)
}

func TestNotifier_ReadAndDeleteLifecycle(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t, false)
	bob := f.connect(t, ctx, "bob")

	created, err := f.notifier.Create(ctx, domain.CreateNotificationCommand{
		RecipientID: "bob",
		Content:     "new match nearby",
		Type:        "match",
	})
	req.NoError(err)

	// A stranger cannot mark someone else's notification as read
	_, err = f.notifier.MarkRead(ctx, "mallory", created.ID)
	req.True(stderrors.Is(err, apperrors.ErrNotRecipient))
	stored, err := f.notifications.Get(created.ID)
	req.NoError(err)
	req.False(stored.Read)

	// Marking read echoes the updated record to the actor
	updated, err := f.notifier.MarkRead(ctx, "bob", created.ID)
	req.NoError(err)
	req.True(updated.Read)
	req.Len(bob.named(event.NotificationUpdated), 1)

	// A stranger cannot delete someone else's notification
	err = f.notifier.Delete(ctx, "mallory", created.ID)
	req.True(stderrors.Is(err, apperrors.ErrNotRecipient))

	// The recipient can, and hears the removal
	req.NoError(f.notifier.Delete(ctx, "bob", created.ID))
	req.Len(bob.named(event.NotificationDeleted), 1)
	_, err = f.notifications.Get(created.ID)
	req.True(stderrors.Is(err, apperrors.ErrNotificationNotFound))
}

func TestNotifier_MarkAllRead(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t, false)

	for i := 0; i < 3; i++ {
		_, err := f.notifier.Create(ctx, domain.CreateNotificationCommand{
			RecipientID: "bob", Content: "hello there", Type: "like",
		})
		req.NoError(err)
	}

	touched, err := f.notifier.MarkAllRead(ctx, "bob")
	req.NoError(err)
	req.Equal(3, touched)

	touched, err = f.notifier.MarkAllRead(ctx, "bob")
	req.NoError(err)
	req.Zero(touched)
}

func TestHub_LegacyBroadcastDeliversToEveryone(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t, true)
	f.connect(t, ctx, "alice")
	f.connect(t, ctx, "bob")
	carol := f.connect(t, ctx, "carol")

	_, err := f.router.Send(ctx, domain.SendMessageCommand{
		SenderID: "alice", ReceiverID: "bob", Text: "legacy mode",
	})

	// Historical clients expect every private event on every connection
	req.NoError(err)
	req.Len(carol.named(event.ReceiveMessage), 1)
}
