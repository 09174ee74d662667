package storage

import (
	"testing"
	"time"

	"wander-core/domain"
	"wander-core/errors"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/database"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func newNotification(recipient string, at time.Time) domain.Notification {
	return domain.Notification{
		ID:          uuid.New(),
		RecipientID: recipient,
		SenderID:    "u9",
		Content:     "u9 started following you",
		Type:        "follow",
		CreatedAt:   at,
	}
}

func Test_Store_And_List_Newest_First(t *testing.T) {
	req := require.New(t)
	_, log, badgerDB, blugeWriter, err := database.SetupBenchmark(database.DefaultPath)
	req.NoError(err)
	defer database.CleanupDB(badgerDB, blugeWriter)

	repository := NewNotificationRepository(badgerDB, log)
	at := time.Now().UTC()
	oldest := newNotification("u1", at)
	newest := newNotification("u1", at.Add(time.Minute))
	other := newNotification("u2", at)
	for _, n := range []domain.Notification{oldest, newest, other} {
		req.NoError(repository.Store(n))
	}

	listed, err := repository.ListByRecipient("u1")
	req.NoError(err)
	req.Equal([]domain.Notification{newest, oldest}, listed)
}

func Test_MarkRead_Flips_Flag(t *testing.T) {
	req := require.New(t)
	_, log, badgerDB, blugeWriter, err := database.SetupBenchmark(database.DefaultPath)
	req.NoError(err)
	defer database.CleanupDB(badgerDB, blugeWriter)

	repository := NewNotificationRepository(badgerDB, log)
	n := newNotification("u1", time.Now().UTC())
	req.NoError(repository.Store(n))

	updated, err := repository.MarkRead(n.ID)
	req.NoError(err)
	req.True(updated.Read)

	got, err := repository.Get(n.ID)
	req.NoError(err)
	req.True(got.Read)
}

func Test_MarkRead_Unknown_Notification(t *testing.T) {
	req := require.New(t)
	_, log, badgerDB, blugeWriter, err := database.SetupBenchmark(database.DefaultPath)
	req.NoError(err)
	defer database.CleanupDB(badgerDB, blugeWriter)

	repository := NewNotificationRepository(badgerDB, log)
	_, err = repository.MarkRead(uuid.New())
	req.ErrorIs(err, errors.ErrNotificationNotFound)
}

func Test_MarkAllRead_Leaves_Zero_Unread(t *testing.T) {
	req := require.New(t)
	_, log, badgerDB, blugeWriter, err := database.SetupBenchmark(database.DefaultPath)
	req.NoError(err)
	defer database.CleanupDB(badgerDB, blugeWriter)

	repository := NewNotificationRepository(badgerDB, log)
	at := time.Now().UTC()
	for i := 0; i < 3; i++ {
		req.NoError(repository.Store(newNotification("u1", at.Add(time.Duration(i)*time.Second))))
	}
	already := newNotification("u1", at.Add(time.Minute))
	already.Read = true
	req.NoError(repository.Store(already))

	touched, err := repository.MarkAllRead("u1")
	req.NoError(err)
	req.Equal(3, touched)

	listed, err := repository.ListByRecipient("u1")
	req.NoError(err)
	unread := lo.Filter(listed, func(n domain.Notification, _ int) bool { return !n.Read })
	req.Empty(unread)
}

func Test_Delete_Removes_Notification(t *testing.T) {
	req := require.New(t)
	_, log, badgerDB, blugeWriter, err := database.SetupBenchmark(database.DefaultPath)
	req.NoError(err)
	defer database.CleanupDB(badgerDB, blugeWriter)

	repository := NewNotificationRepository(badgerDB, log)
	n := newNotification("u1", time.Now().UTC())
	req.NoError(repository.Store(n))

	req.NoError(repository.Delete(n.ID))

	_, err = repository.Get(n.ID)
	req.ErrorIs(err, errors.ErrNotificationNotFound)

	listed, err := repository.ListByRecipient("u1")
	req.NoError(err)
	req.Empty(listed)
}
