package storage

import (
	"fmt"
	"sort"
	"testing"
	"time"

	"wander-core/domain"
	"wander-core/errors"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/database"
	"github.com/stretchr/testify/require"
)

func newMessage(sender, receiver, text string, at time.Time) domain.Message {
	return domain.Message{
		ID:         uuid.New(),
		SenderID:   sender,
		ReceiverID: receiver,
		Text:       text,
		Status:     domain.StatusSent,
		CreatedAt:  at,
	}
}

func Test_Store_And_Get_Thread_Sorted(t *testing.T) {
	req := require.New(t)
	_, log, badgerDB, blugeWriter, err := database.SetupBenchmark(database.DefaultPath)
	req.NoError(err)
	defer database.CleanupDB(badgerDB, blugeWriter)

	repository := NewMessageRepository(badgerDB, log, nil)
	at := time.Now().UTC()
	messages := []domain.Message{
		newMessage("u1", "u2", "first", at),
		newMessage("u2", "u1", "second", at.Add(1*time.Minute)),
		newMessage("u1", "u2", "third", at.Add(2*time.Minute)),
	}
	for _, msg := range messages {
		req.NoError(repository.Store(msg))
	}

	// Both directions land in one thread regardless of argument order
	sorted := make([]domain.Message, len(messages))
	copy(sorted, messages)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	fetched, _, err := repository.Thread("u2", "u1", nil)
	req.NoError(err)
	req.Equal(sorted, fetched)
}

func Test_Thread_Pagination(t *testing.T) {
	req := require.New(t)
	_, log, badgerDB, blugeWriter, err := database.SetupBenchmark(database.DefaultPath)
	req.NoError(err)
	defer database.CleanupDB(badgerDB, blugeWriter)

	limit := 4
	repository := NewMessageRepository(badgerDB, log, &limit)
	now := time.Now().UTC()
	for i := 1; i <= 10; i++ {
		msg := newMessage("u1", "u2", fmt.Sprintf("message %d", i), now.Add(time.Duration(i)*time.Minute))
		req.NoError(repository.Store(msg))
	}

	page1, cursor1, err := repository.Thread("u1", "u2", nil)
	req.NoError(err)
	req.Len(page1, 4)
	req.Equal("message 10", page1[0].Text)

	page2, cursor2, err := repository.Thread("u1", "u2", cursor1)
	req.NoError(err)
	req.Len(page2, 4)
	req.Equal("message 6", page2[0].Text)
	req.NotEqual(*cursor1, *cursor2)

	page3, cursor3, err := repository.Thread("u1", "u2", cursor2)
	req.NoError(err)
	req.Len(page3, 2)
	req.Equal("message 1", page3[1].Text)
	// Exhausted scan: no cursor to resume from
	req.Nil(cursor3)
}

func Test_UpdateStatus_Unknown_Message_Is_Absent(t *testing.T) {
	req := require.New(t)
	_, log, badgerDB, blugeWriter, err := database.SetupBenchmark(database.DefaultPath)
	req.NoError(err)
	defer database.CleanupDB(badgerDB, blugeWriter)

	repository := NewMessageRepository(badgerDB, log, nil)

	_, err = repository.UpdateStatus(uuid.New(), domain.StatusRead)
	req.ErrorIs(err, errors.ErrMessageNotFound)
}

func Test_UpdateStatus_Persists_Transition(t *testing.T) {
	req := require.New(t)
	_, log, badgerDB, blugeWriter, err := database.SetupBenchmark(database.DefaultPath)
	req.NoError(err)
	defer database.CleanupDB(badgerDB, blugeWriter)

	repository := NewMessageRepository(badgerDB, log, nil)
	msg := newMessage("u1", "u2", "status check", time.Now().UTC())
	req.NoError(repository.Store(msg))

	updated, err := repository.UpdateStatus(msg.ID, domain.StatusRead)
	req.NoError(err)
	req.Equal(domain.StatusRead, updated.Status)

	// The transition survives a re-read and reaches the chat heads
	got, err := repository.Get(msg.ID)
	req.NoError(err)
	req.Equal(domain.StatusRead, got.Status)

	heads, err := repository.ChatHeads("u2")
	req.NoError(err)
	req.Len(heads, 1)
	req.Equal(domain.StatusRead, heads[0].Last.Status)
}

func Test_ChatHeads_Group_By_Counterpart(t *testing.T) {
	req := require.New(t)
	_, log, badgerDB, blugeWriter, err := database.SetupBenchmark(database.DefaultPath)
	req.NoError(err)
	defer database.CleanupDB(badgerDB, blugeWriter)

	repository := NewMessageRepository(badgerDB, log, nil)
	now := time.Now().UTC()
	req.NoError(repository.Store(newMessage("u1", "u2", "old to u2", now)))
	req.NoError(repository.Store(newMessage("u2", "u1", "latest with u2", now.Add(time.Minute))))
	req.NoError(repository.Store(newMessage("u1", "u3", "only one with u3", now.Add(2*time.Minute))))

	heads, err := repository.ChatHeads("u1")
	req.NoError(err)
	req.Len(heads, 2)

	byPeer := map[string]string{}
	for _, h := range heads {
		byPeer[h.PeerID] = h.Last.Text
	}
	req.Equal("latest with u2", byPeer["u2"])
	req.Equal("only one with u3", byPeer["u3"])
}
