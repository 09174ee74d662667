package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"wander-core/contract"
	"wander-core/domain"
	"wander-core/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const maxTimestampPad = "9999999999999999999"

// storedMessage is the persisted projection of a message. Display
// projections never reach the store.
type storedMessage struct {
	ID         uuid.UUID            `json:"id"`
	SenderID   string               `json:"senderId"`
	ReceiverID string               `json:"receiverId"`
	Text       string               `json:"text"`
	Lang       string               `json:"lang,omitempty"`
	Status     domain.MessageStatus `json:"status"`
	CreatedAt  time.Time            `json:"createdAt"`
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// threadPrefix orders the two participants so both directions of a
// conversation share one key space.
func threadPrefix(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("msg:%s:%s:", a, b)
}

// threadKey is formatted as "msg:{low}:{high}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two messages
//     arrive at the same nanosecond.
func threadKey(m storedMessage) string {
	return fmt.Sprintf("%s%019d:%s", threadPrefix(m.SenderID, m.ReceiverID), m.CreatedAt.UnixNano(), m.ID)
}

func idKey(id uuid.UUID) []byte {
	return []byte("msgid:" + id.String())
}

func headKey(owner, peer string) []byte {
	return []byte(fmt.Sprintf("head:%s:%s", owner, peer))
}

// Store persists a message under its thread key plus an id index (for
// status updates) and two chat-head entries (for the conversation list).
// All four writes share one transaction.
func (m MessageRepository) Store(msg domain.Message) error {
	record := toStored(msg)
	bytes, err := json.Marshal(record)
	if err != nil {
		return err
	}
	key := threadKey(record)
	return m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(key), bytes); err != nil {
			return err
		}
		if err := txn.Set(idKey(record.ID), []byte(key)); err != nil {
			return err
		}
		if err := txn.Set(headKey(record.SenderID, record.ReceiverID), bytes); err != nil {
			return err
		}
		return txn.Set(headKey(record.ReceiverID, record.SenderID), bytes)
	})
}

func (m MessageRepository) Get(id uuid.UUID) (domain.Message, error) {
	var record storedMessage
	err := m.db.View(func(txn *badger.Txn) error {
		found, err := m.readByID(txn, id)
		if err != nil {
			return err
		}
		record = found
		return nil
	})
	if err != nil {
		return domain.Message{}, err
	}
	return fromStored(record), nil
}

// UpdateStatus mutates the status field of an existing message.
// Returns ErrMessageNotFound when the id is unknown; last-write-wins,
// no ordering reconciliation between concurrent transitions.
func (m MessageRepository) UpdateStatus(id uuid.UUID, status domain.MessageStatus) (domain.Message, error) {
	var record storedMessage
	err := m.db.Update(func(txn *badger.Txn) error {
		found, err := m.readByID(txn, id)
		if err != nil {
			return err
		}
		found.Status = status
		bytes, err := json.Marshal(found)
		if err != nil {
			return err
		}
		if err := txn.Set([]byte(threadKey(found)), bytes); err != nil {
			return err
		}
		// Chat heads carry the status too; refresh them only if this
		// message is still the latest one of the conversation.
		for _, hk := range [][]byte{
			headKey(found.SenderID, found.ReceiverID),
			headKey(found.ReceiverID, found.SenderID),
		} {
			item, err := txn.Get(hk)
			if err != nil {
				continue
			}
			var head storedMessage
			if err := item.Value(func(v []byte) error { return json.Unmarshal(v, &head) }); err != nil {
				continue
			}
			if head.ID == found.ID {
				if err := txn.Set(hk, bytes); err != nil {
					return err
				}
			}
		}
		record = found
		return nil
	})
	if err != nil {
		return domain.Message{}, err
	}
	return fromStored(record), nil
}

func (m MessageRepository) readByID(txn *badger.Txn, id uuid.UUID) (storedMessage, error) {
	item, err := txn.Get(idKey(id))
	if err == badger.ErrKeyNotFound {
		return storedMessage{}, errors.ErrMessageNotFound
	}
	if err != nil {
		return storedMessage{}, err
	}
	var key []byte
	if err := item.Value(func(v []byte) error {
		key = append([]byte(nil), v...)
		return nil
	}); err != nil {
		return storedMessage{}, err
	}
	item, err = txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return storedMessage{}, errors.ErrMessageNotFound
	}
	if err != nil {
		return storedMessage{}, err
	}
	var record storedMessage
	if err := item.Value(func(v []byte) error { return json.Unmarshal(v, &record) }); err != nil {
		return storedMessage{}, err
	}
	return record, nil
}

// Thread retrieves the conversation between two identities, newest first,
// using a reverse prefix scan. Thanks to the padded timestamp in the key,
// messages are naturally sorted by time. It stops collecting once the
// configured limitMessages is reached; the returned cursor resumes the scan.
func (m MessageRepository) Thread(a, b string, cursor *string) ([]domain.Message, *string, error) {
	var records []storedMessage
	var lastKey string
	truncated := false
	prefixStr := threadPrefix(a, b)
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			seekKey = append(prefix, []byte(maxTimestampPad)...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)
		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(records) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *m.limitMessages))
				truncated = true
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[len(prefixStr):])
			err := item.Value(func(value []byte) error {
				var record storedMessage
				if err := json.Unmarshal(value, &record); err != nil {
					return err
				}
				records = append(records, record)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	messages := lo.Map(records, func(r storedMessage, _ int) domain.Message {
		return fromStored(r)
	})
	// No cursor once the scan is exhausted: the caller reached the
	// beginning of the conversation.
	if !truncated {
		return messages, nil, nil
	}
	return messages, &lastKey, nil
}

// ChatHeads lists the most-recent message per counterpart for one user,
// the shape the conversation-list screen consumes.
func (m MessageRepository) ChatHeads(userID string) ([]contract.ChatHead, error) {
	var heads []contract.ChatHead
	prefixStr := fmt.Sprintf("head:%s:", userID)
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(prefixStr)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			peer := string(item.Key()[len(prefixStr):])
			err := item.Value(func(value []byte) error {
				var record storedMessage
				if err := json.Unmarshal(value, &record); err != nil {
					return err
				}
				heads = append(heads, contract.ChatHead{PeerID: peer, Last: fromStored(record)})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return heads, nil
}

func toStored(msg domain.Message) storedMessage {
	return storedMessage{
		ID:         msg.ID,
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		Text:       msg.Text,
		Lang:       msg.Lang,
		Status:     msg.Status,
		CreatedAt:  msg.CreatedAt,
	}
}

func fromStored(record storedMessage) domain.Message {
	return domain.Message{
		ID:         record.ID,
		SenderID:   record.SenderID,
		ReceiverID: record.ReceiverID,
		Text:       record.Text,
		Lang:       record.Lang,
		Status:     record.Status,
		CreatedAt:  record.CreatedAt,
	}
}
