package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"wander-core/domain"
	"wander-core/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// NotificationRepository persists notifications under a recipient-scoped
// key plus an id index. Recipient-less (broadcast) notifications live
// under the empty recipient segment.
type NotificationRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewNotificationRepository(db *badger.DB, log *slog.Logger) NotificationRepository {
	return NotificationRepository{db: db, log: log}
}

// notificationKey is "ntf:{recipient}:{timestamp_padded}:{uuid}" so a
// recipient's listing is one prefix scan in chronological key order.
func notificationKey(n domain.Notification) string {
	return fmt.Sprintf("ntf:%s:%019d:%s", n.RecipientID, n.CreatedAt.UnixNano(), n.ID)
}

func notificationIDKey(id uuid.UUID) []byte {
	return []byte("ntfid:" + id.String())
}

func (r NotificationRepository) Store(n domain.Notification) error {
	bytes, err := json.Marshal(n)
	if err != nil {
		return err
	}
	key := notificationKey(n)
	return r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(key), bytes); err != nil {
			return err
		}
		return txn.Set(notificationIDKey(n.ID), []byte(key))
	})
}

func (r NotificationRepository) Get(id uuid.UUID) (domain.Notification, error) {
	var n domain.Notification
	err := r.db.View(func(txn *badger.Txn) error {
		found, _, err := readNotification(txn, id)
		if err != nil {
			return err
		}
		n = found
		return nil
	})
	return n, err
}

// MarkRead flips the read flag. ErrNotificationNotFound on unknown ids.
func (r NotificationRepository) MarkRead(id uuid.UUID) (domain.Notification, error) {
	var n domain.Notification
	err := r.db.Update(func(txn *badger.Txn) error {
		found, key, err := readNotification(txn, id)
		if err != nil {
			return err
		}
		found.Read = true
		bytes, err := json.Marshal(found)
		if err != nil {
			return err
		}
		if err := txn.Set(key, bytes); err != nil {
			return err
		}
		n = found
		return nil
	})
	return n, err
}

// MarkAllRead marks every unread notification of a recipient and returns
// how many were touched.
func (r NotificationRepository) MarkAllRead(recipientID string) (int, error) {
	touched := 0
	prefix := []byte(fmt.Sprintf("ntf:%s:", recipientID))
	err := r.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var n domain.Notification
			if err := item.Value(func(v []byte) error { return json.Unmarshal(v, &n) }); err != nil {
				return err
			}
			if n.Read {
				continue
			}
			n.Read = true
			bytes, err := json.Marshal(n)
			if err != nil {
				return err
			}
			if err := txn.Set(item.KeyCopy(nil), bytes); err != nil {
				return err
			}
			touched++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return touched, nil
}

func (r NotificationRepository) Delete(id uuid.UUID) error {
	return r.db.Update(func(txn *badger.Txn) error {
		_, key, err := readNotification(txn, id)
		if err != nil {
			return err
		}
		if err := txn.Delete(key); err != nil {
			return err
		}
		return txn.Delete(notificationIDKey(id))
	})
}

// ListByRecipient returns a recipient's notifications, newest first.
func (r NotificationRepository) ListByRecipient(recipientID string) ([]domain.Notification, error) {
	var out []domain.Notification
	prefix := []byte(fmt.Sprintf("ntf:%s:", recipientID))
	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()
		seekKey := append(append([]byte(nil), prefix...), []byte(maxTimestampPad)...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var n domain.Notification
			if err := item.Value(func(v []byte) error { return json.Unmarshal(v, &n) }); err != nil {
				return err
			}
			out = append(out, n)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func readNotification(txn *badger.Txn, id uuid.UUID) (domain.Notification, []byte, error) {
	item, err := txn.Get(notificationIDKey(id))
	if err == badger.ErrKeyNotFound {
		return domain.Notification{}, nil, errors.ErrNotificationNotFound
	}
	if err != nil {
		return domain.Notification{}, nil, err
	}
	var key []byte
	if err := item.Value(func(v []byte) error {
		key = append([]byte(nil), v...)
		return nil
	}); err != nil {
		return domain.Notification{}, nil, err
	}
	item, err = txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return domain.Notification{}, nil, errors.ErrNotificationNotFound
	}
	if err != nil {
		return domain.Notification{}, nil, err
	}
	var n domain.Notification
	if err := item.Value(func(v []byte) error { return json.Unmarshal(v, &n) }); err != nil {
		return domain.Notification{}, nil, err
	}
	return n, key, nil
}
