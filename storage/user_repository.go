package storage

import (
	"encoding/json"

	"wander-core/domain"
	"wander-core/errors"

	"github.com/dgraph-io/badger/v4"
)

// UserRepository is the store-backed identity directory. The realtime core
// consumes it read-only; Put exists for seeding and for the account
// collaborator that owns the identity space.
type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) UserRepository {
	return UserRepository{db: db}
}

func userKey(id string) []byte {
	return []byte("usr:" + id)
}

func (r UserRepository) Profile(userID string) (domain.Profile, error) {
	var profile domain.Profile
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(userID))
		if err == badger.ErrKeyNotFound {
			return errors.ErrProfileNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error { return json.Unmarshal(v, &profile) })
	})
	if err != nil {
		return domain.Profile{}, err
	}
	return profile, nil
}

func (r UserRepository) Put(profile domain.Profile) error {
	bytes, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(userKey(profile.ID), bytes)
	})
}
