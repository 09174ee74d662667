package storage

import (
	"testing"

	"wander-core/domain"
	apperrors "wander-core/errors"

	"github.com/mama165/sdk-go/database"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_PutAndGet(t *testing.T) {
	req := require.New(t)
	_, _, badgerDB, blugeWriter, err := database.SetupBenchmark(database.DefaultPath)
	req.NoError(err)
	defer database.CleanupDB(badgerDB, blugeWriter)

	repo := NewUserRepository(badgerDB)

	// Given no entry, lookups miss with a typed error
	_, err = repo.Profile("ghost")
	req.ErrorIs(err, apperrors.ErrProfileNotFound)

	// When a profile is written, it comes back whole
	req.NoError(repo.Put(domain.Profile{ID: "alice", Username: "Alice", Avatar: "alice.png"}))
	profile, err := repo.Profile("alice")
	req.NoError(err)
	req.Equal("Alice", profile.Username)
	req.Equal("alice.png", profile.Avatar)

	// And a rewrite replaces the previous attributes
	req.NoError(repo.Put(domain.Profile{ID: "alice", Username: "Alice B."}))
	profile, err = repo.Profile("alice")
	req.NoError(err)
	req.Equal("Alice B.", profile.Username)
	req.Empty(profile.Avatar)
}
