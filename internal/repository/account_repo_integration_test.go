//go:build integration

package repository

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zylorb/internal/database"
	"zylorb/internal/model"
)

func newPostgresRepository(t *testing.T) *AccountRepository {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.Open(ctx, database.Options{URL: url, MaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))

	return NewAccountRepository(db.Pool)
}

func TestPostgresAccountLifecycle(t *testing.T) {
	repo := newPostgresRepository(t)
	ctx := context.Background()

	suffix := uuid.NewString()[:8]
	account := sampleAccount(uuid.NewString(), "pg_"+suffix, "pg_"+suffix+"@example.com")
	require.NoError(t, repo.Insert(ctx, account))

	got, err := repo.FindByEmail(ctx, "PG_"+suffix+"@EXAMPLE.COM")
	require.NoError(t, err)
	assert.Equal(t, account.ID, got.ID)
	assert.Equal(t, account.PasswordHash, got.PasswordHash)

	got, err = repo.FindByUsername(ctx, "PG_"+suffix)
	require.NoError(t, err)
	assert.Equal(t, account.ID, got.ID)

	dup := sampleAccount(uuid.NewString(), "other_"+suffix, account.Email)
	require.ErrorIs(t, repo.Insert(ctx, dup), model.ErrDuplicateAccount)

	account.Zone = "gaming"
	require.NoError(t, repo.Update(ctx, account))
	got, err = repo.FindByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "gaming", got.Zone)

	_, err = repo.FindByID(ctx, uuid.NewString())
	require.ErrorIs(t, err, model.ErrAccountNotFound)
	require.ErrorIs(t, repo.Update(ctx, sampleAccount(uuid.NewString(), "x", "x@example.com")), model.ErrAccountNotFound)
}
