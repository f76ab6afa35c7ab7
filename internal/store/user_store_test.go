package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserStoreCreate(t *testing.T) {
	users := NewUserStore(openTestDB(t))

	user, err := users.Create(context.Background(), "ana@example.com", "Ana", "$2a$10$hash")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "ana@example.com", user.Email)
	assert.Equal(t, "Ana", user.Name)
	assert.Equal(t, "$2a$10$hash", user.PasswordHash)
}

func TestUserStoreCreate_DuplicateEmail(t *testing.T) {
	users := NewUserStore(openTestDB(t))
	ctx := context.Background()

	_, err := users.Create(ctx, "ana@example.com", "Ana", "hash")
	require.NoError(t, err)

	_, err = users.Create(ctx, "ANA@example.com", "Other Ana", "hash")
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestUserStoreGetByEmail(t *testing.T) {
	users := NewUserStore(openTestDB(t))
	ctx := context.Background()

	created, err := users.Create(ctx, "ben@example.com", "Ben", "hash")
	require.NoError(t, err)

	got, err := users.GetByEmail(ctx, "Ben@Example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.ID, got.ID)

	missing, err := users.GetByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
