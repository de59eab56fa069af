package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidUsername(t *testing.T) {
	for _, name := range []string{"bob", "alice_1", "a-b-c", "X9Z"} {
		assert.True(t, ValidUsername(name), name)
	}
	for _, name := range []string{"", "ab", "_bob", "bob-", "bo b", "bob!", "abcdefghijklmnopqrstuvwxyz1234567"} {
		assert.False(t, ValidUsername(name), name)
	}
}

func TestUserService_RegisterAndAuthenticate(t *testing.T) {
	svc := newTestUserService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "  alice ", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Empty(t, user.PasswordHash)
	assert.NotZero(t, user.ID)

	authed, err := svc.Authenticate(ctx, "alice", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, authed.ID)
	assert.Empty(t, authed.PasswordHash)

	_, err = svc.Authenticate(ctx, "alice", "wrong password")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody", "correct horse")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUserService_RegisterValidation(t *testing.T) {
	svc := newTestUserService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "a", "long enough")
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Register(ctx, "alice", "short")
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "at least 8 characters")

	_, err = svc.Register(ctx, "alice", strings.Repeat("a", 73))
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "at most 72 bytes")

	_, err = svc.Register(ctx, "alice", strings.Repeat("a", 72))
	require.NoError(t, err)
}

func TestUserService_RegisterDuplicate(t *testing.T) {
	svc := newTestUserService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "password1")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "alice", "password2")
	require.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestUserService_ListAndLookup(t *testing.T) {
	svc := newTestUserService(t)
	ctx := context.Background()

	users, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	alice, err := svc.Register(ctx, "alice", "password1")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "bob", "password2")
	require.NoError(t, err)

	users, err = svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	for _, u := range users {
		assert.Empty(t, u.PasswordHash)
	}

	got, err := svc.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	got, err = svc.GetByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", got.Username)

	_, err = svc.GetByID(ctx, 999)
	require.ErrorIs(t, err, ErrUserNotFound)
	_, err = svc.GetByUsername(ctx, "carol")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_Rename(t *testing.T) {
	svc := newTestUserService(t)
	ctx := context.Background()

	alice, err := svc.Register(ctx, "alice", "password1")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "bob", "password2")
	require.NoError(t, err)

	require.NoError(t, svc.Rename(ctx, alice.ID, "alicia"))
	got, err := svc.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alicia", got.Username)

	require.ErrorIs(t, svc.Rename(ctx, alice.ID, "bob"), ErrUserAlreadyExists)
	require.ErrorIs(t, svc.Rename(ctx, 404, "zed_1"), ErrUserNotFound)
	require.ErrorIs(t, svc.Rename(ctx, alice.ID, "!"), ErrInvalidInput)
}
