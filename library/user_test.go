package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUserValidation(t *testing.T) {
	v := NewValidator(testMeta())

	_, err := NewUser(v, "", "hash", UserPatron, 3)
	assert.ErrorIs(t, err, ErrInvalidUsername)

	_, err = NewUser(v, "alice", "", UserPatron, 3)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "password", verr.Field)

	_, err = NewUser(v, "alice", "hash", UserType("librarian"), 3)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "userType", verr.Field)

	_, err = NewUser(v, "alice", "hash", UserPatron, -1)
	assert.ErrorIs(t, err, ErrInvalidRentalCount)
}

func TestAllowedToRentDerivation(t *testing.T) {
	v := NewValidator(testMeta())
	u, err := NewUser(v, "alice", "hash", UserPatron, 3)
	require.NoError(t, err)

	assert.True(t, u.AllowedToRent())

	// An outstanding fee flips the derivation, nothing else changes.
	require.NoError(t, u.SetLateFee(1.0))
	assert.False(t, u.AllowedToRent())
	assert.Equal(t, "alice", u.Username())
	assert.Equal(t, 0, u.CurrentRentals())
	assert.Equal(t, 3, u.AllowedRentals())

	require.NoError(t, u.SetLateFee(0))
	assert.True(t, u.AllowedToRent())

	// Using up the allowance flips it too.
	require.NoError(t, u.SetCurrentRentals(3))
	assert.False(t, u.AllowedToRent())
	require.NoError(t, u.SetCurrentRentals(2))
	assert.True(t, u.AllowedToRent())
}

func TestUserRentalCountInvariant(t *testing.T) {
	v := NewValidator(testMeta())
	u, err := NewUser(v, "alice", "hash", UserPatron, 2)
	require.NoError(t, err)

	assert.ErrorIs(t, u.SetCurrentRentals(3), ErrInvalidRentalCount)
	assert.Equal(t, 0, u.CurrentRentals(), "failed mutation must not stick")

	require.NoError(t, u.SetCurrentRentals(2))
	assert.ErrorIs(t, u.SetAllowedRentals(1), ErrInvalidRentalCount)
	assert.Equal(t, 2, u.AllowedRentals())
}

func TestUserHandlerLogin(t *testing.T) {
	env := newTestEnv()
	_, err := env.users.Create("alice", "secret", UserPatron, 3)
	require.NoError(t, err)

	ok, err := env.users.Login("alice", "secret")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = env.users.Login("alice", "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	// Unknown usernames fail closed without touching storage.
	env.repo.failOn = "fetch all"
	ok, err = env.users.Login("nobody", "secret")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUserHandlerUniqueUsernames(t *testing.T) {
	env := newTestEnv()
	u, err := env.users.Create("alice", "secret", UserPatron, 3)
	require.NoError(t, err)

	_, err = env.users.Create("alice", "other", UserAdmin, 1)
	assert.ErrorIs(t, err, ErrInvalidUsername)

	// Soft-deleting frees the name; undo-delete then refuses to resurrect
	// the duplicate.
	require.NoError(t, env.users.Delete(u.ID()))
	_, err = env.users.Create("alice", "other", UserAdmin, 1)
	require.NoError(t, err)

	err = env.users.UndoDelete(u.ID())
	assert.ErrorIs(t, err, ErrInvalidUsername)
}

func TestUserHandlerUpdateKeepsUsernamesUnique(t *testing.T) {
	env := newTestEnv()
	alice, err := env.users.Create("alice", "secret", UserPatron, 3)
	require.NoError(t, err)
	_, err = env.users.Create("bob", "secret", UserPatron, 3)
	require.NoError(t, err)

	// Renaming onto another active user's name is rejected and nothing is
	// persisted.
	require.NoError(t, alice.SetUsername("bob"))
	assert.ErrorIs(t, env.users.Update(alice), ErrInvalidUsername)

	stored, err := env.users.GetByID(alice.ID(), false)
	require.NoError(t, err)
	assert.Equal(t, "alice", stored.Username())

	// A rename to a free name goes through and the cache follows, so Login
	// works under the new name and no longer under the old one.
	require.NoError(t, alice.SetUsername("alicia"))
	require.NoError(t, env.users.Update(alice))

	ok, err := env.users.Login("alicia", "secret")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = env.users.Login("alice", "secret")
	require.NoError(t, err)
	assert.False(t, ok)

	// The freed name may be taken again.
	_, err = env.users.Create("alice", "other", UserPatron, 1)
	require.NoError(t, err)
}

func TestUserHandlerSetupRefreshesCache(t *testing.T) {
	env := newTestEnv()
	_, err := env.users.Create("alice", "secret", UserPatron, 3)
	require.NoError(t, err)
	_, err = env.users.Create("bob", "secret", UserPatron, 3)
	require.NoError(t, err)

	// A second handler over the same storage starts cold until Setup.
	fresh := NewUserHandler(env.repo, env.v, NewUsernameCache())
	ok, err := fresh.Login("alice", "secret")
	require.NoError(t, err)
	assert.False(t, ok, "cold cache fails closed")

	require.NoError(t, fresh.Setup())
	ok, err = fresh.Login("alice", "secret")
	require.NoError(t, err)
	assert.True(t, ok)
}
