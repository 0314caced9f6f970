package bolt

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobinette/pressroom"
	"github.com/bobinette/pressroom/keyring"
)

func createDriver(t *testing.T) *Driver {
	t.Helper()

	driver := &Driver{}
	err := driver.Open(filepath.Join(t.TempDir(), "pressroom.bolt.db"))
	require.NoError(t, err, "could not open bolt driver")
	t.Cleanup(func() { driver.Close() })
	return driver
}

func TestUserStore(t *testing.T) {
	store := &UserStore{Driver: createDriver(t)}

	user, err := store.Get("alice@example.com")
	require.NoError(t, err)
	assert.Nil(t, user, "an unknown user is nil, not an error")

	alice := &pressroom.User{
		Email:         "alice@example.com",
		Name:          "Alice",
		KeyringSecret: []byte("0123456789abcdef0123456789abcdef"),
	}
	require.NoError(t, store.Upsert(alice))

	retrieved, err := store.Get(alice.Email)
	require.NoError(t, err)
	assert.Equal(t, alice, retrieved)

	require.NoError(t, store.Upsert(&pressroom.User{Email: "bob@example.com", Name: "Bob"}))
	users, err := store.List()
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestKeyringStore(t *testing.T) {
	driver := createDriver(t)
	store := &KeyringStore{Driver: driver}

	sealed, err := store.Get("alice@example.com")
	require.NoError(t, err)
	assert.Nil(t, sealed, "a user without a keyring has nil, not an error")

	secret := []byte("a keyring secret")
	key, err := keyring.GenerateKey()
	require.NoError(t, err)

	locked, err := keyring.Keyring{"q3-release-abc123": key}.Lock(secret)
	require.NoError(t, err)
	require.NoError(t, store.Put("alice@example.com", locked))

	retrieved, err := store.Get("alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, retrieved)

	unlocked, err := retrieved.Unlock(secret)
	require.NoError(t, err)
	got, ok := unlocked.Get("q3-release-abc123")
	require.True(t, ok)
	assert.Equal(t, key, got, "the keyring must round-trip through bolt")
}
