package keyring_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobinette/pressroom"
	"github.com/bobinette/pressroom/keyring"
	"github.com/bobinette/pressroom/log"
	"github.com/bobinette/pressroom/mock"
)

func descDate() time.Time {
	return time.Date(2026, time.September, 30, 9, 30, 0, 0, time.UTC)
}

func newUser(email string) *pressroom.User {
	return &pressroom.User{
		Email:         email,
		KeyringSecret: []byte("secret for " + email),
	}
}

func TestDistributeCollectionKey(t *testing.T) {
	alice := newUser("alice@example.com")
	bob := newUser("bob@example.com")
	eve := newUser("eve@example.com")

	users := mock.NewUserStore(alice, bob, eve)
	permissions := mock.NewPermissions().AddEditor(alice.Email).AddViewer(bob.Email)
	sessions := mock.NewSessions()
	store := mock.NewKeyringStore()
	cache := keyring.NewCache(sessions)
	service := keyring.NewService(users, permissions, sessions, store, cache, log.New("test"))

	bobSession := sessions.Login(bob.Email)

	description := pressroom.NewCollectionDescription("Q3 Release", descDate(), true)
	key, err := keyring.GenerateKey()
	require.NoError(t, err)

	require.NoError(t, service.DistributeCollectionKey(description, key))

	// every permitted user has the key in their persisted keyring
	for _, user := range []*pressroom.User{alice, bob} {
		sealed, err := store.Get(user.Email)
		require.NoError(t, err)
		require.NotNil(t, sealed, "%s should have a keyring", user.Email)

		unlocked, err := sealed.Unlock(user.KeyringSecret)
		require.NoError(t, err)
		got, ok := unlocked.Get(description.ID)
		require.True(t, ok, "%s should hold the key", user.Email)
		assert.Equal(t, key, got)
	}

	// eve cannot view, so eve holds nothing
	sealed, err := store.Get(eve.Email)
	require.NoError(t, err)
	assert.Nil(t, sealed)

	// bob is logged in, so his session cache was refreshed in place
	cached, ok := cache.Get(bobSession.ID)
	require.True(t, ok)
	_, ok = cached.Get(description.ID)
	assert.True(t, ok)

	// headless jobs can resolve the key without any session
	schedulerKey, ok := cache.SchedulerKey(description.ID)
	require.True(t, ok)
	assert.Equal(t, key, schedulerKey)
}

func TestDistributeCollectionKey_RevokesOnPermissionChange(t *testing.T) {
	alice := newUser("alice@example.com")
	bob := newUser("bob@example.com")

	users := mock.NewUserStore(alice, bob)
	permissions := mock.NewPermissions().AddEditor(alice.Email).AddViewer(bob.Email)
	sessions := mock.NewSessions()
	store := mock.NewKeyringStore()
	cache := keyring.NewCache(sessions)
	service := keyring.NewService(users, permissions, sessions, store, cache, log.New("test"))

	description := pressroom.NewCollectionDescription("Q3 Release", descDate(), true)
	key, err := keyring.GenerateKey()
	require.NoError(t, err)
	require.NoError(t, service.DistributeCollectionKey(description, key))

	permissions.RemoveViewer(bob.Email)
	require.NoError(t, service.DistributeCollectionKey(description, key))

	sealed, err := store.Get(bob.Email)
	require.NoError(t, err)
	require.NotNil(t, sealed)
	unlocked, err := sealed.Unlock(bob.KeyringSecret)
	require.NoError(t, err)
	_, ok := unlocked.Get(description.ID)
	assert.False(t, ok, "revoked users must lose the key on redistribution")
}

func TestCache_SweepEvictsExpiredSessions(t *testing.T) {
	sessions := mock.NewSessions()
	cache := keyring.NewCache(sessions)

	alive := sessions.Login("alice@example.com")
	dead := sessions.Login("bob@example.com")
	cache.Put(alive, keyring.Keyring{})
	cache.Put(dead, keyring.Keyring{})

	sessions.Logout(dead.ID)
	evicted := cache.Sweep()
	assert.Equal(t, 1, evicted)

	_, ok := cache.Get(alive.ID)
	assert.True(t, ok, "live sessions keep their keyring")
	_, ok = cache.Get(dead.ID)
	assert.False(t, ok, "expired sessions are evicted")
}
