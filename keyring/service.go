package keyring

import (
	"github.com/bobinette/pressroom"
	"github.com/bobinette/pressroom/errors"
	"github.com/bobinette/pressroom/log"
)

// Service keeps per-user keyrings synchronized with collection membership:
// it owns assignment of a collection key to a single user and distribution
// of a key across everyone the permission service allows to view the
// collection.
type Service struct {
	users       pressroom.UserStore
	permissions pressroom.Permissions
	sessions    pressroom.Sessions
	store       Store
	cache       *Cache
	logger      log.Logger
}

func NewService(
	users pressroom.UserStore,
	permissions pressroom.Permissions,
	sessions pressroom.Sessions,
	store Store,
	cache *Cache,
	logger log.Logger,
) *Service {
	return &Service{
		users:       users,
		permissions: permissions,
		sessions:    sessions,
		store:       store,
		cache:       cache,
		logger:      logger,
	}
}

// Cache exposes the in-memory cache, for content readers resolving keys.
func (s *Service) Cache() *Cache {
	return s.cache
}

// AssignKeyToUser inserts the collection key into the user's persisted
// keyring and refreshes the user's session cache entry if the user is
// logged in.
//
// The two steps are not one transaction: a crash in between leaves the
// cache behind the persisted keyring until the user's next login or the
// next distribution run. Eventual consistency is the contract here.
func (s *Service) AssignKeyToUser(user *pressroom.User, collectionID string, key Key) error {
	k, err := s.unlockedKeyring(user)
	if err != nil {
		return err
	}
	k[collectionID] = key
	if err := s.persist(user, k); err != nil {
		return err
	}
	return s.refreshSessionCache(user.Email, k)
}

// AssignKey is AssignKeyToUser by email.
func (s *Service) AssignKey(email, collectionID string, key Key) error {
	user, err := s.users.Get(email)
	if err != nil {
		return err
	}
	if user == nil {
		return errors.New("no such user: "+email, errors.NotFound())
	}
	return s.AssignKeyToUser(user, collectionID, key)
}

// RevokeKeyFromUser removes the collection key from the user's persisted
// keyring and session cache. Absent keys are already revoked.
func (s *Service) RevokeKeyFromUser(user *pressroom.User, collectionID string) error {
	k, err := s.unlockedKeyring(user)
	if err != nil {
		return err
	}
	if _, ok := k[collectionID]; !ok {
		return nil
	}
	delete(k, collectionID)
	if err := s.persist(user, k); err != nil {
		return err
	}
	return s.refreshSessionCache(user.Email, k)
}

// DistributeCollectionKey walks every known user: those the permission
// service lets view the collection get the key in their persisted keyring
// (and live session cache); everyone else has it revoked. Re-running after
// a permission change converges the keyrings onto the new memberships.
// The key is also parked in the scheduler cache for headless publish jobs.
func (s *Service) DistributeCollectionKey(description *pressroom.CollectionDescription, key Key) error {
	users, err := s.users.List()
	if err != nil {
		return errors.New("could not list users for key distribution", errors.WithCause(err))
	}

	for _, user := range users {
		canView, err := s.permissions.CanView(user.Email, description)
		if err != nil {
			return errors.New("could not check view permission for "+user.Email, errors.WithCause(err))
		}

		if canView {
			err = s.AssignKeyToUser(user, description.ID, key)
		} else {
			err = s.RevokeKeyFromUser(user, description.ID)
		}
		if err != nil {
			return err
		}
	}

	s.cache.PutSchedulerKey(description.ID, key)
	s.logger.Printf("distributed key for collection %s to %d users", description.ID, len(users))
	return nil
}

func (s *Service) unlockedKeyring(user *pressroom.User) (Keyring, error) {
	sealed, err := s.store.Get(user.Email)
	if err != nil {
		return nil, err
	}
	if sealed == nil {
		return make(Keyring), nil
	}
	return sealed.Unlock(user.KeyringSecret)
}

func (s *Service) persist(user *pressroom.User, k Keyring) error {
	sealed, err := k.Lock(user.KeyringSecret)
	if err != nil {
		return err
	}
	return s.store.Put(user.Email, sealed)
}

func (s *Service) refreshSessionCache(email string, k Keyring) error {
	session, err := s.sessions.Find(email)
	if err != nil || session == nil {
		// no active session is normal; cache is refreshed at next login
		return nil
	}
	s.cache.Put(session, k)
	return nil
}
