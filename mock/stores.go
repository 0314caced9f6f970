package mock

import (
	"sync"

	"github.com/bobinette/pressroom"
	"github.com/bobinette/pressroom/keyring"
)

// UserStore is a map-backed user store.
type UserStore struct {
	mu    sync.Mutex
	users map[string]*pressroom.User
}

func NewUserStore(users ...*pressroom.User) *UserStore {
	s := &UserStore{users: make(map[string]*pressroom.User)}
	for _, u := range users {
		s.users[u.Email] = u
	}
	return s
}

func (s *UserStore) Get(email string) (*pressroom.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[email], nil
}

func (s *UserStore) List() ([]*pressroom.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]*pressroom.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	return users, nil
}

func (s *UserStore) Upsert(user *pressroom.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.Email] = user
	return nil
}

// KeyringStore is a map-backed sealed-keyring store.
type KeyringStore struct {
	mu     sync.Mutex
	sealed map[string]*keyring.Sealed
}

func NewKeyringStore() *KeyringStore {
	return &KeyringStore{sealed: make(map[string]*keyring.Sealed)}
}

func (s *KeyringStore) Get(email string) (*keyring.Sealed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sealed[email], nil
}

func (s *KeyringStore) Put(email string, sealed *keyring.Sealed) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sealed[email] = sealed
	return nil
}

// Audit records its entries for assertions and never fails.
type Audit struct {
	mu      sync.Mutex
	Entries []string
}

func NewAudit() *Audit {
	return &Audit{}
}

func (a *Audit) Log(event string, params ...interface{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Entries = append(a.Entries, event)
}
