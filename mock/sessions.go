package mock

import (
	"fmt"
	"sync"
	"time"

	"github.com/bobinette/pressroom"
)

// Sessions is a map-backed session service.
type Sessions struct {
	mu    sync.Mutex
	byID  map[string]*pressroom.Session
	maxID int
}

func NewSessions() *Sessions {
	return &Sessions{byID: make(map[string]*pressroom.Session)}
}

// Login opens a session for the user and returns it.
func (s *Sessions) Login(email string) *pressroom.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.maxID++
	session := &pressroom.Session{
		ID:         fmt.Sprintf("session-%d", s.maxID),
		Email:      email,
		Start:      time.Now(),
		LastAccess: time.Now(),
	}
	s.byID[session.ID] = session
	return session
}

// Logout removes a session.
func (s *Sessions) Logout(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
}

func (s *Sessions) Get(id string) (*pressroom.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byID[id], nil
}

func (s *Sessions) Find(email string) (*pressroom.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, session := range s.byID {
		if session.Email == email {
			return session, nil
		}
	}
	return nil, nil
}
