package keyring

import (
	"sync"

	cron "gopkg.in/robfig/cron.v2"

	"github.com/bobinette/pressroom"
	"github.com/bobinette/pressroom/log"
)

// Cache holds unlocked keyrings in memory. Entries are keyed by session
// id, never by session object identity, so the cache's lifetime is
// decoupled from any particular session value and a sweep task can evict
// entries whose session has expired.
//
// The scheduler cache is a separate lane: headless publish jobs have no
// session, so collection keys are also kept keyed by collection id alone.
type Cache struct {
	mu        sync.RWMutex
	bySession map[string]Keyring
	scheduler map[string]Key

	sessions pressroom.Sessions
	cron     *cron.Cron
}

func NewCache(sessions pressroom.Sessions) *Cache {
	return &Cache{
		bySession: make(map[string]Keyring),
		scheduler: make(map[string]Key),
		sessions:  sessions,
	}
}

// Put stores a freshly-unlocked keyring for a session.
func (c *Cache) Put(session *pressroom.Session, k Keyring) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bySession[session.ID] = k.Copy()
}

// Get returns the keyring cached for a session id, or false when the
// session never logged a keyring in (or was evicted).
func (c *Cache) Get(sessionID string) (Keyring, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	k, ok := c.bySession[sessionID]
	return k, ok
}

// Remove evicts a session's keyring on logout or expiry.
func (c *Cache) Remove(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.bySession, sessionID)
}

// PutSchedulerKey stores a collection key for headless jobs.
func (c *Cache) PutSchedulerKey(collectionID string, key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scheduler[collectionID] = key
}

// SchedulerKey returns the collection key available to headless jobs.
func (c *Cache) SchedulerKey(collectionID string) (Key, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key, ok := c.scheduler[collectionID]
	return key, ok
}

// RemoveSchedulerKey drops a collection key, typically after publication.
func (c *Cache) RemoveSchedulerKey(collectionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.scheduler, collectionID)
}

// StartSweep runs Sweep on the given cron schedule until Stop is called.
func (c *Cache) StartSweep(schedule string, logger log.Logger) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron != nil {
		return nil
	}

	cr := cron.New()
	if _, err := cr.AddFunc(schedule, func() {
		evicted := c.Sweep()
		if evicted > 0 {
			logger.Printf("keyring sweep evicted %d stale entries", evicted)
		}
	}); err != nil {
		return err
	}
	cr.Start()
	c.cron = cr
	return nil
}

// Stop halts the sweep task.
func (c *Cache) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron != nil {
		c.cron.Stop()
		c.cron = nil
	}
}

// Sweep evicts every entry whose session the session service no longer
// knows, and returns how many were evicted. Session lookups failing is no
// reason to evict: the entry stays until the service answers.
func (c *Cache) Sweep() int {
	c.mu.RLock()
	ids := make([]string, 0, len(c.bySession))
	for id := range c.bySession {
		ids = append(ids, id)
	}
	c.mu.RUnlock()

	evicted := 0
	for _, id := range ids {
		session, err := c.sessions.Get(id)
		if err != nil || session != nil {
			continue
		}
		c.Remove(id)
		evicted++
	}
	return evicted
}
