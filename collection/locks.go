package collection

import (
	"sync"
)

// LockRegistry serializes description reads and writes per collection
// path: any number of concurrent readers, writers exclusive. It is an
// explicit object created at startup and torn down with the process, not a
// package-level global, and only hands out scoped acquisition so a lock
// can never leak across an error path.
//
// An entry is created lazily the first time a collection is opened and
// only removed when the collection is deleted, so a long-lived process
// keeps one entry per collection it ever touched. Known limitation.
type LockRegistry struct {
	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

func NewLockRegistry() *LockRegistry {
	return &LockRegistry{locks: make(map[string]*sync.RWMutex)}
}

func (r *LockRegistry) lock(path string) *sync.RWMutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.locks[path]
	if !ok {
		l = &sync.RWMutex{}
		r.locks[path] = l
	}
	return l
}

// WithReadLock runs fn while holding the collection's read lock.
func (r *LockRegistry) WithReadLock(path string, fn func() error) error {
	l := r.lock(path)
	l.RLock()
	defer l.RUnlock()
	return fn()
}

// WithWriteLock runs fn while holding the collection's write lock.
func (r *LockRegistry) WithWriteLock(path string, fn func() error) error {
	l := r.lock(path)
	l.Lock()
	defer l.Unlock()
	return fn()
}

// Forget drops the entry for a deleted collection.
func (r *LockRegistry) Forget(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.locks, path)
}

// uriLocks serializes transitions per URI within one collection, closing
// the check-then-act window between looking a URI's stage up and moving
// its file.
type uriLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newURILocks() *uriLocks {
	return &uriLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *uriLocks) acquire(uri string) func() {
	l.mu.Lock()
	m, ok := l.locks[uri]
	if !ok {
		m = &sync.Mutex{}
		l.locks[uri] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
