package collection

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bobinette/pressroom"
	"github.com/bobinette/pressroom/content"
	"github.com/bobinette/pressroom/errors"
)

// Collection is the aggregate root of one staged bundle of edits: three
// stage stores plus the description sidecar. A given URI lives in at most
// one of the three stores at any time; every transition maintains that
// invariant, nothing validates it after the fact.
type Collection struct {
	Path        string
	Description *pressroom.CollectionDescription

	InProgress *content.Store
	Complete   *content.Store
	Reviewed   *content.Store

	locks *LockRegistry
	uris  *uriLocks
}

// Create allocates a new collection under root: the slug folder, the three
// stage folders and the description sidecar. It conflicts when a
// collection with the same slug already exists.
func Create(root string, locks *LockRegistry, name string, publishDate time.Time, encrypted bool, codec content.Codec) (*Collection, error) {
	slug := pressroom.Slug(name)
	if slug == "" {
		return nil, errors.New("blank collection name", errors.BadRequest())
	}

	path := filepath.Join(root, slug)
	if _, err := os.Stat(path); err == nil {
		return nil, errors.New("collection "+slug+" already exists", errors.Conflict())
	}

	for _, stage := range []pressroom.Stage{pressroom.StageInProgress, pressroom.StageComplete, pressroom.StageReviewed} {
		if err := os.MkdirAll(filepath.Join(path, stage.Folder()), 0755); err != nil {
			return nil, errors.New("could not create collection folders", errors.WithCause(err))
		}
	}

	c, err := open(path, locks, pressroom.NewCollectionDescription(name, publishDate, encrypted), codec)
	if err != nil {
		return nil, err
	}
	if err := c.Save(); err != nil {
		return nil, err
	}
	return c, nil
}

// Open loads an existing collection by slug or id. The description is read
// under the collection's read lock.
func Open(root string, locks *LockRegistry, key string, codec content.Codec) (*Collection, error) {
	desc, path, err := ReadDescription(root, locks, key)
	if err != nil {
		return nil, err
	}
	return open(path, locks, desc, codec)
}

func open(path string, locks *LockRegistry, desc *pressroom.CollectionDescription, codec content.Codec) (*Collection, error) {
	c := &Collection{
		Path:        path,
		Description: desc,
		locks:       locks,
		uris:        newURILocks(),
	}

	var err error
	if c.InProgress, err = content.NewStore(filepath.Join(path, pressroom.StageInProgress.Folder()), codec); err != nil {
		return nil, err
	}
	if c.Complete, err = content.NewStore(filepath.Join(path, pressroom.StageComplete.Folder()), codec); err != nil {
		return nil, err
	}
	if c.Reviewed, err = content.NewStore(filepath.Join(path, pressroom.StageReviewed.Folder()), codec); err != nil {
		return nil, err
	}
	return c, nil
}

// ReadDescription loads a collection description by slug or id without
// opening its stores, returning the collection folder path alongside.
func ReadDescription(root string, locks *LockRegistry, key string) (*pressroom.CollectionDescription, string, error) {
	sidecar := filepath.Join(root, key+".json")
	if _, err := os.Stat(sidecar); err == nil {
		desc, err := readSidecar(locks, sidecar)
		return desc, strings.TrimSuffix(sidecar, ".json"), err
	}

	// not a slug: scan sidecars for a matching id
	sidecars, err := filepath.Glob(filepath.Join(root, "*.json"))
	if err != nil {
		return nil, "", err
	}
	for _, s := range sidecars {
		desc, err := readSidecar(locks, s)
		if err != nil {
			return nil, "", err
		}
		if desc.ID == key {
			return desc, strings.TrimSuffix(s, ".json"), nil
		}
	}
	return nil, "", errors.New("no such collection: "+key, errors.NotFound())
}

func readSidecar(locks *LockRegistry, sidecar string) (*pressroom.CollectionDescription, error) {
	path := strings.TrimSuffix(sidecar, ".json")

	var desc pressroom.CollectionDescription
	err := locks.WithReadLock(path, func() error {
		data, err := os.ReadFile(sidecar)
		if err != nil {
			return errors.New("could not read collection description", errors.WithCause(err))
		}
		return json.Unmarshal(data, &desc)
	})
	if err != nil {
		return nil, err
	}
	return &desc, nil
}

func (c *Collection) sidecar() string {
	return c.Path + ".json"
}

// Save persists the description sidecar atomically (temp file + rename)
// under the collection's write lock.
func (c *Collection) Save() error {
	return c.locks.WithWriteLock(c.Path, func() error {
		data, err := json.MarshalIndent(c.Description, "", "  ")
		if err != nil {
			return err
		}

		tmp := c.sidecar() + ".tmp"
		if err := os.WriteFile(tmp, data, 0644); err != nil {
			return err
		}
		return os.Rename(tmp, c.sidecar())
	})
}

// StageOf returns the stage currently holding the URI, if any.
func (c *Collection) StageOf(uri string) (pressroom.Stage, bool) {
	switch {
	case c.InProgress.Exists(uri, false):
		return pressroom.StageInProgress, true
	case c.Complete.Exists(uri, false):
		return pressroom.StageComplete, true
	case c.Reviewed.Exists(uri, false):
		return pressroom.StageReviewed, true
	}
	return 0, false
}

func (c *Collection) store(stage pressroom.Stage) *content.Store {
	switch stage {
	case pressroom.StageComplete:
		return c.Complete
	case pressroom.StageReviewed:
		return c.Reviewed
	}
	return c.InProgress
}

// ListURIs returns all URIs across the three stages, sorted per stage.
func (c *Collection) ListURIs() ([]string, error) {
	var all []string
	for _, s := range []*content.Store{c.InProgress, c.Complete, c.Reviewed} {
		uris, err := s.ListURIs("")
		if err != nil {
			return nil, err
		}
		all = append(all, uris...)
	}
	return all, nil
}

// IsEmpty reports whether all three stages are empty.
func (c *Collection) IsEmpty() (bool, error) {
	for _, s := range []*content.Store{c.InProgress, c.Complete, c.Reviewed} {
		empty, err := s.IsEmpty()
		if err != nil {
			return false, err
		}
		if !empty {
			return false, nil
		}
	}
	return true, nil
}

// Delete removes the whole collection. It is legal only when every stage
// is empty, and also drops the collection's lock-table entry.
func (c *Collection) Delete() error {
	empty, err := c.IsEmpty()
	if err != nil {
		return err
	}
	if !empty {
		return errors.New("collection "+c.Description.ID+" is not empty", errors.BadRequest())
	}

	if err := os.RemoveAll(c.Path); err != nil {
		return err
	}
	if err := os.Remove(c.sidecar()); err != nil && !os.IsNotExist(err) {
		return err
	}
	c.locks.Forget(c.Path)
	return nil
}

func (c *Collection) addEvent(uri string, t pressroom.EventType, email string) {
	c.Description.AddEvent(uri, pressroom.Event{
		Timestamp: time.Now().UTC(),
		Type:      t,
		Email:     email,
	})
}
