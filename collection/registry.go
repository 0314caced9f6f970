package collection

import (
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bobinette/pressroom"
	"github.com/bobinette/pressroom/content"
	"github.com/bobinette/pressroom/errors"
	"github.com/bobinette/pressroom/keyring"
	"github.com/bobinette/pressroom/log"
)

// Publisher runs the actual cross-node publish transaction. The mechanics
// live elsewhere; the registry only consumes the contract.
type Publisher interface {
	Publish(c *Collection, email string, skipVerification bool) (bool, error)
}

// Hook runs against a collection right before approval: release-page
// population, data preprocessing, whatever the deployment needs. An error
// aborts the approval.
type Hook func(*Collection) error

// Registry orchestrates across collections: authorization gating, conflict
// detection against URIs edited elsewhere, the approve/publish gates, and
// the published-store overlay for directory listings.
type Registry struct {
	root        string
	locks       *LockRegistry
	permissions pressroom.Permissions
	published   *content.Store
	publisher   Publisher
	audit       pressroom.Audit
	keys        *keyring.Service
	logger      log.Logger

	PreApproveHooks []Hook

	mu   sync.Mutex
	open map[string]*Collection
}

func NewRegistry(
	root string,
	locks *LockRegistry,
	permissions pressroom.Permissions,
	published *content.Store,
	publisher Publisher,
	audit pressroom.Audit,
	keys *keyring.Service,
	logger log.Logger,
) *Registry {
	return &Registry{
		root:        root,
		locks:       locks,
		permissions: permissions,
		published:   published,
		publisher:   publisher,
		audit:       audit,
		keys:        keys,
		logger:      logger,
		open:        make(map[string]*Collection),
	}
}

// Published returns the master store the registry overlays against.
func (r *Registry) Published() *content.Store {
	return r.published
}

// Create allocates a new collection. For an encrypted collection a fresh
// key is generated and assigned to the creating user alone; it reaches the
// rest of the team only through DistributeKey.
func (r *Registry) Create(session *pressroom.Session, name string, publishDate time.Time, encrypted bool) (*Collection, error) {
	if err := r.requireEditor(session); err != nil {
		return nil, err
	}

	var codec content.Codec
	var key keyring.Key
	if encrypted {
		var err error
		if key, err = keyring.GenerateKey(); err != nil {
			return nil, err
		}
		codec = keyring.NewCodec(key)
	}

	c, err := Create(r.root, r.locks, name, publishDate, encrypted, codec)
	if err != nil {
		return nil, err
	}

	if encrypted {
		if err := r.keys.AssignKey(session.Email, c.Description.ID, key); err != nil {
			return nil, err
		}
	}

	r.mu.Lock()
	r.open[c.Description.ID] = c
	r.mu.Unlock()

	r.audit.Log("collection.created", c.Description.ID, session.Email)
	return c, nil
}

// Open resolves a collection by slug or id, loading it from disk the first
// time. A nil session is the headless path: keys come from the scheduler
// cache and no view gate applies.
func (r *Registry) Open(session *pressroom.Session, idOrSlug string) (*Collection, error) {
	r.mu.Lock()
	for id, c := range r.open {
		if id == idOrSlug || filepath.Base(c.Path) == idOrSlug {
			r.mu.Unlock()
			return r.gateView(session, c)
		}
	}
	r.mu.Unlock()

	desc, _, err := ReadDescription(r.root, r.locks, idOrSlug)
	if err != nil {
		return nil, err
	}

	codec, err := r.codecFor(session, desc)
	if err != nil {
		return nil, err
	}

	c, err := Open(r.root, r.locks, idOrSlug, codec)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.open[c.Description.ID] = c
	r.mu.Unlock()
	return r.gateView(session, c)
}

// List returns the descriptions of every collection under the root.
func (r *Registry) List() ([]*pressroom.CollectionDescription, error) {
	sidecars, err := filepath.Glob(filepath.Join(r.root, "*.json"))
	if err != nil {
		return nil, err
	}

	descriptions := make([]*pressroom.CollectionDescription, 0, len(sidecars))
	for _, sidecar := range sidecars {
		desc, err := readSidecar(r.locks, sidecar)
		if err != nil {
			return nil, err
		}
		descriptions = append(descriptions, desc)
	}
	sort.Slice(descriptions, func(i, j int) bool { return descriptions[i].Name < descriptions[j].Name })
	return descriptions, nil
}

// Delete removes an empty collection and forgets it.
func (r *Registry) Delete(session *pressroom.Session, c *Collection) error {
	if err := r.requireEditor(session); err != nil {
		return err
	}
	if err := c.Delete(); err != nil {
		return err
	}

	r.mu.Lock()
	delete(r.open, c.Description.ID)
	r.mu.Unlock()

	r.audit.Log("collection.deleted", c.Description.ID, session.Email)
	return nil
}

// IsBeingEdited reports whether any other open collection currently holds
// the URI in one of its stages.
func (r *Registry) IsBeingEdited(uri, excludeCollectionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, c := range r.open {
		if id == excludeCollectionID {
			continue
		}
		if _, ok := c.StageOf(uri); ok {
			return true
		}
	}
	return false
}

// Approve locks the collection for publication. Anything still in progress
// or awaiting review blocks the gate with a conflict.
func (r *Registry) Approve(session *pressroom.Session, c *Collection) error {
	if err := r.requireEditor(session); err != nil {
		return err
	}

	for _, s := range []*content.Store{c.InProgress, c.Complete} {
		empty, err := s.IsEmpty()
		if err != nil {
			return err
		}
		if !empty {
			return errors.New("collection "+c.Description.ID+" has unreviewed content", errors.Conflict())
		}
	}

	for _, hook := range r.PreApproveHooks {
		if err := hook(c); err != nil {
			return errors.New("pre-approve hook failed", errors.WithCause(err))
		}
	}

	c.Description.ApprovedStatus = true
	c.addEvent(pressroom.CollectionEvents, pressroom.EventApproved, session.Email)
	if err := c.Save(); err != nil {
		return err
	}

	r.audit.Log("collection.approved", c.Description.ID, session.Email)
	return nil
}

// Unlock reopens an approved collection for editing. Unlocking a
// collection that is not approved is a no-op success.
func (r *Registry) Unlock(session *pressroom.Session, c *Collection) (bool, error) {
	if err := r.requireEditor(session); err != nil {
		return false, err
	}
	if !c.Description.ApprovedStatus {
		return true, nil
	}

	c.Description.ApprovedStatus = false
	c.addEvent(pressroom.CollectionEvents, pressroom.EventUnlocked, session.Email)
	if err := c.Save(); err != nil {
		return false, err
	}

	r.audit.Log("collection.unlocked", c.Description.ID, session.Email)
	return true, nil
}

// Publish hands the approved collection to the publisher.
// breakBeforePublish reports success right before any file moves; it
// exists for tests exercising the gate without a publishing backend.
func (r *Registry) Publish(session *pressroom.Session, c *Collection, breakBeforePublish, skipVerification bool) (bool, error) {
	if err := r.requireEditor(session); err != nil {
		return false, err
	}
	if !c.Description.ApprovedStatus {
		return false, errors.New("collection "+c.Description.ID+" is not approved", errors.Conflict())
	}

	if breakBeforePublish {
		r.logger.Printf("stopping before publishing collection %s", c.Description.ID)
		return true, nil
	}

	ok, err := r.publisher.Publish(c, session.Email, skipVerification)
	if err != nil {
		return false, err
	}
	if ok {
		r.audit.Log("collection.published", c.Description.ID, session.Email)
	}
	return ok, nil
}

// CreateContent starts new content in the collection and optionally writes
// its first bytes. A refused transition surfaces as a conflict. The URI is
// cleaned here so that every path below, the write included, sees the same
// store-relative URI.
func (r *Registry) CreateContent(session *pressroom.Session, c *Collection, uri string, data []byte) error {
	if err := r.requireEditor(session); err != nil {
		return err
	}
	uri, err := content.CleanURI(uri)
	if err != nil {
		return err
	}

	res, err := c.CreateContent(session.Email, uri, r.published, r)
	if err != nil {
		return err
	}
	if !res.Applied {
		return errors.New(res.Reason, errors.Conflict())
	}

	if len(data) > 0 {
		if err := c.InProgress.Write(uri, data); err != nil {
			return err
		}
	}

	r.audit.Log("content.created", c.Description.ID, uri, session.Email)
	return nil
}

// WriteContent brings the URI in progress and writes its new bytes.
func (r *Registry) WriteContent(session *pressroom.Session, c *Collection, uri string, data []byte) error {
	if err := r.requireEditor(session); err != nil {
		return err
	}
	uri, err := content.CleanURI(uri)
	if err != nil {
		return err
	}

	res, err := c.EditContent(session.Email, uri, r.published, r)
	if err != nil {
		return err
	}
	if !res.Applied {
		return errors.New(res.Reason, errors.Conflict())
	}

	if err := c.InProgress.Write(uri, data); err != nil {
		return err
	}

	r.audit.Log("content.written", c.Description.ID, uri, session.Email)
	return nil
}

// CompleteContent marks the URI ready for review. A refused transition
// surfaces as a conflict.
func (r *Registry) CompleteContent(session *pressroom.Session, c *Collection, uri string) error {
	if err := r.requireEditor(session); err != nil {
		return err
	}

	res, err := c.CompleteContent(session.Email, uri)
	if err != nil {
		return err
	}
	if !res.Applied {
		return errors.New(res.Reason, errors.Conflict())
	}

	r.audit.Log("content.completed", c.Description.ID, uri, session.Email)
	return nil
}

// ReviewContent signs completed content off. The editor permission check
// comes on top of the collection's own reviewer rule.
func (r *Registry) ReviewContent(session *pressroom.Session, c *Collection, uri string) error {
	if err := r.requireEditor(session); err != nil {
		return err
	}

	res, err := c.ReviewContent(session, uri)
	if err != nil {
		return err
	}
	if !res.Applied {
		return errors.New(res.Reason, errors.Conflict())
	}

	r.audit.Log("content.reviewed", c.Description.ID, uri, session.Email)
	return nil
}

// ReadContent resolves a URI through the collection's stage fallback
// (in-progress, complete, reviewed, then published), following each
// stage's redirect table, and returns the content's bytes.
func (r *Registry) ReadContent(session *pressroom.Session, c *Collection, uri string) ([]byte, error) {
	if _, err := r.gateView(session, c); err != nil {
		return nil, err
	}
	uri, err := content.CleanURI(uri)
	if err != nil {
		return nil, err
	}

	resolver := content.NewResolver(c.InProgress, c.Complete, c.Reviewed, r.published)
	store, resolved, ok := resolver.Get(uri)
	if !ok {
		return nil, errors.New("no content at "+uri, errors.NotFound())
	}
	return store.Read(resolved)
}

// DeleteContent removes the URI from the collection: a single file when
// the URI names a file, the subtree across all stages when it names a
// directory. The audit trail only records deletes that removed something.
func (r *Registry) DeleteContent(session *pressroom.Session, c *Collection, uri string) error {
	if err := r.requireEditor(session); err != nil {
		return err
	}
	uri, err := content.CleanURI(uri)
	if err != nil {
		return err
	}

	isDir := false
	for _, s := range []*content.Store{c.InProgress, c.Complete, c.Reviewed} {
		if s.IsDirectory(uri) {
			isDir = true
			break
		}
	}

	removed := isDir
	if isDir {
		_, err = c.DeleteContent(session.Email, uri)
	} else {
		_, removed = c.StageOf(uri)
		_, err = c.DeleteFile(session.Email, uri)
	}
	if err != nil {
		return err
	}
	if !removed {
		return nil
	}

	r.audit.Log("content.deleted", c.Description.ID, uri, session.Email)
	return nil
}

// Entry is one line of an overlaid directory listing.
type Entry struct {
	Name      string `json:"name"`
	URI       string `json:"uri"`
	Directory bool   `json:"directory"`
	// Source is the stage holding the entry, or "published".
	Source string `json:"source"`
}

// ListDirectoryOverlayed merges the collection's listing of a directory
// over the published store's listing of the same URI. Collection entries
// win over published ones.
func (r *Registry) ListDirectoryOverlayed(session *pressroom.Session, c *Collection, uri string) ([]Entry, error) {
	if _, err := r.gateView(session, c); err != nil {
		return nil, err
	}

	merged := make(map[string]Entry)
	listInto(merged, r.published, uri, "published")
	listInto(merged, c.Reviewed, uri, pressroom.StageReviewed.String())
	listInto(merged, c.Complete, uri, pressroom.StageComplete.String())
	listInto(merged, c.InProgress, uri, pressroom.StageInProgress.String())

	entries := make([]Entry, 0, len(merged))
	for _, e := range merged {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func listInto(merged map[string]Entry, store *content.Store, uri, source string) {
	dirents, err := os.ReadDir(store.ToPath(uri))
	if err != nil {
		return
	}
	for _, d := range dirents {
		if d.Name() == content.RedirectFile && strings.TrimSuffix(uri, "/") == "" {
			continue
		}
		merged[d.Name()] = Entry{
			Name:      d.Name(),
			URI:       path.Join(uri, d.Name()),
			Directory: d.IsDir(),
			Source:    source,
		}
	}
}

// DistributeKey pushes the collection key onto the keyring of every user
// allowed to view the collection, revoking it everywhere else.
func (r *Registry) DistributeKey(session *pressroom.Session, c *Collection) error {
	if err := r.requireEditor(session); err != nil {
		return err
	}
	if !c.Description.IsEncrypted {
		return errors.New("collection "+c.Description.ID+" is not encrypted", errors.BadRequest())
	}

	key, err := r.keyFor(session, c.Description)
	if err != nil {
		return err
	}
	if err := r.keys.DistributeCollectionKey(c.Description, key); err != nil {
		return err
	}

	r.audit.Log("collection.key.distributed", c.Description.ID, session.Email)
	return nil
}

func (r *Registry) requireEditor(session *pressroom.Session) error {
	if session == nil {
		return errors.New("no session", errors.Unauthorized())
	}
	ok, err := r.permissions.CanEdit(session.Email)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New(session.Email+" cannot edit collections", errors.Unauthorized())
	}
	return nil
}

func (r *Registry) gateView(session *pressroom.Session, c *Collection) (*Collection, error) {
	if session == nil {
		// headless jobs bypass the view gate; they authenticated through
		// the scheduler key instead
		return c, nil
	}
	ok, err := r.permissions.CanView(session.Email, c.Description)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New(session.Email+" cannot view collection "+c.Description.ID, errors.Unauthorized())
	}
	return c, nil
}

func (r *Registry) codecFor(session *pressroom.Session, desc *pressroom.CollectionDescription) (content.Codec, error) {
	if !desc.IsEncrypted {
		return nil, nil
	}
	key, err := r.keyFor(session, desc)
	if err != nil {
		return nil, err
	}
	return keyring.NewCodec(key), nil
}

func (r *Registry) keyFor(session *pressroom.Session, desc *pressroom.CollectionDescription) (keyring.Key, error) {
	if session == nil {
		key, ok := r.keys.Cache().SchedulerKey(desc.ID)
		if !ok {
			return keyring.Key{}, errors.New("no scheduler key for collection "+desc.ID, errors.Unauthorized())
		}
		return key, nil
	}

	kr, ok := r.keys.Cache().Get(session.ID)
	if !ok {
		return keyring.Key{}, errors.New("keyring locked for "+session.Email, errors.Unauthorized())
	}
	key, ok := kr.Get(desc.ID)
	if !ok {
		return keyring.Key{}, errors.New(session.Email+" holds no key for collection "+desc.ID, errors.Unauthorized())
	}
	return key, nil
}
