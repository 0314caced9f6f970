package content

import (
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bobinette/pressroom/errors"
)

// PageFile is the filename of the JSON document backing a page.
const PageFile = "data.json"

// Codec encrypts content at rest. A nil Codec means plain I/O.
type Codec interface {
	Seal(plain []byte) ([]byte, error)
	Open(blob []byte) ([]byte, error)
}

// Store is the filesystem-backed content store for one stage of a
// collection (or for the published master store). It maps logical
// "/"-prefixed URIs onto files under its root folder.
type Store struct {
	root  string
	table *Table
	codec Codec
}

// NewStore opens a store rooted at root. The folder must already exist:
// stage folders are allocated when the collection is created, and a missing
// one means the collection on disk is broken, not that a default should be
// conjured up.
func NewStore(root string, codec Codec) (*Store, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.New("content store root missing: "+root, errors.WithCause(err))
	}
	if !info.IsDir() {
		return nil, errors.New("content store root is not a directory: " + root)
	}

	table, err := LoadTable(filepath.Join(root, RedirectFile))
	if err != nil {
		return nil, err
	}

	return &Store{root: root, table: table, codec: codec}, nil
}

// Root returns the physical root folder of the store.
func (s *Store) Root() string {
	return s.root
}

// Redirects returns the store's stage-local redirect table.
func (s *Store) Redirects() *Table {
	return s.table
}

// CleanURI validates and normalizes a logical URI. Blank URIs are a bad
// request; everything else is cleaned and forced absolute.
func CleanURI(uri string) (string, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return "", errors.New("blank uri", errors.BadRequest())
	}
	if !strings.HasPrefix(uri, "/") {
		uri = "/" + uri
	}
	return path.Clean(uri), nil
}

// ToPath maps a URI onto its physical path, deterministically and never
// redirect-aware. Used when creating new content.
func (s *Store) ToPath(uri string) string {
	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(uri, "/")))
}

func (s *Store) toURI(physical string) string {
	rel, err := filepath.Rel(s.root, physical)
	if err != nil {
		return ""
	}
	return "/" + filepath.ToSlash(rel)
}

func (s *Store) contains(uri string) bool {
	_, err := os.Stat(s.ToPath(uri))
	return err == nil
}

// Exists reports whether the URI is present in this stage, following the
// stage-local redirect table when followRedirect is set.
func (s *Store) Exists(uri string, followRedirect bool) bool {
	_, ok := s.Resolve(uri, followRedirect)
	return ok
}

// Resolve maps a URI onto its physical path. With followRedirect the
// stage-local redirect chain is walked first; an exhausted chain resolves
// to not-found. followRedirect=false is how the resolver itself breaks
// redirect cycles.
func (s *Store) Resolve(uri string, followRedirect bool) (string, bool) {
	if s.contains(uri) {
		return s.ToPath(uri), true
	}
	if !followRedirect {
		return "", false
	}
	resolved, ok := s.table.EndChain(s.contains, uri)
	if !ok || !s.contains(resolved) {
		return "", false
	}
	return s.ToPath(resolved), true
}

// IsDirectory reports whether the URI names a directory in this stage.
func (s *Store) IsDirectory(uri string) bool {
	info, err := os.Stat(s.ToPath(uri))
	return err == nil && info.IsDir()
}

// ListURIs walks the store and returns the sorted URIs of all files,
// excluding the redirect sidecar. glob filters on the file's base name;
// an empty glob keeps everything.
func (s *Store) ListURIs(glob string) ([]string, error) {
	sidecar := filepath.Join(s.root, RedirectFile)

	var uris []string
	err := filepath.Walk(s.root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || p == sidecar {
			return nil
		}
		uri := s.toURI(p)
		if glob != "" {
			matched, err := path.Match(glob, path.Base(uri))
			if err != nil {
				return errors.New("bad glob: "+glob, errors.BadRequest(), errors.WithCause(err))
			}
			if !matched {
				return nil
			}
		}
		uris = append(uris, uri)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(uris)
	return uris, nil
}

// IsEmpty reports whether the store holds no content at all.
func (s *Store) IsEmpty() (bool, error) {
	uris, err := s.ListURIs("")
	if err != nil {
		return false, err
	}
	return len(uris) == 0, nil
}

// Read returns the content of the URI, transparently decrypting when the
// store carries a codec.
func (s *Store) Read(uri string) ([]byte, error) {
	data, err := os.ReadFile(s.ToPath(uri))
	if os.IsNotExist(err) {
		return nil, errors.New("no content at "+uri, errors.NotFound())
	}
	if err != nil {
		return nil, err
	}
	if s.codec == nil || len(data) == 0 {
		return data, nil
	}
	return s.codec.Open(data)
}

// Write stores content at the URI, creating parent directories as needed
// and transparently encrypting when the store carries a codec.
func (s *Store) Write(uri string, data []byte) error {
	if s.codec != nil && len(data) > 0 {
		sealed, err := s.codec.Seal(data)
		if err != nil {
			return err
		}
		data = sealed
	}
	physical := s.ToPath(uri)
	if err := os.MkdirAll(filepath.Dir(physical), 0755); err != nil {
		return err
	}
	return os.WriteFile(physical, data, 0644)
}

// Delete removes the file at the URI and then prunes now-empty parent
// directories, stopping at the store root. It returns false when there was
// nothing to delete.
func (s *Store) Delete(uri string) (bool, error) {
	physical := s.ToPath(uri)
	info, err := os.Stat(physical)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if info.IsDir() {
		return false, errors.New("cannot delete a directory: "+uri, errors.BadRequest())
	}
	if err := os.Remove(physical); err != nil {
		return false, err
	}

	for dir := filepath.Dir(physical); dir != s.root && strings.HasPrefix(dir, s.root); dir = filepath.Dir(dir) {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			break
		}
		if err := os.Remove(dir); err != nil {
			break
		}
	}
	return true, nil
}

// DeleteDir removes a whole directory subtree. It returns false when the
// directory does not exist, which callers treat as already deleted.
func (s *Store) DeleteDir(uri string) (bool, error) {
	physical := s.ToPath(uri)
	if _, err := os.Stat(physical); os.IsNotExist(err) {
		return false, nil
	}
	return true, os.RemoveAll(physical)
}

// Details extracts the lightweight metadata of the page at the URI. The URI
// may name the page directory or its data.json directly.
func (s *Store) Details(uri string) (*Details, error) {
	pageURI := uri
	if path.Base(uri) != PageFile {
		pageURI = path.Join(uri, PageFile)
	}
	data, err := s.Read(pageURI)
	if err != nil {
		return nil, err
	}
	page, err := ParsePage(data)
	if err != nil {
		return nil, err
	}
	return &Details{
		URI:   path.Dir(pageURI),
		Type:  page.Type,
		Title: page.Description.Title,
	}, nil
}
