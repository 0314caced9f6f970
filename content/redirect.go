package content

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/bobinette/pressroom/errors"
)

// RedirectFile is the sidecar holding a store's redirect table: one
// tab-separated "from\tto" mapping per line, at the root of the stage
// folder. It is excluded from content listings.
const RedirectFile = "redirect.txt"

// MaxRedirects bounds redirect-chain resolution. A chain longer than this
// is treated as cyclic and resolves to not-found.
const MaxRedirects = 8

// Table is a stage-local redirect table.
//
// Load and save are not synchronized against concurrent writers on the
// sidecar file; two processes racing on Add/Remove can lose a mapping.
// Known limitation, carried as-is.
type Table struct {
	path    string
	entries map[string]string
}

// LoadTable reads the sidecar at path. A missing sidecar is an empty
// table, not an error.
func LoadTable(path string) (*Table, error) {
	t := &Table{path: path, entries: make(map[string]string)}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return t, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		from, to, ok := strings.Cut(line, "\t")
		if !ok {
			return nil, errors.New("malformed redirect line: " + line)
		}
		t.entries[from] = to
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

// Get returns the mapping for a URI, if any.
func (t *Table) Get(from string) (string, bool) {
	to, ok := t.entries[from]
	return to, ok
}

// Add inserts or replaces a mapping and saves the sidecar.
func (t *Table) Add(from, to string) error {
	t.entries[from] = to
	return t.save()
}

// Remove drops a mapping and saves the sidecar.
func (t *Table) Remove(from string) error {
	delete(t.entries, from)
	return t.save()
}

// All returns a copy of every mapping.
func (t *Table) All() map[string]string {
	all := make(map[string]string, len(t.entries))
	for from, to := range t.entries {
		all[from] = to
	}
	return all
}

// Len returns the number of mappings.
func (t *Table) Len() int {
	return len(t.entries)
}

func (t *Table) save() error {
	froms := make([]string, 0, len(t.entries))
	for from := range t.entries {
		froms = append(froms, from)
	}
	sort.Strings(froms)

	var b strings.Builder
	for _, from := range froms {
		fmt.Fprintf(&b, "%s\t%s\n", from, t.entries[from])
	}
	return os.WriteFile(t.path, []byte(b.String()), 0644)
}

// EndChain follows mappings until contains reports the URI present or no
// mapping is left, whichever comes first. The iteration budget protects
// against cyclic tables; exhausting it fails closed (not-found, no error),
// since an unresolvable redirect is a normal terminal outcome.
func (t *Table) EndChain(contains func(string) bool, uri string) (string, bool) {
	for i := 0; i <= MaxRedirects; i++ {
		if contains(uri) {
			return uri, true
		}
		to, ok := t.entries[uri]
		if !ok {
			return uri, true
		}
		uri = to
	}
	return "", false
}

// Resolver resolves a URI through an ordered list of stage stores, each
// with its own redirect table. The order is the staging fallback:
// in-progress, complete, reviewed, then published. A URI unresolved in one
// stage falls through to the next, carrying whatever redirect rewriting
// the stage applied.
type Resolver struct {
	stores []*Store
}

func NewResolver(stores ...*Store) *Resolver {
	return &Resolver{stores: stores}
}

// Get resolves a URI to the first store that holds it, returning the store
// and the resolved URI. A cyclic redirect chain anywhere along the way
// resolves to not-found.
func (r *Resolver) Get(uri string) (*Store, string, bool) {
	u := uri
	for _, s := range r.stores {
		resolved, ok := s.table.EndChain(s.contains, u)
		if !ok {
			return nil, "", false
		}
		if s.contains(resolved) {
			return s, resolved, true
		}
		u = resolved
	}
	return nil, "", false
}
