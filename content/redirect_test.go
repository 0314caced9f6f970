package content

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_Persistence(t *testing.T) {
	dir := t.TempDir()
	sidecar := filepath.Join(dir, RedirectFile)

	table, err := LoadTable(sidecar)
	require.NoError(t, err, "a missing sidecar is an empty table")
	assert.Equal(t, 0, table.Len())

	require.NoError(t, table.Add("/old/gdp", "/economy/gdp"))
	require.NoError(t, table.Add("/older/gdp", "/old/gdp"))

	data, err := os.ReadFile(sidecar)
	require.NoError(t, err)
	assert.Equal(t, "/old/gdp\t/economy/gdp\n/older/gdp\t/old/gdp\n", string(data))

	reloaded, err := LoadTable(sidecar)
	require.NoError(t, err)
	to, ok := reloaded.Get("/old/gdp")
	require.True(t, ok)
	assert.Equal(t, "/economy/gdp", to)

	require.NoError(t, reloaded.Remove("/old/gdp"))
	reloaded, err = LoadTable(sidecar)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.Len())
}

func TestEndChain_CycleFailsClosed(t *testing.T) {
	table := &Table{entries: map[string]string{"/a": "/b", "/b": "/a"}}

	never := func(string) bool { return false }
	_, ok := table.EndChain(never, "/a")
	assert.False(t, ok, "a cyclic chain must resolve to not-found within the budget")
}

func TestResolver_FallsThroughStages(t *testing.T) {
	inProgress := newTestStore(t)
	complete := newTestStore(t)
	published := newTestStore(t)

	require.NoError(t, complete.Write("/economy/gdp/data.json", []byte(`{}`)))
	require.NoError(t, published.Write("/labour/data.json", []byte(`{}`)))

	resolver := NewResolver(inProgress, complete, published)

	store, uri, ok := resolver.Get("/economy/gdp/data.json")
	require.True(t, ok)
	assert.Equal(t, complete, store)
	assert.Equal(t, "/economy/gdp/data.json", uri)

	store, uri, ok = resolver.Get("/labour/data.json")
	require.True(t, ok)
	assert.Equal(t, published, store)

	_, _, ok = resolver.Get("/nowhere")
	assert.False(t, ok)
}

func TestResolver_RedirectCarriesAcrossStages(t *testing.T) {
	inProgress := newTestStore(t)
	published := newTestStore(t)

	// the in-progress stage knows the page moved; only published holds it
	require.NoError(t, inProgress.Redirects().Add("/old/gdp", "/economy/gdp"))
	require.NoError(t, published.Write("/economy/gdp/data.json", []byte(`{}`)))

	resolver := NewResolver(inProgress, published)

	_, _, ok := resolver.Get("/old/gdp/data.json")
	assert.False(t, ok, "redirects rewrite exact uris, not descendants")

	_, _, ok = resolver.Get("/old/gdp")
	assert.False(t, ok, "the directory itself is not content")

	require.NoError(t, inProgress.Redirects().Add("/old/gdp/data.json", "/economy/gdp/data.json"))
	store, uri, ok := resolver.Get("/old/gdp/data.json")
	require.True(t, ok)
	assert.Equal(t, published, store)
	assert.Equal(t, "/economy/gdp/data.json", uri)
}

func TestResolver_CyclicTableAnywhereFailsClosed(t *testing.T) {
	a := newTestStore(t)
	b := newTestStore(t)
	require.NoError(t, a.Redirects().Add("/a", "/b"))
	require.NoError(t, a.Redirects().Add("/b", "/a"))
	require.NoError(t, b.Write("/a", []byte("x")))

	resolver := NewResolver(a, b)
	_, _, ok := resolver.Get("/a")
	assert.False(t, ok, "cycle detection must fail closed before reaching later stages")
}
