package content

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobinette/pressroom/errors"
)

func pageLinks(t *testing.T, store *Store, uri string) []string {
	t.Helper()

	data, err := store.Read(uri + "/" + PageFile)
	require.NoError(t, err)
	page, err := ParsePage(data)
	require.NoError(t, err)
	return page.Links
}

func TestMoveURI(t *testing.T) {
	store := newTestStore(t)
	writePage(t, store, "/economy/gdp", "GDP")
	writePage(t, store, "/economy/inflation", "Inflation", "/economy/gdp")

	require.NoError(t, store.MoveURI("/economy/gdp", "/economy/output"))

	assert.False(t, store.Exists("/economy/gdp/"+PageFile, false))
	assert.True(t, store.Exists("/economy/output/"+PageFile, false))
	assert.Equal(t, []string{"/economy/output"}, pageLinks(t, store, "/economy/inflation"),
		"backlinks must be rewritten to the new uri")
}

func TestMoveURI_ForwardLinksInsideSubtree(t *testing.T) {
	store := newTestStore(t)
	writePage(t, store, "/economy", "Economy", "/economy/gdp")
	writePage(t, store, "/economy/gdp", "GDP", "/economy/gdp/figures")
	writePage(t, store, "/economy/gdp/figures", "Figures")

	require.NoError(t, store.MoveURI("/economy/gdp", "/output"))

	assert.Equal(t, []string{"/output"}, pageLinks(t, store, "/economy"))
	assert.Equal(t, []string{"/output/figures"}, pageLinks(t, store, "/output"),
		"links inside the moved subtree must follow the move")
	assert.True(t, store.Exists("/output/figures/"+PageFile, false))
}

func TestMoveURI_Errors(t *testing.T) {
	store := newTestStore(t)
	writePage(t, store, "/a", "A")
	writePage(t, store, "/b", "B")

	err := store.MoveURI("/missing", "/somewhere")
	errors.AssertCode(t, err, http.StatusNotFound)

	err = store.MoveURI("/a", "/b")
	errors.AssertCode(t, err, http.StatusConflict)
}
