package collection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobinette/pressroom/log"
)

func TestTransferPublisher(t *testing.T) {
	f := newFixture(t)
	f.registry.publisher = &TransferPublisher{Published: f.published, Logger: log.New("test")}

	alice := f.login(t, "alice@example.com")
	bob := f.login(t, "bob@example.com")
	uri := "/economy/gdp/data.json"
	page := []byte(`{"description":{"title":"GDP, Q3"}}`)

	c, err := f.registry.Create(alice, "Q3 Release", publishDate(), true)
	require.NoError(t, err)
	require.NoError(t, f.registry.CreateContent(alice, c, uri, page))
	_, err = c.CompleteContent(alice.Email, uri)
	require.NoError(t, err)
	_, err = c.ReviewContent(bob, uri)
	require.NoError(t, err)

	require.NoError(t, c.Reviewed.Redirects().Add("/economy/gdp-old/data.json", uri))

	require.NoError(t, f.registry.Approve(alice, c))
	ok, err := f.registry.Publish(alice, c, false, false)
	require.NoError(t, err)
	require.True(t, ok)

	// published content is in the clear even from an encrypted collection
	data, err := f.published.Read(uri)
	require.NoError(t, err)
	assert.Equal(t, page, data)

	// the stage redirect went live with it
	to, found := f.published.Redirects().Get("/economy/gdp-old/data.json")
	require.True(t, found)
	assert.Equal(t, uri, to)

	// the reviewed stage was drained
	empty, err := c.Reviewed.IsEmpty()
	require.NoError(t, err)
	assert.True(t, empty)
}
