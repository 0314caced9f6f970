package collection

import (
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobinette/pressroom"
	"github.com/bobinette/pressroom/content"
	"github.com/bobinette/pressroom/errors"
)

func publishDate() time.Time {
	return time.Date(2026, time.September, 30, 9, 30, 0, 0, time.UTC)
}

func newCollection(t *testing.T) (*Collection, string, *LockRegistry) {
	t.Helper()

	root := t.TempDir()
	locks := NewLockRegistry()
	c, err := Create(root, locks, "Q3 Release", publishDate(), false, nil)
	require.NoError(t, err, "creating a collection must not fail")
	return c, root, locks
}

func session(email string) *pressroom.Session {
	return &pressroom.Session{ID: "session-" + email, Email: email}
}

// editedElsewhere is a canned EditChecker.
type editedElsewhere bool

func (e editedElsewhere) IsBeingEdited(uri, excludeCollectionID string) bool {
	return bool(e)
}

func TestCreate(t *testing.T) {
	c, root, locks := newCollection(t)

	assert.Equal(t, "Q3 Release", c.Description.Name)
	assert.NotEmpty(t, c.Description.ID)
	assert.Contains(t, c.Description.ID, "q3-release-")
	assert.False(t, c.Description.ApprovedStatus)

	for _, stage := range []pressroom.Stage{pressroom.StageInProgress, pressroom.StageComplete, pressroom.StageReviewed} {
		info, err := os.Stat(c.store(stage).Root())
		require.NoError(t, err, "stage folder %s must exist", stage)
		assert.True(t, info.IsDir())
	}

	_, err := Create(root, locks, "Q3 Release", publishDate(), false, nil)
	errors.AssertCode(t, err, http.StatusConflict)
}

func TestOpen_RoundTrip(t *testing.T) {
	c, root, locks := newCollection(t)

	res, err := c.CreateContent("alice@example.com", "/economy/gdp/data.json", nil, nil)
	require.NoError(t, err)
	require.True(t, res.Applied)

	// by slug
	reopened, err := Open(root, locks, "q3-release", nil)
	require.NoError(t, err)
	assert.Equal(t, c.Description, reopened.Description, "description must round-trip through disk")

	// events survive JSON serialization down to their timestamps
	before := c.Description.EventsByURI["/economy/gdp/data.json"]
	after := reopened.Description.EventsByURI["/economy/gdp/data.json"]
	require.Len(t, after, len(before))
	for i := range before {
		assert.True(t, before[i].Equal(after[i]), "event %d changed across the round trip", i)
	}

	// by id
	byID, err := Open(root, locks, c.Description.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, c.Description, byID.Description)

	_, err = Open(root, locks, "no-such-collection", nil)
	errors.AssertCode(t, err, http.StatusNotFound)
}

func TestStore_MissingStageFolderFailsOpen(t *testing.T) {
	c, root, locks := newCollection(t)
	require.NoError(t, os.RemoveAll(c.Complete.Root()))

	_, err := Open(root, locks, "q3-release", nil)
	assert.Error(t, err, "a collection with a missing stage folder is broken, not repairable")
}

func assertStageExclusive(t *testing.T, c *Collection, uri string, want pressroom.Stage) {
	t.Helper()

	stages := map[pressroom.Stage]bool{
		pressroom.StageInProgress: c.InProgress.Exists(uri, false),
		pressroom.StageComplete:   c.Complete.Exists(uri, false),
		pressroom.StageReviewed:   c.Reviewed.Exists(uri, false),
	}
	for stage, present := range stages {
		if stage == want {
			assert.True(t, present, "%s should be in %s", uri, stage)
		} else {
			assert.False(t, present, "%s must not be in %s while in %s", uri, stage, want)
		}
	}
}

func TestWorkflow_StageExclusivity(t *testing.T) {
	c, _, _ := newCollection(t)
	uri := "/economy/gdp/data.json"

	res, err := c.CreateContent("alice@example.com", uri, nil, nil)
	require.NoError(t, err)
	require.True(t, res.Applied)
	assertStageExclusive(t, c, uri, pressroom.StageInProgress)

	res, err = c.CompleteContent("alice@example.com", uri)
	require.NoError(t, err)
	require.True(t, res.Applied)
	assertStageExclusive(t, c, uri, pressroom.StageComplete)

	res, err = c.ReviewContent(session("bob@example.com"), uri)
	require.NoError(t, err)
	require.True(t, res.Applied)
	assertStageExclusive(t, c, uri, pressroom.StageReviewed)

	// editing pulls reviewed content all the way back
	res, err = c.EditContent("alice@example.com", uri, nil, nil)
	require.NoError(t, err)
	require.True(t, res.Applied)
	assertStageExclusive(t, c, uri, pressroom.StageInProgress)
}

func TestCreateContent_Refusals(t *testing.T) {
	c, _, _ := newCollection(t)
	uri := "/economy/gdp/data.json"

	res, err := c.CreateContent("alice@example.com", uri, nil, nil)
	require.NoError(t, err)
	require.True(t, res.Applied)

	// already in the collection
	res, err = c.CreateContent("alice@example.com", uri, nil, nil)
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Contains(t, res.Reason, "already in this collection")

	// already published
	published, err := content.NewStore(t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, published.Write("/labour/data.json", []byte(`{}`)))
	res, err = c.CreateContent("alice@example.com", "/labour/data.json", published, nil)
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Contains(t, res.Reason, "already published")

	// being edited in another collection
	res, err = c.CreateContent("alice@example.com", "/labour/other.json", published, editedElsewhere(true))
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Contains(t, res.Reason, "another collection")

	// blank uri is malformed input, not a refusal
	_, err = c.CreateContent("alice@example.com", "  ", nil, nil)
	errors.AssertCode(t, err, http.StatusBadRequest)
}

func TestEditContent(t *testing.T) {
	c, _, _ := newCollection(t)
	uri := "/economy/gdp/data.json"

	published, err := content.NewStore(t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, published.Write(uri, []byte(`{"description":{"title":"GDP"}}`)))

	// absent everywhere: copied in from published
	res, err := c.EditContent("alice@example.com", uri, published, nil)
	require.NoError(t, err)
	require.True(t, res.Applied)
	data, err := c.InProgress.Read(uri)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"description":{"title":"GDP"}}`), data)

	// already in progress: no-op success
	res, err = c.EditContent("alice@example.com", uri, published, nil)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assertStageExclusive(t, c, uri, pressroom.StageInProgress)

	// refused while someone else edits it
	res, err = c.EditContent("alice@example.com", uri, published, editedElsewhere(true))
	require.NoError(t, err)
	assert.False(t, res.Applied)

	// neither here nor published
	res, err = c.EditContent("alice@example.com", "/nowhere.json", published, nil)
	require.NoError(t, err)
	assert.False(t, res.Applied)

	// events were appended in order
	events := c.Description.EventsByURI[uri]
	require.Len(t, events, 2)
	assert.Equal(t, pressroom.EventEdited, events[0].Type)
	assert.Equal(t, pressroom.EventEdited, events[1].Type)
}

func TestCompleteContent(t *testing.T) {
	c, _, _ := newCollection(t)
	uri := "/economy/gdp/data.json"

	res, err := c.CompleteContent("alice@example.com", uri)
	require.NoError(t, err)
	assert.False(t, res.Applied, "completing absent content is refused")

	_, err = c.CreateContent("alice@example.com", uri, nil, nil)
	require.NoError(t, err)
	res, err = c.CompleteContent("alice@example.com", uri)
	require.NoError(t, err)
	require.True(t, res.Applied)

	res, err = c.CompleteContent("alice@example.com", uri)
	require.NoError(t, err)
	assert.False(t, res.Applied, "content already complete is not in progress")
}

func TestReviewContent_SecondEyes(t *testing.T) {
	c, _, _ := newCollection(t)
	uri := "/economy/gdp/data.json"

	_, err := c.CreateContent("alice@example.com", uri, nil, nil)
	require.NoError(t, err)
	_, err = c.CompleteContent("alice@example.com", uri)
	require.NoError(t, err)

	// alice completed it, alice cannot review it
	_, err = c.ReviewContent(session("alice@example.com"), uri)
	errors.AssertCode(t, err, http.StatusUnauthorized)
	assertStageExclusive(t, c, uri, pressroom.StageComplete)

	// bob can
	res, err := c.ReviewContent(session("bob@example.com"), uri)
	require.NoError(t, err)
	require.True(t, res.Applied)
	assertStageExclusive(t, c, uri, pressroom.StageReviewed)

	// re-reviewing is a hard bad request
	_, err = c.ReviewContent(session("carol@example.com"), uri)
	errors.AssertCode(t, err, http.StatusBadRequest)
}

func TestReviewContent_Errors(t *testing.T) {
	c, _, _ := newCollection(t)

	_, err := c.ReviewContent(session("bob@example.com"), "/nowhere.json")
	errors.AssertCode(t, err, http.StatusNotFound)

	uri := "/economy/gdp/data.json"
	_, err = c.CreateContent("alice@example.com", uri, nil, nil)
	require.NoError(t, err)

	res, err := c.ReviewContent(session("bob@example.com"), uri)
	require.NoError(t, err)
	assert.False(t, res.Applied, "in-progress content is not reviewable yet")

	// directories cannot be reviewed
	_, err = c.ReviewContent(session("bob@example.com"), "/economy/gdp")
	errors.AssertCode(t, err, http.StatusBadRequest)
}

func TestDeleteFile(t *testing.T) {
	c, _, _ := newCollection(t)
	uri := "/economy/gdp/data.json"

	// deleting what is not there is already done
	res, err := c.DeleteFile("alice@example.com", uri)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Empty(t, c.Description.EventsByURI[uri], "no event for a no-op delete")

	_, err = c.CreateContent("alice@example.com", uri, nil, nil)
	require.NoError(t, err)
	res, err = c.DeleteFile("alice@example.com", uri)
	require.NoError(t, err)
	require.True(t, res.Applied)

	_, ok := c.StageOf(uri)
	assert.False(t, ok)
	last := c.Description.EventsByURI[uri][len(c.Description.EventsByURI[uri])-1]
	assert.Equal(t, pressroom.EventDeleted, last.Type)
}

func TestDeleteContent_AcrossStages(t *testing.T) {
	c, _, _ := newCollection(t)

	_, err := c.CreateContent("alice@example.com", "/economy/gdp/data.json", nil, nil)
	require.NoError(t, err)
	_, err = c.CreateContent("alice@example.com", "/economy/inflation/data.json", nil, nil)
	require.NoError(t, err)
	_, err = c.CompleteContent("alice@example.com", "/economy/inflation/data.json")
	require.NoError(t, err)

	res, err := c.DeleteContent("alice@example.com", "/economy")
	require.NoError(t, err)
	require.True(t, res.Applied)

	empty, err := c.IsEmpty()
	require.NoError(t, err)
	assert.True(t, empty, "the directory must be gone from every stage")
}

func TestDelete(t *testing.T) {
	c, root, locks := newCollection(t)

	_, err := c.CreateContent("alice@example.com", "/economy/gdp/data.json", nil, nil)
	require.NoError(t, err)

	err = c.Delete()
	errors.AssertCode(t, err, http.StatusBadRequest)

	_, err = c.DeleteFile("alice@example.com", "/economy/gdp/data.json")
	require.NoError(t, err)
	require.NoError(t, c.Delete())

	_, err = os.Stat(c.Path)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(c.sidecar())
	assert.True(t, os.IsNotExist(err))

	_, err = Open(root, locks, "q3-release", nil)
	errors.AssertCode(t, err, http.StatusNotFound)
}

func TestLockRegistry(t *testing.T) {
	locks := NewLockRegistry()

	calls := 0
	err := locks.WithWriteLock("/collections/q3-release", func() error {
		calls++
		return locks.WithReadLock("/collections/other", func() error {
			calls++
			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	// the lock is released even when fn fails
	wantErr := errors.New("boom")
	err = locks.WithWriteLock("/collections/q3-release", func() error { return wantErr })
	assert.Equal(t, wantErr, err)
	err = locks.WithWriteLock("/collections/q3-release", func() error { return nil })
	assert.NoError(t, err)

	locks.Forget("/collections/q3-release")
}
