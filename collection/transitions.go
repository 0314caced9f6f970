package collection

import (
	"github.com/bobinette/pressroom"
	"github.com/bobinette/pressroom/content"
	"github.com/bobinette/pressroom/errors"
)

// Result is the outcome of a workflow transition. A refused transition is
// a normal answer, not an error: Applied is false and Reason says why.
// Exceptional failures (bad input, permissions, I/O) come back as errors
// instead, so a caller can neither mistake a refusal for success nor a
// disk failure for a refusal.
type Result struct {
	Applied bool
	Reason  string
}

func applied() Result {
	return Result{Applied: true}
}

func refused(reason string) Result {
	return Result{Reason: reason}
}

// EditChecker reports whether a URI is being edited in another open
// collection. The registry implements it; tests plug in fakes.
type EditChecker interface {
	IsBeingEdited(uri, excludeCollectionID string) bool
}

// CreateContent starts brand-new content at the URI: an empty in-progress
// file. Refused when the URI is already in this collection, already
// published, or being edited in another open collection.
func (c *Collection) CreateContent(email, uri string, published *content.Store, edited EditChecker) (Result, error) {
	uri, err := content.CleanURI(uri)
	if err != nil {
		return Result{}, err
	}
	defer c.uris.acquire(uri)()

	if _, ok := c.StageOf(uri); ok {
		return refused(uri + " is already in this collection"), nil
	}
	if published != nil && published.Exists(uri, false) {
		return refused(uri + " is already published"), nil
	}
	if edited != nil && edited.IsBeingEdited(uri, c.Description.ID) {
		return refused(uri + " is being edited in another collection"), nil
	}

	if err := c.InProgress.Write(uri, nil); err != nil {
		return Result{}, err
	}
	c.addEvent(uri, pressroom.EventCreated, email)
	if err := c.Save(); err != nil {
		return Result{}, err
	}
	return applied(), nil
}

// EditContent brings the URI into the in-progress stage: copied in from
// the published store when absent, moved back when it sits in a later
// stage of this collection, a plain no-op when already in progress.
// Refused when the URI is being edited in another open collection or does
// not exist anywhere.
func (c *Collection) EditContent(email, uri string, published *content.Store, edited EditChecker) (Result, error) {
	uri, err := content.CleanURI(uri)
	if err != nil {
		return Result{}, err
	}
	defer c.uris.acquire(uri)()

	if edited != nil && edited.IsBeingEdited(uri, c.Description.ID) {
		return refused(uri + " is being edited in another collection"), nil
	}

	stage, ok := c.StageOf(uri)
	switch {
	case ok && stage == pressroom.StageInProgress:
		// already where edits happen
	case ok:
		if err := c.moveStage(uri, stage, pressroom.StageInProgress); err != nil {
			return Result{}, err
		}
	default:
		if published == nil || !published.Exists(uri, false) {
			return refused(uri + " is neither in this collection nor published"), nil
		}
		data, err := published.Read(uri)
		if err != nil {
			return Result{}, err
		}
		if err := c.InProgress.Write(uri, data); err != nil {
			return Result{}, err
		}
	}

	c.addEvent(uri, pressroom.EventEdited, email)
	if err := c.Save(); err != nil {
		return Result{}, err
	}
	return applied(), nil
}

// CompleteContent marks the URI ready for review, moving it from
// in-progress to complete. Refused from any other stage.
func (c *Collection) CompleteContent(email, uri string) (Result, error) {
	uri, err := content.CleanURI(uri)
	if err != nil {
		return Result{}, err
	}
	defer c.uris.acquire(uri)()

	if c.InProgress.IsDirectory(uri) {
		return Result{}, errors.New("cannot complete a directory: "+uri, errors.BadRequest())
	}

	stage, ok := c.StageOf(uri)
	if !ok {
		return refused(uri + " is not in this collection"), nil
	}
	if stage != pressroom.StageInProgress {
		return refused(uri + " is not in progress"), nil
	}

	if err := c.moveStage(uri, stage, pressroom.StageComplete); err != nil {
		return Result{}, err
	}
	c.addEvent(uri, pressroom.EventCompleted, email)
	if err := c.Save(); err != nil {
		return Result{}, err
	}
	return applied(), nil
}

// ReviewContent signs completed content off and moves it to reviewed. The
// reviewer must not be whoever most recently completed the URI: a second
// set of eyes is mandatory, and breaking that rule is unauthorized, not a
// refusal. Reviewing an already-reviewed URI is a hard bad request.
func (c *Collection) ReviewContent(session *pressroom.Session, uri string) (Result, error) {
	uri, err := content.CleanURI(uri)
	if err != nil {
		return Result{}, err
	}
	defer c.uris.acquire(uri)()

	for _, s := range []*content.Store{c.InProgress, c.Complete, c.Reviewed} {
		if s.IsDirectory(uri) {
			return Result{}, errors.New("cannot review a directory: "+uri, errors.BadRequest())
		}
	}

	stage, ok := c.StageOf(uri)
	if !ok {
		return Result{}, errors.New(uri+" is not in this collection", errors.NotFound())
	}
	if stage == pressroom.StageReviewed {
		return Result{}, errors.New(uri+" is already reviewed", errors.BadRequest())
	}
	if stage != pressroom.StageComplete {
		return refused(uri + " is not complete yet"), nil
	}

	if completed, ok := c.Description.LastEvent(uri, pressroom.EventCompleted); ok && completed.Email == session.Email {
		return Result{}, errors.New("content cannot be reviewed by the user who completed it", errors.Unauthorized())
	}

	if err := c.moveStage(uri, stage, pressroom.StageReviewed); err != nil {
		return Result{}, err
	}
	c.addEvent(uri, pressroom.EventReviewed, session.Email)
	if err := c.Save(); err != nil {
		return Result{}, err
	}
	return applied(), nil
}

// DeleteFile removes the URI from whichever single stage holds it.
// Content that is already gone counts as deleted.
func (c *Collection) DeleteFile(email, uri string) (Result, error) {
	uri, err := content.CleanURI(uri)
	if err != nil {
		return Result{}, err
	}
	defer c.uris.acquire(uri)()

	stage, ok := c.StageOf(uri)
	if !ok {
		return applied(), nil
	}

	if _, err := c.store(stage).Delete(uri); err != nil {
		return Result{}, err
	}
	c.addEvent(uri, pressroom.EventDeleted, email)
	if err := c.Save(); err != nil {
		return Result{}, err
	}
	return applied(), nil
}

// DeleteContent removes a whole directory from every stage holding any of
// it. Idempotent: content already gone is already deleted.
func (c *Collection) DeleteContent(email, uri string) (Result, error) {
	uri, err := content.CleanURI(uri)
	if err != nil {
		return Result{}, err
	}
	defer c.uris.acquire(uri)()

	deleted := false
	for _, s := range []*content.Store{c.InProgress, c.Complete, c.Reviewed} {
		d, err := s.DeleteDir(uri)
		if err != nil {
			return Result{}, err
		}
		deleted = deleted || d
	}
	if !deleted {
		return applied(), nil
	}

	c.addEvent(uri, pressroom.EventDeleted, email)
	if err := c.Save(); err != nil {
		return Result{}, err
	}
	return applied(), nil
}

// moveStage moves a URI's file between two stage stores through the
// stores' codec-aware I/O, then clears the source. Both stores share the
// collection's codec, so bytes land identical.
func (c *Collection) moveStage(uri string, from, to pressroom.Stage) error {
	src, dst := c.store(from), c.store(to)

	data, err := src.Read(uri)
	if err != nil {
		return err
	}
	if err := dst.Write(uri, data); err != nil {
		return err
	}
	if _, err := src.Delete(uri); err != nil {
		return err
	}
	return nil
}
