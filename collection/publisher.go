package collection

import (
	"github.com/bobinette/pressroom/content"
	"github.com/bobinette/pressroom/errors"
	"github.com/bobinette/pressroom/log"
)

// TransferPublisher publishes a collection by copying every reviewed file
// into the published master store. Collection stores decrypt on read, so
// published content always lands in the clear.
type TransferPublisher struct {
	Published *content.Store
	Logger    log.Logger
}

// Publish transfers the reviewed stage into the published store and merges
// the stage's redirects into the published redirect table. Unless
// skipVerification is set, every transferred URI is checked against the
// published store before the reviewed copy is dropped.
func (p *TransferPublisher) Publish(c *Collection, email string, skipVerification bool) (bool, error) {
	uris, err := c.Reviewed.ListURIs("")
	if err != nil {
		return false, err
	}

	for _, uri := range uris {
		data, err := c.Reviewed.Read(uri)
		if err != nil {
			return false, errors.New("could not read "+uri+" for publishing", errors.WithCause(err))
		}
		if err := p.Published.Write(uri, data); err != nil {
			return false, errors.New("could not publish "+uri, errors.WithCause(err))
		}
	}

	if !skipVerification {
		for _, uri := range uris {
			if !p.Published.Exists(uri, false) {
				return false, errors.New("verification failed: " + uri + " missing after transfer")
			}
		}
	}

	for from, to := range c.Reviewed.Redirects().All() {
		if err := p.Published.Redirects().Add(from, to); err != nil {
			return false, errors.New("could not publish redirect "+from, errors.WithCause(err))
		}
	}

	for _, uri := range uris {
		if _, err := c.Reviewed.Delete(uri); err != nil {
			return false, err
		}
	}

	p.Logger.Printf("published %d files from collection %s", len(uris), c.Description.ID)
	return true, nil
}
