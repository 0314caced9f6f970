package content

import (
	"encoding/json"

	"github.com/bobinette/pressroom/errors"
)

// Page is the data.json document backing a content page. Links lists the
// absolute URIs of pages this page references; they are maintained by
// MoveURI so that renames never leave dangling cross-references.
type Page struct {
	Type        string      `json:"type,omitempty"`
	Description Description `json:"description"`
	Links       []string    `json:"links,omitempty"`
}

type Description struct {
	Title string `json:"title"`
}

// Details is the lightweight per-page metadata served in directory
// listings and browse trees.
type Details struct {
	URI   string `json:"uri"`
	Type  string `json:"type"`
	Title string `json:"title"`
}

func ParsePage(data []byte) (*Page, error) {
	var page Page
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, errors.New("could not parse page", errors.BadRequest(), errors.WithCause(err))
	}
	return &page, nil
}

func (p *Page) Encode() ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}
