package content

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bobinette/pressroom/errors"
)

// MoveURI moves content (a file or a whole subtree) from one URI to
// another, keeping cross-references intact. The move runs in three phases:
//
//  1. backlinks from referencing pages elsewhere in the store are detached,
//  2. the content is physically moved,
//  3. forward links inside the moved subtree are rewritten and the
//     detached backlinks are re-established against the new URI.
//
// A failure between phases is reported to the caller; the store is never
// silently left half-moved.
func (s *Store) MoveURI(from, to string) error {
	fromPath := s.ToPath(from)
	toPath := s.ToPath(to)

	if _, err := os.Stat(fromPath); os.IsNotExist(err) {
		return errors.New("no content at "+from, errors.NotFound())
	}
	if _, err := os.Stat(toPath); err == nil {
		return errors.New(to+" already exists", errors.Conflict())
	}

	referers, err := s.detachBacklinks(from)
	if err != nil {
		return errors.New("move aborted before touching "+from, errors.WithCause(err))
	}

	if err := os.MkdirAll(filepath.Dir(toPath), 0755); err != nil {
		return errors.New("move of "+from+" interrupted after detaching backlinks", errors.WithCause(err))
	}
	if err := os.Rename(fromPath, toPath); err != nil {
		return errors.New("move of "+from+" interrupted after detaching backlinks", errors.WithCause(err))
	}

	if err := s.rewriteForwardLinks(from, to); err != nil {
		return errors.New("move of "+from+" interrupted before link rewrite", errors.WithCause(err))
	}
	if err := s.reattachBacklinks(referers, from, to); err != nil {
		return errors.New("move of "+from+" interrupted before backlink rewrite", errors.WithCause(err))
	}
	return nil
}

// detachBacklinks removes every link pointing at uri (or below it) from
// pages outside the moved subtree, and returns what was removed per page.
func (s *Store) detachBacklinks(uri string) (map[string][]string, error) {
	pages, err := s.ListURIs(PageFile)
	if err != nil {
		return nil, err
	}

	detached := make(map[string][]string)
	for _, pageURI := range pages {
		if within(path.Dir(pageURI), uri) {
			continue
		}
		data, err := s.Read(pageURI)
		if err != nil {
			return nil, err
		}
		page, err := ParsePage(data)
		if err != nil {
			return nil, err
		}

		var kept, removed []string
		for _, link := range page.Links {
			if within(link, uri) {
				removed = append(removed, link)
			} else {
				kept = append(kept, link)
			}
		}
		if len(removed) == 0 {
			continue
		}

		page.Links = kept
		if err := s.writePage(pageURI, page); err != nil {
			return nil, err
		}
		detached[pageURI] = removed
	}
	return detached, nil
}

// rewriteForwardLinks walks the moved subtree and rewrites any link that
// pointed inside the old location.
func (s *Store) rewriteForwardLinks(from, to string) error {
	root := s.ToPath(to)
	return filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Base(p) != PageFile {
			return nil
		}

		pageURI := s.toURI(p)
		data, err := s.Read(pageURI)
		if err != nil {
			return err
		}
		page, err := ParsePage(data)
		if err != nil {
			return err
		}

		changed := false
		for i, link := range page.Links {
			if within(link, from) {
				page.Links[i] = rewrite(link, from, to)
				changed = true
			}
		}
		if !changed {
			return nil
		}
		return s.writePage(pageURI, page)
	})
}

func (s *Store) reattachBacklinks(detached map[string][]string, from, to string) error {
	for pageURI, links := range detached {
		data, err := s.Read(pageURI)
		if err != nil {
			return err
		}
		page, err := ParsePage(data)
		if err != nil {
			return err
		}
		for _, link := range links {
			page.Links = append(page.Links, rewrite(link, from, to))
		}
		if err := s.writePage(pageURI, page); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) writePage(uri string, page *Page) error {
	data, err := page.Encode()
	if err != nil {
		return err
	}
	return s.Write(uri, data)
}

// within reports whether uri equals base or descends from it.
func within(uri, base string) bool {
	return uri == base || strings.HasPrefix(uri, base+"/")
}

// rewrite swaps the base prefix of a URI: rewrite("/a/x", "/a", "/b") is
// "/b/x".
func rewrite(uri, from, to string) string {
	if uri == from {
		return to
	}
	return to + strings.TrimPrefix(uri, from)
}
