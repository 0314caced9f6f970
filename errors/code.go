package errors

import (
	"net/http"
)

// BadRequest flags malformed input: blank URI, directory where a file was
// expected, non-empty collection for delete.
func BadRequest() Enricher { return WithCode(http.StatusBadRequest) }

// Unauthorized flags a failed permission check, including the second-eyes
// review rule and locked-out keyrings.
func Unauthorized() Enricher { return WithCode(http.StatusUnauthorized) }

// NotFound flags a URI, collection or user missing from the expected place.
func NotFound() Enricher { return WithCode(http.StatusNotFound) }

// Conflict flags a refused transition: the URI is being edited in another
// collection, the target already exists, or approve/publish preconditions
// are unmet.
func Conflict() Enricher { return WithCode(http.StatusConflict) }
