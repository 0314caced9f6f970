package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertCode fails the test unless err carries the expected code.
func AssertCode(t *testing.T, err error, code int) {
	t.Helper()

	require.Error(t, err)
	assert.Equal(t, code, CodeOf(err), "wrong code for error: %v", err)
}
