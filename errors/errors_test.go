package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithCode(t *testing.T) {
	err := WithCode(404)(errors.New("simple error"))
	assert.Equal(t, 404, CodeOf(err))
	assert.Equal(t, "simple error", err.(Error).Message())

	// re-coding an already coded error keeps message and cause
	cause := errors.New("I am the cause")
	err = New("keep cause", WithCode(125), WithCause(cause))
	err = WithCode(305)(err)
	assert.Equal(t, 305, CodeOf(err))
	assert.Equal(t, cause, err.(Error).Cause())
}

func TestWithCause(t *testing.T) {
	cause := fmt.Errorf("disk gone")
	err := New("could not save description", WithCause(cause))
	assert.Equal(t, "could not save description: disk gone", err.Error())
	assert.Equal(t, cause, err.(Error).Cause())
	assert.True(t, errors.Is(err, cause))

	// the cause's code is forwarded when the wrapper has none
	coded := New("no such team", NotFound())
	err = WithCause(coded)(errors.New("cannot distribute key"))
	assert.Equal(t, http.StatusNotFound, CodeOf(err))
}

func TestTaxonomy(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, CodeOf(New("blank uri", BadRequest())))
	assert.Equal(t, http.StatusUnauthorized, CodeOf(New("no edit permission", Unauthorized())))
	assert.Equal(t, http.StatusNotFound, CodeOf(New("no such collection", NotFound())))
	assert.Equal(t, http.StatusConflict, CodeOf(New("already approved", Conflict())))
	assert.Equal(t, DefaultCode, CodeOf(fmt.Errorf("plain")))
	assert.False(t, IsCode(nil, DefaultCode))
}
