package errors

import (
	"fmt"
	"net/http"
)

// Error carries an HTTP-style code alongside the message so callers can map
// failures onto the taxonomy: 400 bad request, 401 unauthorized, 404 not
// found, 409 conflict. Everything else is a 500.
type Error interface {
	error

	Code() int
	Message() string
	Cause() error
}

// DefaultCode is used when no code is given.
var DefaultCode = http.StatusInternalServerError

type codedError struct {
	code  int
	msg   string
	cause error
}

func (err *codedError) Error() string {
	if err.cause == nil {
		return err.msg
	}
	return fmt.Sprintf("%s: %v", err.msg, err.cause)
}

func (err *codedError) Code() int {
	return err.code
}

func (err *codedError) Message() string {
	return err.msg
}

func (err *codedError) Cause() error {
	return err.cause
}

func (err *codedError) Unwrap() error {
	return err.cause
}

type Enricher func(error) error

func WithCode(code int) Enricher {
	return func(err error) error {
		if ce, ok := err.(*codedError); ok {
			ce.code = code
			return ce
		}
		return &codedError{msg: err.Error(), code: code}
	}
}

func WithCause(cause error) Enricher {
	return func(err error) error {
		if ce, ok := err.(*codedError); ok {
			ce.cause = cause
			return ce
		}
		return &codedError{msg: err.Error(), code: CodeOf(cause), cause: cause}
	}
}

func New(msg string, fs ...Enricher) error {
	var err error = &codedError{msg: msg, code: DefaultCode}
	for _, f := range fs {
		err = f(err)
	}
	return err
}

// CodeOf extracts the code of an error, falling back to DefaultCode for
// plain errors.
func CodeOf(err error) int {
	if ce, ok := err.(Error); ok {
		return ce.Code()
	}
	return DefaultCode
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code int) bool {
	return err != nil && CodeOf(err) == code
}
