// Package apperr defines the catalog's error taxonomy. Services wrap these
// sentinels with context (fmt.Errorf("%w: ...")); the HTTP layer matches
// them with errors.Is and picks a status code.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrValidation marks malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicateName marks a create or rename onto a name already taken.
	ErrDuplicateName = errors.New("name already exists")
	// ErrNotFound marks an operation on an unknown id.
	ErrNotFound = errors.New("not found")
	// ErrInUse marks a delete blocked by records that still reference the target.
	ErrInUse = errors.New("in use")
	// ErrConsistency marks a multi-document write that could not be
	// completed or undone. It must reach the caller.
	ErrConsistency = errors.New("consistency violation")
	// ErrNotImplemented marks an operation the service does not offer yet.
	ErrNotImplemented = errors.New("not implemented")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

// Newf returns an error whose message is exactly the formatted text and
// which matches kind under errors.Is. Use it for messages shown to clients.
func Newf(kind error, format string, args ...any) error {
	return &kindError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Status maps err to an HTTP status code.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrDuplicateName),
		errors.Is(err, ErrInUse):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNotImplemented):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// Expected reports whether err is ordinary control flow (a client mistake)
// rather than a server failure.
func Expected(err error) bool {
	s := Status(err)
	return s >= 400 && s < 500
}
