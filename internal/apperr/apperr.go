// Package apperr defines the classified errors returned by the services.
// Handlers never inspect error strings; they switch on Kind and map it to an
// HTTP status with StatusOf.  Absent records are not an error kind: lookups
// that find nothing yield empty results or a zero deletedCount.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies a failure for transport translation.
type Kind int

const (
	KindInfra Kind = iota // persistence or file-system failure
	KindValidation
	KindConflict
	KindAuth  // bad credentials
	KindAuthz // missing or wrong admin token
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindAuth:
		return "auth"
	case KindAuthz:
		return "authz"
	default:
		return "infra"
	}
}

// Error carries a public message and, for infrastructure failures, the
// underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string) error { return &Error{Kind: KindValidation, Message: msg} }
func Conflict(msg string) error   { return &Error{Kind: KindConflict, Message: msg} }
func Auth(msg string) error       { return &Error{Kind: KindAuth, Message: msg} }
func Authz(msg string) error      { return &Error{Kind: KindAuthz, Message: msg} }

// Infra wraps a storage or I/O failure under a generic operation message.
func Infra(msg string, err error) error {
	return &Error{Kind: KindInfra, Message: msg, Err: err}
}

// KindOf returns the Kind of err.  Unclassified errors are infrastructure
// failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInfra
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// StatusOf maps a Kind to its HTTP status code.
func StatusOf(k Kind) int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindAuth:
		return http.StatusUnauthorized
	case KindAuthz:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
