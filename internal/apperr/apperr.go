// Package apperr holds the error kinds surfaced at the HTTP boundary and
// their mapping to response status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	// KindUnknown is reported for errors not created through this package.
	KindUnknown Kind = iota
	// KindUnavailable - the store connection could not be established.
	KindUnavailable
	// KindOperationFailed - a get/set/update/delete against the store failed.
	KindOperationFailed
	// KindUnauthorized - no admin session on a protected route.
	KindUnauthorized
	// KindInvalidCredentials - login validation failed.
	KindInvalidCredentials
	// KindInvalidInput - request body could not be decoded.
	KindInvalidInput
)

func (k Kind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindOperationFailed:
		return "operation_failed"
	case KindUnauthorized:
		return "unauthorized"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// HTTPStatus maps a kind to the status code an API route responds with.
// Invalid credentials are shown on the re-rendered login form, hence 200.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindUnavailable:
		return http.StatusServiceUnavailable
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindInvalidCredentials:
		return http.StatusOK
	case KindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s", e.Op, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func E(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func Unavailable(op string, err error) *Error {
	return E(KindUnavailable, op, err)
}

func OperationFailed(op string, err error) *Error {
	return E(KindOperationFailed, op, err)
}

func InvalidInput(op string, err error) *Error {
	return E(KindInvalidInput, op, err)
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the underlying cause, without the op prefix, for
// responses that echo the store error back to the caller.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Err != nil {
		return appErr.Err.Error()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
