package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is the structured error every service returns. Status doubles as the
// HTTP status the handler layer responds with.
type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// Invalid marks missing or malformed caller input.
func Invalid(code string, err error) *Error {
	return New(http.StatusBadRequest, code, err)
}

// NotFound marks an absent referenced entity (config, document, exhibit, case).
func NotFound(code string, err error) *Error {
	return New(http.StatusNotFound, code, err)
}

// Conflict marks immutability violations, duplicate numbers and
// already-labeled documents.
func Conflict(code string, err error) *Error {
	return New(http.StatusConflict, code, err)
}

// Render marks an artifact that could not be stamped.
func Render(code string, err error) *Error {
	return New(http.StatusUnprocessableEntity, code, err)
}

// Storage marks an underlying store I/O failure.
func Storage(code string, err error) *Error {
	return New(http.StatusBadGateway, code, err)
}

// From extracts an *Error from err's chain, or wraps err as a 500.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return New(http.StatusInternalServerError, "internal_error", err)
}

func IsConflict(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Status == http.StatusConflict
}

func IsNotFound(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Status == http.StatusNotFound
}
