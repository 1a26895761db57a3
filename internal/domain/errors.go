package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
)

// Validation error codes.
const (
	CodeInvalidIdentifier = "InvalidIdentifier"
	CodeInvalidQuantity   = "InvalidQuantity"
	CodeInvalidProduct    = "InvalidProduct"
	CodeInsufficientStock = "InsufficientStock"
)

// ValidationError is raised synchronously before any remote call. It is
// surfaced to the caller and never recorded as engine error state.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validation builds a ValidationError with the given code.
func Validation(code, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError, optionally matching
// the code when code is non-empty.
func IsValidation(err error, code string) bool {
	var ve *ValidationError
	if !errors.As(err, &ve) {
		return false
	}
	return code == "" || ve.Code == code
}

// RemoteError is a failed call to the remote storefront service. The engine
// records it, broadcasts it to subscribers and re-raises it to the caller.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("remote: %s (status %d)", e.Message, e.Status)
	}
	return "remote: " + e.Message
}
