package application

import (
	"errors"
	"fmt"
)

// Application-level outcomes. Handlers translate them to HTTP through a single
// table; anything else is reported as ErrInternal.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	// ErrMissingOrMalformedHeader matches ErrUnauthorized with errors.Is.
	ErrMissingOrMalformedHeader = fmt.Errorf("%w: missing or malformed authorization header", ErrUnauthorized)
	ErrForbidden                = errors.New("forbidden")
	ErrNotFound                 = errors.New("not found")
	ErrValidation               = errors.New("validation failed")
	ErrEmailTaken               = errors.New("email already registered")
	ErrStorageUnavailable       = errors.New("storage not configured")
	ErrInternal                 = errors.New("internal error")
)

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}
