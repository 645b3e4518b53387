package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrCacheMiss indicates no cached entry was found.
	ErrCacheMiss = errors.New("cache miss")

	// ErrNotFound indicates the durable store holds no object at a path.
	ErrNotFound = errors.New("object not found")

	// ErrMalformedOutput indicates a back end returned output that cannot be parsed.
	ErrMalformedOutput = errors.New("malformed generation output")
)

// ValidationError reports invalid input rejected before key derivation.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// BackendError reports a failed generation back-end call.
type BackendError struct {
	Backend string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s backend failed: %v", e.Backend, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// StoreError reports a durable store failure. It never reaches callers.
type StoreError struct {
	Op   string
	Path string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

// IsBackend reports whether err is a BackendError.
func IsBackend(err error) bool {
	var bErr *BackendError
	return errors.As(err, &bErr)
}

// asBackendError wraps err as a BackendError unless it already is one or is a validation error.
func asBackendError(backend string, err error) error {
	if err == nil || IsBackend(err) || IsValidation(err) {
		return err
	}
	return &BackendError{Backend: backend, Err: err}
}
