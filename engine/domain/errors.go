package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for validation failures.
var (
	ErrEmptyTitle      = errors.New("title is required")
	ErrInvalidPrice    = errors.New("price must be a non-negative number")
	ErrInvalidCategory = errors.New("category id must be a positive integer")
	ErrInvalidImage    = errors.New("image must be an absolute http(s) URL")
	ErrEmptyPatch      = errors.New("no fields to update")
	ErrInvalidSort     = errors.New("unknown sort key")
	ErrInvalidPage     = errors.New("page must be a positive integer")
	ErrUnknownField    = errors.New("unknown field")
)

// ErrNotFound is returned by local lookups when no product has the id.
var ErrNotFound = errors.New("product not found")

// ErrNotLoaded is returned while the initial product load has failed.
var ErrNotLoaded = errors.New("catalog not loaded")

// ValidationError wraps a sentinel with the offending field and value.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}

// FetchError reports a failed call to the remote store: a transport error,
// a non-2xx status or a local rejection before the request left.
type FetchError struct {
	Op         string
	Method     string
	URL        string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: %s %s: status %d", e.Op, e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %s %s: %v", e.Op, e.Method, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// NotFound reports whether the remote store answered 404.
func (e *FetchError) NotFound() bool { return e.StatusCode == http.StatusNotFound }

// ParseError reports a response body that is not what the operation expects.
type ParseError struct {
	Op  string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Op, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsFetch reports whether err is (or wraps) a FetchError.
func IsFetch(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// IsParse reports whether err is (or wraps) a ParseError.
func IsParse(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
