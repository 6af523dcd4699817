// Package apperr defines the error taxonomy shared by services and handlers.
// Every error carries the HTTP status it maps to, so handlers never guess.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Kind classifies an error.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindUnauthorized Kind = "unauthorized"
	KindNotFound     Kind = "not_found"
	KindRateLimited  Kind = "rate_limited"
	KindUnavailable  Kind = "upstream_unavailable"
	KindInternal     Kind = "internal"
)

// Error is a categorized application error.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	// Fields holds per-field messages for validation failures.
	Fields map[string][]string
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports a match when target is an *Error of the same kind, so callers can
// write errors.Is(err, apperr.ErrNotFound).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

// Kind markers for errors.Is checks.
var (
	ErrValidation   = &Error{Kind: KindValidation}
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrRateLimited  = &Error{Kind: KindRateLimited}
	ErrUnavailable  = &Error{Kind: KindUnavailable}
	ErrInternal     = &Error{Kind: KindInternal}
)

// Validation builds a validation error with no field detail.
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Status: http.StatusBadRequest, Message: message}
}

// FieldErrors accumulates per-field validation messages.
type FieldErrors map[string][]string

// Add appends msg to field.
func (f FieldErrors) Add(field, msg string) {
	f[field] = append(f[field], msg)
}

// Err returns nil when no field failed, otherwise a validation *Error.
func (f FieldErrors) Err() error {
	if len(f) == 0 {
		return nil
	}
	fields := make(map[string][]string, len(f))
	for k, v := range f {
		fields[k] = append([]string(nil), v...)
	}
	return &Error{
		Kind:    KindValidation,
		Status:  http.StatusBadRequest,
		Message: "validation failed: " + f.summary(),
		Fields:  fields,
	}
}

func (f FieldErrors) summary() string {
	names := make([]string, 0, len(f))
	for k := range f {
		names = append(names, k)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// Unauthorized builds a 401 error.
func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Status: http.StatusUnauthorized, Message: message}
}

// NotFound builds a 404 error.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Status: http.StatusNotFound, Message: message}
}

// RateLimited builds a 429 error.
func RateLimited(message string, cause error) *Error {
	return &Error{Kind: KindRateLimited, Status: http.StatusTooManyRequests, Message: message, Cause: cause}
}

// Unavailable builds a 500 error for exhausted upstream fallbacks.
func Unavailable(message string, cause error) *Error {
	return &Error{Kind: KindUnavailable, Status: http.StatusInternalServerError, Message: message, Cause: cause}
}

// Internal wraps an unexpected failure. The cause is logged, never returned to callers.
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Status: http.StatusInternalServerError, Message: "Internal server error", Cause: cause}
}

// From converts any error into an *Error, treating unknown errors as internal.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		if e.Status == 0 {
			return Internal(err)
		}
		return e
	}
	return Internal(err)
}
