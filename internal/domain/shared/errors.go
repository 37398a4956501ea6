package shared

import "errors"

// ErrorKind classifies a domain error for callers that need to react to
// the category rather than the specific code (HTTP mapping, retries).
type ErrorKind string

const (
	KindValidation        ErrorKind = "VALIDATION"
	KindNotFound          ErrorKind = "NOT_FOUND"
	KindInvalidTransition ErrorKind = "INVALID_TRANSITION"
	KindConcurrency       ErrorKind = "CONCURRENCY"
)

// DomainError represents a domain-level error
type DomainError struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	// Subject identifies the offending entity (line item, return, order) when known.
	Subject string `json:"subject,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code, so
// sentinel values such as ErrNotFound match errors built at call sites.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithSubject returns a copy of the error naming the offending entity
func (e *DomainError) WithSubject(subject string) *DomainError {
	cp := *e
	cp.Subject = subject
	return &cp
}

// NewDomainError creates a new validation-kind domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Kind:    KindValidation,
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates an error for malformed or constraint-violating input
func NewValidationError(code, message string) *DomainError {
	return &DomainError{Kind: KindValidation, Code: code, Message: message}
}

// NewNotFoundError creates an error for a missing order, line item or return
func NewNotFoundError(code, message string) *DomainError {
	return &DomainError{Kind: KindNotFound, Code: code, Message: message}
}

// NewInvalidTransitionError creates an error for a disallowed status change
func NewInvalidTransitionError(code, message string) *DomainError {
	return &DomainError{Kind: KindInvalidTransition, Code: code, Message: message}
}

// NewConcurrencyError creates an error for a conflicting write
func NewConcurrencyError(code, message string) *DomainError {
	return &DomainError{Kind: KindConcurrency, Code: code, Message: message}
}

// Common domain errors
var (
	ErrNotFound            = NewNotFoundError("NOT_FOUND", "Resource not found")
	ErrInvalidInput        = NewValidationError("INVALID_INPUT", "Invalid input provided")
	ErrInvalidState        = NewInvalidTransitionError("INVALID_STATE", "Operation not allowed in current state")
	ErrConcurrencyConflict = NewConcurrencyError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrDuplicateRequest    = NewConcurrencyError("DUPLICATE_REQUEST", "Request with this idempotency key was already processed")
	ErrLockNotAcquired     = NewConcurrencyError("LOCK_NOT_ACQUIRED", "Resource is being modified by another request")
)

// KindOf returns the kind of a domain error, or "" when err is not one.
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsValidation reports whether err is a validation error
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsNotFound reports whether err is a not-found error
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsInvalidTransition reports whether err is an invalid-transition error
func IsInvalidTransition(err error) bool { return KindOf(err) == KindInvalidTransition }

// IsConcurrency reports whether err is a concurrency error
func IsConcurrency(err error) bool { return KindOf(err) == KindConcurrency }
