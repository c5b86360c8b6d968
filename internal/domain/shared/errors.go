package shared

import "fmt"

// ErrorKind classifies domain errors so that callers can react to a family of
// failures without knowing every individual code.
type ErrorKind string

const (
	KindValidation   ErrorKind = "VALIDATION"
	KindNotFound     ErrorKind = "NOT_FOUND"
	KindConstraint   ErrorKind = "CONSTRAINT"
	KindConflict     ErrorKind = "CONFLICT"
	KindStorage      ErrorKind = "STORAGE"
	KindUnauthorized ErrorKind = "UNAUTHORIZED"
	KindForbidden    ErrorKind = "FORBIDDEN"
)

// DomainError represents a domain-level error
type DomainError struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	cause   error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is reports whether target describes e. A target without a code matches every
// error of the same kind, so errors.Is(err, ErrValidation) matches any validation error.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// PublicCode returns the code exposed to API clients
func (e *DomainError) PublicCode() string {
	if e.Code != "" {
		return e.Code
	}
	return string(e.Kind)
}

// WithCause returns a copy of the error carrying cause
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{Kind: e.Kind, Code: e.Code, Message: e.Message, cause: cause}
}

// NewDomainError creates a new validation-kind domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Kind:    KindValidation,
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a validation error with the given code
func NewValidationError(code, message string) *DomainError {
	return &DomainError{Kind: KindValidation, Code: code, Message: message}
}

// NewNotFoundError creates a not-found error for the named resource
func NewNotFoundError(code, message string) *DomainError {
	return &DomainError{Kind: KindNotFound, Code: code, Message: message}
}

// NewConstraintError creates an error for a violated referential constraint
func NewConstraintError(code, message string) *DomainError {
	return &DomainError{Kind: KindConstraint, Code: code, Message: message}
}

// NewConflictError creates a conflict error
func NewConflictError(code, message string) *DomainError {
	return &DomainError{Kind: KindConflict, Code: code, Message: message}
}

// NewStorageError wraps a datastore failure. The cause is kept for server-side
// logging and never shown to API clients.
func NewStorageError(op string, cause error) *DomainError {
	return &DomainError{
		Kind:    KindStorage,
		Code:    "STORAGE_ERROR",
		Message: "storage failure during " + op,
		cause:   cause,
	}
}

// Kind sentinels, usable with errors.Is
var (
	ErrValidation = &DomainError{Kind: KindValidation, Message: "Validation failed"}
	ErrConstraint = &DomainError{Kind: KindConstraint, Message: "Resource is still referenced"}
	ErrStorage    = &DomainError{Kind: KindStorage, Message: "Storage failure"}
)

// Common domain errors
var (
	ErrNotFound            = &DomainError{Kind: KindNotFound, Message: "Resource not found"}
	ErrAlreadyExists       = &DomainError{Kind: KindConflict, Code: "ALREADY_EXISTS", Message: "Resource already exists"}
	ErrInvalidInput        = NewValidationError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = &DomainError{Kind: KindConflict, Code: "CONCURRENCY_CONFLICT", Message: "Resource was modified by another process"}
	ErrUnauthorized        = &DomainError{Kind: KindUnauthorized, Message: "Not authorized to perform this action"}
	ErrForbidden           = &DomainError{Kind: KindForbidden, Message: "Access to this resource is forbidden"}
)
