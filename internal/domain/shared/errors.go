// Package shared contains common domain types, errors, and events that are
// used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")

	// Sync failure classes
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrDataIntegrity      = errors.New("data integrity violation")
	ErrMissingReference   = errors.New("missing reference")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrRateLimited        = errors.New("rate limited")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "category", "problem", "sync"
	Op      string // Operation that failed, e.g., "GetOrCreate", "Propagate"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Category domain errors
var (
	ErrCategoryNotFound  = NewDomainError("category", "Find", ErrNotFound, "category not found")
	ErrDuplicateEdge     = NewDomainError("category", "GetEdge", ErrDataIntegrity, "more than one edge for the same subject and category")
	ErrEdgeNotFound      = NewDomainError("category", "GetEdge", ErrNotFound, "category edge not found")
	ErrInvalidFactor     = NewDomainError("category", "Validate", ErrValueOutOfRange, "dependency factor must be positive")
	ErrInvalidPercentage = NewDomainError("category", "Validate", ErrValueOutOfRange, "score percentage must be within 0-100")
)

// Problem domain errors
var (
	ErrProblemNotFound     = NewDomainError("problem", "Find", ErrNotFound, "problem not found")
	ErrProblemEdgeNotFound = NewDomainError("problem", "GetEdge", ErrNotFound, "problem edge not found")
	ErrInvalidDifficulty   = NewDomainError("problem", "Validate", ErrValueOutOfRange, "difficulty must be within 0-10")
	ErrSolvedIsTerminal    = NewDomainError("problem", "UpdateStatus", ErrStateTransition, "a solved problem cannot be downgraded")
	ErrEmptySubmissions    = NewDomainError("problem", "Validate", ErrInvalidInput, "a solved edge requires at least one submission")
)

// Subject domain errors
var (
	ErrSubjectNotFound = NewDomainError("subject", "Find", ErrNotFound, "subject not found")
	ErrInvalidKind     = NewDomainError("subject", "Validate", ErrInvalidInput, "subject kind must be user or team")
)

// External judge errors
var (
	ErrJudgeUnavailable     = NewDomainError("judge", "Request", ErrServiceUnavailable, "judge API is unavailable")
	ErrJudgeRateLimited     = NewDomainError("judge", "Request", ErrRateLimited, "judge API rate limit exceeded")
	ErrJudgeInvalidResponse = NewDomainError("judge", "Parse", ErrExternalService, "invalid response from judge API")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDataIntegrity checks if the error is a data-integrity violation.
func IsDataIntegrity(err error) bool {
	return errors.Is(err, ErrDataIntegrity)
}

// IsMissingReference checks if the error is a tolerated missing reference.
func IsMissingReference(err error) bool {
	return errors.Is(err, ErrMissingReference)
}

// IsRetryable checks if the operation can be retried by the dispatcher.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout)
}
