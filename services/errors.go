package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeConfiguration     ErrorType = "configuration"
	ErrorTypeDimensionMismatch ErrorType = "dimension_mismatch"
	ErrorTypeInvalidFeedback   ErrorType = "invalid_feedback"
	ErrorTypeValidation        ErrorType = "validation"
	ErrorTypeNotFound          ErrorType = "not_found"
	ErrorTypeNumerical         ErrorType = "numerical"
	ErrorTypeConflict          ErrorType = "conflict"
	ErrorTypeInternal          ErrorType = "internal"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail returns a copy of the error with the detail attached.
// Copying keeps the package-level sentinels immutable.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{Type: e.Type, Message: e.Message, Err: e.Err, Details: details}
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Domain error variables

var (
	// Configuration errors (fatal at startup, never retried)
	ErrEmptyBackendCatalog  = NewDomainError(ErrorTypeConfiguration, "backend catalog is empty", nil)
	ErrInvalidRewardWeights = NewDomainError(ErrorTypeConfiguration, "reward weights must sum to 1", nil)
	ErrInvalidDimension     = NewDomainError(ErrorTypeConfiguration, "context dimension is malformed", nil)
	ErrUnknownAlgorithm     = NewDomainError(ErrorTypeConfiguration, "unknown selection algorithm", nil)

	// Per-request errors
	ErrDimensionMismatch = NewDomainError(ErrorTypeDimensionMismatch, "context vector length does not match configured dimension", nil)
	ErrInvalidFeedback   = NewDomainError(ErrorTypeInvalidFeedback, "feedback rating is malformed or out of range", nil)
	ErrInvalidInput      = NewDomainError(ErrorTypeValidation, "invalid input", nil)

	// Lookup errors
	ErrBackendNotFound  = NewDomainError(ErrorTypeNotFound, "backend not found", nil)
	ErrDecisionNotFound = NewDomainError(ErrorTypeNotFound, "routing decision not found", nil)

	// Numerical errors (degraded, never propagated as routing failures)
	ErrSingularMatrix = NewDomainError(ErrorTypeNumerical, "design matrix is numerically singular", nil)

	// Persistence errors
	ErrStateVersionConflict = NewDomainError(ErrorTypeConflict, "concurrent state update detected", nil)
	ErrInternal             = NewDomainError(ErrorTypeInternal, "internal error", nil)
)

// IsConfigurationError checks if an error is a configuration error
func IsConfigurationError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeConfiguration
	}
	return false
}

// IsDimensionMismatchError checks if an error is a dimension mismatch error
func IsDimensionMismatchError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeDimensionMismatch
	}
	return false
}

// IsInvalidFeedbackError checks if an error is an invalid feedback error
func IsInvalidFeedbackError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeInvalidFeedback
	}
	return false
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeNotFound
	}
	return false
}

// IsConflictError checks if an error is an optimistic locking conflict
func IsConflictError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeConflict
	}
	return false
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeValidation
	}
	return false
}

// GetErrorDetails returns the details map of a domain error, or nil
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}
