// Package errors provides standardized error types for the domain layer.
// Every rejected operation carries a specific kind so calling
// integrations can tell retryable conditions from permanent ones.
package errors

import (
	"errors"
	"fmt"
)

// Standard error categories
var (
	// ErrUnauthorized indicates a capability check failed (administrator-only
	// or transport-only operations)
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation indicates invalid input: zero amount, unsupported
	// chain/token/protocol, malformed identifier
	ErrValidation = errors.New("validation failed")

	// ErrDuplicateRequest indicates a request id collision on create
	ErrDuplicateRequest = errors.New("duplicate request")

	// ErrNotFound indicates an unknown request id or configuration key
	ErrNotFound = errors.New("not found")

	// ErrAlreadyProcessed indicates a settlement was attempted twice
	ErrAlreadyProcessed = errors.New("already processed")

	// ErrInsufficientFunds indicates the balance/allowance check failed
	// before any transfer was attempted
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrTransportFailure indicates an external bridge or transfer call
	// signaled failure
	ErrTransportFailure = errors.New("transport failure")

	// ErrInvalidProtocol indicates the requested bridge protocol has no
	// active configuration
	ErrInvalidProtocol = errors.New("invalid bridge protocol")

	// ErrPaused indicates the operation was rejected while the engine
	// is paused
	ErrPaused = errors.New("engine paused")
)

// DomainError represents a domain-specific error with additional context
type DomainError struct {
	Err       error
	Code      string
	Message   string
	Details   map[string]interface{}
	Retryable bool
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Code
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is checks if the error matches the target
func (e *DomainError) Is(target error) bool {
	if e.Err != nil {
		return errors.Is(e.Err, target)
	}
	return false
}

// WithDetails adds details to the error
func (e *DomainError) WithDetails(details map[string]interface{}) *DomainError {
	e.Details = details
	return e
}

// IsRetryable returns true if the error is worth retrying
func (e *DomainError) IsRetryable() bool {
	return e.Retryable
}

// UnauthorizedError creates an unauthorized error
func UnauthorizedError(message string) *DomainError {
	return &DomainError{
		Err:     ErrUnauthorized,
		Code:    "UNAUTHORIZED",
		Message: message,
	}
}

// ValidationError creates a validation error
func ValidationError(field, message string) *DomainError {
	return &DomainError{
		Err:     ErrValidation,
		Code:    "VALIDATION_ERROR",
		Message: message,
		Details: map[string]interface{}{
			"field": field,
		},
	}
}

// DuplicateRequestError creates a duplicate-request error
func DuplicateRequestError(requestID string) *DomainError {
	return &DomainError{
		Err:     ErrDuplicateRequest,
		Code:    "DUPLICATE_REQUEST",
		Message: fmt.Sprintf("payment request %s already exists", requestID),
	}
}

// NotFoundError creates a not found error
func NotFoundError(resource string) *DomainError {
	return &DomainError{
		Err:     ErrNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// AlreadyProcessedError creates an already-processed error
func AlreadyProcessedError(requestID string) *DomainError {
	return &DomainError{
		Err:     ErrAlreadyProcessed,
		Code:    "ALREADY_PROCESSED",
		Message: fmt.Sprintf("payment request %s is already processed", requestID),
	}
}

// InsufficientFundsError creates an insufficient-funds error
func InsufficientFundsError(message string) *DomainError {
	return &DomainError{
		Err:       ErrInsufficientFunds,
		Code:      "INSUFFICIENT_FUNDS",
		Message:   message,
		Retryable: true,
	}
}

// TransportFailureError creates a transport-failure error
func TransportFailureError(message string, err error) *DomainError {
	de := &DomainError{
		Err:       ErrTransportFailure,
		Code:      "TRANSPORT_FAILURE",
		Message:   message,
		Retryable: true,
	}
	if err != nil {
		de.Details = map[string]interface{}{
			"cause": err.Error(),
		}
	}
	return de
}

// InvalidProtocolError creates an invalid-protocol error
func InvalidProtocolError(protocol string) *DomainError {
	return &DomainError{
		Err:     ErrInvalidProtocol,
		Code:    "INVALID_PROTOCOL",
		Message: fmt.Sprintf("bridge protocol %s has no active configuration", protocol),
	}
}

// PausedError creates a paused error
func PausedError() *DomainError {
	return &DomainError{
		Err:     ErrPaused,
		Code:    "PAUSED",
		Message: "payment initiation is paused",
	}
}

// Error helpers for common patterns

// IsUnauthorized checks if an error is an unauthorized error
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsDuplicateRequest checks if an error is a duplicate-request error
func IsDuplicateRequest(err error) bool {
	return errors.Is(err, ErrDuplicateRequest)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyProcessed checks if an error is an already-processed error
func IsAlreadyProcessed(err error) bool {
	return errors.Is(err, ErrAlreadyProcessed)
}

// IsInsufficientFunds checks if an error is an insufficient-funds error
func IsInsufficientFunds(err error) bool {
	return errors.Is(err, ErrInsufficientFunds)
}

// IsTransportFailure checks if an error is a transport-failure error
func IsTransportFailure(err error) bool {
	return errors.Is(err, ErrTransportFailure)
}

// IsInvalidProtocol checks if an error is an invalid-protocol error
func IsInvalidProtocol(err error) bool {
	return errors.Is(err, ErrInvalidProtocol)
}

// IsPaused checks if an error is a paused error
func IsPaused(err error) bool {
	return errors.Is(err, ErrPaused)
}

// ShouldRetry reports whether a caller may retry the failed operation
func ShouldRetry(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from a domain error
func GetErrorCode(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return "UNKNOWN_ERROR"
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
