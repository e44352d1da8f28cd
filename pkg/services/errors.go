// Package services provides standardized error types for service layer operations.
package services

import (
	"errors"
	"fmt"
)

// Business logic errors. Each maps to one HTTP class in pkg/web.
var (
	// Validation errors (400 Bad Request).
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNameRequired      = errors.New("campaign name is required")
	ErrWorkspaceRequired = errors.New("workspace ID is required")
	ErrInvalidAction     = errors.New("invalid toggle action")

	// Authorization failures (403 Forbidden).
	ErrPermissionDenied = errors.New("permission denied")

	// Missing entities (404 Not Found).
	ErrCampaignNotFound  = errors.New("campaign not found")
	ErrProvisionNotFound = errors.New("provision not found")

	// Precondition failures (412 Precondition Failed). Toggling a campaign
	// with no linked remote workflow is the canonical case.
	ErrWorkflowNotLinked = errors.New("campaign has no linked remote workflow")

	// Conflicts (409). Retriable after a fresh read: another writer won
	// the optimistic-concurrency race.
	ErrVersionConflict = errors.New("campaign was modified concurrently, re-fetch and retry")

	// Remote failures (502 Bad Gateway). The toggle did not take effect
	// remotely; retriable by the caller.
	ErrRemoteCallFailed = errors.New("automation engine call failed")

	// Storage failures (500). Retriable with backoff.
	ErrStorage = errors.New("storage operation failed")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewServiceError creates a service error with context.
func NewServiceError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsValidationError checks if an error should map to HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrNameRequired) ||
		errors.Is(err, ErrWorkspaceRequired) ||
		errors.Is(err, ErrInvalidAction)
}

// IsPermissionError checks if an error should map to HTTP 403.
func IsPermissionError(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

// IsNotFoundError checks if an error should map to HTTP 404.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrCampaignNotFound) || errors.Is(err, ErrProvisionNotFound)
}

// IsPreconditionError checks if an error should map to HTTP 412.
func IsPreconditionError(err error) bool {
	return errors.Is(err, ErrWorkflowNotLinked)
}

// IsConflictError checks if an error should map to HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

// IsRemoteError checks if an error should map to HTTP 502.
func IsRemoteError(err error) bool {
	return errors.Is(err, ErrRemoteCallFailed)
}
