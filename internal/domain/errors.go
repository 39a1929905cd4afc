// Package domain defines domain-specific errors.
// These errors represent business logic failures and are independent of infrastructure.
package domain

import (
	"errors"
	"fmt"
)

// Common errors that services can return.
var (
	// ErrDownloadNotFound is returned when no download matches a lookup.
	// Missing records, missing engine entries and disallowed statuses all map to it.
	ErrDownloadNotFound = errors.New("download not found")

	// ErrRecordNotFound is returned by the record store when no row exists for an id.
	ErrRecordNotFound = errors.New("download record not found")

	// ErrEngineEntryNotFound is returned when a handle no longer resolves in the fetch engine.
	ErrEngineEntryNotFound = errors.New("engine entry not found")

	// ErrRootNotSet is returned when no downloads root folder has been chosen.
	ErrRootNotSet = errors.New("downloads root not set")

	// ErrRootInvalid is returned when the downloads root is not an existing, readable, writable directory.
	ErrRootInvalid = errors.New("downloads root is not a usable directory")

	// ErrInvalidSourceURL is returned when content has no usable network locator.
	ErrInvalidSourceURL = errors.New("invalid source url")

	// ErrTrackNotFound is returned when a queue id cannot be found.
	ErrTrackNotFound = errors.New("track not found")

	// ErrPlaylistNotFound is returned when a requested playlist doesn't exist.
	ErrPlaylistNotFound = errors.New("playlist not found")

	// ErrQueueEmpty is returned when queue operations are attempted on an empty queue.
	ErrQueueEmpty = errors.New("queue is empty")

	// ErrInvalidIndex is returned when a queue index is out of bounds.
	ErrInvalidIndex = errors.New("invalid queue index")

	// ErrEngineClosed is returned when the fetch engine has been shut down.
	ErrEngineClosed = errors.New("fetch engine closed")
)

// EngineError represents an error from the fetch engine.
// This wraps low-level transfer errors with additional context.
type EngineError struct {
	Op      string       // Operation that failed (e.g., "enqueue", "pause", "status")
	Handle  EngineHandle // Engine handle (if applicable)
	Code    int          // HTTP status or engine code (0 if none)
	Message string       // Error message
	Err     error        // Underlying error (if any)
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Handle.IsValid() {
		return fmt.Sprintf("fetch engine %s failed for #%d: %s (code: %d)", e.Op, e.Handle, e.Message, e.Code)
	}
	return fmt.Sprintf("fetch engine %s failed: %s (code: %d)", e.Op, e.Message, e.Code)
}

// Unwrap returns the underlying error.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// NewEngineError creates a new EngineError.
func NewEngineError(op string, handle EngineHandle, code int, message string, err error) *EngineError {
	return &EngineError{
		Op:      op,
		Handle:  handle,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// RepositoryError represents an error from a repository.
// This wraps persistence layer errors with additional context.
type RepositoryError struct {
	Op      string // Operation that failed (e.g., "save", "load", "delete")
	Type    string // Repository type (e.g., "download_requests", "preferences")
	Message string // Error message
	Err     error  // Underlying error
}

// Error implements the error interface.
func (e *RepositoryError) Error() string {
	return fmt.Sprintf("repository %s.%s failed: %s", e.Type, e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *RepositoryError) Unwrap() error {
	return e.Err
}

// NewRepositoryError creates a new RepositoryError.
func NewRepositoryError(op, repoType, message string, err error) *RepositoryError {
	return &RepositoryError{
		Op:      op,
		Type:    repoType,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string      // Field that failed validation
	Value   interface{} // Value that failed validation
	Message string      // Error message
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s (value: %v)", e.Field, e.Message, e.Value)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// ServiceError represents an error from a service layer operation.
type ServiceError struct {
	Service string // Service name (e.g., "DownloadService", "QueueService")
	Op      string // Operation that failed
	Message string // Error message
	Err     error  // Underlying error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("service %s.%s failed: %s", e.Service, e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(service, op, message string, err error) *ServiceError {
	return &ServiceError{
		Service: service,
		Op:      op,
		Message: message,
		Err:     err,
	}
}
