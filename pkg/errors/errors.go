package errors

import (
	"errors"
	"fmt"
)

// Common error types
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that a resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates that invalid input was provided
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates that the request lacks valid authentication
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConfiguration indicates that the environment could not be resolved
	// into a usable configuration. Fatal at startup, never retried.
	ErrConfiguration = errors.New("configuration error")

	// ErrStartup indicates that a required startup step failed after
	// configuration was resolved (directory provisioning, store opening).
	ErrStartup = errors.New("startup error")

	// ErrTaskConflict indicates that a report run is already queued or
	// running for the project
	ErrTaskConflict = errors.New("task already in progress")

	// ErrWorkspaceNotReady indicates that the project workspace is missing
	// the files a report run requires
	ErrWorkspaceNotReady = errors.New("workspace not ready")

	// ErrReportMissing indicates that the final report has not been
	// generated yet
	ErrReportMissing = errors.New("final report missing")
)

// ServiceError represents a service-level error with additional context
type ServiceError struct {
	Op      string                 // Operation that failed
	Service string                 // Service where the error occurred
	Err     error                  // Underlying error
	Context map[string]interface{} // Additional context
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	if len(e.Context) > 0 {
		return fmt.Sprintf("%s.%s: %v (context: %v)", e.Service, e.Op, e.Err, e.Context)
	}
	return fmt.Sprintf("%s.%s: %v", e.Service, e.Op, e.Err)
}

// Unwrap allows errors.Is and errors.As to work
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError
func NewServiceError(service, op string, err error) *ServiceError {
	return &ServiceError{
		Service: service,
		Op:      op,
		Err:     err,
	}
}

// WithContext adds context to a ServiceError
func (e *ServiceError) WithContext(key string, value interface{}) *ServiceError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsConfiguration checks if an error is a configuration error
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsStartup checks if an error is a startup error
func IsStartup(err error) bool {
	return errors.Is(err, ErrStartup)
}

// IsTaskConflict checks if an error is a task conflict error
func IsTaskConflict(err error) bool {
	return errors.Is(err, ErrTaskConflict)
}
