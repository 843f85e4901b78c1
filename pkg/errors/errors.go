package errors

import (
	"errors"
	"fmt"
)

// Generic error kinds

var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists indicates a resource already exists
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrInternal indicates an internal error
	ErrInternal = errors.New("internal error")

	// ErrTimeout indicates an operation timeout
	ErrTimeout = errors.New("operation timeout")

	// ErrUnavailable indicates a collaborator is unavailable
	ErrUnavailable = errors.New("service unavailable")

	// ErrExternal indicates a failure reported by a remote service
	ErrExternal = errors.New("external service error")

	// ErrInvalidConfig indicates configuration that cannot be used to start the service
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Monitoring errors

var (
	// ErrPositionNotFound indicates the requested position is not in the store
	ErrPositionNotFound = errors.New("position not found")

	// ErrInvalidPosition indicates a position with malformed or out-of-range fields
	ErrInvalidPosition = errors.New("invalid position")

	// ErrMitigationNotNeeded indicates leverage is already at or below the floor
	ErrMitigationNotNeeded = errors.New("leverage already at floor")

	// ErrNarrativeUnavailable indicates the narrative collaborator returned no usable text
	ErrNarrativeUnavailable = errors.New("narrative unavailable")

	// ErrPriceUnavailable indicates the price feed has no quote for an asset
	ErrPriceUnavailable = errors.New("price unavailable")
)

// Scheduler errors

var (
	// ErrSchedulerStarted indicates Start was called twice
	ErrSchedulerStarted = errors.New("scheduler already started")

	// ErrSchedulerStopped indicates Stop was called on an idle scheduler
	ErrSchedulerStopped = errors.New("scheduler not started")

	// ErrSchedulerDraining indicates passes from a previous run have not finished
	ErrSchedulerDraining = errors.New("scheduler still draining previous passes")
)

// ValidationError represents a validation error with field-specific details
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: field '%s': %s (value: %v)", e.Field, e.Message, e.Value)
}

// Unwrap lets callers match validation failures with ErrInvalidInput
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// MultiError wraps multiple errors
type MultiError struct {
	Errors []error
}

// Error implements the error interface
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	return fmt.Sprintf("multiple errors (%d): %v", len(m.Errors), m.Errors[0])
}

// Unwrap exposes the collected errors to errors.Is / errors.As
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Add adds an error to the list
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// HasErrors returns true if there are any errors
func (m *MultiError) HasErrors() bool {
	return len(m.Errors) > 0
}

// ToError returns the MultiError as an error, or nil if no errors
func (m *MultiError) ToError() error {
	if !m.HasErrors() {
		return nil
	}
	return m
}

// Helper functions

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func New(message string) error {
	return errors.New(message)
}

func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
