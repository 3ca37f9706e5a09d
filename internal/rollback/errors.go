package rollback

import (
	"errors"
	"fmt"

	"github.com/roach88/rewind/internal/tick"
)

// ReconcileError represents an error detected by the rollback core.
//
// Only programming errors are surfaced as errors: registering a component
// twice or under a conflicting classification, or referencing a component
// nobody registered. Degraded-but-functioning conditions (a correction
// older than the retention window, a resimulated tick with no recorded
// input, a duplicate correction) are handled by policy and reported through
// Diagnostics, never as failures.
type ReconcileError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Component identifies the component type, when relevant.
	Component string

	// Tick identifies the affected tick, when relevant.
	Tick tick.Tick
}

// ErrorCode categorizes rollback errors.
type ErrorCode string

const (
	// ErrCodeDuplicateRegistration indicates a component type was registered
	// twice or under both classifications.
	ErrCodeDuplicateRegistration ErrorCode = "DUPLICATE_REGISTRATION"

	// ErrCodeUnregisteredComponent indicates reconciliation referenced a
	// component type that was never registered.
	ErrCodeUnregisteredComponent ErrorCode = "UNREGISTERED_COMPONENT"

	// ErrCodeRegistrySealed indicates a registration was attempted after the
	// registry was handed to a reconciler. The classifier is immutable once
	// simulation starts.
	ErrCodeRegistrySealed ErrorCode = "REGISTRY_SEALED"
)

// Error implements the error interface.
func (e *ReconcileError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("%s: %s (component=%s)", e.Code, e.Message, e.Component)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsDuplicateRegistration reports whether err is a duplicate-registration
// error. Uses errors.As to handle wrapped errors.
func IsDuplicateRegistration(err error) bool {
	var re *ReconcileError
	return errors.As(err, &re) && re.Code == ErrCodeDuplicateRegistration
}

// IsUnregisteredComponent reports whether err references an unregistered
// component.
func IsUnregisteredComponent(err error) bool {
	var re *ReconcileError
	return errors.As(err, &re) && re.Code == ErrCodeUnregisteredComponent
}

// NewDuplicateRegistrationError creates a ReconcileError for a component
// registered more than once.
func NewDuplicateRegistrationError(component string) *ReconcileError {
	return &ReconcileError{
		Code:      ErrCodeDuplicateRegistration,
		Message:   "component type already registered",
		Component: component,
	}
}

// NewUnregisteredComponentError creates a ReconcileError for an unknown
// component type.
func NewUnregisteredComponentError(component string) *ReconcileError {
	return &ReconcileError{
		Code:      ErrCodeUnregisteredComponent,
		Message:   "component type was never registered",
		Component: component,
	}
}

// NewRegistrySealedError creates a ReconcileError for a registration after
// startup.
func NewRegistrySealedError(component string) *ReconcileError {
	return &ReconcileError{
		Code:      ErrCodeRegistrySealed,
		Message:   "registry is sealed, register components before constructing the reconciler",
		Component: component,
	}
}
