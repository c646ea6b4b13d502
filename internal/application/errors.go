package application

import (
	"errors"

	"github.com/example/conference-scheduler/internal/persistence"
)

var (
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrInvalidVersionName is returned when a release name is empty or reserved.
	ErrInvalidVersionName = errors.New("application: invalid version name")
	// ErrAlreadyVersioned is returned when freezing a schedule that is already released.
	ErrAlreadyVersioned = errors.New("application: schedule already versioned")
	// ErrDuplicateVersion is returned when the version name is already in use for the event.
	ErrDuplicateVersion = errors.New("application: version name already in use")
	// ErrNotVersioned is returned when unfreezing the draft schedule itself.
	ErrNotVersioned = errors.New("application: schedule not versioned")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// mapStoreError translates persistence sentinels into application errors.
// Unrecognized errors, including store unavailability, pass through as-is.
func mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrDuplicateVersion
	}
	return err
}
