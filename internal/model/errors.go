package model

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by stores when a row does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError represents invalid caller input.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) ValidationError {
	return ValidationError{Field: field, Message: message}
}

// IsValidationError checks if an error is a validation error (including wrapped errors)
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// NotFoundError represents a referenced subject or entry that does not exist.
type NotFoundError struct {
	Field   string
	Message string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("not found %s: %s", e.Field, e.Message)
}

// Is lets errors.Is(err, ErrNotFound) match typed not-found errors.
func (e NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NewNotFoundError constructs NotFoundError
func NewNotFoundError(field, message string) NotFoundError {
	return NotFoundError{Field: field, Message: message}
}

// IsNotFoundError checks if error is NotFoundError or wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	var ne NotFoundError
	return errors.As(err, &ne) || errors.Is(err, ErrNotFound)
}

// UnauthorizedError is returned when an actor may not perform an action.
// Callers must reject before computing anything.
type UnauthorizedError struct {
	Action  string
	Message string
}

func (e UnauthorizedError) Error() string {
	return fmt.Sprintf("unauthorized %s: %s", e.Action, e.Message)
}

// NewUnauthorizedError constructs UnauthorizedError
func NewUnauthorizedError(action, message string) UnauthorizedError {
	return UnauthorizedError{Action: action, Message: message}
}

// IsUnauthorizedError checks if error is UnauthorizedError
func IsUnauthorizedError(err error) bool {
	var ue UnauthorizedError
	return errors.As(err, &ue)
}
