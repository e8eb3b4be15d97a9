package core

import (
	"errors"
	"fmt"
)

// ErrNotFound is matched by every NotFoundError via errors.Is.
var ErrNotFound = errors.New("not found")

// NotFoundError reports a missing document.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFound returns a NotFoundError for the resource and id.
func NewNotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError reports invalid caller input. It is returned before any write.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Message)
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ActivityError reports a moderation change that was written to the store
// but whose activity record was not.
type ActivityError struct {
	ID    string
	Cause error
}

func (e *ActivityError) Error() string {
	return fmt.Sprintf("%s updated but activity not recorded: %v", e.ID, e.Cause)
}

func (e *ActivityError) Unwrap() error {
	return e.Cause
}

// unrecorded wraps a failed activity insert for an applied change.
func unrecorded(id string, err error) error {
	if err == nil {
		return nil
	}
	return &ActivityError{ID: id, Cause: err}
}
