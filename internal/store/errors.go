package store

import (
	"fmt"

	"github.com/google/uuid"
)

// ValidationError reports malformed input or a failed invariant, such as a
// weight sum outside tolerance. The message names the exact constraint so
// administrative UIs can surface it verbatim.
type ValidationError struct {
	Constraint string
}

func (e *ValidationError) Error() string { return e.Constraint }

func Validationf(format string, args ...interface{}) error {
	return &ValidationError{Constraint: fmt.Sprintf(format, args...)}
}

// ConflictError reports a uniqueness violation: duplicate name, occupied
// descriptor slot, or similar. ConflictingID carries the id of the entity
// already holding the slot when it is known.
type ConflictError struct {
	Entity        string
	Constraint    string
	ConflictingID uuid.UUID
}

func (e *ConflictError) Error() string {
	if e.ConflictingID != uuid.Nil {
		return fmt.Sprintf("%s conflict: %s (existing id %s)", e.Entity, e.Constraint, e.ConflictingID)
	}
	return fmt.Sprintf("%s conflict: %s", e.Entity, e.Constraint)
}

// NotFoundError reports a referenced entity that is absent or already
// soft-deleted.
type NotFoundError struct {
	Entity string
	ID     uuid.UUID
}

func (e *NotFoundError) Error() string {
	if e.ID == uuid.Nil {
		return fmt.Sprintf("%s not found", e.Entity)
	}
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// InvalidOperationError reports an operation that is structurally valid but
// not permitted in the current state, such as deleting the default scheme.
type InvalidOperationError struct {
	Reason string
}

func (e *InvalidOperationError) Error() string { return e.Reason }
