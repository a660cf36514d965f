package bonus

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDateRange = errors.New("invalid date range")
	ErrInvalidStatus    = errors.New("invalid target status")
)

// ErrRepository wraps any failure of the backing store. Nothing is retried.
type ErrRepository struct {
	Op    string
	Cause error
}

func (e ErrRepository) Error() string {
	if e.Cause == nil {
		return "failed to " + e.Op
	}
	return "failed to " + e.Op + ": " + e.Cause.Error()
}

func (e ErrRepository) Unwrap() error {
	return e.Cause
}

// ErrDataIntegrity reports a record that breaks the model invariants
type ErrDataIntegrity struct {
	RecordID int64
	Reason   string
}

func (e ErrDataIntegrity) Error() string {
	return fmt.Sprintf("data integrity violation on record %d: %s", e.RecordID, e.Reason)
}

// ErrMissingContext is returned before any store call when the session lacks a
// required attribute (department, user id or username).
type ErrMissingContext struct {
	Field string
}

func (e ErrMissingContext) Error() string {
	return "missing session context: " + e.Field
}

// ErrRecordNotFound indicates that no bonus row has the given id
type ErrRecordNotFound struct {
	ID int64
}

func (e ErrRecordNotFound) Error() string {
	return fmt.Sprintf("bonus record not found: %d", e.ID)
}

// Is matches any ErrRecordNotFound when the target ID is zero
func (e ErrRecordNotFound) Is(target error) bool {
	t, ok := target.(ErrRecordNotFound)
	if !ok {
		return false
	}
	return t.ID == 0 || t.ID == e.ID
}
