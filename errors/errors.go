package errors

import "fmt"

var (
	ErrMessageNotFound      = fmt.Errorf("message not found")
	ErrNotificationNotFound = fmt.Errorf("notification not found")
	ErrProfileNotFound      = fmt.Errorf("profile not found")
	ErrNotRecipient         = fmt.Errorf("caller is not the recipient")
	ErrWorkerPanic          = fmt.Errorf("worker panic")
	ErrEmptyWords           = fmt.Errorf("no words have been found")
	ErrSlowConsumer         = fmt.Errorf("consumer buffer full, event shed")
)

// ValidationError rejects an input before any persistence attempt.
// Field names the offending payload field so the originating client
// can surface a precise error event.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) ValidationError {
	return ValidationError{Field: field, Reason: reason}
}

// PersistenceError wraps a store failure. It is reported back to the
// initiating connection only and never retried.
type PersistenceError struct {
	Op  string
	Err error
}

func (e PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e PersistenceError) Unwrap() error { return e.Err }
