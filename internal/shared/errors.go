package shared

import "errors"

var (
	// ErrNotFound indicates the record does not exist or is soft-deleted.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates the request payload is unacceptable.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicate indicates a unique value (number, tax id, code) is taken.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrInvalidStatus indicates an action is not allowed in the current status.
	ErrInvalidStatus = errors.New("invalid status for operation")
)

// FieldErrors carries per-field validation messages keyed by JSON field name.
type FieldErrors struct {
	Fields map[string]string
}

// NewFieldErrors returns a FieldErrors holding a single message.
func NewFieldErrors(field, msg string) *FieldErrors {
	return &FieldErrors{Fields: map[string]string{field: msg}}
}

func (f *FieldErrors) Error() string {
	return "validation failed"
}

// Unwrap lets errors.Is match ErrValidation.
func (f *FieldErrors) Unwrap() error {
	return ErrValidation
}
