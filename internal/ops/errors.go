package ops

import "fmt"

// ValidationError reports domain input that violates an invariant. The write
// is rejected before it reaches the store.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func invalidf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// AuthorizationError reports an operation on a record the current user does
// not own.
type AuthorizationError struct {
	Kind string
	ID   string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("%s %s belongs to another user", e.Kind, e.ID)
}

// NotFoundError reports a missing record by kind and id.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}
