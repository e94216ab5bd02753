package domain

import "fmt"

// ValidationError indicates malformed or missing caller input. The message is
// safe to return to the client.
type ValidationError struct {
	Reason string
}

func (e ValidationError) Error() string { return e.Reason }

func validationf(format string, args ...any) error {
	return ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError indicates a well-formed identifier with no matching record.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string { return "task not found" }
