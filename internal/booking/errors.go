package booking

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when no session exists for a
// (platform, user) key.
var ErrSessionNotFound = errors.New("booking: session not found")

// ValidationError reports a field-level rejection. The session state is
// unchanged and the caller re-prompts for the same field.
type ValidationError struct {
	Field  State
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("booking: invalid %s: %s", e.Field, e.Reason)
}
