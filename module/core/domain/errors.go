package domain

import (
	"errors"
	"fmt"
)

// ErrFamilyNotFound means the event's family no longer exists. Expected
// when a family is deleted after an event was recorded; terminal for that
// event, never retried.
var ErrFamilyNotFound = errors.New("family not found")

// ValidationError marks a malformed transition event. Terminal: malformed
// data will not become valid on retry.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}
