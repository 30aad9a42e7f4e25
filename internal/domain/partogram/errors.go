package partogram

import (
	"errors"
	"fmt"
)

// ErrEntryNotFound is returned when a measurement does not exist for the patient.
var ErrEntryNotFound = errors.New("partogram entry not found")

// ErrLaborCompleted is returned when a measurement is recorded against a
// patient whose labor is already completed.
var ErrLaborCompleted = errors.New("labor already completed")

// ErrLaborNotStarted is returned when labor completion is requested for a
// patient whose labor never started.
var ErrLaborNotStarted = errors.New("labor has not started")

// ValidationError reports a malformed or out-of-range measurement field.
// Nothing is persisted when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
