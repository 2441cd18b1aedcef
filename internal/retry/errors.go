package retry

import (
	"fmt"

	llmerrors "github.com/corvex/llmgate/pkg/errors"
)

// AttemptError records one failed attempt for the caller's telemetry and for
// the final aggregate Error returned when every attempt is exhausted.
type AttemptError struct {
	Group        string
	DeploymentID string
	Kind         llmerrors.ErrorKind
	Err          error
}

// Error is returned by Engine.Invoke when no attempt succeeded. Kind is the
// classification of the final failure (or NoDeploymentsAvailable/Cancelled/
// Timeout for budget-exhaustion paths that never reached a provider call).
type Error struct {
	Kind     llmerrors.ErrorKind
	Cause    error
	Attempts []AttemptError
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("retry: %s: %v (%d attempt(s))", e.Kind, e.Cause, len(e.Attempts))
	}
	return fmt.Sprintf("retry: %s (%d attempt(s))", e.Kind, len(e.Attempts))
}

func (e *Error) Unwrap() error { return e.Cause }
