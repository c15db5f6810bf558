package daemon

import (
	"errors"
	"fmt"
)

// Sentinel errors for daemon failure modes.
var (
	ErrInvalidConfig    = errors.New("invalid daemon configuration")
	ErrCollectorFailed  = errors.New("metrics collection failed")
	ErrTransitionFailed = errors.New("profile transition failed")
	ErrHTTPServerFailed = errors.New("HTTP server failed")
)

// DaemonError wraps errors with operation context.
type DaemonError struct {
	Op    string // Operation that failed
	Phase string // Phase of daemon operation (startup, running, shutdown)
	Err   error  // Underlying error
}

func (e *DaemonError) Error() string {
	if e.Phase != "" {
		return fmt.Sprintf("daemon %s during %s: %s", e.Op, e.Phase, e.Err)
	}
	return fmt.Sprintf("daemon %s: %s", e.Op, e.Err)
}

func (e *DaemonError) Unwrap() error {
	return e.Err
}

// Is implements the errors.Is interface.
func (e *DaemonError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewDaemonError creates a new DaemonError with context.
func NewDaemonError(op, phase string, err error) *DaemonError {
	return &DaemonError{Op: op, Phase: phase, Err: err}
}

// WrapError wraps an error with daemon context.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &DaemonError{Op: op, Err: err}
}

// IsRecoverable determines if an error is recoverable and the daemon should
// continue. Collection and transition failures clear on the next cycle; a
// failed transition leaves the controller on its previous profile.
func IsRecoverable(err error) bool {
	var daemonErr *DaemonError
	if errors.As(err, &daemonErr) {
		return errors.Is(daemonErr.Err, ErrCollectorFailed) ||
			errors.Is(daemonErr.Err, ErrTransitionFailed)
	}
	return false
}
