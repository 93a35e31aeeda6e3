package sequencer

import (
	"context"
	"errors"
	"fmt"
)

// InvalidStateError is returned when an operation is not allowed in the
// sequencer's current state.
type InvalidStateError struct {
	Op    string
	State State
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid state: cannot %s while %s", e.Op, e.State)
}

// RunFailure reports a run that stopped because one record could not be
// posted.
type RunFailure struct {
	RunID    string
	Index    int
	Title    string
	Attempts int
	Err      error
}

func (e *RunFailure) Error() string {
	reason := "unknown error"
	if e.Err != nil {
		reason = e.Err.Error()
	}
	return fmt.Sprintf("listing failed: %s (item %d, %d attempts)\n%s", e.Title, e.Index+1, e.Attempts, reason)
}

func (e *RunFailure) Unwrap() error {
	return e.Err
}

type permanent interface {
	Permanent() bool
}

type kinded interface {
	Kind() string
}

// isPermanent reports failures a page reload cannot fix.
func isPermanent(err error) bool {
	var p permanent
	if errors.As(err, &p) {
		return p.Permanent()
	}
	return false
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	return "other"
}
