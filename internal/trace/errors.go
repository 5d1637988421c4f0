package trace

import (
	"errors"
	"fmt"
)

// Acquisition failure reasons, matchable with errors.Is.
var (
	ErrSpawnFailed      = errors.New("spawn failed")
	ErrNoSuchProcess    = errors.New("no such process")
	ErrPermissionDenied = errors.New("permission denied")
)

// AcquisitionError reports a failure to obtain a traced target. The session
// never starts; there is nothing to retry.
type AcquisitionError struct {
	Reason error // one of ErrSpawnFailed, ErrNoSuchProcess, ErrPermissionDenied
	Cause  error // underlying OS error, if any
}

func (e *AcquisitionError) Error() string {
	switch {
	case e.Reason != nil && e.Cause != nil:
		return fmt.Sprintf("acquiring tracee: %v: %v", e.Reason, e.Cause)
	case e.Reason != nil:
		return fmt.Sprintf("acquiring tracee: %v", e.Reason)
	default:
		return fmt.Sprintf("acquiring tracee: %v", e.Cause)
	}
}

func (e *AcquisitionError) Unwrap() []error {
	var errs []error
	if e.Reason != nil {
		errs = append(errs, e.Reason)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// ProtocolError reports a stop sequence the tracer cannot reconcile, such as
// two consecutive syscall-enter stops for one pid. Fatal to the session:
// aborting beats guessing at misordered state.
type ProtocolError struct {
	PID int
	Msg string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("trace protocol violation (pid %d): %s", e.PID, e.Msg)
}

// RegisterReadError reports a failed register capture at a stop. The usual
// cause is the tracee dying between the stop notification and the read, a
// benign race the loop recovers from by finalizing the session.
type RegisterReadError struct {
	PID int
	Err error
}

func (e *RegisterReadError) Error() string {
	return fmt.Sprintf("reading registers of pid %d: %v", e.PID, e.Err)
}

func (e *RegisterReadError) Unwrap() error {
	return e.Err
}
