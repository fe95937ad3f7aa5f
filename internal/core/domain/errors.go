package domain

import (
	"errors"
	"fmt"
)

// DomainError is a trayctl failure with a stable code. Codes have the form
// TC-<AREA>-<NNNN> and are what errors.Is compares, so a copy carrying
// details or a cause still matches its sentinel.
type DomainError struct {
	Code    string
	Message string
	Details string
	Cause   error
}

// NewDomainError creates a sentinel error.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *DomainError) Unwrap() error { return e.Cause }

// Is matches any *DomainError with the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && e.Code == t.Code
}

// WithDetails returns a copy with details set.
func (e *DomainError) WithDetails(details string) *DomainError {
	c := *e
	c.Details = details
	return &c
}

// WithCause returns a copy wrapping cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	c := *e
	c.Cause = cause
	return &c
}

// CodeOf returns the code of the outermost DomainError in err's chain, or
// "" when there is none.
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsWarning reports whether err is recorded in an ActionResult without
// failing the action.
func IsWarning(err error) bool {
	return errors.Is(err, ErrProcessRestartTimeout)
}

// Config store.
var (
	ErrAccessDenied    = NewDomainError("TC-STORE-4030", "access denied")
	ErrUnsupportedKind = NewDomainError("TC-STORE-4150", "unsupported value kind")
	ErrStore           = NewDomainError("TC-STORE-5000", "config store error")
)

// ErrInvalidSession means there is no per-user hive to operate on, such as
// the registry backend on a non-Windows host.
var ErrInvalidSession = NewDomainError("TC-SESS-4010", "invalid user session")

// Snapshots.
var (
	ErrSnapshotNotFound = NewDomainError("TC-SNAP-4040", "snapshot not found")
	// ErrBackupExists guards an unconsumed snapshot against overwrite.
	ErrBackupExists   = NewDomainError("TC-SNAP-4090", "backup already exists")
	ErrSerialization  = NewDomainError("TC-SNAP-4220", "snapshot serialization error")
	ErrBackupFailed   = NewDomainError("TC-SNAP-5001", "backup failed")
	ErrRollbackFailed = NewDomainError("TC-SNAP-5002", "rollback failed")
)

// Shell process.
var (
	// ErrProcessRestartTimeout means the shell did not stop or come back
	// within the poll limit.
	ErrProcessRestartTimeout = NewDomainError("TC-PROC-5040", "shell restart timed out")
	ErrProcessRestart        = NewDomainError("TC-PROC-5000", "shell restart failed")
)

// Arguments.
var (
	ErrInvalidArgument = NewDomainError("TC-ARG-1001", "invalid argument")
	ErrMissingArgument = NewDomainError("TC-ARG-1002", "missing required argument")
)
