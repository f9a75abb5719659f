package domain

import (
	"errors"
	"fmt"
)

// FaultKind classifies backend faults so callers can branch on the class
// rather than on provider-specific error strings.
type FaultKind string

const (
	FaultAuth        FaultKind = "AUTH"
	FaultNotFound    FaultKind = "NOT_FOUND"
	FaultConflict    FaultKind = "CONFLICT"
	FaultRateLimited FaultKind = "RATE_LIMITED"
	FaultOther       FaultKind = "OTHER"
)

// BackendError is the single fault type every Backend implementation
// returns for provider-side errors.
type BackendError struct {
	Kind    FaultKind
	Op      string
	Message string
	Cause   error
}

func (e *BackendError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.Op == "" {
		return msg
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *BackendError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// BackendFault builds a classified backend error.
func BackendFault(kind FaultKind, op, msg string, cause error) *BackendError {
	if msg == "" && cause != nil {
		msg = cause.Error()
	}
	return &BackendError{
		Kind:    kind,
		Op:      op,
		Message: msg,
		Cause:   cause,
	}
}

// FaultKindOf extracts the fault classification from an error chain.
// Errors that are not backend faults report FaultOther.
func FaultKindOf(err error) FaultKind {
	var backendErr *BackendError
	if errors.As(err, &backendErr) && backendErr.Kind != "" {
		return backendErr.Kind
	}
	return FaultOther
}

// IsFault reports whether err carries the given fault classification.
func IsFault(err error, kind FaultKind) bool {
	return err != nil && FaultKindOf(err) == kind
}
