package fault

import (
	"errors"
	"fmt"
)

// Sentinel errors for the orchestration core. Callers classify with
// errors.Is and wrap with fmt.Errorf("...: %w", ...).
var (
	// ErrNotFound means an unknown plan or repository id.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a compare-and-swap status write lost a race.
	ErrConflict = errors.New("conflict")
	// ErrUnauthorized means an approval signature failed verification.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrValidationFailed means malformed input: citation syntax, or a
	// plan shape the reasoning backend produced that we refuse to run.
	ErrValidationFailed = errors.New("validation failed")
	// ErrToolTimeout means a collaborator call exceeded its budget.
	ErrToolTimeout = errors.New("tool timeout")
	// ErrToolFailure means a collaborator call returned a non-timeout error.
	ErrToolFailure = errors.New("tool failure")
	// ErrInsufficientEvidence means an analysis shipped zero verifiable citations.
	ErrInsufficientEvidence = errors.New("insufficient evidence")
)

// Kind is the wire-level name of an error class.
type Kind string

const (
	KindNotFound             Kind = "not_found"
	KindConflict             Kind = "conflict"
	KindUnauthorized         Kind = "unauthorized"
	KindValidationFailed     Kind = "validation_failed"
	KindToolTimeout          Kind = "tool_timeout"
	KindToolFailure          Kind = "tool_failure"
	KindInsufficientEvidence Kind = "insufficient_evidence"
	KindInternal             Kind = "internal"
)

// KindOf maps an error to its taxonomy kind. Anything unrecognized is
// internal and must not leak diagnostic detail to callers.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrValidationFailed):
		return KindValidationFailed
	case errors.Is(err, ErrToolTimeout):
		return KindToolTimeout
	case errors.Is(err, ErrToolFailure):
		return KindToolFailure
	case errors.Is(err, ErrInsufficientEvidence):
		return KindInsufficientEvidence
	default:
		return KindInternal
	}
}

// Timeout wraps err (usually context.DeadlineExceeded) as a typed tool
// timeout for the named tool.
func Timeout(tool string, err error) error {
	return fmt.Errorf("%s: %w: %v", tool, ErrToolTimeout, err)
}
