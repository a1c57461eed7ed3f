package store

import (
	"errors"
	"fmt"

	"github.com/notewave/notewave/pkg/models"
)

// The four failure kinds a mutation can surface. Callers branch with
// errors.Is; the concrete types below carry the details.
var (
	// ErrVersionConflict means a version-preconditioned write lost the
	// race: the row exists but its version no longer matches the one the
	// writer read. Recoverable by reloading, never auto-merged.
	ErrVersionConflict = errors.New("version conflict")

	// ErrNotFound means the target was deleted concurrently. Terminal for
	// the mutation that hit it.
	ErrNotFound = errors.New("not found")

	// ErrValidation means the input was malformed for the target, e.g. a
	// value that does not fit the property's declared type. Not retried.
	ErrValidation = errors.New("validation failed")

	// ErrTransport means the write may or may not have reached the store.
	// Safe to retry with the same precondition.
	ErrTransport = errors.New("transport failure")

	// ErrRealtimeUnsupported is returned by Subscribe on backends without
	// a change feed. Callers degrade to manual refetch.
	ErrRealtimeUnsupported = errors.New("realtime subscriptions unsupported")
)

// ConflictError reports a stale-version block write. It is produced only when
// the conditional write affected zero rows while the row itself still exists;
// a missing row is a NotFoundError, never a conflict.
type ConflictError struct {
	BlockID         models.BlockID
	ExpectedVersion int64
	CurrentVersion  int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("block %s: version conflict: wrote against version %d, current is %d",
		e.BlockID, e.ExpectedVersion, e.CurrentVersion)
}

func (e *ConflictError) Is(target error) bool { return target == ErrVersionConflict }

// NotFoundError reports which record a mutation missed.
type NotFoundError struct {
	Table string
	ID    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s: not found", e.Table, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ValidationError reports caller-supplied input the store refused.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// TransportError wraps a network or backend failure whose outcome is unknown.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport failure: %v", e.Op, e.Err)
}

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

func (e *TransportError) Unwrap() error { return e.Err }
