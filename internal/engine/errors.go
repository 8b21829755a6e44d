package engine

import (
	"errors"
	"fmt"
)

// ErrObservationNotFound is returned by Resolve and GetLinks for an
// unknown observation id.
var ErrObservationNotFound = errors.New("observation not found")

// ValidationError reports an observation field that could not be
// normalized at ingestion. Such observations are rejected, never matched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// PersistenceError wraps a store failure. Read failures inside matchers
// degrade to zero candidates; write failures in the link builder are fatal
// for the request and surfaced as this type, since a silently dropped link
// corrupts the identity graph.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// DispatchError reports a failed review-queue enqueue. Non-fatal: a missed
// review candidate degrades recall, not correctness.
type DispatchError struct {
	Queue string
	Err   error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch: %s queue: %v", e.Queue, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }
