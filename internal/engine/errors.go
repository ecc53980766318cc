package engine

import (
	"errors"
	"fmt"
)

// ErrKind classifies engine failures so the orchestrator can decide what to
// skip, what to log, and what aborts a cycle.
type ErrKind string

const (
	// ErrKindDataUnavailable: snapshot or label lookup failed or timed out.
	// The object is skipped for this cycle.
	ErrKindDataUnavailable ErrKind = "data_unavailable"
	// ErrKindPlatformRejected: the ad platform declined the action. Logged,
	// not retried within the same cycle.
	ErrKindPlatformRejected ErrKind = "platform_rejected"
	// ErrKindConfiguration: malformed rule definition. The rule is skipped
	// entirely, never partially applied.
	ErrKindConfiguration ErrKind = "configuration_error"
	// ErrKindScheduling: revert due-time computation failed. The action is
	// still applied but no revert is scheduled.
	ErrKindScheduling ErrKind = "scheduling_error"
)

// Error carries an ErrKind alongside the underlying cause.
type Error struct {
	Kind    ErrKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func wrapError(kind ErrKind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf extracts the ErrKind from err, or empty string for untyped errors.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// ErrSnapshotNotFound is returned by a MetricSource when no snapshot exists
// yet for an object on the requested reporting day.
var ErrSnapshotNotFound = errors.New("metric snapshot not found")
