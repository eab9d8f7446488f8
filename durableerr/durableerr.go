// Package durableerr defines the error taxonomy shared by persist, engine,
// and cluster: sentinel errors for programmatic matching plus a
// *WorkflowError wrapper for structured, attributable failures. Grounded on
// the teacher's *NodeError pattern (graph/node.go): message, machine-readable
// code, owning id, and wrapped cause, with Error()/Unwrap() in the same
// shape.
package durableerr

import "errors"

// Sentinel errors callers can match with errors.Is.
var (
	// ErrHandlerNotFound is returned when ctx.Call names a handler that was
	// never registered.
	ErrHandlerNotFound = errors.New("durableerr: handler not found")

	// ErrNonDeterministicReplay is returned when replay encounters a journal
	// entry whose kind or name does not match the operation the workflow
	// body actually performed at that sequence number.
	ErrNonDeterministicReplay = errors.New("durableerr: non-deterministic replay")

	// ErrCancelled is returned by Engine.Resume for a cancelled workflow, and
	// by Context.AwaitSignal and Context.ScheduleTimer when the execution's
	// context is done while they wait.
	ErrCancelled = errors.New("durableerr: workflow cancelled")

	// ErrTimeout is returned by remote executor calls that exceed their
	// deadline.
	ErrTimeout = errors.New("durableerr: timeout")

	// ErrStorageError wraps failures surfaced by the store or a persist
	// facade that are not more specifically classified.
	ErrStorageError = errors.New("durableerr: storage error")

	// ErrDuplicateSequence is returned when a journal append names a
	// sequence number that already has an entry for that workflow.
	ErrDuplicateSequence = errors.New("durableerr: duplicate sequence number")

	// ErrNotFound is returned when a workflow, timer, or state key does not
	// exist.
	ErrNotFound = errors.New("durableerr: not found")
)

// Kind classifies a WorkflowError for programmatic handling, mirroring the
// "Code" field on the teacher's NodeError but scoped to a closed set of
// runtime failure categories.
type Kind string

const (
	KindHandlerNotFound  Kind = "handler_not_found"
	KindNonDeterministic Kind = "non_deterministic_replay"
	KindCancelled        Kind = "cancelled"
	KindTimeout          Kind = "timeout"
	KindStorage          Kind = "storage_error"
	KindUser             Kind = "user_error"
)

// WorkflowError attributes a failure to the workflow that produced it.
// Adapted from the teacher's *NodeError{Message, Code, NodeID, Cause}:
// same four fields, NodeID renamed to WorkflowID.
type WorkflowError struct {
	Kind       Kind
	Message    string
	WorkflowID string
	Cause      error
}

// Error implements the error interface.
func (e *WorkflowError) Error() string {
	if e.WorkflowID != "" {
		return "workflow " + e.WorkflowID + ": " + e.Message
	}
	return e.Message
}

// Unwrap returns the underlying cause, allowing errors.Is/errors.As to see
// through WorkflowError to a sentinel or lower-level error.
func (e *WorkflowError) Unwrap() error {
	return e.Cause
}

// NewWorkflowError builds a WorkflowError that wraps cause and classifies it
// under kind for the named workflow.
func NewWorkflowError(kind Kind, workflowID, message string, cause error) *WorkflowError {
	return &WorkflowError{Kind: kind, Message: message, WorkflowID: workflowID, Cause: cause}
}
