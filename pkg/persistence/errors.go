// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkflowNotFound indicates a workflow was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrWorkflowAlreadyExists indicates a create carried an id that is already taken.
	ErrWorkflowAlreadyExists = errors.New("workflow already exists")

	// ErrInvalidWorkflow indicates the store rejected the workflow document.
	ErrInvalidWorkflow = errors.New("invalid workflow")

	// ErrIdempotencyKeyRequired indicates an execute call without an idempotency key.
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")

	// ErrUnavailable indicates the store could not be reached.
	ErrUnavailable = errors.New("workflow store unavailable")
)

// WorkflowError wraps workflow-related errors with additional context.
type WorkflowError struct {
	Op         string // Operation being performed (e.g., "GetWorkflow", "Autosave")
	WorkflowID string // Workflow ID if applicable
	Err        error  // Underlying error
	Message    string // Additional context message
}

func (e *WorkflowError) Error() string {
	target := e.WorkflowID
	if target == "" {
		target = "(new)"
	}

	if e.Message != "" {
		return fmt.Sprintf("%s operation failed for workflow %s: %s (%v)", e.Op, target, e.Message, e.Err)
	}

	return fmt.Sprintf("%s operation failed for workflow %s: %v", e.Op, target, e.Err)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for workflow errors.
func (e *WorkflowError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewWorkflowError creates a new workflow error with context.
func NewWorkflowError(op, workflowID string, err error) *WorkflowError {
	return &WorkflowError{
		Op:         op,
		WorkflowID: workflowID,
		Err:        err,
	}
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsInvalidWorkflow checks if the store rejected the document.
func IsInvalidWorkflow(err error) bool {
	return errors.Is(err, ErrInvalidWorkflow)
}

// IsUnavailable checks if the store could not be reached.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
