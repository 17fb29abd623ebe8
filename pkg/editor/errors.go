package editor

import (
	"errors"
	"fmt"
)

var (
	// ErrWorkflowNotSaved is returned by Execute when the workflow has no server id.
	ErrWorkflowNotSaved = errors.New("workflow must be saved before it can be executed")

	// ErrUnknownNodeType is returned by AddNode for a type missing from the loaded catalog.
	ErrUnknownNodeType = errors.New("unknown node type")

	// ErrEmptyName is returned by SetDetails for a blank workflow name.
	ErrEmptyName = errors.New("workflow name must not be empty")

	// ErrClosed is returned by every mutation after Close.
	ErrClosed = errors.New("editor is closed")

	// ErrUnsupportedGeneration is returned for generation results of an unknown type.
	ErrUnsupportedGeneration = errors.New("unsupported generation result")
)

// OpError reports a failed user-initiated operation (load, save, execute, generate).
type OpError struct {
	Op         string
	WorkflowID string
	Err        error
}

func (e *OpError) Error() string {
	if e.WorkflowID == "" {
		return fmt.Sprintf("editor %s failed: %v", e.Op, e.Err)
	}

	return fmt.Sprintf("editor %s failed for workflow %s: %v", e.Op, e.WorkflowID, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for operation errors.
func (e *OpError) Is(target error) bool {
	return errors.Is(e.Err, target)
}
