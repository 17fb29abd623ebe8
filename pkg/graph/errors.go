package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrNodeNotFound indicates a node id did not resolve in the model.
	ErrNodeNotFound = errors.New("node not found")

	// ErrInvalidConfig indicates a config edit was not a well-formed JSON object.
	ErrInvalidConfig = errors.New("node config must be a JSON object")
)

// NodeError wraps a rejected node edit.
type NodeError struct {
	Op     string
	NodeID string
	Err    error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("%s node %s: %v", e.Op, e.NodeID, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

func (e *NodeError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// EndpointError is returned by Connect when an endpoint does not exist.
type EndpointError struct {
	From    string
	To      string
	Missing string
}

func (e *EndpointError) Error() string {
	return fmt.Sprintf("connect %s -> %s: node %s not found", e.From, e.To, e.Missing)
}

func (e *EndpointError) Unwrap() error {
	return ErrNodeNotFound
}

// IsValidationError reports whether err is a rejected edit that left the model unchanged.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrNodeNotFound) || errors.Is(err, ErrInvalidConfig)
}
