// Package models defines the workflow graph entities shared by the editor components.
package models

import (
	"encoding/json"
	"time"
)

// WorkflowStatus represents the lifecycle state of a workflow. It is assigned by the server.
type WorkflowStatus string

const (
	WorkflowStatusDraft    WorkflowStatus = "draft"
	WorkflowStatusActive   WorkflowStatus = "active"
	WorkflowStatusArchived WorkflowStatus = "archived"
)

// DefaultWorkflowName is the name given to a workflow that has not been saved yet.
const DefaultWorkflowName = "Untitled Workflow"

// Workflow is the aggregate persisted through the workflow store.
type Workflow struct {
	ID          string            `json:"id,omitempty"`
	Name        string            `json:"name"                 validate:"required"`
	Description string            `json:"description"`
	Triggers    []json.RawMessage `json:"triggers"`
	Status      WorkflowStatus    `json:"status,omitempty"     validate:"omitempty,oneof=draft active archived"`
	Nodes       []*Node           `json:"nodes"                validate:"dive"`
	Connections []*Connection     `json:"connections"          validate:"dive"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// NewWorkflow returns an empty, unsaved draft workflow.
func NewWorkflow() *Workflow {
	return &Workflow{
		Name:        DefaultWorkflowName,
		Status:      WorkflowStatusDraft,
		Triggers:    []json.RawMessage{},
		Nodes:       []*Node{},
		Connections: []*Connection{},
	}
}

// IsSaved reports whether the server has assigned an id to the workflow.
func (w *Workflow) IsSaved() bool {
	return w.ID != ""
}

// AutosavePayload is the subset of a workflow pushed by background saves.
type AutosavePayload struct {
	Nodes       []*Node           `json:"nodes"`
	Connections []*Connection     `json:"connections"`
	Triggers    []json.RawMessage `json:"triggers"`
}

// ExecutionResult is returned by the workflow store when an execution is accepted.
type ExecutionResult struct {
	ExecutionID    string    `json:"execution_id"`
	WorkflowID     string    `json:"workflow_id,omitempty"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
	StartedAt      time.Time `json:"started_at"`
}

// CloneTriggers copies the opaque trigger documents.
func CloneTriggers(triggers []json.RawMessage) []json.RawMessage {
	out := make([]json.RawMessage, len(triggers))
	for i, t := range triggers {
		out[i] = append(json.RawMessage(nil), t...)
	}

	return out
}
