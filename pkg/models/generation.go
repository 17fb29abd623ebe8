package models

import "encoding/json"

// GenerationType tells how a generation result should be consumed.
type GenerationType string

const (
	GenerationTypeWorkflow   GenerationType = "workflow"
	GenerationTypeSuggestion GenerationType = "suggestion"
)

// GenerationResult is the envelope returned by a workflow generator.
type GenerationResult struct {
	Type GenerationType  `json:"type"`
	Data json.RawMessage `json:"data"`
}

// GeneratedWorkflow is an externally produced graph of unknown trustworthiness.
type GeneratedWorkflow struct {
	Name        string        `json:"name,omitempty"`
	Description string        `json:"description,omitempty"`
	Nodes       []*Node       `json:"nodes"`
	Connections []*Connection `json:"connections"`
}
