// Package web provides HTTP request and response types for the editor session API.
package web

import (
	"encoding/json"
	"time"

	"github.com/dukex/flowedit/pkg/drag"
	"github.com/dukex/flowedit/pkg/editor"
	"github.com/dukex/flowedit/pkg/graph"
	"github.com/dukex/flowedit/pkg/merge"
	"github.com/dukex/flowedit/pkg/models"
)

// CreateSessionRequest opens an editor session. An empty workflow id starts a new workflow.
type CreateSessionRequest struct {
	WorkflowID string `json:"workflow_id"`
}

// LoadWorkflowRequest replaces the workflow held by a session.
type LoadWorkflowRequest struct {
	WorkflowID string `json:"workflow_id"`
}

// AddNodeRequest places a node of a catalog type on the canvas.
type AddNodeRequest struct {
	Type        string              `json:"type"                  validate:"required"`
	Name        string              `json:"name,omitempty"`
	Description string              `json:"description,omitempty"`
	Category    models.CategoryType `json:"category,omitempty"    validate:"omitempty,oneof=trigger action logic ai"`
	Config      map[string]any      `json:"config,omitempty"`
}

// Descriptor converts the request into the catalog descriptor the editor expects.
func (r AddNodeRequest) Descriptor() models.NodeTypeDescriptor {
	return models.NodeTypeDescriptor{
		ID:            r.Type,
		Name:          r.Name,
		Description:   r.Description,
		Category:      r.Category,
		DefaultConfig: r.Config,
	}
}

// UpdateNodeRequest merges the given fields into a node. All fields are optional.
type UpdateNodeRequest struct {
	Name     *string          `json:"name,omitempty"     validate:"omitempty,min=1"`
	Position *models.Position `json:"position,omitempty"`
	Config   json.RawMessage  `json:"config,omitempty"`
}

// Patch converts the request into a graph patch.
func (r UpdateNodeRequest) Patch() graph.NodePatch {
	return graph.NodePatch{
		Name:     r.Name,
		Position: r.Position,
		Config:   r.Config,
	}
}

// ConnectRequest links two nodes. Ports default to the standard output and input.
type ConnectRequest struct {
	From     string `json:"from"                validate:"required"`
	To       string `json:"to"                  validate:"required"`
	FromPort string `json:"from_port,omitempty"`
	ToPort   string `json:"to_port,omitempty"`
}

type SelectRequest struct {
	NodeID string `json:"node_id" validate:"required"`
}

// PointerRequest is one pointer event in canvas coordinates. NodeID is only read on pointer down.
type PointerRequest struct {
	NodeID string  `json:"node_id,omitempty"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

type DetailsRequest struct {
	Name        string `json:"name"        validate:"required"`
	Description string `json:"description"`
}

type GenerateRequest struct {
	Prompt string `json:"prompt" validate:"required"`
}

// SessionResponse is the full state of an editor session.
type SessionResponse struct {
	SessionID      string                `json:"session_id"`
	Workflow       models.Workflow       `json:"workflow"`
	ActiveNodeID   string                `json:"active_node_id,omitempty"`
	DragState      string                `json:"drag_state"`
	IsSaving       bool                  `json:"is_saving"`
	PendingSave    bool                  `json:"pending_autosave"`
	LastSaved      *time.Time            `json:"last_saved,omitempty"`
	Collaborators  []models.Collaborator `json:"collaborators"`
	NodeTypesKnown bool                  `json:"node_types_known"`
	RemoteChanges  *RemoteChangesInfo    `json:"remote_changes,omitempty"`
}

// RemoteChangesInfo warns that other sessions edited the workflow since it was loaded.
type RemoteChangesInfo struct {
	Count         int       `json:"count"`
	LastChangedAt time.Time `json:"last_changed_at"`
	LastSessionID string    `json:"last_session_id"`
}

// TransformSessionResponse captures the current state of session.
func TransformSessionResponse(session *editor.Controller) SessionResponse {
	response := SessionResponse{
		SessionID:      session.SessionID(),
		Workflow:       session.Workflow(),
		ActiveNodeID:   session.ActiveNodeID(),
		DragState:      session.DragState().String(),
		IsSaving:       session.IsSaving(),
		PendingSave:    session.HasPendingAutosave(),
		Collaborators:  session.Collaborators(),
		NodeTypesKnown: session.Catalog() != nil,
	}

	if saved := session.LastSaved(); !saved.IsZero() {
		response.LastSaved = &saved
	}

	if remote := session.RemoteChanges(); remote.Count > 0 {
		response.RemoteChanges = &RemoteChangesInfo{
			Count:         remote.Count,
			LastChangedAt: remote.LastAt,
			LastSessionID: remote.LastSessionID,
		}
	}

	return response
}

// PointerResponse reports the dragged node after a pointer event.
type PointerResponse struct {
	Dragging bool             `json:"dragging"`
	NodeID   string           `json:"node_id,omitempty"`
	Position *models.Position `json:"position,omitempty"`
	Moved    bool             `json:"moved,omitempty"`
}

func completionResponse(done drag.Completion, ok bool) PointerResponse {
	if !ok {
		return PointerResponse{}
	}

	return PointerResponse{NodeID: done.NodeID, Moved: done.Moved}
}

// MergeResponse summarizes an applied generated workflow.
type MergeResponse struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Nodes       int    `json:"nodes"`
	Connections int    `json:"connections"`
	Dropped     int    `json:"dropped"`
}

func TransformMergeResponse(result merge.Result) MergeResponse {
	return MergeResponse{
		Name:        result.Details.Name,
		Description: result.Details.Description,
		Nodes:       result.Nodes,
		Connections: result.Connections,
		Dropped:     result.Dropped,
	}
}

// GenerateResponse carries either an applied workflow or a suggestion.
type GenerateResponse struct {
	Type       models.GenerationType `json:"type"`
	Merge      *MergeResponse        `json:"merge,omitempty"`
	Suggestion json.RawMessage       `json:"suggestion,omitempty"`
}

func TransformGenerateResponse(generated *editor.Generated) GenerateResponse {
	response := GenerateResponse{
		Type:       generated.Type,
		Suggestion: generated.Suggestion,
	}

	if generated.Merge != nil {
		merged := TransformMergeResponse(*generated.Merge)
		response.Merge = &merged
	}

	return response
}
