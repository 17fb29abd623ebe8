// Package events defines the notifications published for committed editor changes.
package events

import "time"

type EventType string

// Topic carries every editor event.
const Topic = "flowedit.editor.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	NodeAddedEvent         EventType = "editor.node.added"
	NodeUpdatedEvent       EventType = "editor.node.updated"
	NodeDeletedEvent       EventType = "editor.node.deleted"
	ConnectionCreatedEvent EventType = "editor.connection.created"
	ConnectionRemovedEvent EventType = "editor.connection.removed"
	GraphReplacedEvent     EventType = "editor.graph.replaced"
)

// EditorEventTypes lists every event published for graph changes.
var EditorEventTypes = []EventType{
	NodeAddedEvent,
	NodeUpdatedEvent,
	NodeDeletedEvent,
	ConnectionCreatedEvent,
	ConnectionRemovedEvent,
	GraphReplacedEvent,
}

type BaseEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	WorkflowID string    `json:"workflow_id,omitempty"`
	SessionID  string    `json:"session_id"`
}

// Base returns the envelope shared by every editor event.
func (e BaseEvent) Base() BaseEvent {
	return e
}

type NodeAdded struct {
	BaseEvent

	NodeID string `json:"node_id"`
}

func (e NodeAdded) GetType() EventType {
	return NodeAddedEvent
}

type NodeUpdated struct {
	BaseEvent

	NodeID string `json:"node_id"`
}

func (e NodeUpdated) GetType() EventType {
	return NodeUpdatedEvent
}

type NodeDeleted struct {
	BaseEvent

	NodeID        string   `json:"node_id"`
	ConnectionIDs []string `json:"connection_ids,omitempty"`
}

func (e NodeDeleted) GetType() EventType {
	return NodeDeletedEvent
}

type ConnectionCreated struct {
	BaseEvent

	ConnectionID string `json:"connection_id"`
}

func (e ConnectionCreated) GetType() EventType {
	return ConnectionCreatedEvent
}

type ConnectionRemoved struct {
	BaseEvent

	ConnectionID string `json:"connection_id"`
}

func (e ConnectionRemoved) GetType() EventType {
	return ConnectionRemovedEvent
}

// GraphReplaced is published when a generated workflow is applied, or with
// Loaded set when a session opens a stored workflow.
type GraphReplaced struct {
	BaseEvent

	Loaded bool `json:"loaded,omitempty"`
}

func (e GraphReplaced) GetType() EventType {
	return GraphReplacedEvent
}
