package models

// Collaborator is a remote participant shown on the canvas. It is never persisted.
type Collaborator struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Color  string   `json:"color"`
	Cursor Position `json:"cursor"`
}
