package models

import "encoding/json"

// CategoryType represents the category of a node type.
type CategoryType string

const (
	CategoryTypeTrigger CategoryType = "trigger"
	CategoryTypeAction  CategoryType = "action"
	CategoryTypeLogic   CategoryType = "logic"
	CategoryTypeAI      CategoryType = "ai"
)

// Position is a point on the canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns p - o.
func (p Position) Sub(o Position) Position {
	return Position{X: p.X - o.X, Y: p.Y - o.Y}
}

// Node is a vertex of the workflow graph.
type Node struct {
	ID       string          `json:"id"               validate:"required"`
	Type     string          `json:"type"             validate:"required"`
	Name     string          `json:"name"`
	Position Position        `json:"position"`
	Config   json.RawMessage `json:"config,omitempty"`
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	c := *n
	if n.Config != nil {
		c.Config = append(json.RawMessage(nil), n.Config...)
	}

	return &c
}

// CloneNodes deep copies a node slice.
func CloneNodes(nodes []*Node) []*Node {
	out := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		if n != nil {
			out = append(out, n.Clone())
		}
	}

	return out
}
