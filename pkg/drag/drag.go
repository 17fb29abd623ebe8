// Package drag turns pointer gestures into node moves.
package drag

import (
	"github.com/dukex/flowedit/pkg/graph"
	"github.com/dukex/flowedit/pkg/models"
)

// State of the drag state machine.
type State int

const (
	StateIdle State = iota
	StateDragging
)

func (s State) String() string {
	if s == StateDragging {
		return "dragging"
	}

	return "idle"
}

// Completion reports a finished gesture. A gesture that never moved is a click.
type Completion struct {
	NodeID string
	Moved  bool
}

// Controller runs Idle -> Dragging -> Idle for one node at a time.
type Controller struct {
	model  *graph.Model
	state  State
	nodeID string
	offset models.Position
	moved  bool
}

func NewController(model *graph.Model) *Controller {
	return &Controller{model: model}
}

func (c *Controller) State() State {
	return c.state
}

// NodeID returns the node being dragged, or "" when idle.
func (c *Controller) NodeID() string {
	return c.nodeID
}

// PointerDown starts dragging nodeID. It is ignored while another drag is in
// progress or when the node does not exist.
func (c *Controller) PointerDown(nodeID string, pointer models.Position) bool {
	if c.state == StateDragging {
		return false
	}

	node, ok := c.model.Node(nodeID)
	if !ok {
		return false
	}

	c.state = StateDragging
	c.nodeID = nodeID
	c.offset = pointer.Sub(node.Position)
	c.moved = false

	return true
}

// PointerMove moves the dragged node so it keeps the grab offset, clamped to the canvas.
func (c *Controller) PointerMove(pointer models.Position) (models.Position, bool) {
	if c.state != StateDragging {
		return models.Position{}, false
	}

	next := c.model.Canvas().Clamp(pointer.Sub(c.offset))

	if err := c.model.UpdateNode(c.nodeID, graph.NodePatch{Position: &next}); err != nil {
		return models.Position{}, false
	}

	c.moved = true

	return next, true
}

// PointerUp ends the gesture.
func (c *Controller) PointerUp() (Completion, bool) {
	return c.finish()
}

// PointerLeave ends the gesture when the pointer leaves the window.
func (c *Controller) PointerLeave() (Completion, bool) {
	return c.finish()
}

// Cancel drops the drag state without reporting a completion.
func (c *Controller) Cancel() {
	c.reset()
}

func (c *Controller) finish() (Completion, bool) {
	if c.state != StateDragging {
		return Completion{}, false
	}

	done := Completion{NodeID: c.nodeID, Moved: c.moved}
	c.reset()

	return done, true
}

func (c *Controller) reset() {
	c.state = StateIdle
	c.nodeID = ""
	c.offset = models.Position{}
	c.moved = false
}
