// Package selection tracks the single node shown in the property panel.
package selection

import (
	"github.com/dukex/flowedit/pkg/graph"
)

// Controller keeps the active node id in step with the graph: a newly added node
// becomes active, and deleting the active node or replacing the graph clears it.
type Controller struct {
	model  *graph.Model
	active string
	stop   func()
}

func NewController(model *graph.Model) *Controller {
	c := &Controller{model: model}
	c.stop = model.Subscribe(c.observe)

	return c
}

// ActiveNodeID returns the selected node id, or "" when nothing is selected.
func (c *Controller) ActiveNodeID() string {
	return c.active
}

// Select makes id the active node.
func (c *Controller) Select(id string) error {
	if !c.model.HasNode(id) {
		return &graph.NodeError{Op: "select", NodeID: id, Err: graph.ErrNodeNotFound}
	}

	c.active = id

	return nil
}

// Deselect clears the selection.
func (c *Controller) Deselect() {
	c.active = ""
}

// Close detaches the controller from the model.
func (c *Controller) Close() {
	c.stop()
}

func (c *Controller) observe(change graph.Change) {
	switch change.Kind {
	case graph.ChangeNodeAdded:
		c.active = change.NodeID
	case graph.ChangeNodeDeleted:
		if change.NodeID == c.active {
			c.active = ""
		}
	case graph.ChangeReplaced:
		c.active = ""
	}
}
