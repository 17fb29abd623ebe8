package drag_test

import (
	"testing"

	"github.com/dukex/flowedit/pkg/drag"
	"github.com/dukex/flowedit/pkg/graph"
	"github.com/dukex/flowedit/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var canvas = graph.Canvas{Width: 1000, Height: 600, NodeWidth: 200, NodeHeight: 100}

func setup(t *testing.T, nodes ...*models.Node) (*graph.Model, *drag.Controller) {
	t.Helper()

	model := graph.NewModel(canvas)
	model.ReplaceAll(nodes, nil)

	return model, drag.NewController(model)
}

func position(t *testing.T, model *graph.Model, id string) models.Position {
	t.Helper()

	node, ok := model.Node(id)
	require.True(t, ok)

	return node.Position
}

func TestController_DragKeepsGrabOffset(t *testing.T) {
	t.Parallel()

	model, ctrl := setup(t, &models.Node{ID: "a", Position: models.Position{X: 100, Y: 100}})

	require.True(t, ctrl.PointerDown("a", models.Position{X: 110, Y: 120}))
	assert.Equal(t, drag.StateDragging, ctrl.State())

	pos, ok := ctrl.PointerMove(models.Position{X: 310, Y: 220})
	require.True(t, ok)
	assert.Equal(t, models.Position{X: 300, Y: 200}, pos)
	assert.Equal(t, pos, position(t, model, "a"))

	done, ok := ctrl.PointerUp()
	require.True(t, ok)
	assert.Equal(t, drag.Completion{NodeID: "a", Moved: true}, done)
	assert.Equal(t, drag.StateIdle, ctrl.State())
}

func TestController_DragOutsideCanvasIsClamped(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pointer models.Position
		want    models.Position
	}{
		{name: "far negative", pointer: models.Position{X: -5000, Y: -5000}, want: models.Position{X: 0, Y: 0}},
		{name: "far positive", pointer: models.Position{X: 5000, Y: 5000}, want: models.Position{X: 800, Y: 500}},
		{name: "mixed", pointer: models.Position{X: -1, Y: 4000}, want: models.Position{X: 0, Y: 500}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			model, ctrl := setup(t, &models.Node{ID: "a", Position: models.Position{X: 50, Y: 50}})

			require.True(t, ctrl.PointerDown("a", models.Position{X: 50, Y: 50}))
			pos, ok := ctrl.PointerMove(tt.pointer)
			require.True(t, ok)

			assert.Equal(t, tt.want, pos)
			assert.Equal(t, tt.want, position(t, model, "a"))
		})
	}
}

func TestController_ClickWithoutMoveCompletes(t *testing.T) {
	t.Parallel()

	model, ctrl := setup(t, &models.Node{ID: "a", Position: models.Position{X: 10, Y: 10}})

	require.True(t, ctrl.PointerDown("a", models.Position{X: 15, Y: 15}))
	done, ok := ctrl.PointerLeave()

	require.True(t, ok)
	assert.Equal(t, drag.Completion{NodeID: "a", Moved: false}, done)
	assert.Equal(t, models.Position{X: 10, Y: 10}, position(t, model, "a"))
}

func TestController_SecondPointerDownIgnoredWhileDragging(t *testing.T) {
	t.Parallel()

	model, ctrl := setup(t,
		&models.Node{ID: "a", Position: models.Position{X: 0, Y: 0}},
		&models.Node{ID: "b", Position: models.Position{X: 400, Y: 400}},
	)

	require.True(t, ctrl.PointerDown("a", models.Position{}))
	assert.False(t, ctrl.PointerDown("b", models.Position{X: 400, Y: 400}))
	assert.Equal(t, "a", ctrl.NodeID())

	_, ok := ctrl.PointerMove(models.Position{X: 20, Y: 30})
	require.True(t, ok)
	assert.Equal(t, models.Position{X: 400, Y: 400}, position(t, model, "b"))

	_, ok = ctrl.PointerUp()
	require.True(t, ok)

	assert.True(t, ctrl.PointerDown("b", models.Position{X: 400, Y: 400}))
}

func TestController_IdleEventsAreIgnored(t *testing.T) {
	t.Parallel()

	_, ctrl := setup(t, &models.Node{ID: "a"})

	_, moved := ctrl.PointerMove(models.Position{X: 1, Y: 1})
	assert.False(t, moved)

	_, done := ctrl.PointerUp()
	assert.False(t, done)

	assert.False(t, ctrl.PointerDown("ghost", models.Position{}))
	assert.Equal(t, drag.StateIdle, ctrl.State())
}

func TestController_NodeDeletedMidDrag(t *testing.T) {
	t.Parallel()

	model, ctrl := setup(t, &models.Node{ID: "a"})

	require.True(t, ctrl.PointerDown("a", models.Position{}))
	model.DeleteNode("a")

	_, ok := ctrl.PointerMove(models.Position{X: 10, Y: 10})
	require.True(t, ok)
	assert.False(t, model.HasNode("a"))

	done, ok := ctrl.PointerUp()
	require.True(t, ok)
	assert.Equal(t, "a", done.NodeID)
}
