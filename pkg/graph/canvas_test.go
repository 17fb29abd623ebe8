package graph_test

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/dukex/flowedit/pkg/graph"
	"github.com/dukex/flowedit/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestCanvas_Clamp(t *testing.T) {
	t.Parallel()

	canvas := graph.Canvas{Width: 1000, Height: 600, NodeWidth: 200, NodeHeight: 100}

	tests := []struct {
		name string
		in   models.Position
		want models.Position
	}{
		{name: "inside", in: models.Position{X: 10, Y: 20}, want: models.Position{X: 10, Y: 20}},
		{name: "negative", in: models.Position{X: -5, Y: -1}, want: models.Position{X: 0, Y: 0}},
		{name: "past right and bottom", in: models.Position{X: 5000, Y: 900}, want: models.Position{X: 800, Y: 500}},
		{name: "exact max", in: models.Position{X: 800, Y: 500}, want: models.Position{X: 800, Y: 500}},
		{name: "not a number", in: models.Position{X: math.NaN(), Y: 3}, want: models.Position{X: 0, Y: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, canvas.Clamp(tt.in))
		})
	}
}

func TestCanvas_NodeLargerThanCanvas(t *testing.T) {
	t.Parallel()

	canvas := graph.Canvas{Width: 100, Height: 50, NodeWidth: 200, NodeHeight: 80}

	assert.Equal(t, models.Position{}, canvas.Clamp(models.Position{X: 40, Y: 40}))
	assert.Equal(t, models.Position{}, canvas.RandomPosition(rand.New(rand.NewPCG(3, 4))))
}

func TestCanvas_Contains(t *testing.T) {
	t.Parallel()

	assert.True(t, graph.DefaultCanvas.Contains(models.Position{X: 0, Y: 0}))
	assert.False(t, graph.DefaultCanvas.Contains(models.Position{X: -1, Y: 0}))
}
