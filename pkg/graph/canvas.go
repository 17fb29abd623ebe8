package graph

import (
	"math"
	"math/rand/v2"

	"github.com/dukex/flowedit/pkg/models"
)

// Canvas is the drawable extent nodes are kept within.
type Canvas struct {
	Width      float64 `json:"width"       yaml:"width"       validate:"gt=0"`
	Height     float64 `json:"height"      yaml:"height"      validate:"gt=0"`
	NodeWidth  float64 `json:"node_width"  yaml:"node_width"  validate:"gte=0"`
	NodeHeight float64 `json:"node_height" yaml:"node_height" validate:"gte=0"`
}

// DefaultCanvas matches the editor's stock viewport.
var DefaultCanvas = Canvas{
	Width:      2000,
	Height:     1200,
	NodeWidth:  200,
	NodeHeight: 80,
}

// MaxX is the largest x a node origin may take.
func (c Canvas) MaxX() float64 {
	return math.Max(0, c.Width-c.NodeWidth)
}

// MaxY is the largest y a node origin may take.
func (c Canvas) MaxY() float64 {
	return math.Max(0, c.Height-c.NodeHeight)
}

// Clamp moves p to the nearest point where a node fits inside the canvas.
func (c Canvas) Clamp(p models.Position) models.Position {
	return models.Position{
		X: clamp(p.X, c.MaxX()),
		Y: clamp(p.Y, c.MaxY()),
	}
}

// Contains reports whether p is already a valid node origin.
func (c Canvas) Contains(p models.Position) bool {
	return c.Clamp(p) == p
}

// RandomPosition picks a whole-pixel origin inside the canvas.
func (c Canvas) RandomPosition(r *rand.Rand) models.Position {
	return c.Clamp(models.Position{
		X: math.Floor(r.Float64() * c.MaxX()),
		Y: math.Floor(r.Float64() * c.MaxY()),
	})
}

func clamp(v, upper float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > upper:
		return upper
	default:
		return v
	}
}
