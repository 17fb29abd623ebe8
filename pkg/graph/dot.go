package graph

import (
	"fmt"
	"strconv"

	"github.com/awalterschulze/gographviz"
)

// ExportDOT renders the graph in Graphviz DOT. Node positions are emitted as pos
// attributes in points so a neato render matches the canvas layout.
func (m *Model) ExportDOT(name string) (string, error) {
	if name == "" {
		name = "workflow"
	}

	g := gographviz.NewGraph()
	graphName := strconv.Quote(name)

	if err := g.SetName(graphName); err != nil {
		return "", err
	}

	if err := g.SetDir(true); err != nil {
		return "", err
	}

	if err := g.AddAttr(graphName, "rankdir", "LR"); err != nil {
		return "", err
	}

	for _, n := range m.nodes {
		label := n.Name
		if label == "" {
			label = n.Type
		}

		attrs := map[string]string{
			"label":   strconv.Quote(label),
			"shape":   "box",
			"tooltip": strconv.Quote(n.Type),
			"pos":     strconv.Quote(fmt.Sprintf("%g,%g!", n.Position.X, -n.Position.Y)),
		}

		if err := g.AddNode(graphName, strconv.Quote(n.ID), attrs); err != nil {
			return "", fmt.Errorf("dot node %s: %w", n.ID, err)
		}
	}

	for _, c := range m.connections {
		attrs := map[string]string{
			"label": strconv.Quote(c.FromPort + " -> " + c.ToPort),
		}

		if err := g.AddEdge(strconv.Quote(c.From), strconv.Quote(c.To), true, attrs); err != nil {
			return "", fmt.Errorf("dot connection %s: %w", c.ID, err)
		}
	}

	return g.String(), nil
}
