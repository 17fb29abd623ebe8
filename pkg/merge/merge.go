// Package merge splices an externally produced graph into a live editing session.
package merge

import (
	"strings"

	"github.com/dukex/flowedit/pkg/graph"
	"github.com/dukex/flowedit/pkg/models"
)

// Details are the workflow fields a candidate may override.
type Details struct {
	Name        string
	Description string
}

// Result summarizes an applied candidate.
type Result struct {
	Details     Details
	Nodes       int
	Connections int
	Dropped     int
}

// Apply replaces the whole graph with the candidate. Name and description are
// taken from the candidate only when it supplies non-blank values. Selection
// observers clear on the resulting graph.replaced change.
func Apply(model *graph.Model, current Details, candidate *models.GeneratedWorkflow) Result {
	if candidate == nil {
		candidate = &models.GeneratedWorkflow{}
	}

	dropped := model.ReplaceAll(candidate.Nodes, candidate.Connections)

	next := current
	if strings.TrimSpace(candidate.Name) != "" {
		next.Name = candidate.Name
	}

	if strings.TrimSpace(candidate.Description) != "" {
		next.Description = candidate.Description
	}

	snapshot := model.Snapshot()

	return Result{
		Details:     next,
		Nodes:       len(snapshot.Nodes),
		Connections: len(snapshot.Connections),
		Dropped:     dropped,
	}
}
