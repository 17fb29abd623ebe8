package editor

import (
	"context"
	"time"

	"github.com/dukex/flowedit/pkg/graph"
)

// ChangeBatch groups the graph changes committed by one editor operation.
type ChangeBatch struct {
	SessionID  string
	WorkflowID string
	Changes    []graph.Change
	At         time.Time
	// Loaded marks the batch that filled the session from the store.
	Loaded bool
}

// ChangeSink receives change batches after the editor has released its lock.
// Implementations must not call back into the editor synchronously.
type ChangeSink interface {
	HandleChanges(ctx context.Context, batch ChangeBatch)
}

// ChangeSinkFunc adapts a function to ChangeSink.
type ChangeSinkFunc func(ctx context.Context, batch ChangeBatch)

func (f ChangeSinkFunc) HandleChanges(ctx context.Context, batch ChangeBatch) {
	f(ctx, batch)
}
