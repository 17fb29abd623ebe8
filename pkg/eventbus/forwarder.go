package eventbus

import (
	"context"
	"log/slog"

	"github.com/dukex/flowedit/pkg/editor"
	"github.com/dukex/flowedit/pkg/events"
	"github.com/dukex/flowedit/pkg/graph"
)

var _ editor.ChangeSink = (*Forwarder)(nil)

// Forwarder publishes editor change batches as events. Messages are keyed by
// workflow id, or by session id while the workflow is unsaved. Publish failures
// are logged and dropped.
type Forwarder struct {
	bus    EventBus
	logger *slog.Logger
}

func NewForwarder(bus EventBus, logger *slog.Logger) *Forwarder {
	if logger == nil {
		logger = slog.Default()
	}

	return &Forwarder{bus: bus, logger: logger}
}

func (f *Forwarder) HandleChanges(ctx context.Context, batch editor.ChangeBatch) {
	key := batch.WorkflowID
	if key == "" {
		key = batch.SessionID
	}

	for _, change := range batch.Changes {
		base := events.BaseEvent{
			ID:         f.bus.GenerateID(),
			Timestamp:  batch.At,
			WorkflowID: batch.WorkflowID,
			SessionID:  batch.SessionID,
		}

		event, ok := FromChange(base, change)
		if !ok {
			continue
		}

		if replaced, ok := event.(events.GraphReplaced); ok {
			replaced.Loaded = batch.Loaded
			event = replaced
		}

		if err := f.bus.Publish(ctx, key, event); err != nil {
			f.logger.WarnContext(ctx, "Failed to publish editor event",
				"event_type", event.GetType(),
				"workflow_id", batch.WorkflowID,
				"error", err)
		}
	}
}

// FromChange maps a graph change to its event. base.Type is overwritten.
func FromChange(base events.BaseEvent, change graph.Change) (Event, bool) {
	switch change.Kind {
	case graph.ChangeNodeAdded:
		base.Type = events.NodeAddedEvent

		return events.NodeAdded{BaseEvent: base, NodeID: change.NodeID}, true
	case graph.ChangeNodeUpdated:
		base.Type = events.NodeUpdatedEvent

		return events.NodeUpdated{BaseEvent: base, NodeID: change.NodeID}, true
	case graph.ChangeNodeDeleted:
		base.Type = events.NodeDeletedEvent

		return events.NodeDeleted{BaseEvent: base, NodeID: change.NodeID, ConnectionIDs: change.ConnectionIDs}, true
	case graph.ChangeConnectionAdded:
		base.Type = events.ConnectionCreatedEvent

		return events.ConnectionCreated{BaseEvent: base, ConnectionID: firstID(change.ConnectionIDs)}, true
	case graph.ChangeConnectionRemoved:
		base.Type = events.ConnectionRemovedEvent

		return events.ConnectionRemoved{BaseEvent: base, ConnectionID: firstID(change.ConnectionIDs)}, true
	case graph.ChangeReplaced:
		base.Type = events.GraphReplacedEvent

		return events.GraphReplaced{BaseEvent: base}, true
	default:
		return nil, false
	}
}

func firstID(ids []string) string {
	if len(ids) == 0 {
		return ""
	}

	return ids[0]
}
