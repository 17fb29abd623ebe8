package eventbus

import (
	"context"
	"log/slog"

	"github.com/dukex/flowedit/pkg/events"
)

// ChangeTarget is told about every editor change seen on the bus, including
// changes made by sessions of other instances. Sessions opening a workflow are
// not changes and are not reported.
type ChangeTarget interface {
	NotifyRemoteChange(ctx context.Context, event events.BaseEvent)
}

// ChangeListener feeds bus events to a ChangeTarget.
type ChangeListener struct {
	bus    EventSubscriber
	target ChangeTarget
	logger *slog.Logger
}

func NewChangeListener(bus EventSubscriber, target ChangeTarget, logger *slog.Logger) *ChangeListener {
	if logger == nil {
		logger = slog.Default()
	}

	return &ChangeListener{bus: bus, target: target, logger: logger}
}

// Start registers a handler for every editor event type and subscribes. Events
// are consumed until ctx is done or the bus closes.
func (l *ChangeListener) Start(ctx context.Context) error {
	for _, eventType := range events.EditorEventTypes {
		if err := l.bus.Handle(eventType, l.handle); err != nil {
			return err
		}
	}

	if err := l.bus.Subscribe(ctx); err != nil {
		return err
	}

	l.logger.InfoContext(ctx, "Listening for editor changes", "topic", events.Topic)

	return nil
}

func (l *ChangeListener) handle(ctx context.Context, event any) error {
	if replaced, ok := event.(*events.GraphReplaced); ok && replaced.Loaded {
		return nil
	}

	based, ok := event.(interface{ Base() events.BaseEvent })
	if !ok {
		l.logger.WarnContext(ctx, "Ignoring event without envelope")

		return nil
	}

	l.target.NotifyRemoteChange(ctx, based.Base())

	return nil
}
