package editor

import (
	"log/slog"
	"time"

	"github.com/dukex/flowedit/pkg/generation"
	"github.com/dukex/flowedit/pkg/graph"
	"github.com/dukex/flowedit/pkg/presence"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/trace"
)

type Option func(*Controller)

func WithGenerator(generator generation.Generator) Option {
	return func(c *Controller) {
		c.generator = generator
	}
}

// WithPresence shows collaborators from feed. selfID, when set, is hidden.
func WithPresence(feed presence.Feed, selfID string) Option {
	return func(c *Controller) {
		c.presenceFeed = feed
		c.presenceSelf = selfID
	}
}

func WithClock(clock clockwork.Clock) Option {
	return func(c *Controller) {
		c.clock = clock
	}
}

func WithAutosaveDelay(delay time.Duration) Option {
	return func(c *Controller) {
		c.autosaveDelay = delay
	}
}

func WithCanvas(canvas graph.Canvas) Option {
	return func(c *Controller) {
		c.canvas = canvas
	}
}

// WithModelOptions forwards options to the underlying graph model.
func WithModelOptions(opts ...graph.Option) Option {
	return func(c *Controller) {
		c.modelOpts = append(c.modelOpts, opts...)
	}
}

func WithChangeSink(sink ChangeSink) Option {
	return func(c *Controller) {
		c.sinks = append(c.sinks, sink)
	}
}

func WithSessionID(id string) Option {
	return func(c *Controller) {
		if id != "" {
			c.sessionID = id
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(c *Controller) {
		c.tracer = tracer
	}
}
