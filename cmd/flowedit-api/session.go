package main

import (
	"log/slog"

	"github.com/dukex/flowedit/pkg/config"
	"github.com/dukex/flowedit/pkg/editor"
	"github.com/dukex/flowedit/pkg/generation"
	"github.com/dukex/flowedit/pkg/persistence"
	"github.com/dukex/flowedit/pkg/presence"
	"github.com/dukex/flowedit/pkg/web"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// sessionDeps are the collaborators shared by every editor session.
type sessionDeps struct {
	config    config.Config
	store     persistence.Persistence
	generator generation.Generator
	presence  presence.Feed
	sink      editor.ChangeSink
	tracer    trace.Tracer
	logger    *slog.Logger
}

func (d sessionDeps) factory() web.SessionFactory {
	return func() *editor.Controller {
		sessionID := uuid.NewString()

		opts := []editor.Option{
			editor.WithSessionID(sessionID),
			editor.WithCanvas(d.config.Canvas.Canvas()),
			editor.WithAutosaveDelay(d.config.Autosave.Debounce),
			editor.WithLogger(d.logger),
		}

		if d.generator != nil {
			opts = append(opts, editor.WithGenerator(d.generator))
		}

		if d.presence != nil {
			opts = append(opts, editor.WithPresence(d.presence, sessionID))
		}

		if d.sink != nil {
			opts = append(opts, editor.WithChangeSink(d.sink))
		}

		if d.tracer != nil {
			opts = append(opts, editor.WithTracer(d.tracer))
		}

		return editor.New(d.store, opts...)
	}
}
