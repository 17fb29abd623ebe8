// Package autosave pushes the editor graph to the workflow store after edits settle.
package autosave

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/flowedit/pkg/models"
	"github.com/dukex/flowedit/pkg/otelhelper"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultDelay is the quiet period after the last edit before a save is issued.
const DefaultDelay = 2 * time.Second

// Saver is the slice of the workflow store the pipeline needs.
type Saver interface {
	AutosaveWorkflow(ctx context.Context, id string, payload models.AutosavePayload) error
}

// SnapshotFunc returns the state to save at fire time. ok is false when the
// workflow has no server id yet.
type SnapshotFunc func() (id string, payload models.AutosavePayload, ok bool)

// Pipeline is a trailing debounce in front of Saver. Failures are logged and dropped.
type Pipeline struct {
	saver    Saver
	snapshot SnapshotFunc
	clock    clockwork.Clock
	delay    time.Duration
	logger   *slog.Logger
	tracer   trace.Tracer
	onSaved  func(id string, at time.Time)

	mu         sync.Mutex
	timer      clockwork.Timer
	generation uint64
	closed     bool
	inflight   sync.WaitGroup
	saving     int
	lastSaved  time.Time
}

type Option func(*Pipeline)

func WithClock(clock clockwork.Clock) Option {
	return func(p *Pipeline) {
		p.clock = clock
	}
}

func WithDelay(delay time.Duration) Option {
	return func(p *Pipeline) {
		if delay > 0 {
			p.delay = delay
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(p *Pipeline) {
		p.tracer = tracer
	}
}

// WithSavedHook registers fn to run after each successful save with the id the
// snapshot was taken for.
func WithSavedHook(fn func(id string, at time.Time)) Option {
	return func(p *Pipeline) {
		p.onSaved = fn
	}
}

func New(saver Saver, snapshot SnapshotFunc, opts ...Option) *Pipeline {
	p := &Pipeline{
		saver:    saver,
		snapshot: snapshot,
		clock:    clockwork.NewRealClock(),
		delay:    DefaultDelay,
		logger:   slog.Default(),
		tracer:   otel.Tracer("github.com/dukex/flowedit/pkg/autosave"),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Schedule (re)starts the debounce timer.
func (p *Pipeline) Schedule() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	p.stopTimerLocked()
	p.generation++
	gen := p.generation
	p.timer = p.clock.AfterFunc(p.delay, func() { p.fire(gen) })
}

// Pending reports whether a timer is armed.
func (p *Pipeline) Pending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.timer != nil
}

// Cancel drops the armed timer, if any.
func (p *Pipeline) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopTimerLocked()
	p.generation++
}

// Close cancels the armed timer and waits for a running save to return.
// No save is started after Close.
func (p *Pipeline) Close() {
	p.mu.Lock()
	p.closed = true
	p.stopTimerLocked()
	p.generation++
	p.mu.Unlock()

	p.inflight.Wait()
}

// LastSaved is the time of the most recent successful save.
func (p *Pipeline) LastSaved() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.lastSaved
}

// IsSaving reports whether a save is running.
func (p *Pipeline) IsSaving() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.saving > 0
}

func (p *Pipeline) stopTimerLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

func (p *Pipeline) fire(gen uint64) {
	p.mu.Lock()
	if p.closed || gen != p.generation {
		p.mu.Unlock()

		return
	}

	p.timer = nil
	p.inflight.Add(1)
	p.mu.Unlock()

	defer p.inflight.Done()

	id, payload, ok := p.snapshot()
	if !ok {
		p.logger.Debug("Skipping autosave for unsaved workflow")

		return
	}

	p.mu.Lock()
	p.saving++
	p.mu.Unlock()

	ctx, span := otelhelper.StartSpan(context.Background(), p.tracer, "autosave.fire",
		attribute.String(otelhelper.WorkflowIDKey, id),
		attribute.Int(otelhelper.NodeCountKey, len(payload.Nodes)),
	)
	defer span.End()

	err := p.saver.AutosaveWorkflow(ctx, id, payload)
	now := p.clock.Now()

	p.mu.Lock()
	p.saving--
	if err == nil && now.After(p.lastSaved) {
		p.lastSaved = now
	}
	p.mu.Unlock()

	if err != nil {
		otelhelper.SetError(span, err)
		p.logger.WarnContext(ctx, "Autosave failed", "workflow_id", id, "error", err)

		return
	}

	p.logger.DebugContext(ctx, "Autosaved workflow", "workflow_id", id, "nodes", len(payload.Nodes))

	if p.onSaved != nil {
		p.onSaved(id, now)
	}
}
