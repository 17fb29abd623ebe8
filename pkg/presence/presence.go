// Package presence shows remote collaborators on the canvas. It reads a presence
// feed and never touches the workflow graph.
package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/dukex/flowedit/pkg/models"
)

// Feed streams full collaborator snapshots for one workflow. The channel closes
// when the feed ends.
type Feed interface {
	Subscribe(ctx context.Context, workflowID string) (<-chan []models.Collaborator, error)
}

// Overlay holds the latest collaborator set keyed by id.
type Overlay struct {
	feed   Feed
	logger *slog.Logger
	self   string

	mu      sync.RWMutex
	cursors map[string]models.Collaborator
	onApply func([]models.Collaborator)
}

type Option func(*Overlay)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Overlay) {
		o.logger = logger
	}
}

// WithSelf hides the local participant from the overlay.
func WithSelf(id string) Option {
	return func(o *Overlay) {
		o.self = id
	}
}

// WithApplyHook runs fn with the visible set after every snapshot.
func WithApplyHook(fn func([]models.Collaborator)) Option {
	return func(o *Overlay) {
		o.onApply = fn
	}
}

func NewOverlay(feed Feed, opts ...Option) *Overlay {
	o := &Overlay{
		feed:    feed,
		logger:  slog.Default(),
		cursors: map[string]models.Collaborator{},
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Run consumes the feed of workflowID until ctx is done or the feed closes.
// The visible set is cleared when Run returns.
func (o *Overlay) Run(ctx context.Context, workflowID string) error {
	if o.feed == nil {
		return nil
	}

	snapshots, err := o.feed.Subscribe(ctx, workflowID)
	if err != nil {
		return fmt.Errorf("failed to subscribe to presence of %s: %w", workflowID, err)
	}

	for {
		select {
		case <-ctx.Done():
			o.Apply(nil)

			return nil
		case snapshot, ok := <-snapshots:
			if !ok {
				o.logger.InfoContext(ctx, "Presence feed closed", "workflow_id", workflowID)
				o.Apply(nil)

				return nil
			}

			o.Apply(snapshot)
		}
	}
}

// Apply replaces the visible set with snapshot. Anyone missing from it disappears.
func (o *Overlay) Apply(snapshot []models.Collaborator) {
	next := make(map[string]models.Collaborator, len(snapshot))

	for _, c := range snapshot {
		if c.ID == "" || c.ID == o.self {
			continue
		}

		next[c.ID] = c
	}

	o.mu.Lock()
	o.cursors = next
	o.mu.Unlock()

	if o.onApply != nil {
		o.onApply(o.Collaborators())
	}
}

// Collaborators returns the visible set ordered by id.
func (o *Overlay) Collaborators() []models.Collaborator {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make([]models.Collaborator, 0, len(o.cursors))
	for _, c := range o.cursors {
		out = append(out, c)
	}

	slices.SortFunc(out, func(a, b models.Collaborator) int { return strings.Compare(a.ID, b.ID) })

	return out
}

// Cursor looks up one collaborator.
func (o *Overlay) Cursor(id string) (models.Collaborator, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	c, ok := o.cursors[id]

	return c, ok
}

// Message is one decoded feed message. WorkflowID is empty when the sender
// did not name a workflow.
type Message struct {
	WorkflowID    string                `json:"workflow_id,omitempty"`
	Collaborators []models.Collaborator `json:"collaborators"`
}

// For reports whether the message concerns workflowID.
func (m Message) For(workflowID string) bool {
	return m.WorkflowID == "" || m.WorkflowID == workflowID
}

// DecodeMessage parses a feed message. Both a bare array and an object with a
// "collaborators" array are accepted.
func DecodeMessage(payload []byte) (Message, error) {
	var list []models.Collaborator
	if err := json.Unmarshal(payload, &list); err == nil {
		return Message{Collaborators: list}, nil
	}

	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, fmt.Errorf("failed to decode presence snapshot: %w", err)
	}

	return msg, nil
}

func DecodeSnapshot(payload []byte) ([]models.Collaborator, error) {
	msg, err := DecodeMessage(payload)
	if err != nil {
		return nil, err
	}

	return msg.Collaborators, nil
}
