// Package editor coordinates one workflow editing session: the graph, node
// selection, dragging, autosave, generated workflows and collaborator presence.
package editor

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dukex/flowedit/pkg/autosave"
	"github.com/dukex/flowedit/pkg/drag"
	"github.com/dukex/flowedit/pkg/generation"
	"github.com/dukex/flowedit/pkg/graph"
	"github.com/dukex/flowedit/pkg/merge"
	"github.com/dukex/flowedit/pkg/models"
	"github.com/dukex/flowedit/pkg/otelhelper"
	"github.com/dukex/flowedit/pkg/presence"
	"github.com/dukex/flowedit/pkg/registry"
	"github.com/dukex/flowedit/pkg/selection"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/oklog/ulid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Store is the slice of the workflow store an editing session uses.
type Store interface {
	GetWorkflow(ctx context.Context, id string) (*models.Workflow, error)
	CreateWorkflow(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error)
	UpdateWorkflow(ctx context.Context, id string, workflow *models.Workflow) (*models.Workflow, error)
	AutosaveWorkflow(ctx context.Context, id string, payload models.AutosavePayload) error
	ExecuteWorkflow(ctx context.Context, id, idempotencyKey string) (*models.ExecutionResult, error)
	GetNodeTypeCatalog(ctx context.Context) (*models.NodeTypeCatalog, error)
}

// Generated is the outcome of GenerateFromPrompt. Merge is set for workflow
// results, Suggestion for suggestion results.
type Generated struct {
	Type       models.GenerationType
	Merge      *merge.Result
	Suggestion json.RawMessage
}

// Controller owns one editing session. All operations are serialized; store and
// generator calls run without the lock held, so edits continue while they are outstanding.
type Controller struct {
	store         Store
	generator     generation.Generator
	presenceFeed  presence.Feed
	presenceSelf  string
	clock         clockwork.Clock
	autosaveDelay time.Duration
	canvas        graph.Canvas
	modelOpts     []graph.Option
	sinks         []ChangeSink
	sessionID     string
	logger        *slog.Logger
	tracer        trace.Tracer

	model     *graph.Model
	selection *selection.Controller
	drag      *drag.Controller
	autosave  *autosave.Pipeline
	overlay   *presence.Overlay

	// presenceMu is taken before mu.
	presenceMu    sync.Mutex
	presenceScope string
	stopPresence  context.CancelFunc
	presenceDone  chan struct{}

	mu           sync.Mutex
	workflow     models.Workflow
	registry     *registry.Registry
	catalogTried bool
	loads        uint64
	epoch        uint64
	revision     uint64
	hydrating    bool
	pending      []graph.Change
	saving       int
	lastSaved    time.Time
	remote       RemoteChanges
	entropy      io.Reader
	closed       bool
}

// New opens an editing session over store holding an empty, unsaved workflow.
// Call Load to fetch an existing workflow.
func New(store Store, opts ...Option) *Controller {
	c := &Controller{
		store:         store,
		clock:         clockwork.NewRealClock(),
		autosaveDelay: autosave.DefaultDelay,
		canvas:        graph.DefaultCanvas,
		sessionID:     uuid.NewString(),
		logger:        slog.Default(),
		tracer:        otel.Tracer("github.com/dukex/flowedit/pkg/editor"),
		workflow:      metadataOf(models.NewWorkflow()),
		entropy:       ulid.Monotonic(rand.Reader, 0),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.logger = c.logger.With("session_id", c.sessionID)

	c.model = graph.NewModel(c.canvas, c.modelOpts...)
	c.selection = selection.NewController(c.model)
	c.drag = drag.NewController(c.model)
	c.model.Subscribe(c.observe)

	c.autosave = autosave.New(store, c.autosaveSnapshot,
		autosave.WithClock(c.clock),
		autosave.WithDelay(c.autosaveDelay),
		autosave.WithLogger(c.logger),
		autosave.WithTracer(c.tracer),
		autosave.WithSavedHook(c.recordSaved),
	)

	if c.presenceFeed != nil {
		c.overlay = presence.NewOverlay(c.presenceFeed,
			presence.WithSelf(c.presenceSelf),
			presence.WithLogger(c.logger),
		)
	}

	return c
}

// SessionID identifies this session towards the generator and presence feeds.
func (c *Controller) SessionID() string {
	return c.sessionID
}

// Load replaces the session with the workflow stored under id, or with a new
// empty workflow when id is empty. Loading never schedules an autosave. A failed
// load leaves the session, its pending autosave and outstanding saves untouched.
func (c *Controller) Load(ctx context.Context, id string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()

		return ErrClosed
	}

	c.loads++
	load := c.loads
	fetchCatalog := !c.catalogTried
	c.catalogTried = true
	c.mu.Unlock()

	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "editor.load",
		attribute.String(otelhelper.WorkflowIDKey, id),
		attribute.String(otelhelper.SessionIDKey, c.sessionID),
	)
	defer span.End()

	if fetchCatalog {
		c.loadCatalog(ctx)
	}

	workflow := models.NewWorkflow()

	if id != "" {
		loaded, err := c.store.GetWorkflow(ctx, id)
		if err != nil {
			otelhelper.SetError(span, err)
			c.logger.ErrorContext(ctx, "Failed to load workflow", "workflow_id", id, "error", err)

			return &OpError{Op: "load", WorkflowID: id, Err: err}
		}

		workflow = loaded
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()

		return ErrClosed
	}

	if c.loads != load {
		c.mu.Unlock()
		c.logger.InfoContext(ctx, "Discarding superseded load", "workflow_id", id)

		return nil
	}

	c.epoch++
	c.workflow = metadataOf(workflow)
	c.hydrating = true
	dropped := c.model.ReplaceAll(workflow.Nodes, workflow.Connections)
	c.hydrating = false
	c.autosave.Cancel()
	c.drag.Cancel()
	c.lastSaved = time.Time{}
	c.remote = RemoteChanges{}
	nodes, connections := len(c.model.Nodes()), len(c.model.Connections())
	batch := c.drainLocked()
	batch.Loaded = true
	c.mu.Unlock()

	c.publish(ctx, batch)
	c.syncPresence()

	span.SetAttributes(
		attribute.Int(otelhelper.NodeCountKey, nodes),
		attribute.Int(otelhelper.ConnectionCountKey, connections),
	)

	if dropped > 0 {
		c.logger.WarnContext(ctx, "Dropped dangling connections while loading", "workflow_id", id, "dropped", dropped)
	}

	c.logger.InfoContext(ctx, "Loaded workflow", "workflow_id", id, "nodes", nodes, "connections", connections)

	return nil
}

func (c *Controller) loadCatalog(ctx context.Context) {
	catalog, err := c.store.GetNodeTypeCatalog(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "Node type catalog unavailable, type checks disabled", "error", err)

		return
	}

	reg := registry.NewRegistry(c.logger, catalog)

	c.mu.Lock()
	c.registry = reg
	c.mu.Unlock()
}

// Catalog returns the loaded node type catalog, or nil when none was loaded.
func (c *Controller) Catalog() *models.NodeTypeCatalog {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.registry == nil {
		return nil
	}

	return c.registry.Catalog()
}

// AddNode places a node of the given type on the canvas and selects it.
// With a catalog loaded, blank descriptor fields are filled from it and
// unknown types are rejected.
func (c *Controller) AddNode(desc models.NodeTypeDescriptor) (*models.Node, error) {
	var node *models.Node

	err := c.mutate(func() error {
		if c.registry != nil {
			known, ok := c.registry.Lookup(desc.ID)
			if !ok {
				return fmt.Errorf("%w: %q", ErrUnknownNodeType, desc.ID)
			}

			desc = fillDescriptor(desc, known)
		}

		node = c.model.AddNode(desc)

		return nil
	})

	return node, err
}

// UpdateNode merges patch into the node. Unknown ids are ignored.
func (c *Controller) UpdateNode(id string, patch graph.NodePatch) error {
	return c.mutate(func() error {
		return c.model.UpdateNode(id, patch)
	})
}

// DeleteNode removes the node and its connections.
func (c *Controller) DeleteNode(id string) error {
	return c.mutate(func() error {
		if c.drag.NodeID() == id {
			c.drag.Cancel()
		}

		c.model.DeleteNode(id)

		return nil
	})
}

// Connect links two nodes through their default ports.
func (c *Controller) Connect(from, to string) (*models.Connection, error) {
	return c.ConnectPorts(from, models.DefaultFromPort, to, models.DefaultToPort)
}

func (c *Controller) ConnectPorts(from, fromPort, to, toPort string) (*models.Connection, error) {
	var conn *models.Connection

	err := c.mutate(func() error {
		var err error
		conn, err = c.model.ConnectPorts(from, fromPort, to, toPort)

		return err
	})

	return conn, err
}

func (c *Controller) Disconnect(connectionID string) error {
	return c.mutate(func() error {
		c.model.Disconnect(connectionID)

		return nil
	})
}

func (c *Controller) Select(id string) error {
	return c.mutate(func() error {
		return c.selection.Select(id)
	})
}

func (c *Controller) Deselect() error {
	return c.mutate(func() error {
		c.selection.Deselect()

		return nil
	})
}

// SetDetails renames the workflow. Details are persisted by Save, not by autosave.
func (c *Controller) SetDetails(name, description string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}

	return c.mutate(func() error {
		c.workflow.Name = name
		c.workflow.Description = description

		return nil
	})
}

// PointerDown starts dragging nodeID.
func (c *Controller) PointerDown(nodeID string, pointer models.Position) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	return c.drag.PointerDown(nodeID, pointer)
}

// PointerMove moves the dragged node, clamped to the canvas.
func (c *Controller) PointerMove(pointer models.Position) (models.Position, bool) {
	var (
		pos models.Position
		ok  bool
	)

	_ = c.mutate(func() error {
		pos, ok = c.drag.PointerMove(pointer)

		return nil
	})

	return pos, ok
}

// PointerUp ends the drag and selects the node.
func (c *Controller) PointerUp() (drag.Completion, bool) {
	return c.endDrag(c.drag.PointerUp)
}

// PointerLeave ends the drag like PointerUp.
func (c *Controller) PointerLeave() (drag.Completion, bool) {
	return c.endDrag(c.drag.PointerLeave)
}

func (c *Controller) endDrag(end func() (drag.Completion, bool)) (drag.Completion, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return drag.Completion{}, false
	}

	done, ok := end()
	if ok {
		// The node may have been deleted mid-gesture.
		_ = c.selection.Select(done.NodeID)
	}

	return done, ok
}

// DragState reports whether a drag gesture is in progress.
func (c *Controller) DragState() drag.State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.drag.State()
}

// ApplyGeneratedWorkflow replaces the graph with candidate.
func (c *Controller) ApplyGeneratedWorkflow(candidate *models.GeneratedWorkflow) (merge.Result, error) {
	var result merge.Result

	err := c.mutate(func() error {
		current := merge.Details{Name: c.workflow.Name, Description: c.workflow.Description}
		result = merge.Apply(c.model, current, candidate)
		c.workflow.Name = result.Details.Name
		c.workflow.Description = result.Details.Description
		c.drag.Cancel()

		return nil
	})
	if err != nil {
		return merge.Result{}, err
	}

	if result.Dropped > 0 {
		c.logger.Warn("Dropped invalid connections from generated workflow", "dropped", result.Dropped)
	}

	return result, nil
}

// GenerateFromPrompt asks the generator for a workflow. Workflow results are
// validated and applied; suggestions are returned untouched.
func (c *Controller) GenerateFromPrompt(ctx context.Context, prompt string) (*Generated, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()

		return nil, ErrClosed
	}

	id := c.workflow.ID
	c.mu.Unlock()

	if c.generator == nil {
		return nil, &OpError{Op: "generate", WorkflowID: id, Err: generation.ErrDisabled}
	}

	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "editor.generate",
		attribute.String(otelhelper.WorkflowIDKey, id),
		attribute.String(otelhelper.SessionIDKey, c.sessionID),
	)
	defer span.End()

	result, err := c.generator.GenerateWorkflow(ctx, prompt, c.sessionID)
	if err == nil && result == nil {
		err = ErrUnsupportedGeneration
	}

	if err != nil {
		otelhelper.SetError(span, err)

		return nil, &OpError{Op: "generate", WorkflowID: id, Err: err}
	}

	span.SetAttributes(attribute.String(otelhelper.GenerationTypeKey, string(result.Type)))

	switch result.Type {
	case models.GenerationTypeWorkflow:
		candidate, err := merge.DecodeCandidate(result.Data)
		if err != nil {
			otelhelper.SetError(span, err)

			return nil, &OpError{Op: "generate", WorkflowID: id, Err: err}
		}

		applied, err := c.ApplyGeneratedWorkflow(candidate)
		if err != nil {
			return nil, err
		}

		return &Generated{Type: result.Type, Merge: &applied}, nil
	case models.GenerationTypeSuggestion:
		return &Generated{Type: result.Type, Suggestion: result.Data}, nil
	default:
		err := fmt.Errorf("%w: type %q", ErrUnsupportedGeneration, result.Type)
		otelhelper.SetError(span, err)

		return nil, &OpError{Op: "generate", WorkflowID: id, Err: err}
	}
}

// Save creates the workflow when it has no id and updates it otherwise. It
// cancels a pending autosave. Failures are returned, never swallowed.
func (c *Controller) Save(ctx context.Context) (*models.Workflow, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()

		return nil, ErrClosed
	}

	c.autosave.Cancel()
	doc := c.documentLocked()
	epoch, revision := c.epoch, c.revision
	c.saving++
	c.mu.Unlock()

	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "editor.save",
		attribute.String(otelhelper.WorkflowIDKey, doc.ID),
		attribute.String(otelhelper.WorkflowNameKey, doc.Name),
		attribute.Int(otelhelper.NodeCountKey, len(doc.Nodes)),
		attribute.Int(otelhelper.ConnectionCountKey, len(doc.Connections)),
	)
	defer span.End()

	var (
		saved *models.Workflow
		err   error
	)

	if doc.ID == "" {
		saved, err = c.store.CreateWorkflow(ctx, doc)
	} else {
		saved, err = c.store.UpdateWorkflow(ctx, doc.ID, doc)
	}

	c.mu.Lock()
	c.saving--
	adopted := false

	if err != nil {
		c.mu.Unlock()
		otelhelper.SetError(span, err)
		c.logger.ErrorContext(ctx, "Failed to save workflow", "workflow_id", doc.ID, "error", err)

		return nil, &OpError{Op: "save", WorkflowID: doc.ID, Err: err}
	}

	if c.epoch == epoch && !c.closed {
		if c.workflow.ID == "" {
			c.workflow.ID = saved.ID
			c.workflow.CreatedAt = saved.CreatedAt
			adopted = true
		}

		if saved.Status != "" {
			c.workflow.Status = saved.Status
		}

		c.workflow.UpdatedAt = saved.UpdatedAt

		stamp := saved.UpdatedAt
		if stamp.IsZero() {
			stamp = c.clock.Now()
		}

		if stamp.After(c.lastSaved) {
			c.lastSaved = stamp
		}

		// Edits made while the save was outstanding are not in doc.
		if c.revision != revision {
			c.autosave.Schedule()
		}
	}
	c.mu.Unlock()

	if adopted {
		c.syncPresence()
	}

	c.logger.InfoContext(ctx, "Saved workflow", "workflow_id", saved.ID, "nodes", len(doc.Nodes))

	return saved, nil
}

// Execute starts a run of the saved workflow. An unsaved workflow fails with
// ErrWorkflowNotSaved before any store call.
func (c *Controller) Execute(ctx context.Context) (*models.ExecutionResult, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()

		return nil, ErrClosed
	}

	id := c.workflow.ID
	if id == "" {
		c.mu.Unlock()

		return nil, ErrWorkflowNotSaved
	}

	key := id + ":" + ulid.MustNew(ulid.Timestamp(c.clock.Now()), c.entropy).String()
	c.mu.Unlock()

	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "editor.execute",
		attribute.String(otelhelper.WorkflowIDKey, id),
		attribute.String(otelhelper.IdempotencyKeyKey, key),
	)
	defer span.End()

	result, err := c.store.ExecuteWorkflow(ctx, id, key)
	if err != nil {
		otelhelper.SetError(span, err)
		c.logger.ErrorContext(ctx, "Failed to execute workflow", "workflow_id", id, "error", err)

		return nil, &OpError{Op: "execute", WorkflowID: id, Err: err}
	}

	span.SetAttributes(attribute.String(otelhelper.ExecutionIDKey, result.ExecutionID))
	c.logger.InfoContext(ctx, "Workflow execution accepted", "workflow_id", id, "execution_id", result.ExecutionID)

	return result, nil
}

func (c *Controller) Nodes() []*models.Node {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.model.Nodes()
}

func (c *Controller) Connections() []*models.Connection {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.model.Connections()
}

func (c *Controller) ActiveNodeID() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.selection.ActiveNodeID()
}

// LastSaved is the time of the latest successful save or autosave in this session.
func (c *Controller) LastSaved() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lastSaved
}

// IsSaving reports whether a save or autosave is outstanding.
func (c *Controller) IsSaving() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.saving > 0 || c.autosave.IsSaving()
}

// HasPendingAutosave reports whether edits are waiting for the debounce to elapse.
func (c *Controller) HasPendingAutosave() bool {
	return c.autosave.Pending()
}

// Workflow returns a copy of the workflow document as it would be saved.
func (c *Controller) Workflow() models.Workflow {
	c.mu.Lock()
	defer c.mu.Unlock()

	return *c.documentLocked()
}

// Collaborators returns the remote participants of the current workflow.
// Unsaved workflows have none.
func (c *Controller) Collaborators() []models.Collaborator {
	if c.overlay == nil {
		return []models.Collaborator{}
	}

	return c.overlay.Collaborators()
}

// ExportDOT renders the graph in Graphviz DOT.
func (c *Controller) ExportDOT() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.model.ExportDOT(c.workflow.Name)
}

// Close ends the session: the pending autosave is dropped, a running autosave
// is awaited and presence stops. Later mutations fail with ErrClosed.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()

		return
	}

	c.closed = true
	c.drag.Cancel()
	c.selection.Close()
	c.mu.Unlock()

	c.autosave.Close()
	c.syncPresence()

	c.logger.Info("Editor session closed")
}

// syncPresence points the overlay at the current workflow's presence, or
// detaches it when the workflow is unsaved or the session closed.
func (c *Controller) syncPresence() {
	if c.overlay == nil {
		return
	}

	c.presenceMu.Lock()
	defer c.presenceMu.Unlock()

	c.mu.Lock()
	scope := c.workflow.ID
	if c.closed {
		scope = ""
	}
	c.mu.Unlock()

	if scope == c.presenceScope {
		return
	}

	if c.stopPresence != nil {
		c.stopPresence()
		<-c.presenceDone
		c.stopPresence, c.presenceDone = nil, nil
		c.overlay.Apply(nil)
	}

	c.presenceScope = scope

	if scope == "" {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.stopPresence, c.presenceDone = cancel, done

	go func() {
		defer close(done)

		if err := c.overlay.Run(ctx, scope); err != nil {
			c.logger.Warn("Presence feed stopped", "workflow_id", scope, "error", err)
		}
	}()
}

// mutate runs fn under the lock and hands the resulting changes to the sinks.
func (c *Controller) mutate(fn func() error) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()

		return ErrClosed
	}

	err := fn()
	batch := c.drainLocked()
	c.mu.Unlock()

	c.publish(context.Background(), batch)

	return err
}

// observe runs synchronously inside model mutations, with c.mu held.
func (c *Controller) observe(change graph.Change) {
	c.pending = append(c.pending, change)
	c.revision++

	if !c.hydrating {
		c.autosave.Schedule()
	}
}

func (c *Controller) drainLocked() ChangeBatch {
	if len(c.pending) == 0 {
		return ChangeBatch{}
	}

	batch := ChangeBatch{
		SessionID:  c.sessionID,
		WorkflowID: c.workflow.ID,
		Changes:    c.pending,
		At:         c.clock.Now(),
	}
	c.pending = nil

	return batch
}

func (c *Controller) publish(ctx context.Context, batch ChangeBatch) {
	if len(batch.Changes) == 0 {
		return
	}

	for _, sink := range c.sinks {
		sink.HandleChanges(ctx, batch)
	}
}

func (c *Controller) autosaveSnapshot() (string, models.AutosavePayload, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.workflow.ID == "" {
		return "", models.AutosavePayload{}, false
	}

	snapshot := c.model.Snapshot()

	return c.workflow.ID, models.AutosavePayload{
		Nodes:       snapshot.Nodes,
		Connections: snapshot.Connections,
		Triggers:    models.CloneTriggers(c.workflow.Triggers),
	}, true
}

// recordSaved ignores autosaves of a workflow the session has since left.
func (c *Controller) recordSaved(id string, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id != c.workflow.ID {
		return
	}

	if at.After(c.lastSaved) {
		c.lastSaved = at
	}
}

func (c *Controller) documentLocked() *models.Workflow {
	doc := c.workflow
	doc.Triggers = models.CloneTriggers(c.workflow.Triggers)

	snapshot := c.model.Snapshot()
	doc.Nodes = snapshot.Nodes
	doc.Connections = snapshot.Connections

	return &doc
}

func metadataOf(workflow *models.Workflow) models.Workflow {
	meta := *workflow
	meta.Triggers = models.CloneTriggers(workflow.Triggers)
	meta.Nodes = nil
	meta.Connections = nil

	return meta
}

func fillDescriptor(desc, known models.NodeTypeDescriptor) models.NodeTypeDescriptor {
	if desc.Name == "" {
		desc.Name = known.Name
	}

	if desc.Description == "" {
		desc.Description = known.Description
	}

	if desc.Category == "" {
		desc.Category = known.Category
	}

	if desc.DefaultConfig == nil {
		desc.DefaultConfig = known.DefaultConfig
	}

	return desc
}
