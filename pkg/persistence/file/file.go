// Package file provides a file-based workflow store.
package file

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dukex/flowedit/pkg/models"
	"github.com/dukex/flowedit/pkg/persistence"
	"github.com/dukex/flowedit/pkg/registry"
	"github.com/jonboulle/clockwork"
)

// CatalogFileName is looked up under the root for a custom node-type catalog.
const CatalogFileName = "catalog.yaml"

var _ persistence.Persistence = (*Persistence)(nil)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root          string
	logger        *slog.Logger
	workflowRepo  *WorkflowRepository
	executionRepo *ExecutionRepository
}

type Option func(*Persistence)

// WithClock sets the clock used for timestamps.
func WithClock(clock clockwork.Clock) Option {
	return func(p *Persistence) {
		p.workflowRepo.clock = clock
		p.executionRepo.clock = clock
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Persistence) {
		p.logger = logger
	}
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string, opts ...Option) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	p := &Persistence{
		root:          cleanRoot,
		logger:        slog.Default(),
		workflowRepo:  NewWorkflowRepository(cleanRoot),
		executionRepo: NewExecutionRepository(cleanRoot),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Root is the directory the store writes under.
func (fp *Persistence) Root() string {
	return fp.root
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) GetWorkflow(ctx context.Context, id string) (*models.Workflow, error) {
	workflow, err := fp.workflowRepo.GetByID(ctx, id)
	if err != nil {
		return nil, persistence.NewWorkflowError("GetWorkflow", id, err)
	}

	if workflow == nil {
		return nil, persistence.NewWorkflowError("GetWorkflow", id, persistence.ErrWorkflowNotFound)
	}

	return workflow, nil
}

func (fp *Persistence) CreateWorkflow(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	created, err := fp.workflowRepo.Create(ctx, workflow)
	if err != nil {
		return nil, persistence.NewWorkflowError("CreateWorkflow", workflow.ID, err)
	}

	fp.logger.InfoContext(ctx, "Created workflow", "workflow_id", created.ID)

	return created, nil
}

func (fp *Persistence) UpdateWorkflow(ctx context.Context, id string, workflow *models.Workflow) (*models.Workflow, error) {
	updated, err := fp.workflowRepo.Update(ctx, id, func(current *models.Workflow) {
		current.Name = workflow.Name
		current.Description = workflow.Description
		current.Triggers = workflow.Triggers
		current.Nodes = workflow.Nodes
		current.Connections = workflow.Connections
	})
	if err != nil {
		return nil, persistence.NewWorkflowError("UpdateWorkflow", id, err)
	}

	return updated, nil
}

func (fp *Persistence) AutosaveWorkflow(ctx context.Context, id string, payload models.AutosavePayload) error {
	_, err := fp.workflowRepo.Update(ctx, id, func(current *models.Workflow) {
		current.Triggers = payload.Triggers
		current.Nodes = payload.Nodes
		current.Connections = payload.Connections
	})
	if err != nil {
		return persistence.NewWorkflowError("AutosaveWorkflow", id, err)
	}

	return nil
}

func (fp *Persistence) ExecuteWorkflow(ctx context.Context, id, idempotencyKey string) (*models.ExecutionResult, error) {
	if idempotencyKey == "" {
		return nil, persistence.NewWorkflowError("ExecuteWorkflow", id, persistence.ErrIdempotencyKeyRequired)
	}

	workflow, err := fp.workflowRepo.GetByID(ctx, id)
	if err != nil {
		return nil, persistence.NewWorkflowError("ExecuteWorkflow", id, err)
	}

	if workflow == nil {
		return nil, persistence.NewWorkflowError("ExecuteWorkflow", id, persistence.ErrWorkflowNotFound)
	}

	result, created, err := fp.executionRepo.Start(ctx, id, idempotencyKey)
	if err != nil {
		return nil, persistence.NewWorkflowError("ExecuteWorkflow", id, err)
	}

	if created {
		fp.logger.InfoContext(ctx, "Accepted workflow execution", "workflow_id", id, "execution_id", result.ExecutionID)
	} else {
		fp.logger.InfoContext(ctx, "Replayed workflow execution", "workflow_id", id, "execution_id", result.ExecutionID)
	}

	return result, nil
}

// GetNodeTypeCatalog reads root/catalog.yaml, falling back to the built-in catalog.
func (fp *Persistence) GetNodeTypeCatalog(_ context.Context) (*models.NodeTypeCatalog, error) {
	path := filepath.Join(fp.root, CatalogFileName)

	catalog, err := registry.LoadCatalogFile(path)
	if err == nil {
		return catalog, nil
	}

	if errors.Is(err, os.ErrNotExist) {
		return registry.Default(), nil
	}

	return nil, fmt.Errorf("failed to load node type catalog: %w", err)
}
