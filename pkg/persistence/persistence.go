// Package persistence defines the workflow store consumed by the editor.
package persistence

import (
	"context"

	"github.com/dukex/flowedit/pkg/models"
)

// Persistence is the workflow store. Implementations own ids, status and timestamps.
type Persistence interface {
	GetWorkflow(ctx context.Context, id string) (*models.Workflow, error)
	CreateWorkflow(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error)
	UpdateWorkflow(ctx context.Context, id string, workflow *models.Workflow) (*models.Workflow, error)
	AutosaveWorkflow(ctx context.Context, id string, payload models.AutosavePayload) error
	ExecuteWorkflow(ctx context.Context, id, idempotencyKey string) (*models.ExecutionResult, error)
	GetNodeTypeCatalog(ctx context.Context) (*models.NodeTypeCatalog, error)
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}
