package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/dukex/flowedit/pkg/models"
	"github.com/dukex/flowedit/pkg/persistence"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// WorkflowRepository handles workflow-related file operations.
type WorkflowRepository struct {
	root  string // File system root for storing workflows
	clock clockwork.Clock
	mu    sync.Mutex
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(root string) *WorkflowRepository {
	return &WorkflowRepository{root: root, clock: clockwork.NewRealClock()}
}

// GetByID retrieves a workflow by its ID from the file system. A missing file is (nil, nil).
func (wr *WorkflowRepository) GetByID(_ context.Context, workflowID string) (*models.Workflow, error) {
	return wr.read(workflowID)
}

// Create assigns an id and writes a new workflow. Status starts as draft.
func (wr *WorkflowRepository) Create(_ context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	wr.mu.Lock()
	defer wr.mu.Unlock()

	created := *workflow
	if created.ID == "" {
		created.ID = uuid.NewString()
	}

	existing, err := wr.read(created.ID)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		return nil, persistence.ErrWorkflowAlreadyExists
	}

	created.Status = models.WorkflowStatusDraft
	created.CreatedAt = wr.clock.Now().UTC()

	if err := wr.write(&created); err != nil {
		return nil, err
	}

	return &created, nil
}

// Update applies fn to the stored workflow and writes it back.
func (wr *WorkflowRepository) Update(_ context.Context, workflowID string, fn func(*models.Workflow)) (*models.Workflow, error) {
	wr.mu.Lock()
	defer wr.mu.Unlock()

	current, err := wr.read(workflowID)
	if err != nil {
		return nil, err
	}

	if current == nil {
		return nil, persistence.ErrWorkflowNotFound
	}

	fn(current)
	current.ID = workflowID

	if err := wr.write(current); err != nil {
		return nil, err
	}

	return current, nil
}

func (wr *WorkflowRepository) read(workflowID string) (*models.Workflow, error) {
	if !validID(workflowID) {
		return nil, nil
	}

	body, err := os.ReadFile(wr.path(workflowID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to fetch workflow %s: %w", workflowID, err)
	}

	var workflow models.Workflow

	err = json.Unmarshal(body, &workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow %s: %w", workflowID, err)
	}

	return &workflow, nil
}

func (wr *WorkflowRepository) write(workflow *models.Workflow) error {
	if !validID(workflow.ID) {
		return fmt.Errorf("%w: id %q", persistence.ErrInvalidWorkflow, workflow.ID)
	}

	err := os.MkdirAll(path.Join(wr.root, "workflows"), 0750)
	if err != nil {
		return fmt.Errorf("failed to create workflows directory: %w", err)
	}

	now := wr.clock.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	if workflow.Triggers == nil {
		workflow.Triggers = []json.RawMessage{}
	}

	if workflow.Nodes == nil {
		workflow.Nodes = []*models.Node{}
	}

	if workflow.Connections == nil {
		workflow.Connections = []*models.Connection{}
	}

	data, err := json.MarshalIndent(workflow, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal workflow %s: %w", workflow.ID, err)
	}

	return writeFileAtomic(wr.path(workflow.ID), data)
}

func (wr *WorkflowRepository) path(workflowID string) string {
	return filepath.Clean(path.Join(wr.root, "workflows", workflowID+".json"))
}

// validID rejects ids that would escape the workflows directory.
func validID(id string) bool {
	return id != "" && id != "." && id != ".." && filepath.Base(id) == id
}

func writeFileAtomic(target string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to write %s: %w", target, err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to close %s: %w", target, err)
	}

	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("failed to save %s: %w", target, err)
	}

	return nil
}
