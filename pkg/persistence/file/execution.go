package file

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"sync"

	"github.com/dukex/flowedit/pkg/models"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// ExecutionRepository records accepted executions, one file per idempotency key.
type ExecutionRepository struct {
	root  string
	clock clockwork.Clock
	mu    sync.Mutex
}

func NewExecutionRepository(root string) *ExecutionRepository {
	return &ExecutionRepository{root: root, clock: clockwork.NewRealClock()}
}

// Start records an execution for key. A key seen before returns the original
// execution and created == false.
func (er *ExecutionRepository) Start(_ context.Context, workflowID, key string) (*models.ExecutionResult, bool, error) {
	er.mu.Lock()
	defer er.mu.Unlock()

	file := er.path(key)

	body, err := os.ReadFile(file)
	if err == nil {
		var existing models.ExecutionResult
		if err := json.Unmarshal(body, &existing); err != nil {
			return nil, false, fmt.Errorf("failed to unmarshal execution for key %s: %w", key, err)
		}

		return &existing, false, nil
	}

	if !os.IsNotExist(err) {
		return nil, false, fmt.Errorf("failed to read execution for key %s: %w", key, err)
	}

	if err := os.MkdirAll(path.Join(er.root, "executions"), 0750); err != nil {
		return nil, false, fmt.Errorf("failed to create executions directory: %w", err)
	}

	result := &models.ExecutionResult{
		ExecutionID:    uuid.NewString(),
		WorkflowID:     workflowID,
		IdempotencyKey: key,
		StartedAt:      er.clock.Now().UTC(),
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, false, err
	}

	if err := writeFileAtomic(file, data); err != nil {
		return nil, false, err
	}

	return result, true, nil
}

func (er *ExecutionRepository) path(key string) string {
	sum := sha256.Sum256([]byte(key))

	return path.Join(er.root, "executions", hex.EncodeToString(sum[:])+".json")
}
