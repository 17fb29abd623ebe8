package mocks

import (
	"context"

	"github.com/dukex/flowedit/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock
}

func (m *MockPersistence) GetWorkflow(ctx context.Context, id string) (*models.Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockPersistence) CreateWorkflow(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	args := m.Called(ctx, workflow)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockPersistence) UpdateWorkflow(ctx context.Context, id string, workflow *models.Workflow) (*models.Workflow, error) {
	args := m.Called(ctx, id, workflow)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockPersistence) AutosaveWorkflow(ctx context.Context, id string, payload models.AutosavePayload) error {
	args := m.Called(ctx, id, payload)

	return args.Error(0)
}

func (m *MockPersistence) ExecuteWorkflow(ctx context.Context, id, idempotencyKey string) (*models.ExecutionResult, error) {
	args := m.Called(ctx, id, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.ExecutionResult), args.Error(1)
}

func (m *MockPersistence) GetNodeTypeCatalog(ctx context.Context) (*models.NodeTypeCatalog, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.NodeTypeCatalog), args.Error(1)
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
