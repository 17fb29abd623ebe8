package mocks

import (
	"context"

	"github.com/dukex/flowedit/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockGenerator is a mock implementation of generation.Generator interface.
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) GenerateWorkflow(ctx context.Context, prompt, sessionID string) (*models.GenerationResult, error) {
	args := m.Called(ctx, prompt, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.GenerationResult), args.Error(1)
}
