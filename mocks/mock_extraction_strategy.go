package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"fatura/internal/port"
)

// MockExtractionStrategy is a mock implementation of port.ExtractionStrategy.
type MockExtractionStrategy struct {
	mock.Mock
}

func (m *MockExtractionStrategy) Extract(ctx context.Context, req port.ExtractionRequest) (*port.RawModelResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.RawModelResponse), args.Error(1)
}

// MockModelLister is a mock implementation of port.ModelLister.
type MockModelLister struct {
	mock.Mock
}

func (m *MockModelLister) ListModels(ctx context.Context, apiKey string) ([]string, error) {
	args := m.Called(ctx, apiKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
