package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"fatura/internal/domain"
)

// MockExtractionJobRepo is a mock implementation of port.ExtractionJobRepository.
type MockExtractionJobRepo struct {
	mock.Mock
}

func (m *MockExtractionJobRepo) Enqueue(ctx context.Context, invoiceID uuid.UUID) (*domain.ExtractionJob, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractionJob), args.Error(1)
}

func (m *MockExtractionJobRepo) ClaimQueued(ctx context.Context, limit int) ([]domain.ExtractionJob, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ExtractionJob), args.Error(1)
}

func (m *MockExtractionJobRepo) Complete(ctx context.Context, jobID uuid.UUID) error {
	args := m.Called(ctx, jobID)
	return args.Error(0)
}

func (m *MockExtractionJobRepo) Fail(ctx context.Context, jobID uuid.UUID, lastError string) error {
	args := m.Called(ctx, jobID, lastError)
	return args.Error(0)
}

func (m *MockExtractionJobRepo) Requeue(ctx context.Context, jobID uuid.UUID, retryAfter time.Time, lastError string) error {
	args := m.Called(ctx, jobID, retryAfter, lastError)
	return args.Error(0)
}
