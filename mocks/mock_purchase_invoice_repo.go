package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"fatura/internal/domain"
)

// MockPurchaseInvoiceRepo is a mock implementation of port.PurchaseInvoiceRepository.
type MockPurchaseInvoiceRepo struct {
	mock.Mock
}

func (m *MockPurchaseInvoiceRepo) Create(ctx context.Context, pi *domain.PurchaseInvoice) error {
	args := m.Called(ctx, pi)
	return args.Error(0)
}

func (m *MockPurchaseInvoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PurchaseInvoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PurchaseInvoice), args.Error(1)
}
