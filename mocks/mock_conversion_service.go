package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"fatura/internal/domain"
)

// MockConversionService is a mock implementation of service.ConversionService.
type MockConversionService struct {
	mock.Mock
}

func (m *MockConversionService) CreatePurchaseInvoiceDraft(ctx context.Context, invoiceID uuid.UUID) (*domain.PurchaseInvoice, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PurchaseInvoice), args.Error(1)
}

func (m *MockConversionService) LinkToPurchaseInvoice(ctx context.Context, invoiceID, purchaseInvoiceID uuid.UUID) (*domain.ExtractedInvoice, error) {
	args := m.Called(ctx, invoiceID, purchaseInvoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractedInvoice), args.Error(1)
}
