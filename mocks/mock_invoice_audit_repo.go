package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"fatura/internal/domain"
)

// MockInvoiceAuditRepo is a mock implementation of port.InvoiceAuditRepository.
type MockInvoiceAuditRepo struct {
	mock.Mock
}

func (m *MockInvoiceAuditRepo) Create(ctx context.Context, entry *domain.InvoiceAuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockInvoiceAuditRepo) ListByInvoice(ctx context.Context, invoiceID uuid.UUID, offset, limit int) ([]domain.InvoiceAuditEntry, int, error) {
	args := m.Called(ctx, invoiceID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.InvoiceAuditEntry), args.Int(1), args.Error(2)
}
