package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockInvoiceLocker is a mock implementation of port.InvoiceLocker.
type MockInvoiceLocker struct {
	mock.Mock
}

func (m *MockInvoiceLocker) Acquire(ctx context.Context, invoiceID uuid.UUID) (func(), error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(func()), args.Error(1)
}
