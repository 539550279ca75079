package mocks

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"fatura/internal/domain"
	"fatura/internal/service"
	"fatura/internal/validator"
)

// MockInvoiceService is a mock implementation of service.InvoiceService.
type MockInvoiceService struct {
	mock.Mock
}

func (m *MockInvoiceService) Ingest(ctx context.Context, input *service.IngestInput) (*domain.ExtractedInvoice, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractedInvoice), args.Error(1)
}

func (m *MockInvoiceService) GetByID(ctx context.Context, id uuid.UUID) (*domain.ExtractedInvoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractedInvoice), args.Error(1)
}

func (m *MockInvoiceService) List(ctx context.Context, status domain.InvoiceStatus, offset, limit int) ([]domain.ExtractedInvoice, int, error) {
	args := m.Called(ctx, status, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.ExtractedInvoice), args.Int(1), args.Error(2)
}

func (m *MockInvoiceService) Update(ctx context.Context, input *service.UpdateInvoiceInput) (*domain.ExtractedInvoice, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractedInvoice), args.Error(1)
}

func (m *MockInvoiceService) MarkReady(ctx context.Context, id uuid.UUID) (*domain.ExtractedInvoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractedInvoice), args.Error(1)
}

func (m *MockInvoiceService) EnqueueExtraction(ctx context.Context, id uuid.UUID) (*domain.ExtractionJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractionJob), args.Error(1)
}

func (m *MockInvoiceService) ValidateTotals(ctx context.Context, id uuid.UUID) (*validator.TotalsReport, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*validator.TotalsReport), args.Error(1)
}

func (m *MockInvoiceService) FixTotals(ctx context.Context, id uuid.UUID) (*service.FixTotalsResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.FixTotalsResult), args.Error(1)
}

func (m *MockInvoiceService) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockInvoiceService) ListAudit(ctx context.Context, id uuid.UUID, offset, limit int) ([]domain.InvoiceAuditEntry, int, error) {
	args := m.Called(ctx, id, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.InvoiceAuditEntry), args.Int(1), args.Error(2)
}

func (m *MockInvoiceService) Export(ctx context.Context, w io.Writer, format string, status domain.InvoiceStatus) error {
	args := m.Called(ctx, w, format, status)
	return args.Error(0)
}

func (m *MockInvoiceService) OpenFile(ctx context.Context, id uuid.UUID) (*service.InvoiceFile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.InvoiceFile), args.Error(1)
}
