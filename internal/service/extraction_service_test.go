package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fatura/internal/config"
	"fatura/internal/domain"
	"fatura/internal/port"
	"fatura/internal/service"
	"fatura/mocks"
)

const modelResponse = "```json\n" + `{
  "supplier": "ACME Trading",
  "invoice_number": "INV-1001",
  "date": "2024-01-15",
  "currency": "sar",
  "subtotal": 100,
  "tax_amount": 15,
  "total_amount": 0,
  "items": [
    {"description": "Widget", "quantity": 2, "unit_price": 50, "item_total": 100, "tax_amount": 15}
  ]
}` + "\n```"

type extractionFixture struct {
	strategy *mocks.MockExtractionStrategy
	files    *mocks.MockFileStore
	invoices *mocks.MockInvoiceRepo
	catalog  *mocks.MockCatalogRepo
	audits   *mocks.MockInvoiceAuditRepo
	locker   *mocks.MockInvoiceLocker
	svc      service.ExtractionService
}

func newExtractionFixture() *extractionFixture {
	f := &extractionFixture{
		strategy: new(mocks.MockExtractionStrategy),
		files:    new(mocks.MockFileStore),
		invoices: new(mocks.MockInvoiceRepo),
		catalog:  new(mocks.MockCatalogRepo),
		audits:   newAuditRepo(),
		locker:   new(mocks.MockInvoiceLocker),
	}
	cfg := &config.ExtractionConfig{Provider: config.ProviderGemini, APIKey: "k", Temperature: 0.1}
	f.svc = service.NewExtractionService(f.strategy, f.files, f.invoices, f.catalog, f.audits, f.locker, cfg, nil)
	return f
}

func TestExtractionService_Extract_Success(t *testing.T) {
	f := newExtractionFixture()

	f.files.On("Read", mock.Anything, "/private/files/a.pdf").
		Return(&port.Document{Data: []byte("%PDF"), Ext: ".pdf", Name: "a.pdf"}, nil)
	f.strategy.On("Extract", mock.Anything, mock.MatchedBy(func(req port.ExtractionRequest) bool {
		return req.FileType == domain.FileTypePDF && req.FileName == "a.pdf" &&
			req.Model == config.DefaultGeminiModel && req.Temperature == 0.1 &&
			req.Prompt.JSONFormat != "" && req.Prompt.SystemInstruction != ""
	})).Return(&port.RawModelResponse{Text: modelResponse, ModelUsed: "gemini-test"}, nil)

	result, err := f.svc.Extract(context.Background(), "/private/files/a.pdf")
	require.NoError(t, err)

	assert.Equal(t, "gemini-test", result.ModelUsed)
	assert.Equal(t, 0.1, result.Temperature)
	assert.GreaterOrEqual(t, result.ExtractionTime, 0.0)
	assert.Equal(t, "ACME Trading", result.Record.Supplier)
	assert.Equal(t, 115.0, result.Record.TotalAmount)
	require.Len(t, result.Record.Items, 1)
	assert.Equal(t, 115.0, result.Record.Items[0].TotalWithTax)
	f.strategy.AssertExpectations(t)
}

func TestExtractionService_Extract_UnsupportedTypeSkipsIO(t *testing.T) {
	f := newExtractionFixture()

	_, err := f.svc.Extract(context.Background(), "/private/files/notes.txt")
	assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)
	f.files.AssertNotCalled(t, "Read", mock.Anything, mock.Anything)
	f.strategy.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
}

func TestExtractionService_Extract_ParseFailure(t *testing.T) {
	f := newExtractionFixture()

	f.files.On("Read", mock.Anything, "/files/b.png").
		Return(&port.Document{Data: []byte("png"), Ext: ".png", Name: "b.png"}, nil)
	f.strategy.On("Extract", mock.Anything, mock.Anything).
		Return(&port.RawModelResponse{Text: "I could not read this invoice.", ModelUsed: "m"}, nil)

	_, err := f.svc.Extract(context.Background(), "/files/b.png")
	assert.ErrorIs(t, err, domain.ErrParse)
}

func TestExtractionService_ExtractAndPersist_Success(t *testing.T) {
	f := newExtractionFixture()
	id := uuid.New()
	noLock(f.locker, id)

	inv := &domain.ExtractedInvoice{ID: id, Status: domain.InvoiceStatusDraft, OriginalFile: "/private/files/a.pdf", Version: 1}
	f.invoices.On("GetByID", mock.Anything, id).Return(inv, nil)
	f.files.On("Read", mock.Anything, "/private/files/a.pdf").
		Return(&port.Document{Data: []byte("%PDF"), Ext: ".pdf", Name: "a.pdf"}, nil)
	f.strategy.On("Extract", mock.Anything, mock.Anything).
		Return(&port.RawModelResponse{Text: modelResponse, ModelUsed: "gemini-test"}, nil)
	f.catalog.On("FindSupplierLike", mock.Anything, "ACME Trading").
		Return(&domain.Supplier{ID: "SUP-1", SupplierName: "ACME Trading LLC"}, nil)
	f.catalog.On("CurrencyExists", mock.Anything, "SAR").Return(true, nil)
	f.catalog.On("FindItemByNameLike", mock.Anything, "Widget").Return(nil, domain.ErrNotFound)
	f.invoices.On("Update", mock.Anything, mock.AnythingOfType("*domain.ExtractedInvoice")).Return(nil)

	result, err := f.svc.ExtractAndPersist(context.Background(), id)
	require.NoError(t, err)

	assert.True(t, result.Updated)
	assert.Equal(t, domain.InvoiceStatusReady, result.Status)
	assert.Equal(t, "gemini-test", result.ModelUsed)
	assert.Empty(t, result.MissingFields)

	assert.Equal(t, "SUP-1", inv.SupplierLink)
	assert.Equal(t, "SAR", inv.Currency)
	assert.Equal(t, 115.0, inv.TotalAmount)
	assert.Empty(t, inv.ExtractionError)
	assert.True(t, inv.HasExtractedData())
	require.Len(t, inv.Items, 1)
	assert.Empty(t, inv.Items[0].ItemLink)

	f.audits.AssertCalled(t, "Create", mock.Anything, auditAction(domain.AuditExtractionCompleted))
	f.audits.AssertCalled(t, "Create", mock.Anything, auditAction(domain.AuditInvoiceStatusChanged))
}

func TestExtractionService_ExtractAndPersist_ProviderFailureRecordsError(t *testing.T) {
	f := newExtractionFixture()
	id := uuid.New()
	noLock(f.locker, id)

	inv := &domain.ExtractedInvoice{
		ID: id, Status: domain.InvoiceStatusReady, OriginalFile: "/private/files/a.pdf",
		SupplierName: "Kept", InvoiceNumber: "INV-9",
	}
	f.invoices.On("GetByID", mock.Anything, id).Return(inv, nil)
	f.files.On("Read", mock.Anything, mock.Anything).
		Return(&port.Document{Data: []byte("%PDF"), Ext: ".pdf", Name: "a.pdf"}, nil)
	f.strategy.On("Extract", mock.Anything, mock.Anything).Return(nil, domain.ErrProvider)
	f.invoices.On("Update", mock.Anything, mock.AnythingOfType("*domain.ExtractedInvoice")).Return(nil)

	_, err := f.svc.ExtractAndPersist(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrProvider)

	assert.Equal(t, domain.InvoiceStatusProcessing, inv.Status)
	assert.Contains(t, inv.ExtractionError, domain.ErrProvider.Error())
	assert.Equal(t, "Kept", inv.SupplierName)
	assert.Equal(t, "INV-9", inv.InvoiceNumber)
	f.audits.AssertCalled(t, "Create", mock.Anything, auditAction(domain.AuditExtractionFailed))
}

func TestExtractionService_ExtractAndPersist_ParseFailureKeepsRawResponse(t *testing.T) {
	f := newExtractionFixture()
	id := uuid.New()
	noLock(f.locker, id)

	inv := &domain.ExtractedInvoice{ID: id, Status: domain.InvoiceStatusDraft, OriginalFile: "/files/a.jpg"}
	f.invoices.On("GetByID", mock.Anything, id).Return(inv, nil)
	f.files.On("Read", mock.Anything, mock.Anything).
		Return(&port.Document{Data: []byte("jpg"), Ext: ".jpg", Name: "a.jpg"}, nil)
	f.strategy.On("Extract", mock.Anything, mock.Anything).
		Return(&port.RawModelResponse{Text: "no json here", ModelUsed: "m"}, nil)
	f.invoices.On("Update", mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.ExtractAndPersist(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrParse)
	f.audits.AssertCalled(t, "Create", mock.Anything, mock.MatchedBy(func(e *domain.InvoiceAuditEntry) bool {
		return e.Action == string(domain.AuditExtractionFailed) && containsKey(e.Changes, "raw_response")
	}))
}

func TestExtractionService_ExtractAndPersist_NoOriginalFile(t *testing.T) {
	f := newExtractionFixture()
	id := uuid.New()
	noLock(f.locker, id)

	inv := &domain.ExtractedInvoice{ID: id, Status: domain.InvoiceStatusDraft}
	f.invoices.On("GetByID", mock.Anything, id).Return(inv, nil)
	f.invoices.On("Update", mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.ExtractAndPersist(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrNoOriginalFile)
	assert.Equal(t, domain.InvoiceStatusProcessing, inv.Status)
	f.strategy.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
}

func TestExtractionService_ExtractAndPersist_ConvertedIsRejected(t *testing.T) {
	f := newExtractionFixture()
	id := uuid.New()
	noLock(f.locker, id)

	f.invoices.On("GetByID", mock.Anything, id).
		Return(&domain.ExtractedInvoice{ID: id, Status: domain.InvoiceStatusConverted, OriginalFile: "/files/a.pdf"}, nil)

	_, err := f.svc.ExtractAndPersist(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrAlreadyConverted)
	f.invoices.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestExtractionService_ExtractAndPersist_Locked(t *testing.T) {
	f := newExtractionFixture()
	id := uuid.New()
	f.locker.On("Acquire", mock.Anything, id).Return(nil, domain.ErrInvoiceLocked)

	_, err := f.svc.ExtractAndPersist(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrInvoiceLocked)
	f.invoices.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestExtractionService_ExtractAndPersist_SaveFailure(t *testing.T) {
	f := newExtractionFixture()
	id := uuid.New()
	noLock(f.locker, id)

	inv := &domain.ExtractedInvoice{ID: id, Status: domain.InvoiceStatusDraft, OriginalFile: "/files/a.pdf", Version: 2}
	f.invoices.On("GetByID", mock.Anything, id).Return(inv, nil)
	f.files.On("Read", mock.Anything, mock.Anything).
		Return(&port.Document{Data: []byte("%PDF"), Ext: ".pdf", Name: "a.pdf"}, nil)
	f.strategy.On("Extract", mock.Anything, mock.Anything).
		Return(&port.RawModelResponse{Text: modelResponse, ModelUsed: "m"}, nil)
	f.catalog.On("FindSupplierLike", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)
	f.catalog.On("CurrencyExists", mock.Anything, "SAR").Return(true, nil)
	f.catalog.On("FindItemByNameLike", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)
	f.invoices.On("Update", mock.Anything, mock.Anything).Return(domain.ErrVersionConflict)

	_, err := f.svc.ExtractAndPersist(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrVersionConflict)
	assert.False(t, errors.Is(err, domain.ErrProvider))
}
