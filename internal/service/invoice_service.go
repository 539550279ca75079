package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fatura/internal/domain"
	"fatura/internal/export"
	"fatura/internal/port"
	"fatura/internal/validator"
)

// exportBatchSize is the page size used when streaming an export.
const exportBatchSize = 100

// IngestInput is the DTO for the producer adapter.
type IngestInput struct {
	FileName    string
	ContentType string
	Data        []byte
}

// UpdateInvoiceInput is the DTO for editing an invoice. Nil fields are left
// unchanged; a non-nil Items replaces every row.
type UpdateInvoiceInput struct {
	ID            uuid.UUID
	Version       int
	SupplierName  *string
	SupplierLink  *string
	InvoiceNumber *string
	InvoiceDate   *time.Time
	DueDate       *time.Time
	Currency      *string
	Subtotal      *float64
	TaxAmount     *float64
	TotalAmount   *float64
	Items         []UpdateItemInput
}

// UpdateItemInput is one edited row.
type UpdateItemInput struct {
	ExtractedText string
	ItemName      string
	ItemLink      string
	Quantity      float64
	Rate          float64
	TaxAmount     float64
	Language      string
	Taxable       bool
}

// FixTotalsResult is returned after aggregates were rewritten from the items.
type FixTotalsResult struct {
	Totals  validator.Totals         `json:"totals"`
	TaxRate float64                  `json:"tax_rate"`
	Invoice *domain.ExtractedInvoice `json:"invoice"`
}

// InvoiceFile is either a redirect to a presigned URL or the file itself.
type InvoiceFile struct {
	RedirectURL string
	Document    *port.Document
}

// InvoiceService defines the extracted invoice review contract.
type InvoiceService interface {
	Ingest(ctx context.Context, input *IngestInput) (*domain.ExtractedInvoice, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ExtractedInvoice, error)
	List(ctx context.Context, status domain.InvoiceStatus, offset, limit int) ([]domain.ExtractedInvoice, int, error)
	Update(ctx context.Context, input *UpdateInvoiceInput) (*domain.ExtractedInvoice, error)
	MarkReady(ctx context.Context, id uuid.UUID) (*domain.ExtractedInvoice, error)
	EnqueueExtraction(ctx context.Context, id uuid.UUID) (*domain.ExtractionJob, error)
	ValidateTotals(ctx context.Context, id uuid.UUID) (*validator.TotalsReport, error)
	FixTotals(ctx context.Context, id uuid.UUID) (*FixTotalsResult, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListAudit(ctx context.Context, id uuid.UUID, offset, limit int) ([]domain.InvoiceAuditEntry, int, error)
	Export(ctx context.Context, w io.Writer, format string, status domain.InvoiceStatus) error
	OpenFile(ctx context.Context, id uuid.UUID) (*InvoiceFile, error)
}

type invoiceService struct {
	invoiceRepo port.InvoiceRepository
	catalogRepo port.CatalogRepository
	auditRepo   port.InvoiceAuditRepository
	jobRepo     port.ExtractionJobRepository
	files       port.FileStore
	audit       auditor
	logger      *zap.Logger
}

// NewInvoiceService creates a new InvoiceService implementation.
func NewInvoiceService(
	invoiceRepo port.InvoiceRepository,
	catalogRepo port.CatalogRepository,
	auditRepo port.InvoiceAuditRepository,
	jobRepo port.ExtractionJobRepository,
	files port.FileStore,
	logger *zap.Logger,
) InvoiceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &invoiceService{
		invoiceRepo: invoiceRepo,
		catalogRepo: catalogRepo,
		auditRepo:   auditRepo,
		jobRepo:     jobRepo,
		files:       files,
		audit:       auditor{repo: auditRepo, logger: logger},
		logger:      logger,
	}
}

func (s *invoiceService) Ingest(ctx context.Context, input *IngestInput) (*domain.ExtractedInvoice, error) {
	name := strings.TrimSpace(input.FileName)
	if path.Ext(name) == "" {
		ft, ok := domain.AllowedContentTypes[mediaType(input.ContentType)]
		if !ok {
			return nil, domain.ErrUnsupportedFileType
		}
		name = fmt.Sprintf("%s.%s", strings.TrimSuffix(name, "."), ft)
	}
	fileType, err := domain.FileTypeFromExtension(path.Ext(name))
	if err != nil {
		return nil, err
	}

	ref, err := s.files.Save(ctx, name, fileType.MIMEType(), input.Data)
	if err != nil {
		return nil, err
	}

	inv := &domain.ExtractedInvoice{
		Status:       domain.InvoiceStatusDraft,
		OriginalFile: ref,
	}
	if err := s.invoiceRepo.Create(ctx, inv); err != nil {
		if delErr := s.files.Delete(ctx, ref); delErr != nil {
			s.logger.Warn("invoiceService.Ingest: failed to clean up file",
				zap.String("ref", ref), zap.Error(delErr))
		}
		return nil, fmt.Errorf("creating invoice: %w", err)
	}
	s.audit.record(ctx, inv.ID, domain.AuditInvoiceCreated, map[string]interface{}{
		"original_file": ref, "size": len(input.Data),
	})

	if _, err := s.enqueue(ctx, inv); err != nil {
		return nil, err
	}
	s.logger.Info("invoiceService.Ingest: invoice created",
		zap.Stringer("invoice_id", inv.ID), zap.String("original_file", ref))
	return inv, nil
}

func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

func (s *invoiceService) GetByID(ctx context.Context, id uuid.UUID) (*domain.ExtractedInvoice, error) {
	return s.invoiceRepo.GetByID(ctx, id)
}

func (s *invoiceService) List(ctx context.Context, status domain.InvoiceStatus, offset, limit int) ([]domain.ExtractedInvoice, int, error) {
	if status != "" && !status.Valid() {
		return nil, 0, domain.ErrInvalidStatus
	}
	return s.invoiceRepo.List(ctx, port.InvoiceFilter{Status: status}, offset, limit)
}

func (s *invoiceService) Update(ctx context.Context, input *UpdateInvoiceInput) (*domain.ExtractedInvoice, error) {
	inv, err := s.invoiceRepo.GetByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if err := inv.EnsureEditable(); err != nil {
		return nil, err
	}
	if input.Version != 0 {
		if input.Version != inv.Version {
			return nil, domain.ErrVersionConflict
		}
		inv.Version = input.Version
	}

	prevStatus := inv.Status
	changed, err := s.applyUpdate(ctx, inv, input)
	if err != nil {
		return nil, err
	}
	if err := validator.PrepareSave(inv); err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.Update(ctx, inv); err != nil {
		return nil, err
	}

	s.audit.record(ctx, inv.ID, domain.AuditInvoiceUpdated, map[string]interface{}{"fields": changed})
	s.audit.statusChanged(ctx, inv.ID, prevStatus, inv.Status)
	return inv, nil
}

// applyUpdate copies the set fields of input onto inv and returns their names.
func (s *invoiceService) applyUpdate(ctx context.Context, inv *domain.ExtractedInvoice, input *UpdateInvoiceInput) ([]string, error) {
	var changed []string

	if input.SupplierName != nil {
		inv.SupplierName = strings.TrimSpace(*input.SupplierName)
		changed = append(changed, "supplier_name")
	}
	if input.SupplierLink != nil {
		link := strings.TrimSpace(*input.SupplierLink)
		if err := s.checkSupplier(ctx, link); err != nil {
			return nil, err
		}
		inv.SupplierLink = link
		changed = append(changed, "supplier_link")
	}
	if input.InvoiceNumber != nil {
		inv.InvoiceNumber = strings.TrimSpace(*input.InvoiceNumber)
		changed = append(changed, "invoice_number")
	}
	if input.InvoiceDate != nil {
		inv.InvoiceDate = input.InvoiceDate
		changed = append(changed, "invoice_date")
	}
	if input.DueDate != nil {
		inv.DueDate = input.DueDate
		changed = append(changed, "due_date")
	}
	if input.Currency != nil {
		code := strings.ToUpper(strings.TrimSpace(*input.Currency))
		if code != "" {
			ok, err := s.catalogRepo.CurrencyExists(ctx, code)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, fmt.Errorf("%w: currency %q", domain.ErrUnknownLink, code)
			}
		}
		inv.Currency = code
		changed = append(changed, "currency")
	}
	if input.Subtotal != nil {
		inv.Subtotal = *input.Subtotal
		changed = append(changed, "subtotal")
	}
	if input.TaxAmount != nil {
		inv.TaxAmount = *input.TaxAmount
		changed = append(changed, "tax_amount")
	}
	if input.TotalAmount != nil {
		inv.TotalAmount = *input.TotalAmount
		changed = append(changed, "total_amount")
	}

	if input.Items != nil {
		items := make([]domain.ExtractedInvoiceItem, 0, len(input.Items))
		for i := range input.Items {
			in := &input.Items[i]
			link := strings.TrimSpace(in.ItemLink)
			if err := s.checkItem(ctx, link); err != nil {
				return nil, err
			}
			lang := in.Language
			if lang == "" {
				lang = "en"
			}
			items = append(items, domain.ExtractedInvoiceItem{
				InvoiceID:     inv.ID,
				ExtractedText: in.ExtractedText,
				ItemName:      strings.TrimSpace(in.ItemName),
				ItemLink:      link,
				Quantity:      in.Quantity,
				Rate:          in.Rate,
				TaxAmount:     in.TaxAmount,
				Language:      lang,
				Taxable:       in.Taxable,
			})
		}
		inv.Items = items
		changed = append(changed, "items")
	}
	return changed, nil
}

func (s *invoiceService) checkSupplier(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if _, err := s.catalogRepo.GetSupplier(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: supplier %q", domain.ErrUnknownLink, id)
		}
		return err
	}
	return nil
}

func (s *invoiceService) checkItem(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if _, err := s.catalogRepo.GetItem(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: item %q", domain.ErrUnknownLink, id)
		}
		return err
	}
	return nil
}

func (s *invoiceService) MarkReady(ctx context.Context, id uuid.UUID) (*domain.ExtractedInvoice, error) {
	inv, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	prevStatus := inv.Status
	if err := validator.MarkReady(inv); err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.Update(ctx, inv); err != nil {
		return nil, err
	}
	s.audit.statusChanged(ctx, inv.ID, prevStatus, inv.Status)
	return inv, nil
}

func (s *invoiceService) EnqueueExtraction(ctx context.Context, id uuid.UUID) (*domain.ExtractionJob, error) {
	inv, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := inv.EnsureEditable(); err != nil {
		return nil, err
	}
	if inv.OriginalFile == "" {
		return nil, domain.ErrNoOriginalFile
	}
	return s.enqueue(ctx, inv)
}

func (s *invoiceService) enqueue(ctx context.Context, inv *domain.ExtractedInvoice) (*domain.ExtractionJob, error) {
	job, err := s.jobRepo.Enqueue(ctx, inv.ID)
	if err != nil {
		return nil, fmt.Errorf("enqueueing extraction: %w", err)
	}
	s.audit.record(ctx, inv.ID, domain.AuditExtractionQueued, map[string]interface{}{"job_id": job.ID.String()})
	return job, nil
}

func (s *invoiceService) ValidateTotals(ctx context.Context, id uuid.UUID) (*validator.TotalsReport, error) {
	inv, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return validator.ValidateTotals(inv), nil
}

func (s *invoiceService) FixTotals(ctx context.Context, id uuid.UUID) (*FixTotalsResult, error) {
	inv, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := inv.EnsureEditable(); err != nil {
		return nil, err
	}

	before := validator.Totals{Subtotal: inv.Subtotal, TaxAmount: inv.TaxAmount, TotalAmount: inv.TotalAmount}
	totals := validator.FixTotals(inv)
	if err := validator.PrepareSave(inv); err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.Update(ctx, inv); err != nil {
		return nil, err
	}

	s.audit.record(ctx, inv.ID, domain.AuditTotalsFixed, map[string]interface{}{
		"before": before, "after": totals, "tax_rate": inv.TaxRate,
	})
	return &FixTotalsResult{Totals: totals, TaxRate: inv.TaxRate, Invoice: inv}, nil
}

func (s *invoiceService) Delete(ctx context.Context, id uuid.UUID) error {
	inv, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := inv.EnsureEditable(); err != nil {
		return err
	}
	if err := s.invoiceRepo.Delete(ctx, id); err != nil {
		return err
	}
	if inv.OriginalFile != "" {
		if err := s.files.Delete(ctx, inv.OriginalFile); err != nil {
			s.logger.Warn("invoiceService.Delete: failed to delete original file",
				zap.Stringer("invoice_id", id), zap.String("ref", inv.OriginalFile), zap.Error(err))
		}
	}
	s.audit.record(ctx, id, domain.AuditInvoiceDeleted, map[string]interface{}{
		"invoice_number": inv.InvoiceNumber, "original_file": inv.OriginalFile,
	})
	return nil
}

func (s *invoiceService) ListAudit(ctx context.Context, id uuid.UUID, offset, limit int) ([]domain.InvoiceAuditEntry, int, error) {
	return s.auditRepo.ListByInvoice(ctx, id, offset, limit)
}

// Export writes every invoice with the given status (all when empty),
// newest first, loading items page by page.
func (s *invoiceService) Export(ctx context.Context, w io.Writer, format string, status domain.InvoiceStatus) error {
	if format != export.FormatCSV && format != export.FormatXLSX {
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedExportFormat, format)
	}
	if status != "" && !status.Valid() {
		return domain.ErrInvalidStatus
	}

	var all []domain.ExtractedInvoice
	for offset := 0; ; offset += exportBatchSize {
		page, total, err := s.invoiceRepo.List(ctx, port.InvoiceFilter{Status: status}, offset, exportBatchSize)
		if err != nil {
			return err
		}
		for i := range page {
			items, err := s.invoiceRepo.GetItems(ctx, page[i].ID)
			if err != nil {
				return err
			}
			page[i].Items = items
		}
		all = append(all, page...)
		if len(page) < exportBatchSize || offset+len(page) >= total {
			break
		}
	}
	return export.Write(w, format, all)
}

func (s *invoiceService) OpenFile(ctx context.Context, id uuid.UUID) (*InvoiceFile, error) {
	inv, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.OriginalFile == "" {
		return nil, domain.ErrNoOriginalFile
	}
	url, err := s.files.PresignedURL(ctx, inv.OriginalFile)
	if err != nil {
		return nil, err
	}
	if url != "" {
		return &InvoiceFile{RedirectURL: url}, nil
	}
	doc, err := s.files.Read(ctx, inv.OriginalFile)
	if err != nil {
		return nil, err
	}
	return &InvoiceFile{Document: doc}, nil
}
