package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fatura/internal/config"
	"fatura/internal/domain"
	"fatura/internal/logger"
	"fatura/internal/parse"
	"fatura/internal/port"
	"fatura/internal/projection"
	"fatura/internal/reconcile"
)

// ExtractionResult is what an interactive extraction returns.
type ExtractionResult struct {
	Record         *domain.InvoiceRecord `json:"record"`
	ModelUsed      string                `json:"model_used"`
	Temperature    float64               `json:"temperature"`
	ExtractionTime float64               `json:"extraction_time"`
}

// PersistResult is what a durable extraction returns.
type PersistResult struct {
	InvoiceID     uuid.UUID            `json:"entity_id"`
	Updated       bool                 `json:"updated"`
	Status        domain.InvoiceStatus `json:"status"`
	ModelUsed     string               `json:"model_used"`
	MissingFields []string             `json:"missing_fields,omitempty"`
}

// ExtractionService runs the read, extract, parse and reconcile pipeline.
type ExtractionService interface {
	// Extract runs the pipeline for a file reference without persisting.
	Extract(ctx context.Context, fileRef string) (*ExtractionResult, error)
	// ExtractAndPersist runs the pipeline for an invoice's original file and
	// projects the result onto it. A failure leaves the invoice in
	// Processing with the error recorded and the previous data untouched.
	ExtractAndPersist(ctx context.Context, invoiceID uuid.UUID) (*PersistResult, error)
}

type extractionService struct {
	strategy    port.ExtractionStrategy
	reader      port.DocumentReader
	invoiceRepo port.InvoiceRepository
	locker      port.InvoiceLocker
	projector   *projection.Projector
	cfg         config.ExtractionConfig
	audit       auditor
	logger      *zap.Logger
	now         func() time.Time
}

// NewExtractionService creates a new ExtractionService implementation.
func NewExtractionService(
	strategy port.ExtractionStrategy,
	reader port.DocumentReader,
	invoiceRepo port.InvoiceRepository,
	catalogRepo port.CatalogRepository,
	auditRepo port.InvoiceAuditRepository,
	locker port.InvoiceLocker,
	cfg *config.ExtractionConfig,
	log *zap.Logger,
) ExtractionService {
	if log == nil {
		log = zap.NewNop()
	}
	return &extractionService{
		strategy:    strategy,
		reader:      reader,
		invoiceRepo: invoiceRepo,
		locker:      locker,
		projector:   projection.New(catalogRepo),
		cfg:         cfg.WithDefaults(),
		audit:       auditor{repo: auditRepo, logger: log},
		logger:      log,
		now:         time.Now,
	}
}

func (s *extractionService) Extract(ctx context.Context, fileRef string) (*ExtractionResult, error) {
	return s.run(ctx, fileRef)
}

func (s *extractionService) run(ctx context.Context, fileRef string) (*ExtractionResult, error) {
	// Reject unsupported kinds before any I/O.
	fileType, err := domain.FileTypeFromExtension(path.Ext(fileRef))
	if err != nil {
		return nil, err
	}

	doc, err := s.reader.Read(ctx, fileRef)
	if err != nil {
		return nil, err
	}

	start := s.now()
	raw, err := s.strategy.Extract(ctx, port.ExtractionRequest{
		Document:    doc.Data,
		FileType:    fileType,
		FileName:    doc.Name,
		Model:       s.cfg.Model,
		Temperature: s.cfg.Temperature,
		Prompt: port.PromptConfig{
			SystemInstruction: s.cfg.SystemInstruction,
			JSONFormat:        s.cfg.JSONFormat,
			Instructions:      s.cfg.PromptInstructions,
		},
	})
	if err != nil {
		return nil, err
	}
	if s.cfg.DebugLogging {
		s.logger.Debug("extractionService.run: model response",
			zap.String("file", doc.Name), zap.String("response", logger.Truncate(raw.Text, 500)))
	}

	parsed, err := parse.Response(raw.Text)
	if err != nil {
		return nil, err
	}
	record := reconcile.Reconcile(parsed)
	elapsed := s.now().Sub(start)

	return &ExtractionResult{
		Record:         record,
		ModelUsed:      raw.ModelUsed,
		Temperature:    s.cfg.Temperature,
		ExtractionTime: reconcile.Round2(elapsed.Seconds()),
	}, nil
}

func (s *extractionService) ExtractAndPersist(ctx context.Context, invoiceID uuid.UUID) (*PersistResult, error) {
	release, err := s.locker.Acquire(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	defer release()

	inv, err := s.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if err := inv.EnsureEditable(); err != nil {
		return nil, err
	}
	if inv.OriginalFile == "" {
		s.fail(ctx, inv, domain.ErrNoOriginalFile)
		return nil, domain.ErrNoOriginalFile
	}

	result, err := s.run(ctx, inv.OriginalFile)
	if err != nil {
		s.fail(ctx, inv, err)
		return nil, err
	}

	prevStatus := inv.Status
	missing, err := s.projector.Apply(ctx, inv, result.Record, result.ModelUsed)
	if err != nil {
		s.fail(ctx, inv, err)
		return nil, err
	}
	if err := s.invoiceRepo.Update(ctx, inv); err != nil {
		return nil, fmt.Errorf("saving extraction result: %w", err)
	}

	s.audit.record(ctx, inv.ID, domain.AuditExtractionCompleted, map[string]interface{}{
		"model_used":      result.ModelUsed,
		"extraction_time": result.ExtractionTime,
		"missing_fields":  missing,
	})
	s.audit.statusChanged(ctx, inv.ID, prevStatus, inv.Status)

	s.logger.Info("extractionService.ExtractAndPersist: invoice extracted",
		zap.Stringer("invoice_id", inv.ID), zap.String("status", string(inv.Status)),
		zap.Int("missing_fields", len(missing)))

	return &PersistResult{
		InvoiceID:     inv.ID,
		Updated:       true,
		Status:        inv.Status,
		ModelUsed:     result.ModelUsed,
		MissingFields: missing,
	}, nil
}

// fail moves inv to Processing and records cause without touching the
// previously extracted fields.
func (s *extractionService) fail(ctx context.Context, inv *domain.ExtractedInvoice, cause error) {
	errMsg := logger.Truncate(cause.Error(), 1000)
	s.logger.Warn("extractionService.fail: extraction failed",
		zap.Stringer("invoice_id", inv.ID), zap.Error(cause))

	prevStatus := inv.Status
	inv.Status = domain.InvoiceStatusProcessing
	inv.ExtractionError = errMsg
	if err := s.invoiceRepo.Update(ctx, inv); err != nil {
		s.logger.Error("extractionService.fail: failed to update status",
			zap.Stringer("invoice_id", inv.ID), zap.Error(err))
		return
	}

	changes := map[string]interface{}{"error": errMsg}
	var parseErr *parse.ParseError
	if errors.As(cause, &parseErr) {
		changes["raw_response"] = logger.Truncate(parseErr.Raw, 500)
	}
	s.audit.record(ctx, inv.ID, domain.AuditExtractionFailed, changes)
	s.audit.statusChanged(ctx, inv.ID, prevStatus, inv.Status)
}
