package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fatura/internal/domain"
	"fatura/internal/port"
	"fatura/internal/validator"
)

const (
	defaultPaymentDays = 30
	defaultUOM         = "Unit"
)

// ConversionService turns reviewed invoices into purchase invoice drafts.
type ConversionService interface {
	CreatePurchaseInvoiceDraft(ctx context.Context, invoiceID uuid.UUID) (*domain.PurchaseInvoice, error)
	LinkToPurchaseInvoice(ctx context.Context, invoiceID, purchaseInvoiceID uuid.UUID) (*domain.ExtractedInvoice, error)
}

type conversionService struct {
	invoiceRepo  port.InvoiceRepository
	purchaseRepo port.PurchaseInvoiceRepository
	catalogRepo  port.CatalogRepository
	locker       port.InvoiceLocker
	audit        auditor
	logger       *zap.Logger
	now          func() time.Time
}

// NewConversionService creates a new ConversionService implementation.
func NewConversionService(
	invoiceRepo port.InvoiceRepository,
	purchaseRepo port.PurchaseInvoiceRepository,
	catalogRepo port.CatalogRepository,
	auditRepo port.InvoiceAuditRepository,
	locker port.InvoiceLocker,
	logger *zap.Logger,
) ConversionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &conversionService{
		invoiceRepo:  invoiceRepo,
		purchaseRepo: purchaseRepo,
		catalogRepo:  catalogRepo,
		locker:       locker,
		audit:        auditor{repo: auditRepo, logger: logger},
		logger:       logger,
		now:          time.Now,
	}
}

func (s *conversionService) CreatePurchaseInvoiceDraft(ctx context.Context, invoiceID uuid.UUID) (*domain.PurchaseInvoice, error) {
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
	if inv.SupplierLink == "" {
		return nil, domain.ErrSupplierNotLinked
	}
	if len(inv.Items) == 0 {
		return nil, domain.ErrNoItems
	}

	pi, err := s.buildDraft(ctx, inv)
	if err != nil {
		return nil, err
	}
	if err := s.purchaseRepo.Create(ctx, pi); err != nil {
		return nil, fmt.Errorf("creating purchase invoice: %w", err)
	}

	prevStatus := inv.Status
	if err := inv.MarkConverted(pi.ID.String()); err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.Update(ctx, inv); err != nil {
		s.logger.Error("conversionService.CreatePurchaseInvoiceDraft: purchase invoice created but invoice not updated",
			zap.Stringer("invoice_id", inv.ID), zap.Stringer("purchase_invoice_id", pi.ID), zap.Error(err))
		return nil, err
	}

	s.audit.record(ctx, inv.ID, domain.AuditInvoiceConverted, map[string]interface{}{
		"purchase_invoice_id": pi.ID.String(), "items": len(pi.Items),
	})
	s.audit.statusChanged(ctx, inv.ID, prevStatus, inv.Status)
	return pi, nil
}

func (s *conversionService) buildDraft(ctx context.Context, inv *domain.ExtractedInvoice) (*domain.PurchaseInvoice, error) {
	supplierName := inv.SupplierName
	supplier, err := s.catalogRepo.GetSupplier(ctx, inv.SupplierLink)
	switch {
	case err == nil:
		supplierName = supplier.SupplierName
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	posting := today
	if inv.InvoiceDate != nil {
		posting = *inv.InvoiceDate
	}
	due := posting.AddDate(0, 0, defaultPaymentDays)
	if inv.DueDate != nil {
		due = *inv.DueDate
	}
	currency := inv.Currency
	if currency == "" {
		currency = domain.DefaultCurrency
	}

	pi := &domain.PurchaseInvoice{
		ID:                 uuid.New(),
		ExtractedInvoiceID: inv.ID,
		SupplierID:         inv.SupplierLink,
		SupplierName:       supplierName,
		BillNo:             inv.InvoiceNumber,
		PostingDate:        posting,
		DueDate:            due,
		Currency:           currency,
		Items:              make([]domain.PurchaseInvoiceItem, 0, len(inv.Items)),
	}

	for i := range inv.Items {
		row := &inv.Items[i]
		item := domain.PurchaseInvoiceItem{
			ItemCode:    row.ItemLink,
			ItemName:    row.ItemName,
			Description: row.ExtractedText,
			Qty:         row.Quantity,
			Rate:        row.Rate,
			Amount:      row.Amount,
			UOM:         defaultUOM,
		}
		if item.Description == "" {
			item.Description = row.ItemName
		}
		if row.ItemLink != "" {
			catalogItem, err := s.catalogRepo.GetItem(ctx, row.ItemLink)
			switch {
			case err == nil:
				item.ItemName = catalogItem.ItemName
				if catalogItem.StockUOM != "" {
					item.UOM = catalogItem.StockUOM
				}
			case !errors.Is(err, domain.ErrNotFound):
				return nil, err
			}
		}
		pi.Items = append(pi.Items, item)
	}

	if inv.TaxAmount > 0 {
		rate := validator.PurchaseTaxRate(inv.TaxAmount, inv.Subtotal)
		pi.TaxRate = &rate
		pi.TaxDescription = fmt.Sprintf("Tax %s%%", strconv.FormatFloat(rate, 'f', -1, 64))
	}
	return pi, nil
}

func (s *conversionService) LinkToPurchaseInvoice(ctx context.Context, invoiceID, purchaseInvoiceID uuid.UUID) (*domain.ExtractedInvoice, error) {
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
	if _, err := s.purchaseRepo.GetByID(ctx, purchaseInvoiceID); err != nil {
		return nil, err
	}

	prevStatus := inv.Status
	if err := inv.MarkConverted(purchaseInvoiceID.String()); err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.Update(ctx, inv); err != nil {
		return nil, err
	}

	s.audit.record(ctx, inv.ID, domain.AuditInvoiceLinked, map[string]interface{}{
		"purchase_invoice_id": purchaseInvoiceID.String(),
	})
	s.audit.statusChanged(ctx, inv.ID, prevStatus, inv.Status)
	return inv, nil
}
