package port

import (
	"context"

	"github.com/google/uuid"

	"fatura/internal/domain"
)

// InvoiceFilter narrows invoice listings.
type InvoiceFilter struct {
	Status domain.InvoiceStatus
}

// InvoiceRepository defines the contract for extracted invoice persistence.
type InvoiceRepository interface {
	Create(ctx context.Context, inv *domain.ExtractedInvoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ExtractedInvoice, error)
	GetItems(ctx context.Context, invoiceID uuid.UUID) ([]domain.ExtractedInvoiceItem, error)
	List(ctx context.Context, filter InvoiceFilter, offset, limit int) ([]domain.ExtractedInvoice, int, error)
	// Update writes the header and replaces the items. It fails with
	// domain.ErrVersionConflict when inv.Version is stale and bumps it otherwise.
	Update(ctx context.Context, inv *domain.ExtractedInvoice) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// CatalogRepository looks up suppliers, items and currencies invoices link to.
type CatalogRepository interface {
	FindSupplierLike(ctx context.Context, name string) (*domain.Supplier, error)
	FindItemByTag(ctx context.Context, tag string) (*domain.CatalogItem, error)
	FindItemByNameLike(ctx context.Context, name string) (*domain.CatalogItem, error)
	GetSupplier(ctx context.Context, id string) (*domain.Supplier, error)
	GetItem(ctx context.Context, id string) (*domain.CatalogItem, error)
	CurrencyExists(ctx context.Context, code string) (bool, error)
}

// PurchaseInvoiceRepository defines the contract for purchase invoice drafts.
type PurchaseInvoiceRepository interface {
	// Create writes the purchase invoice and its items in one transaction.
	Create(ctx context.Context, pi *domain.PurchaseInvoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PurchaseInvoice, error)
}

// InvoiceAuditRepository defines the contract for invoice audit log persistence.
type InvoiceAuditRepository interface {
	Create(ctx context.Context, entry *domain.InvoiceAuditEntry) error
	ListByInvoice(ctx context.Context, invoiceID uuid.UUID, offset, limit int) ([]domain.InvoiceAuditEntry, int, error)
}
