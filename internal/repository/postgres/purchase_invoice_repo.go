package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"fatura/internal/domain"
	"fatura/internal/port"
)

type purchaseInvoiceRepo struct {
	db *sqlx.DB
}

// NewPurchaseInvoiceRepo creates a new PostgreSQL-backed PurchaseInvoiceRepository.
func NewPurchaseInvoiceRepo(db *sqlx.DB) port.PurchaseInvoiceRepository {
	return &purchaseInvoiceRepo{db: db}
}

func (r *purchaseInvoiceRepo) Create(ctx context.Context, pi *domain.PurchaseInvoice) error {
	if pi.ID == uuid.Nil {
		pi.ID = uuid.New()
	}
	pi.CreatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("purchaseInvoiceRepo.Create begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `INSERT INTO purchase_invoices (
		id, extracted_invoice_id, supplier_id, supplier_name, bill_no,
		posting_date, due_date, currency, tax_rate, tax_description, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		pi.ID, pi.ExtractedInvoiceID, pi.SupplierID, pi.SupplierName, pi.BillNo,
		pi.PostingDate, pi.DueDate, pi.Currency, pi.TaxRate, pi.TaxDescription, pi.CreatedAt)
	if err != nil {
		return fmt.Errorf("purchaseInvoiceRepo.Create: %w", err)
	}

	for i := range pi.Items {
		it := &pi.Items[i]
		if it.ID == uuid.Nil {
			it.ID = uuid.New()
		}
		it.PurchaseInvoiceID = pi.ID
		it.Idx = i + 1
		_, err = tx.ExecContext(ctx, `INSERT INTO purchase_invoice_items (
			id, purchase_invoice_id, idx, item_code, item_name, description, qty, rate, amount, uom
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			it.ID, it.PurchaseInvoiceID, it.Idx, it.ItemCode, it.ItemName, it.Description,
			it.Qty, it.Rate, it.Amount, it.UOM)
		if err != nil {
			return fmt.Errorf("purchaseInvoiceRepo.Create item %d: %w", it.Idx, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("purchaseInvoiceRepo.Create commit: %w", err)
	}
	return nil
}

func (r *purchaseInvoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PurchaseInvoice, error) {
	var pi domain.PurchaseInvoice
	err := r.db.GetContext(ctx, &pi, "SELECT * FROM purchase_invoices WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("purchaseInvoiceRepo.GetByID: %w", err)
	}
	pi.Items = []domain.PurchaseInvoiceItem{}
	err = r.db.SelectContext(ctx, &pi.Items,
		"SELECT * FROM purchase_invoice_items WHERE purchase_invoice_id = $1 ORDER BY idx", id)
	if err != nil {
		return nil, fmt.Errorf("purchaseInvoiceRepo.GetByID items: %w", err)
	}
	return &pi, nil
}
