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

type invoiceRepo struct {
	db *sqlx.DB
}

// NewInvoiceRepo creates a new PostgreSQL-backed InvoiceRepository.
func NewInvoiceRepo(db *sqlx.DB) port.InvoiceRepository {
	return &invoiceRepo{db: db}
}

func (r *invoiceRepo) Create(ctx context.Context, inv *domain.ExtractedInvoice) error {
	now := time.Now().UTC()
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	if inv.Status == "" {
		inv.Status = domain.InvoiceStatusDraft
	}
	inv.Version = 1
	inv.CreatedAt = now
	inv.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("invoiceRepo.Create begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `INSERT INTO extracted_invoices (
		id, status, original_file, supplier_name, supplier_link,
		invoice_number, invoice_date, due_date, currency,
		subtotal, tax_amount, total_amount, tax_rate,
		extraction_model, extraction_error, extracted_data, extracted_at,
		purchase_invoice_link, version, created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8, $9,
		$10, $11, $12, $13,
		$14, $15, $16, $17,
		$18, $19, $20, $21
	)`,
		inv.ID, inv.Status, inv.OriginalFile, inv.SupplierName, inv.SupplierLink,
		inv.InvoiceNumber, inv.InvoiceDate, inv.DueDate, inv.Currency,
		inv.Subtotal, inv.TaxAmount, inv.TotalAmount, inv.TaxRate,
		inv.ExtractionModel, inv.ExtractionError, nullJSON(inv.ExtractedData), inv.ExtractedAt,
		inv.PurchaseInvoiceLink, inv.Version, inv.CreatedAt, inv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("invoiceRepo.Create: %w", err)
	}
	if err := insertItems(ctx, tx, inv); err != nil {
		return fmt.Errorf("invoiceRepo.Create items: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("invoiceRepo.Create commit: %w", err)
	}
	return nil
}

func (r *invoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ExtractedInvoice, error) {
	var inv domain.ExtractedInvoice
	err := r.db.GetContext(ctx, &inv, "SELECT * FROM extracted_invoices WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("invoiceRepo.GetByID: %w", err)
	}
	items, err := r.GetItems(ctx, id)
	if err != nil {
		return nil, err
	}
	inv.Items = items
	return &inv, nil
}

func (r *invoiceRepo) GetItems(ctx context.Context, invoiceID uuid.UUID) ([]domain.ExtractedInvoiceItem, error) {
	items := []domain.ExtractedInvoiceItem{}
	err := r.db.SelectContext(ctx, &items,
		"SELECT * FROM extracted_invoice_items WHERE invoice_id = $1 ORDER BY idx", invoiceID)
	if err != nil {
		return nil, fmt.Errorf("invoiceRepo.GetItems: %w", err)
	}
	return items, nil
}

func (r *invoiceRepo) List(ctx context.Context, filter port.InvoiceFilter, offset, limit int) ([]domain.ExtractedInvoice, int, error) {
	var total int
	err := r.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM extracted_invoices WHERE ($1 = '' OR status = $1)", string(filter.Status))
	if err != nil {
		return nil, 0, fmt.Errorf("invoiceRepo.List count: %w", err)
	}

	invoices := []domain.ExtractedInvoice{}
	err = r.db.SelectContext(ctx, &invoices,
		`SELECT * FROM extracted_invoices WHERE ($1 = '' OR status = $1)
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		string(filter.Status), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("invoiceRepo.List: %w", err)
	}
	return invoices, total, nil
}

func (r *invoiceRepo) Update(ctx context.Context, inv *domain.ExtractedInvoice) error {
	inv.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("invoiceRepo.Update begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx,
		`UPDATE extracted_invoices SET
			status = $1, original_file = $2, supplier_name = $3, supplier_link = $4,
			invoice_number = $5, invoice_date = $6, due_date = $7, currency = $8,
			subtotal = $9, tax_amount = $10, total_amount = $11, tax_rate = $12,
			extraction_model = $13, extraction_error = $14, extracted_data = $15, extracted_at = $16,
			purchase_invoice_link = $17, version = version + 1, updated_at = $18
		 WHERE id = $19 AND version = $20`,
		inv.Status, inv.OriginalFile, inv.SupplierName, inv.SupplierLink,
		inv.InvoiceNumber, inv.InvoiceDate, inv.DueDate, inv.Currency,
		inv.Subtotal, inv.TaxAmount, inv.TotalAmount, inv.TaxRate,
		inv.ExtractionModel, inv.ExtractionError, nullJSON(inv.ExtractedData), inv.ExtractedAt,
		inv.PurchaseInvoiceLink, inv.UpdatedAt,
		inv.ID, inv.Version)
	if err != nil {
		return fmt.Errorf("invoiceRepo.Update: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("invoiceRepo.Update rows affected: %w", err)
	}
	if rows == 0 {
		var exists bool
		if err := tx.GetContext(ctx, &exists,
			"SELECT EXISTS(SELECT 1 FROM extracted_invoices WHERE id = $1)", inv.ID); err != nil {
			return fmt.Errorf("invoiceRepo.Update exists: %w", err)
		}
		if !exists {
			return domain.ErrInvoiceNotFound
		}
		return domain.ErrVersionConflict
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM extracted_invoice_items WHERE invoice_id = $1", inv.ID); err != nil {
		return fmt.Errorf("invoiceRepo.Update clear items: %w", err)
	}
	if err := insertItems(ctx, tx, inv); err != nil {
		return fmt.Errorf("invoiceRepo.Update items: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("invoiceRepo.Update commit: %w", err)
	}
	inv.Version++
	return nil
}

func (r *invoiceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM extracted_invoices WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("invoiceRepo.Delete: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("invoiceRepo.Delete rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrInvoiceNotFound
	}
	return nil
}

func insertItems(ctx context.Context, tx *sqlx.Tx, inv *domain.ExtractedInvoice) error {
	for i := range inv.Items {
		it := &inv.Items[i]
		if it.ID == uuid.Nil {
			it.ID = uuid.New()
		}
		it.InvoiceID = inv.ID
		it.Idx = i + 1
		_, err := tx.ExecContext(ctx, `INSERT INTO extracted_invoice_items (
			id, invoice_id, idx, extracted_text, item_name, item_link,
			quantity, rate, amount, tax_amount, total_with_tax, language, taxable
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			it.ID, it.InvoiceID, it.Idx, it.ExtractedText, it.ItemName, it.ItemLink,
			it.Quantity, it.Rate, it.Amount, it.TaxAmount, it.TotalWithTax, it.Language, it.Taxable)
		if err != nil {
			return err
		}
	}
	return nil
}

// nullJSON stores an empty document as the JSON null literal; the column
// is NOT NULL so it always scans into json.RawMessage.
func nullJSON(b []byte) string {
	if len(b) == 0 {
		return "null"
	}
	return string(b)
}
