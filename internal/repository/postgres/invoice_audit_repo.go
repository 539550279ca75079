package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"fatura/internal/domain"
	"fatura/internal/port"
)

type invoiceAuditRepo struct {
	db *sqlx.DB
}

// NewInvoiceAuditRepo creates a new PostgreSQL-backed InvoiceAuditRepository.
func NewInvoiceAuditRepo(db *sqlx.DB) port.InvoiceAuditRepository {
	return &invoiceAuditRepo{db: db}
}

func (r *invoiceAuditRepo) Create(ctx context.Context, entry *domain.InvoiceAuditEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if len(entry.Changes) == 0 {
		entry.Changes = []byte("{}")
	}
	entry.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO invoice_audit_log (id, invoice_id, action, changes, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		entry.ID, entry.InvoiceID, entry.Action, string(entry.Changes), entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("invoiceAuditRepo.Create: %w", err)
	}
	return nil
}

func (r *invoiceAuditRepo) ListByInvoice(ctx context.Context, invoiceID uuid.UUID, offset, limit int) ([]domain.InvoiceAuditEntry, int, error) {
	var total int
	err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM invoice_audit_log WHERE invoice_id = $1`, invoiceID)
	if err != nil {
		return nil, 0, fmt.Errorf("invoiceAuditRepo.ListByInvoice count: %w", err)
	}

	entries := []domain.InvoiceAuditEntry{}
	err = r.db.SelectContext(ctx, &entries,
		`SELECT * FROM invoice_audit_log
		 WHERE invoice_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		invoiceID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("invoiceAuditRepo.ListByInvoice: %w", err)
	}
	return entries, total, nil
}
