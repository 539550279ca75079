package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fatura/internal/domain"
	"fatura/internal/port"
)

// auditor writes invoice audit entries. Failures are logged but never
// block business logic.
type auditor struct {
	repo   port.InvoiceAuditRepository
	logger *zap.Logger
}

func (a auditor) record(ctx context.Context, invoiceID uuid.UUID, action domain.AuditAction, changes map[string]interface{}) {
	if a.repo == nil {
		return
	}
	raw := json.RawMessage("{}")
	if len(changes) > 0 {
		if b, err := json.Marshal(changes); err == nil {
			raw = b
		}
	}
	entry := &domain.InvoiceAuditEntry{
		ID:        uuid.New(),
		InvoiceID: invoiceID,
		Action:    string(action),
		Changes:   raw,
	}
	if err := a.repo.Create(ctx, entry); err != nil {
		a.logger.Warn("invoiceAudit.record: failed to write audit entry",
			zap.String("action", string(action)), zap.Stringer("invoice_id", invoiceID), zap.Error(err))
	}
}

// statusChanged records a transition when the status actually moved.
func (a auditor) statusChanged(ctx context.Context, invoiceID uuid.UUID, from, to domain.InvoiceStatus) {
	if from == to {
		return
	}
	a.record(ctx, invoiceID, domain.AuditInvoiceStatusChanged, map[string]interface{}{
		"from": string(from), "to": string(to),
	})
}
