package port

import (
	"context"

	"github.com/google/uuid"
)

// InvoiceLocker serializes extraction of a single invoice.
// Acquire fails with domain.ErrInvoiceLocked when the lock is held.
type InvoiceLocker interface {
	Acquire(ctx context.Context, invoiceID uuid.UUID) (release func(), err error)
}
