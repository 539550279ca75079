package lock

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"fatura/internal/domain"
	"fatura/internal/port"
)

// MemoryLocker is the single-process port.InvoiceLocker used when redis
// is not configured.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[uuid.UUID]struct{}
}

// NewMemoryLocker creates an empty MemoryLocker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[uuid.UUID]struct{})}
}

func (l *MemoryLocker) Acquire(_ context.Context, invoiceID uuid.UUID) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[invoiceID]; busy {
		return nil, domain.ErrInvoiceLocked
	}
	l.held[invoiceID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, invoiceID)
			l.mu.Unlock()
		})
	}, nil
}

var _ port.InvoiceLocker = (*MemoryLocker)(nil)
