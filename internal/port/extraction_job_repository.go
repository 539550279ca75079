package port

import (
	"context"
	"time"

	"github.com/google/uuid"

	"fatura/internal/domain"
)

// ExtractionJobRepository is the durable queue behind background extraction.
type ExtractionJobRepository interface {
	Enqueue(ctx context.Context, invoiceID uuid.UUID) (*domain.ExtractionJob, error)
	// ClaimQueued atomically moves up to limit due jobs to running.
	ClaimQueued(ctx context.Context, limit int) ([]domain.ExtractionJob, error)
	Complete(ctx context.Context, jobID uuid.UUID) error
	Fail(ctx context.Context, jobID uuid.UUID, lastError string) error
	Requeue(ctx context.Context, jobID uuid.UUID, retryAfter time.Time, lastError string) error
}
