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

type extractionJobRepo struct {
	db *sqlx.DB
}

// NewExtractionJobRepo creates a new PostgreSQL-backed ExtractionJobRepository.
func NewExtractionJobRepo(db *sqlx.DB) port.ExtractionJobRepository {
	return &extractionJobRepo{db: db}
}

func (r *extractionJobRepo) Enqueue(ctx context.Context, invoiceID uuid.UUID) (*domain.ExtractionJob, error) {
	now := time.Now().UTC()
	job := &domain.ExtractionJob{
		ID:        uuid.New(),
		InvoiceID: invoiceID,
		Status:    domain.JobStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO extraction_jobs (id, invoice_id, status, attempts, created_at, updated_at)
		 VALUES ($1, $2, $3, 0, $4, $5)`,
		job.ID, job.InvoiceID, job.Status, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("extractionJobRepo.Enqueue: %w", err)
	}
	return job, nil
}

// ClaimQueued locks due queued jobs with SKIP LOCKED so that concurrent
// workers never claim the same job, and marks them running. A running job
// untouched for longer than the job timeout was left behind by a crashed
// worker and is claimed again.
func (r *extractionJobRepo) ClaimQueued(ctx context.Context, limit int) ([]domain.ExtractionJob, error) {
	jobs := []domain.ExtractionJob{}
	err := r.db.SelectContext(ctx, &jobs,
		`UPDATE extraction_jobs SET status = 'running', attempts = attempts + 1, updated_at = NOW()
		 WHERE id IN (
			SELECT id FROM extraction_jobs
			WHERE (status = 'queued' AND (retry_after IS NULL OR retry_after <= NOW()))
			   OR (status = 'running' AND updated_at < NOW() - make_interval(secs => $2))
			ORDER BY created_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		 )
		 RETURNING *`, limit, domain.ExtractionJobTimeout.Seconds())
	if err != nil {
		return nil, fmt.Errorf("extractionJobRepo.ClaimQueued: %w", err)
	}
	return jobs, nil
}

func (r *extractionJobRepo) Complete(ctx context.Context, jobID uuid.UUID) error {
	return r.setStatus(ctx, "extractionJobRepo.Complete",
		`UPDATE extraction_jobs SET status = 'completed', last_error = '', updated_at = NOW() WHERE id = $1`,
		jobID)
}

func (r *extractionJobRepo) Fail(ctx context.Context, jobID uuid.UUID, lastError string) error {
	return r.setStatus(ctx, "extractionJobRepo.Fail",
		`UPDATE extraction_jobs SET status = 'failed', last_error = $2, updated_at = NOW() WHERE id = $1`,
		jobID, lastError)
}

func (r *extractionJobRepo) Requeue(ctx context.Context, jobID uuid.UUID, retryAfter time.Time, lastError string) error {
	return r.setStatus(ctx, "extractionJobRepo.Requeue",
		`UPDATE extraction_jobs SET status = 'queued', retry_after = $2, last_error = $3, updated_at = NOW() WHERE id = $1`,
		jobID, retryAfter.UTC(), lastError)
}

func (r *extractionJobRepo) setStatus(ctx context.Context, op, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if rows == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}
