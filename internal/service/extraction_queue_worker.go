package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"fatura/internal/domain"
	"fatura/internal/extraction"
	"fatura/internal/port"
)

// ExtractionQueueConfig holds settings for the extraction queue worker.
type ExtractionQueueConfig struct {
	PollInterval time.Duration
	MaxRetries   int
	Concurrency  int
}

// ExtractionQueueWorker polls for queued extraction jobs and runs them.
type ExtractionQueueWorker struct {
	jobRepo    port.ExtractionJobRepository
	extraction ExtractionService
	cfg        ExtractionQueueConfig
	logger     *zap.Logger
	wg         sync.WaitGroup
}

// NewExtractionQueueWorker creates a new ExtractionQueueWorker.
func NewExtractionQueueWorker(jobRepo port.ExtractionJobRepository, extractionSvc ExtractionService, cfg ExtractionQueueConfig, logger *zap.Logger) *ExtractionQueueWorker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExtractionQueueWorker{
		jobRepo:    jobRepo,
		extraction: extractionSvc,
		cfg:        cfg,
		logger:     logger,
	}
}

// Start runs the polling loop until ctx is canceled. It blocks until all
// in-flight extractions have finished.
func (w *ExtractionQueueWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	sem := make(chan struct{}, w.cfg.Concurrency)

	w.logger.Info("extractionQueueWorker: started",
		zap.Duration("poll", w.cfg.PollInterval),
		zap.Int("concurrency", w.cfg.Concurrency),
		zap.Int("max_retries", w.cfg.MaxRetries))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("extractionQueueWorker: shutting down, waiting for in-flight extractions")
			w.wg.Wait()
			w.logger.Info("extractionQueueWorker: shutdown complete")
			return
		case <-ticker.C:
			available := w.cfg.Concurrency - len(sem)
			if available <= 0 {
				continue
			}

			jobs, err := w.jobRepo.ClaimQueued(ctx, available)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				w.logger.Error("extractionQueueWorker: ClaimQueued failed", zap.Error(err))
				continue
			}

			for i := range jobs {
				job := jobs[i]

				sem <- struct{}{}
				w.wg.Add(1)
				go func() {
					defer w.wg.Done()
					defer func() { <-sem }()

					// A fresh context lets in-flight extractions finish during shutdown.
					jobCtx, cancel := context.WithTimeout(context.Background(), domain.ExtractionJobTimeout)
					defer cancel()

					w.process(jobCtx, &job)
				}()
			}
		}
	}
}

// process runs one job. Only rate-limited attempts are requeued, and only
// while attempts remain; every other failure is final.
func (w *ExtractionQueueWorker) process(ctx context.Context, job *domain.ExtractionJob) {
	log := w.logger.With(zap.Stringer("job_id", job.ID), zap.Stringer("invoice_id", job.InvoiceID),
		zap.Int("attempt", job.Attempts))
	log.Info("extractionQueueWorker: dispatching job")

	_, err := w.extraction.ExtractAndPersist(ctx, job.InvoiceID)
	if err == nil {
		if err := w.jobRepo.Complete(ctx, job.ID); err != nil {
			log.Error("extractionQueueWorker: failed to complete job", zap.Error(err))
		}
		return
	}

	var rateLimitErr *extraction.RateLimitError
	if errors.As(err, &rateLimitErr) && job.Attempts < w.cfg.MaxRetries {
		retryAt := time.Now().UTC().Add(rateLimitErr.RetryAfter)
		log.Warn("extractionQueueWorker: rate limited, requeueing",
			zap.Time("retry_after", retryAt), zap.Error(err))
		if err := w.jobRepo.Requeue(ctx, job.ID, retryAt, err.Error()); err != nil {
			log.Error("extractionQueueWorker: failed to requeue job", zap.Error(err))
		}
		return
	}

	log.Warn("extractionQueueWorker: job failed", zap.Error(err))
	if err := w.jobRepo.Fail(ctx, job.ID, err.Error()); err != nil {
		log.Error("extractionQueueWorker: failed to mark job failed", zap.Error(err))
	}
}
