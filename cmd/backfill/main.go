// Command backfill re-runs reconciliation over the stored extraction of
// every invoice that has not been converted yet and reports the rows whose
// aggregates would change. With -apply the new figures and items are
// projected onto the rows through the normal save rules.
// Usage: go run ./cmd/backfill [-apply]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"

	"go.uber.org/zap"

	"fatura/internal/config"
	"fatura/internal/domain"
	"fatura/internal/logger"
	"fatura/internal/parse"
	"fatura/internal/port"
	"fatura/internal/projection"
	"fatura/internal/reconcile"
	"fatura/internal/repository/postgres"
)

const batchSize = 100

func main() {
	apply := flag.Bool("apply", false, "write the re-reconciled figures back")
	flag.Parse()

	if err := run(*apply); err != nil {
		log.Fatal(err)
	}
}

func run(apply bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	appLogger := logger.New(&cfg.Log)
	defer appLogger.Sync() //nolint:errcheck

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer func() { _ = db.Close() }()

	b := &backfiller{
		invoices:  postgres.NewInvoiceRepo(db),
		projector: projection.New(postgres.NewCatalogRepo(db)),
		apply:     apply,
		logger:    appLogger,
	}
	stats, err := b.run(context.Background())
	if err != nil {
		return err
	}
	appLogger.Info("backfill complete",
		zap.Bool("apply", apply),
		zap.Int("scanned", stats.scanned),
		zap.Int("stale", stats.stale),
		zap.Int("updated", stats.updated),
		zap.Int("failed", stats.failed))
	return nil
}

type backfillStats struct {
	scanned int
	stale   int
	updated int
	failed  int
}

type backfiller struct {
	invoices  port.InvoiceRepository
	projector *projection.Projector
	apply     bool
	logger    *zap.Logger
}

func (b *backfiller) run(ctx context.Context) (backfillStats, error) {
	var stats backfillStats
	for offset := 0; ; offset += batchSize {
		batch, _, err := b.invoices.List(ctx, port.InvoiceFilter{}, offset, batchSize)
		if err != nil {
			return stats, fmt.Errorf("listing invoices at offset %d: %w", offset, err)
		}
		for i := range batch {
			inv := &batch[i]
			if inv.Status == domain.InvoiceStatusConverted || !inv.HasExtractedData() {
				continue
			}
			stats.scanned++

			rec, err := reReconcile(inv)
			if err != nil {
				stats.failed++
				b.logger.Warn("stored extraction unreadable", zap.String("invoice_id", inv.ID.String()), zap.Error(err))
				continue
			}
			if !aggregatesDiffer(inv, rec) {
				continue
			}
			stats.stale++
			b.logger.Info("aggregates differ",
				zap.String("invoice_id", inv.ID.String()),
				zap.Float64("subtotal", inv.Subtotal), zap.Float64("new_subtotal", rec.Subtotal),
				zap.Float64("tax", inv.TaxAmount), zap.Float64("new_tax", rec.TaxAmount),
				zap.Float64("total", inv.TotalAmount), zap.Float64("new_total", rec.TotalAmount))

			if !b.apply {
				continue
			}
			if err := b.reproject(ctx, inv, rec); err != nil {
				stats.failed++
				b.logger.Error("re-projection failed", zap.String("invoice_id", inv.ID.String()), zap.Error(err))
				continue
			}
			stats.updated++
		}
		if len(batch) < batchSize {
			return stats, nil
		}
	}
}

// reproject reloads the invoice with its items so the update carries the
// current version.
func (b *backfiller) reproject(ctx context.Context, listed *domain.ExtractedInvoice, rec *domain.InvoiceRecord) error {
	inv, err := b.invoices.GetByID(ctx, listed.ID)
	if err != nil {
		return err
	}
	if _, err := b.projector.Apply(ctx, inv, rec, inv.ExtractionModel); err != nil {
		if errors.Is(err, domain.ErrAlreadyConverted) {
			return nil
		}
		return err
	}
	return b.invoices.Update(ctx, inv)
}

// reReconcile decodes the stored record as if it were a fresh model
// response and reconciles it again.
func reReconcile(inv *domain.ExtractedInvoice) (*domain.InvoiceRecord, error) {
	doc, err := parse.Response(string(inv.ExtractedData))
	if err != nil {
		return nil, err
	}
	return reconcile.Reconcile(doc), nil
}

func aggregatesDiffer(inv *domain.ExtractedInvoice, rec *domain.InvoiceRecord) bool {
	return reconcile.Differs(inv.Subtotal, rec.Subtotal) ||
		reconcile.Differs(inv.TaxAmount, rec.TaxAmount) ||
		reconcile.Differs(inv.TotalAmount, rec.TotalAmount)
}
