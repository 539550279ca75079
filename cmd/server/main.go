package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fatura/internal/config"
	"fatura/internal/extraction"
	"fatura/internal/extraction/gemini"
	"fatura/internal/extraction/mistral"
	"fatura/internal/filestore"
	"fatura/internal/handler"
	"fatura/internal/lock"
	"fatura/internal/logger"
	"fatura/internal/port"
	"fatura/internal/repository/postgres"
	"fatura/internal/router"
	"fatura/internal/service"
	miniostorage "fatura/internal/storage/minio"
	s3storage "fatura/internal/storage/s3"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	appLogger := logger.New(&cfg.Log)
	defer appLogger.Sync() //nolint:errcheck
	zap.ReplaceGlobals(appLogger)
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Initialize repositories
	invoiceRepo := postgres.NewInvoiceRepo(db)
	catalogRepo := postgres.NewCatalogRepo(db)
	purchaseRepo := postgres.NewPurchaseInvoiceRepo(db)
	auditRepo := postgres.NewInvoiceAuditRepo(db)
	jobRepo := postgres.NewExtractionJobRepo(db)

	// Initialize storage
	files, err := newFileStore(ctx, cfg)
	if err != nil {
		return err
	}

	locker, err := newLocker(ctx, cfg, appLogger)
	if err != nil {
		return err
	}
	if closer, ok := locker.(io.Closer); ok {
		defer closer.Close() //nolint:errcheck
	}

	// Initialize extraction
	extraction.RegisterProvider(config.ProviderGemini, gemini.Provider())
	extraction.RegisterProvider(config.ProviderMistral, mistral.Provider())
	strategy, err := extraction.NewStrategy(&cfg.Extraction, appLogger)
	if err != nil {
		return err
	}
	if cfg.Extraction.APIKey == "" {
		appLogger.Warn("extraction API key is not set; extraction requests will fail until it is configured",
			zap.String("provider", cfg.Extraction.Provider))
	}

	// Initialize services
	extractionSvc := service.NewExtractionService(strategy, files, invoiceRepo, catalogRepo, auditRepo, locker, &cfg.Extraction, appLogger)
	invoiceSvc := service.NewInvoiceService(invoiceRepo, catalogRepo, auditRepo, jobRepo, files, appLogger)
	conversionSvc := service.NewConversionService(invoiceRepo, purchaseRepo, catalogRepo, auditRepo, locker, appLogger)
	settingsSvc := service.NewSettingsService(&cfg.Extraction, appLogger)

	worker := service.NewExtractionQueueWorker(jobRepo, extractionSvc, service.ExtractionQueueConfig{
		PollInterval: time.Duration(cfg.Queue.PollIntervalSecs) * time.Second,
		MaxRetries:   cfg.Queue.MaxRetries,
		Concurrency:  cfg.Queue.Concurrency,
	}, appLogger)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.Start(ctx)
	}()

	// Initialize handlers
	r := router.Setup(router.Handlers{
		Extraction: handler.NewExtractionHandler(extractionSvc),
		Invoice:    handler.NewInvoiceHandler(invoiceSvc, extractionSvc, conversionSvc, cfg.Storage.MaxFileSizeMB<<20),
		Settings:   handler.NewSettingsHandler(settingsSvc),
		Health:     handler.NewHealthHandler(db, &cfg.Extraction),
	}, cfg.CORS, appLogger)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		appLogger.Info("server starting",
			zap.String("addr", cfg.Server.Port),
			zap.String("environment", cfg.Server.Environment),
			zap.String("storage", cfg.Storage.Backend),
			zap.String("provider", cfg.Extraction.Provider))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			stop()
			<-workerDone
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	appLogger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("server shutdown failed", zap.Error(err))
	}
	<-workerDone
	return nil
}

// newFileStore selects the document backend named by storage.backend.
func newFileStore(ctx context.Context, cfg *config.Config) (*filestore.Store, error) {
	var (
		objects port.ObjectStorage
		bucket  string
		err     error
	)
	switch cfg.Storage.Backend {
	case "", "local":
		return filestore.New(&cfg.Storage, nil, ""), nil
	case "s3":
		objects, err = s3storage.NewS3Client(ctx, &cfg.S3)
		bucket = cfg.S3.Bucket
	case "minio":
		objects, err = miniostorage.NewMinIOClient(ctx, &cfg.MinIO)
		bucket = cfg.MinIO.Bucket
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s storage: %w", cfg.Storage.Backend, err)
	}
	return filestore.New(&cfg.Storage, objects, bucket), nil
}

func newLocker(ctx context.Context, cfg *config.Config, appLogger *zap.Logger) (port.InvoiceLocker, error) {
	if cfg.Redis.Addr == "" {
		return lock.NewMemoryLocker(), nil
	}
	ttl := time.Duration(cfg.Redis.LockTTLSec) * time.Second
	locker, err := lock.NewRedisLocker(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, ttl, appLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return locker, nil
}
