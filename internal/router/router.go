package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fatura/internal/config"
	"fatura/internal/handler"
	"fatura/internal/middleware"
)

// Handlers groups the HTTP handlers the router mounts.
type Handlers struct {
	Extraction *handler.ExtractionHandler
	Invoice    *handler.InvoiceHandler
	Settings   *handler.SettingsHandler
	Health     *handler.HealthHandler
}

// Setup configures the Gin engine with all routes and middleware.
func Setup(h Handlers, cors config.CORSConfig, logger *zap.Logger) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cors))

	// Health checks
	r.GET("/healthz", h.Health.Liveness)
	r.GET("/readyz", h.Health.Readiness)

	v1 := r.Group("/api/v1")

	v1.POST("/extract", h.Extraction.Extract)

	invoices := v1.Group("/invoices")
	invoices.POST("/ingest", h.Invoice.Ingest)
	invoices.GET("/export", h.Invoice.Export)
	invoices.GET("", h.Invoice.List)
	invoices.GET("/:id", h.Invoice.GetByID)
	invoices.PUT("/:id", h.Invoice.Update)
	invoices.DELETE("/:id", h.Invoice.Delete)
	invoices.POST("/:id/extract", h.Invoice.Extract)
	invoices.POST("/:id/ready", h.Invoice.MarkReady)
	invoices.POST("/:id/convert", h.Invoice.Convert)
	invoices.POST("/:id/link", h.Invoice.Link)
	invoices.GET("/:id/validate-totals", h.Invoice.ValidateTotals)
	invoices.POST("/:id/fix-totals", h.Invoice.FixTotals)
	invoices.GET("/:id/audit", h.Invoice.ListAudit)
	invoices.GET("/:id/file", h.Invoice.File)

	settings := v1.Group("/settings")
	settings.GET("", h.Settings.Get)
	settings.POST("/validate-key", h.Settings.ValidateKey)

	return r
}
