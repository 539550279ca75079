package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"fatura/internal/config"
)

const pingTimeout = 3 * time.Second

// Pinger is satisfied by *sqlx.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	db         Pinger
	extraction *config.ExtractionConfig
}

// NewHealthHandler creates a new HealthHandler. extraction may be nil.
func NewHealthHandler(db Pinger, extraction *config.ExtractionConfig) *HealthHandler {
	return &HealthHandler{db: db, extraction: extraction}
}

// Liveness handles GET /healthz
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness handles GET /readyz. Only the database gates readiness; a
// missing provider key is reported but extraction requests answer it
// with a configuration error instead.
func (h *HealthHandler) Readiness(c *gin.Context) {
	checks := gin.H{"extraction": h.extractionState()}

	ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
	defer cancel()
	if err := h.db.PingContext(ctx); err != nil {
		checks["database"] = "unreachable"
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "checks": checks})
		return
	}
	checks["database"] = "ok"
	c.JSON(http.StatusOK, gin.H{"status": "ok", "checks": checks})
}

func (h *HealthHandler) extractionState() string {
	if h.extraction == nil || strings.TrimSpace(h.extraction.APIKey) == "" {
		return "missing_api_key"
	}
	return "configured"
}
