package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"fatura/internal/service"
)

// ExtractionHandler serves the interactive extraction endpoint.
type ExtractionHandler struct {
	extractionService service.ExtractionService
}

// NewExtractionHandler creates a new ExtractionHandler.
func NewExtractionHandler(extractionService service.ExtractionService) *ExtractionHandler {
	return &ExtractionHandler{extractionService: extractionService}
}

type extractRequest struct {
	FileURL string `json:"file_url" binding:"required"`
}

// Extract handles POST /api/v1/extract
// The reconciled record is returned without being persisted.
func (h *ExtractionHandler) Extract(c *gin.Context) {
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.FileURL) == "" {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "file_url is required")
		return
	}

	result, err := h.extractionService.Extract(c.Request.Context(), strings.TrimSpace(req.FileURL))
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, result)
}
