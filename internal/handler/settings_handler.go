package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fatura/internal/service"
)

// SettingsHandler exposes the extraction settings.
type SettingsHandler struct {
	settingsService service.SettingsService
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(settingsService service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService}
}

// Get handles GET /api/v1/settings
func (h *SettingsHandler) Get(c *gin.Context) {
	RespondOK(c, h.settingsService.Get())
}

type validateKeyRequest struct {
	Provider string `json:"provider"`
	APIKey   string `json:"api_key" binding:"required"`
	Model    string `json:"model"`
}

// ValidateKey handles POST /api/v1/settings/validate-key
func (h *SettingsHandler) ValidateKey(c *gin.Context) {
	var req validateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "api_key is required")
		return
	}

	check, err := h.settingsService.ValidateCredential(c.Request.Context(), &service.ValidateCredentialInput{
		Provider: req.Provider,
		APIKey:   req.APIKey,
		Model:    req.Model,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, check)
}
