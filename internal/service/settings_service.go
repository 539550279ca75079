package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"fatura/internal/config"
	"fatura/internal/domain"
	"fatura/internal/extraction"
)

// maxListedModels bounds the models returned by a credential check.
const maxListedModels = 5

// SettingsView is the effective extraction configuration with the key masked.
type SettingsView struct {
	Provider           string  `json:"provider"`
	Model              string  `json:"selected_model"`
	OCRModel           string  `json:"ocr_model"`
	Temperature        float64 `json:"temperature"`
	SystemInstruction  string  `json:"system_instruction"`
	JSONFormat         string  `json:"json_format"`
	PromptInstructions string  `json:"prompt_instructions"`
	DebugLogging       bool    `json:"debug_logging"`
	TimeoutSecs        int     `json:"timeout_secs"`
	HasAPIKey          bool    `json:"has_api_key"`
}

// CredentialCheck is the outcome of validating a provider credential.
type CredentialCheck struct {
	Valid                  bool     `json:"valid"`
	AvailableModels        []string `json:"available_models"`
	SelectedModelAvailable bool     `json:"selected_model_available"`
	Error                  string   `json:"error,omitempty"`
}

// ValidateCredentialInput is the DTO for a credential check. Empty fields
// fall back to the configured provider and model.
type ValidateCredentialInput struct {
	Provider string
	APIKey   string
	Model    string
}

// SettingsService exposes the extraction settings.
type SettingsService interface {
	Get() *SettingsView
	// ValidateCredential lists the models reachable with a key. It never
	// changes the configured credential.
	ValidateCredential(ctx context.Context, input *ValidateCredentialInput) (*CredentialCheck, error)
}

type settingsService struct {
	cfg    config.ExtractionConfig
	logger *zap.Logger
}

// NewSettingsService creates a new SettingsService implementation.
func NewSettingsService(cfg *config.ExtractionConfig, logger *zap.Logger) SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &settingsService{cfg: cfg.WithDefaults(), logger: logger}
}

func (s *settingsService) Get() *SettingsView {
	return &SettingsView{
		Provider:           s.cfg.Provider,
		Model:              s.cfg.Model,
		OCRModel:           s.cfg.OCRModel,
		Temperature:        s.cfg.Temperature,
		SystemInstruction:  s.cfg.SystemInstruction,
		JSONFormat:         s.cfg.JSONFormat,
		PromptInstructions: s.cfg.PromptInstructions,
		DebugLogging:       s.cfg.DebugLogging,
		TimeoutSecs:        s.cfg.TimeoutSecs,
		HasAPIKey:          s.cfg.HasAPIKey(),
	}
}

func (s *settingsService) ValidateCredential(ctx context.Context, input *ValidateCredentialInput) (*CredentialCheck, error) {
	provider := strings.ToLower(strings.TrimSpace(input.Provider))
	if provider == "" {
		provider = s.cfg.Provider
	}
	key := strings.TrimSpace(input.APIKey)
	if key == "" {
		return nil, domain.ErrConfiguration
	}
	model := strings.TrimSpace(input.Model)
	if model == "" {
		if provider == s.cfg.Provider {
			model = s.cfg.Model
		} else {
			model = config.DefaultModelFor(provider)
		}
	}

	cfg := s.cfg
	cfg.Provider = provider
	lister, err := extraction.NewModelLister(provider, &cfg)
	if err != nil {
		return nil, err
	}

	models, err := lister.ListModels(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrConfiguration) {
			return nil, err
		}
		s.logger.Info("settingsService.ValidateCredential: credential rejected",
			zap.String("provider", provider), zap.Error(err))
		return &CredentialCheck{Valid: false, AvailableModels: []string{}, Error: err.Error()}, nil
	}

	check := &CredentialCheck{Valid: true, AvailableModels: models}
	if len(models) > maxListedModels {
		check.AvailableModels = models[:maxListedModels]
	}
	if check.AvailableModels == nil {
		check.AvailableModels = []string{}
	}
	for _, m := range models {
		if m == model {
			check.SelectedModelAvailable = true
			break
		}
	}
	return check, nil
}
