package config_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fatura/internal/config"
	"fatura/internal/domain"
)

func TestExtractionConfig_WithDefaults_Empty(t *testing.T) {
	cfg := config.ExtractionConfig{}.WithDefaults()

	assert.Equal(t, config.ProviderGemini, cfg.Provider)
	assert.Equal(t, config.DefaultGeminiModel, cfg.Model)
	assert.Equal(t, config.DefaultOCRModel, cfg.OCRModel)
	assert.Equal(t, config.DefaultTimeoutSecs, cfg.TimeoutSecs)
	assert.Equal(t, config.DefaultSystemInstruction, cfg.SystemInstruction)
	assert.Equal(t, config.DefaultJSONFormat, cfg.JSONFormat)
	assert.Equal(t, config.DefaultPromptInstructions, cfg.PromptInstructions)
	assert.Zero(t, cfg.Temperature)
}

func TestExtractionConfig_WithDefaults_MistralModel(t *testing.T) {
	cfg := config.ExtractionConfig{Provider: config.ProviderMistral}.WithDefaults()
	assert.Equal(t, config.DefaultMistralModel, cfg.Model)
}

func TestExtractionConfig_WithDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := config.ExtractionConfig{
		Provider:           config.ProviderMistral,
		Model:              "mistral-small-latest",
		OCRModel:           "mistral-ocr-latest",
		SystemInstruction:  "custom system",
		JSONFormat:         `{"supplier": ""}`,
		PromptInstructions: "custom rules",
		TimeoutSecs:        30,
	}.WithDefaults()

	assert.Equal(t, "mistral-small-latest", cfg.Model)
	assert.Equal(t, "mistral-ocr-latest", cfg.OCRModel)
	assert.Equal(t, "custom system", cfg.SystemInstruction)
	assert.Equal(t, `{"supplier": ""}`, cfg.JSONFormat)
	assert.Equal(t, "custom rules", cfg.PromptInstructions)
	assert.Equal(t, 30, cfg.TimeoutSecs)
}

func TestExtractionConfig_HasAPIKey(t *testing.T) {
	assert.False(t, (&config.ExtractionConfig{}).HasAPIKey())
	assert.False(t, (&config.ExtractionConfig{APIKey: "   "}).HasAPIKey())
	assert.True(t, (&config.ExtractionConfig{APIKey: "k"}).HasAPIKey())
}

func TestExtractionConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *config.ExtractionConfig)
		wantErr bool
	}{
		{"defaults", func(c *config.ExtractionConfig) {}, false},
		{"temperature upper bound", func(c *config.ExtractionConfig) { c.Temperature = 1 }, false},
		{"temperature too high", func(c *config.ExtractionConfig) { c.Temperature = 1.5 }, true},
		{"negative temperature", func(c *config.ExtractionConfig) { c.Temperature = -0.1 }, true},
		{"unknown provider", func(c *config.ExtractionConfig) { c.Provider = "claude" }, true},
		{"format not json", func(c *config.ExtractionConfig) { c.JSONFormat = "supplier: x" }, true},
		{"format is array", func(c *config.ExtractionConfig) { c.JSONFormat = `[1,2]` }, true},
		{"items not array", func(c *config.ExtractionConfig) { c.JSONFormat = `{"items": "x"}` }, true},
		{"items of scalars", func(c *config.ExtractionConfig) { c.JSONFormat = `{"items": [1]}` }, true},
		{"numeric example values", func(c *config.ExtractionConfig) {
			c.JSONFormat = `{"subtotal": 100.50, "items": [{"quantity": 2, "unit_price": 1e3}]}`
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.ExtractionConfig{}.WithDefaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, domain.ErrConfiguration))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLoad_MissingAPIKeyIsNotFatal(t *testing.T) {
	t.Setenv("FATURA_EXTRACTION_API_KEY", "")
	t.Setenv("FATURA_EXTRACTION_PROVIDER", "mistral")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.False(t, cfg.Extraction.HasAPIKey())
	assert.Equal(t, config.DefaultMistralModel, cfg.Extraction.Model)
	assert.InDelta(t, config.DefaultTemperature, cfg.Extraction.Temperature, 1e-9)
}

func TestLoad_RejectsBadTemperature(t *testing.T) {
	t.Setenv("FATURA_EXTRACTION_TEMPERATURE", "2")

	_, err := config.Load()
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestLoad_CORSOrigins(t *testing.T) {
	t.Setenv("FATURA_CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestCORSConfig_AllowsOrigin(t *testing.T) {
	cfg := config.CORSConfig{AllowedOrigins: []string{"https://app.example/", "http://localhost:3000"}}

	assert.True(t, cfg.AllowsOrigin("https://app.example"))
	assert.True(t, cfg.AllowsOrigin("HTTP://localhost:3000/"))
	assert.False(t, cfg.AllowsOrigin("https://other.example"))
	assert.False(t, cfg.AllowsOrigin(""))

	wildcard := config.CORSConfig{AllowedOrigins: []string{"*"}}
	assert.True(t, wildcard.AllowsOrigin("https://other.example"))
	assert.False(t, wildcard.AllowsOrigin(""))
}

func TestValidateJSONFormat(t *testing.T) {
	assert.NoError(t, config.ValidateJSONFormat(config.DefaultJSONFormat))
	assert.NoError(t, config.ValidateJSONFormat(`{"total_amount": 12345678901234567890}`))
	assert.ErrorIs(t, config.ValidateJSONFormat(""), domain.ErrConfiguration)
	assert.ErrorIs(t, config.ValidateJSONFormat(`"just a string"`), domain.ErrConfiguration)
}
