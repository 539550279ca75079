package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fatura/internal/config"
	"fatura/internal/domain"
	"fatura/internal/extraction"
	"fatura/internal/port"
	"fatura/internal/service"
	"fatura/mocks"
)

func registerStubProvider(name string, lister *mocks.MockModelLister) {
	extraction.RegisterProvider(name, extraction.Provider{
		NewStrategy: func(*config.ExtractionConfig, *zap.Logger) port.ExtractionStrategy {
			return new(mocks.MockExtractionStrategy)
		},
		NewLister: func(*config.ExtractionConfig) port.ModelLister { return lister },
	})
}

func TestSettingsService_Get_MasksKey(t *testing.T) {
	svc := service.NewSettingsService(&config.ExtractionConfig{APIKey: "secret"}, nil)

	view := svc.Get()
	assert.Equal(t, config.ProviderGemini, view.Provider)
	assert.Equal(t, config.DefaultGeminiModel, view.Model)
	assert.True(t, view.HasAPIKey)
	assert.NotEmpty(t, view.JSONFormat)
}

func TestSettingsService_ValidateCredential(t *testing.T) {
	lister := new(mocks.MockModelLister)
	registerStubProvider("stub-valid", lister)
	lister.On("ListModels", mock.Anything, "key-1").
		Return([]string{"m1", "m2", "m3", "m4", "m5", "m6", "wanted"}, nil)

	svc := service.NewSettingsService(&config.ExtractionConfig{}, nil)
	check, err := svc.ValidateCredential(context.Background(), &service.ValidateCredentialInput{
		Provider: "stub-valid", APIKey: " key-1 ", Model: "wanted",
	})
	require.NoError(t, err)
	assert.True(t, check.Valid)
	assert.Equal(t, []string{"m1", "m2", "m3", "m4", "m5"}, check.AvailableModels)
	assert.True(t, check.SelectedModelAvailable)
	assert.Empty(t, check.Error)
}

func TestSettingsService_ValidateCredential_Rejected(t *testing.T) {
	lister := new(mocks.MockModelLister)
	registerStubProvider("stub-rejected", lister)
	lister.On("ListModels", mock.Anything, "bad").Return(nil, errors.New("401 unauthorized"))

	svc := service.NewSettingsService(&config.ExtractionConfig{}, nil)
	check, err := svc.ValidateCredential(context.Background(), &service.ValidateCredentialInput{
		Provider: "stub-rejected", APIKey: "bad",
	})
	require.NoError(t, err)
	assert.False(t, check.Valid)
	assert.Empty(t, check.AvailableModels)
	assert.False(t, check.SelectedModelAvailable)
	assert.Contains(t, check.Error, "401")
}

func TestSettingsService_ValidateCredential_ConfigurationErrors(t *testing.T) {
	svc := service.NewSettingsService(&config.ExtractionConfig{}, nil)

	_, err := svc.ValidateCredential(context.Background(), &service.ValidateCredentialInput{Provider: "gemini"})
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = svc.ValidateCredential(context.Background(), &service.ValidateCredentialInput{
		Provider: "no-such-provider", APIKey: "k",
	})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
