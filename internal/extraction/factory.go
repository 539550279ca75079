// Package extraction holds the provider-neutral parts of the extraction
// client: errors, prompt composition and the strategy registry.
package extraction

import (
	"fmt"

	"go.uber.org/zap"

	"fatura/internal/config"
	"fatura/internal/domain"
	"fatura/internal/port"
)

// Provider is what a provider package registers: a strategy constructor
// and a credential-checking model lister.
type Provider struct {
	NewStrategy func(cfg *config.ExtractionConfig, logger *zap.Logger) port.ExtractionStrategy
	NewLister   func(cfg *config.ExtractionConfig) port.ModelLister
}

var providers = map[string]Provider{}

// RegisterProvider registers a provider by name.
func RegisterProvider(name string, p Provider) {
	providers[name] = p
}

// NewStrategy creates the strategy selected by cfg.Provider.
func NewStrategy(cfg *config.ExtractionConfig, logger *zap.Logger) (port.ExtractionStrategy, error) {
	p, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: unknown extraction provider %q", domain.ErrConfiguration, cfg.Provider)
	}
	return p.NewStrategy(cfg, logger), nil
}

// NewModelLister creates the model lister for a provider name.
func NewModelLister(provider string, cfg *config.ExtractionConfig) (port.ModelLister, error) {
	p, ok := providers[provider]
	if !ok {
		return nil, fmt.Errorf("%w: unknown extraction provider %q", domain.ErrConfiguration, provider)
	}
	return p.NewLister(cfg), nil
}
