// Package gemini implements the direct multimodal extraction strategy on
// Google's Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"fatura/internal/config"
	"fatura/internal/domain"
	"fatura/internal/extraction"
	"fatura/internal/logger"
	"fatura/internal/port"
)

const providerName = config.ProviderGemini

// Fixed generation parameters; only temperature is configurable.
const (
	topP            = 0.95
	topK            = 40
	maxOutputTokens = 4000
)

// modelClient is the slice of the genai client the strategy uses.
type modelClient interface {
	GenerateContent(ctx context.Context, model string, gen genai.GenerationConfig, parts ...genai.Part) (*genai.GenerateContentResponse, error)
	ListModels(ctx context.Context) ([]*genai.ModelInfo, error)
	Close() error
}

type clientFactory func(ctx context.Context, apiKey string) (modelClient, error)

// Strategy implements port.ExtractionStrategy and port.ModelLister.
type Strategy struct {
	apiKey    string
	timeout   time.Duration
	debug     bool
	logger    *zap.Logger
	newClient clientFactory
}

// NewStrategy creates a Gemini strategy backed by the genai SDK.
func NewStrategy(cfg *config.ExtractionConfig, logger *zap.Logger) *Strategy {
	return newStrategy(cfg, logger, newSDKClient)
}

func newStrategy(cfg *config.ExtractionConfig, log *zap.Logger, factory clientFactory) *Strategy {
	if log == nil {
		log = zap.NewNop()
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = config.DefaultTimeoutSecs * time.Second
	}
	return &Strategy{
		apiKey:    strings.TrimSpace(cfg.APIKey),
		timeout:   timeout,
		debug:     cfg.DebugLogging,
		logger:    log.Named("gemini"),
		newClient: factory,
	}
}

// Provider registers the Gemini strategy with the extraction registry.
func Provider() extraction.Provider {
	return extraction.Provider{
		NewStrategy: func(cfg *config.ExtractionConfig, log *zap.Logger) port.ExtractionStrategy {
			return NewStrategy(cfg, log)
		},
		NewLister: func(cfg *config.ExtractionConfig) port.ModelLister {
			return NewStrategy(cfg, nil)
		},
	}
}

func (s *Strategy) Extract(ctx context.Context, req port.ExtractionRequest) (*port.RawModelResponse, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("%w: gemini API key is not set", domain.ErrConfiguration)
	}
	mime := req.FileType.MIMEType()
	if mime == "" {
		return nil, domain.ErrUnsupportedFileType
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	client, err := s.newClient(ctx, s.apiKey)
	if err != nil {
		return nil, extraction.NewProviderError(providerName, 0, fmt.Errorf("creating client: %w", err))
	}
	defer func() { _ = client.Close() }()

	prompt := extraction.BuildDirectPrompt(req.Prompt)
	if s.debug {
		s.logger.Debug("gemini.Extract: prompt", zap.String("model", req.Model), zap.String("prompt", logger.Truncate(prompt, 500)))
	}

	var gen genai.GenerationConfig
	gen.SetTemperature(float32(req.Temperature))
	gen.SetTopP(topP)
	gen.SetTopK(topK)
	gen.SetMaxOutputTokens(maxOutputTokens)

	resp, err := client.GenerateContent(ctx, req.Model, gen,
		genai.Blob{MIMEType: mime, Data: req.Document},
		genai.Text(prompt),
	)
	if err != nil {
		return nil, mapError(err)
	}

	text, err := responseText(resp)
	if err != nil {
		return nil, extraction.NewProviderError(providerName, 0, err)
	}
	if s.debug {
		s.logger.Debug("gemini.Extract: response", zap.String("text", logger.Truncate(text, 500)))
	}

	return &port.RawModelResponse{Text: text, ModelUsed: req.Model}, nil
}

// ListModels returns the models usable with generateContent for apiKey.
func (s *Strategy) ListModels(ctx context.Context, apiKey string) ([]string, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: gemini API key is not set", domain.ErrConfiguration)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	client, err := s.newClient(ctx, apiKey)
	if err != nil {
		return nil, extraction.NewProviderError(providerName, 0, fmt.Errorf("creating client: %w", err))
	}
	defer func() { _ = client.Close() }()

	infos, err := client.ListModels(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	var names []string
	for _, m := range infos {
		for _, method := range m.SupportedGenerationMethods {
			if method == "generateContent" {
				names = append(names, strings.TrimPrefix(m.Name, "models/"))
				break
			}
		}
	}
	return names, nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("empty response: no candidates")
	}
	cand := resp.Candidates[0]
	if cand.Content == nil || len(cand.Content.Parts) == 0 {
		return "", fmt.Errorf("empty response: no parts (finish reason %s)", cand.FinishReason)
	}
	var b strings.Builder
	for _, part := range cand.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", errors.New("empty response: no text parts")
	}
	return text, nil
}

func mapError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests {
			retry := 0
			if apiErr.Header != nil {
				retry = extraction.ParseRetryAfterHeader(apiErr.Header.Get("Retry-After"))
			}
			return extraction.NewRateLimitError(providerName, err, retry)
		}
		return extraction.NewProviderError(providerName, apiErr.Code, err)
	}
	return extraction.NewProviderError(providerName, 0, err)
}

type sdkClient struct {
	client *genai.Client
}

func newSDKClient(ctx context.Context, apiKey string) (modelClient, error) {
	c, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &sdkClient{client: c}, nil
}

func (c *sdkClient) GenerateContent(ctx context.Context, model string, gen genai.GenerationConfig, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	m := c.client.GenerativeModel(model)
	m.GenerationConfig = gen
	return m.GenerateContent(ctx, parts...)
}

func (c *sdkClient) ListModels(ctx context.Context) ([]*genai.ModelInfo, error) {
	it := c.client.ListModels(ctx)
	var out []*genai.ModelInfo
	for {
		m, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
}

func (c *sdkClient) Close() error {
	return c.client.Close()
}
