// Package mistral implements the two-step extraction strategy on the
// Mistral API: OCR to markdown first, then a JSON-mode chat completion
// over the recognized text.
package mistral

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"fatura/internal/config"
	"fatura/internal/domain"
	"fatura/internal/extraction"
	"fatura/internal/logger"
	"fatura/internal/port"
)

const (
	providerName   = config.ProviderMistral
	defaultBaseURL = "https://api.mistral.ai/v1"
	maxChatTokens  = 4000

	purposeOCR openai.PurposeType = "ocr"
)

// Strategy implements port.ExtractionStrategy and port.ModelLister.
type Strategy struct {
	apiKey   string
	baseURL  string
	ocrModel string
	timeout  time.Duration
	debug    bool
	logger   *zap.Logger
	http     *http.Client
}

// NewStrategy creates a Mistral strategy from extraction settings.
func NewStrategy(cfg *config.ExtractionConfig, log *zap.Logger) *Strategy {
	if log == nil {
		log = zap.NewNop()
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	ocrModel := cfg.OCRModel
	if ocrModel == "" {
		ocrModel = config.DefaultOCRModel
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = config.DefaultTimeoutSecs * time.Second
	}
	return &Strategy{
		apiKey:   strings.TrimSpace(cfg.APIKey),
		baseURL:  baseURL,
		ocrModel: ocrModel,
		timeout:  timeout,
		debug:    cfg.DebugLogging,
		logger:   log.Named("mistral"),
		http:     &http.Client{Timeout: timeout},
	}
}

// Provider registers the Mistral strategy with the extraction registry.
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
		return nil, fmt.Errorf("%w: mistral API key is not set", domain.ErrConfiguration)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ocr := &ocrClient{baseURL: s.baseURL, apiKey: s.apiKey, httpClient: s.http}

	var (
		text string
		err  error
	)
	switch req.FileType {
	case domain.FileTypePDF:
		text, err = s.ocrPDF(ctx, ocr, req)
	case domain.FileTypeJPG, domain.FileTypePNG:
		text, err = ocr.ocrImage(ctx, s.ocrModel, req.FileType.MIMEType(), req.Document)
	default:
		return nil, domain.ErrUnsupportedFileType
	}
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, domain.ErrEmptyExtraction
	}
	if s.debug {
		s.logger.Debug("mistral.Extract: ocr text", zap.Int("length", len(text)), zap.String("text", logger.Truncate(text, 500)))
	}

	answer, err := s.chat(ctx, req, text)
	if err != nil {
		return nil, err
	}
	if s.debug {
		s.logger.Debug("mistral.Extract: response", zap.String("text", logger.Truncate(answer, 500)))
	}

	return &port.RawModelResponse{Text: answer, ModelUsed: s.ocrModel + "+" + req.Model}, nil
}

func (s *Strategy) ocrPDF(ctx context.Context, ocr *ocrClient, req port.ExtractionRequest) (string, error) {
	name := req.FileName
	if name == "" {
		name = "invoice.pdf"
	}
	fileID, err := s.upload(ctx, name, req.Document)
	if err != nil {
		return "", err
	}
	signed, err := ocr.signedURL(ctx, fileID)
	if err != nil {
		return "", err
	}
	return ocr.ocrDocumentURL(ctx, s.ocrModel, signed)
}

// upload stores a PDF with purpose "ocr" through the files endpoint and
// returns its id.
func (s *Strategy) upload(ctx context.Context, name string, data []byte) (string, error) {
	file, err := s.openAIClient(s.apiKey).CreateFileBytes(ctx, openai.FileBytesRequest{
		Name:    name,
		Bytes:   data,
		Purpose: purposeOCR,
	})
	if err != nil {
		return "", fmt.Errorf("uploading file: %w", mapError(err))
	}
	if file.ID == "" {
		return "", extraction.NewProviderError(providerName, 0, errors.New("upload returned no file id"))
	}
	return file.ID, nil
}

func (s *Strategy) chat(ctx context.Context, req port.ExtractionRequest, ocrText string) (string, error) {
	client := s.openAIClient(s.apiKey)
	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.Prompt.SystemInstruction},
			{Role: openai.ChatMessageRoleUser, Content: extraction.BuildOCRPrompt(req.Prompt, ocrText)},
		},
		Temperature: float32(req.Temperature),
		MaxTokens:   maxChatTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", mapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", extraction.NewProviderError(providerName, 0, errors.New("chat returned no choices"))
	}
	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", extraction.NewProviderError(providerName, 0, errors.New("chat returned empty content"))
	}
	return answer, nil
}

// ListModels returns the model ids visible to apiKey.
func (s *Strategy) ListModels(ctx context.Context, apiKey string) ([]string, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: mistral API key is not set", domain.ErrConfiguration)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	list, err := s.openAIClient(apiKey).ListModels(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	names := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		names = append(names, m.ID)
	}
	return names, nil
}

func (s *Strategy) openAIClient(apiKey string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = s.baseURL
	cfg.HTTPClient = s.http
	return openai.NewClientWithConfig(cfg)
}

func mapError(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	if status == http.StatusTooManyRequests {
		return extraction.NewRateLimitError(providerName, err, 0)
	}
	return extraction.NewProviderError(providerName, status, err)
}
