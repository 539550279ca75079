package gemini

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"fatura/internal/config"
	"fatura/internal/domain"
	"fatura/internal/extraction"
	"fatura/internal/port"
)

type fakeClient struct {
	gotModel string
	gotCfg   genai.GenerationConfig
	gotParts []genai.Part
	resp     *genai.GenerateContentResponse
	models   []*genai.ModelInfo
	err      error
	closed   bool
}

func (f *fakeClient) GenerateContent(_ context.Context, model string, gen genai.GenerationConfig, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.gotModel = model
	f.gotCfg = gen
	f.gotParts = parts
	return f.resp, f.err
}

func (f *fakeClient) ListModels(context.Context) ([]*genai.ModelInfo, error) {
	return f.models, f.err
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func textResponse(parts ...genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: parts}}},
	}
}

func newTestStrategy(apiKey string, fc *fakeClient) (*Strategy, *string) {
	var gotKey string
	cfg := &config.ExtractionConfig{APIKey: apiKey, TimeoutSecs: 5}
	s := newStrategy(cfg, nil, func(_ context.Context, key string) (modelClient, error) {
		gotKey = key
		return fc, nil
	})
	return s, &gotKey
}

func request() port.ExtractionRequest {
	return port.ExtractionRequest{
		Document:    []byte("%PDF-1.7"),
		FileType:    domain.FileTypePDF,
		FileName:    "inv.pdf",
		Model:       "gemini-2.0-flash",
		Temperature: 0.2,
		Prompt: port.PromptConfig{
			SystemInstruction: "You extract invoices.",
			JSONFormat:        `{"supplier": ""}`,
			Instructions:      "No guessing.",
		},
	}
}

func TestExtract_SendsDocumentAndPrompt(t *testing.T) {
	fc := &fakeClient{resp: textResponse(genai.Text(`{"supplier":`), genai.Text(` "ACME"}`))}
	s, gotKey := newTestStrategy("  key-1 ", fc)

	out, err := s.Extract(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, `{"supplier": "ACME"}`, out.Text)
	assert.Equal(t, "gemini-2.0-flash", out.ModelUsed)
	assert.Equal(t, "key-1", *gotKey)
	assert.True(t, fc.closed)

	require.Len(t, fc.gotParts, 2)
	blob, ok := fc.gotParts[0].(genai.Blob)
	require.True(t, ok)
	assert.Equal(t, "application/pdf", blob.MIMEType)
	assert.Equal(t, []byte("%PDF-1.7"), blob.Data)

	prompt, ok := fc.gotParts[1].(genai.Text)
	require.True(t, ok)
	assert.Equal(t, extraction.BuildDirectPrompt(request().Prompt), string(prompt))

	require.NotNil(t, fc.gotCfg.Temperature)
	assert.InDelta(t, 0.2, *fc.gotCfg.Temperature, 1e-6)
	assert.InDelta(t, 0.95, *fc.gotCfg.TopP, 1e-6)
	assert.Equal(t, int32(40), *fc.gotCfg.TopK)
	assert.Equal(t, int32(4000), *fc.gotCfg.MaxOutputTokens)
}

func TestExtract_ImageMIMEType(t *testing.T) {
	fc := &fakeClient{resp: textResponse(genai.Text("{}"))}
	s, _ := newTestStrategy("k", fc)
	req := request()
	req.FileType = domain.FileTypePNG

	_, err := s.Extract(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "image/png", fc.gotParts[0].(genai.Blob).MIMEType)
}

func TestExtract_MissingKey(t *testing.T) {
	s, _ := newTestStrategy("", &fakeClient{})
	_, err := s.Extract(context.Background(), request())
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestExtract_UnsupportedFileType(t *testing.T) {
	s, _ := newTestStrategy("k", &fakeClient{})
	req := request()
	req.FileType = "gif"
	_, err := s.Extract(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)
}

func TestExtract_RateLimited(t *testing.T) {
	header := http.Header{}
	header.Set("Retry-After", "12")
	fc := &fakeClient{err: &googleapi.Error{Code: http.StatusTooManyRequests, Message: "quota", Header: header}}
	s, _ := newTestStrategy("k", fc)

	_, err := s.Extract(context.Background(), request())
	var rl *extraction.RateLimitError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, "12s", rl.RetryAfter.String())
	assert.ErrorIs(t, err, domain.ErrProvider)
}

func TestExtract_ProviderFailure(t *testing.T) {
	fc := &fakeClient{err: &googleapi.Error{Code: http.StatusForbidden, Message: "bad key"}}
	s, _ := newTestStrategy("k", fc)

	_, err := s.Extract(context.Background(), request())
	var pe *extraction.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusForbidden, pe.StatusCode)
	assert.ErrorIs(t, err, domain.ErrProvider)
}

func TestExtract_NoCandidates(t *testing.T) {
	s, _ := newTestStrategy("k", &fakeClient{resp: &genai.GenerateContentResponse{}})
	_, err := s.Extract(context.Background(), request())
	assert.ErrorIs(t, err, domain.ErrProvider)
}

func TestExtract_OnlyNonTextParts(t *testing.T) {
	fc := &fakeClient{resp: textResponse(genai.Blob{MIMEType: "image/png"})}
	s, _ := newTestStrategy("k", fc)
	_, err := s.Extract(context.Background(), request())
	assert.ErrorIs(t, err, domain.ErrProvider)
}

func TestListModels_FiltersGenerateContent(t *testing.T) {
	fc := &fakeClient{models: []*genai.ModelInfo{
		{Name: "models/gemini-2.0-flash", SupportedGenerationMethods: []string{"generateContent", "countTokens"}},
		{Name: "models/text-embedding-004", SupportedGenerationMethods: []string{"embedContent"}},
		{Name: "models/gemini-1.5-pro", SupportedGenerationMethods: []string{"generateContent"}},
	}}
	s, gotKey := newTestStrategy("configured", fc)

	names, err := s.ListModels(context.Background(), "candidate")
	require.NoError(t, err)
	assert.Equal(t, []string{"gemini-2.0-flash", "gemini-1.5-pro"}, names)
	assert.Equal(t, "candidate", *gotKey)
}

func TestListModels_RejectedKey(t *testing.T) {
	fc := &fakeClient{err: &googleapi.Error{Code: http.StatusBadRequest, Message: "API key not valid"}}
	s, _ := newTestStrategy("k", fc)
	_, err := s.ListModels(context.Background(), "bad")
	assert.ErrorIs(t, err, domain.ErrProvider)
}

func TestListModels_EmptyKey(t *testing.T) {
	s, _ := newTestStrategy("k", &fakeClient{})
	_, err := s.ListModels(context.Background(), " ")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
