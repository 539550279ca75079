package mistral

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"fatura/internal/extraction"
	"fatura/internal/logger"
)

// ocrClient talks to the Mistral signed-url and OCR endpoints, which the
// OpenAI-compatible client does not cover. Uploads go through go-openai.
type ocrClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type signedURLResponse struct {
	URL string `json:"url"`
}

type ocrDocument struct {
	Type        string `json:"type"`
	DocumentURL string `json:"document_url,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

type ocrRequest struct {
	Model    string      `json:"model"`
	Document ocrDocument `json:"document"`
}

type ocrResponse struct {
	Pages []struct {
		Index    int    `json:"index"`
		Markdown string `json:"markdown"`
	} `json:"pages"`
}

// signedURL returns a temporary download URL for an uploaded file.
func (c *ocrClient) signedURL(ctx context.Context, fileID string) (string, error) {
	var out signedURLResponse
	path := "/files/" + url.PathEscape(fileID) + "/url?expiry=24"
	if err := c.do(ctx, http.MethodGet, path, "", nil, &out); err != nil {
		return "", fmt.Errorf("getting signed url: %w", err)
	}
	if out.URL == "" {
		return "", extraction.NewProviderError(providerName, 0, fmt.Errorf("signed url response was empty"))
	}
	return out.URL, nil
}

// ocrDocumentURL runs OCR over a document reachable at docURL.
func (c *ocrClient) ocrDocumentURL(ctx context.Context, model, docURL string) (string, error) {
	return c.ocr(ctx, ocrRequest{Model: model, Document: ocrDocument{Type: "document_url", DocumentURL: docURL}})
}

// ocrImage runs OCR over an inline image.
func (c *ocrClient) ocrImage(ctx context.Context, model, mime string, data []byte) (string, error) {
	dataURL := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
	return c.ocr(ctx, ocrRequest{Model: model, Document: ocrDocument{Type: "image_url", ImageURL: dataURL}})
}

func (c *ocrClient) ocr(ctx context.Context, req ocrRequest) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	var out ocrResponse
	if err := c.do(ctx, http.MethodPost, "/ocr", "application/json", bytes.NewReader(payload), &out); err != nil {
		return "", fmt.Errorf("running ocr: %w", err)
	}
	return joinPages(out), nil
}

// joinPages concatenates the non-empty page markdown, blank-line separated.
func joinPages(resp ocrResponse) string {
	var pages []string
	for _, p := range resp.Pages {
		if md := strings.TrimSpace(p.Markdown); md != "" {
			pages = append(pages, md)
		}
	}
	return strings.Join(pages, "\n\n")
}

func (c *ocrClient) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return extraction.NewProviderError(providerName, 0, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return extraction.NewProviderError(providerName, resp.StatusCode, fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		retry := extraction.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
		return extraction.NewRateLimitError(providerName, fmt.Errorf("%s", truncate(respBody)), retry)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return extraction.NewProviderError(providerName, resp.StatusCode, fmt.Errorf("%s", truncate(respBody)))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return extraction.NewProviderError(providerName, resp.StatusCode, fmt.Errorf("decoding response: %w", err))
	}
	return nil
}

func truncate(b []byte) string {
	s := strings.TrimSpace(string(b))
	if s == "" {
		return "empty response body"
	}
	return logger.Truncate(s, 300)
}

