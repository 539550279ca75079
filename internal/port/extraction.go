package port

import (
	"context"

	"fatura/internal/domain"
)

// PromptConfig carries the operator-supplied prompt texts.
type PromptConfig struct {
	SystemInstruction string
	JSONFormat        string
	Instructions      string
}

// ExtractionRequest is everything one extraction attempt sends to a provider.
type ExtractionRequest struct {
	Document    []byte
	FileType    domain.FileType
	FileName    string
	Model       string
	Temperature float64
	Prompt      PromptConfig
}

// RawModelResponse is the unparsed text a provider returned.
type RawModelResponse struct {
	Text      string
	ModelUsed string
}

// ExtractionStrategy sends a document to a model provider and returns its raw answer.
type ExtractionStrategy interface {
	Extract(ctx context.Context, req ExtractionRequest) (*RawModelResponse, error)
}

// ModelLister lists the generation models a credential can use.
type ModelLister interface {
	ListModels(ctx context.Context, apiKey string) ([]string, error)
}
