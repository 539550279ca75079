// Package validator holds the review-time checks run against an extracted
// invoice: Ready-boundary completeness, save rules and the totals check.
package validator

import (
	"fatura/internal/domain"
)

// Rule is a single named check over an extracted invoice.
type Rule interface {
	Key() string
	Name() string
	Check(inv *domain.ExtractedInvoice) []Result
}

// Result is the outcome of a rule for one field path.
type Result struct {
	Passed    bool   `json:"passed"`
	FieldPath string `json:"field_path"`
	Expected  string `json:"expected"`
	Actual    string `json:"actual"`
	Message   string `json:"message"`
}
