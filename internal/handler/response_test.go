package handler_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"fatura/internal/domain"
	"fatura/internal/extraction"
	"fatura/internal/handler"
)

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{domain.ErrInvoiceNotFound, http.StatusNotFound, "INVOICE_NOT_FOUND"},
		{fmt.Errorf("repo: %w", domain.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{domain.ErrVersionConflict, http.StatusConflict, "VERSION_CONFLICT"},
		{domain.ErrInvoiceLocked, http.StatusConflict, "INVOICE_LOCKED"},
		{domain.ErrSupplierNotLinked, http.StatusBadRequest, "SUPPLIER_NOT_LINKED"},
		{domain.ErrNoItems, http.StatusBadRequest, "NO_ITEMS"},
		{domain.ErrInvalidStatus, http.StatusBadRequest, "INVALID_STATUS"},
		{fmt.Errorf("%w: supplier %q", domain.ErrUnknownLink, "X"), http.StatusBadRequest, "UNKNOWN_LINK"},
		{extraction.NewProviderError("gemini", 500, errors.New("boom")), http.StatusBadGateway, "PROVIDER_ERROR"},
		{extraction.NewRateLimitError("gemini", errors.New("quota"), 5), http.StatusTooManyRequests, "RATE_LIMITED"},
		{errors.New("anything else"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			status, code, _ := handler.MapDomainError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}
