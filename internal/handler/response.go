package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fatura/internal/domain"
	"fatura/internal/extraction"
)

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *PagMeta    `json:"meta,omitempty"`
}

// APIError holds error details in the response.
type APIError struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Missing []string `json:"missing_fields,omitempty"`
}

// PagMeta holds pagination metadata.
type PagMeta struct {
	Total  int `json:"total"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondCreated sends a 201 success response.
func RespondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: data})
}

// RespondAccepted sends a 202 success response for queued work.
func RespondAccepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, APIResponse{Success: true, Data: data})
}

// RespondPaginated sends a 200 success response with pagination metadata.
func RespondPaginated(c *gin.Context, data interface{}, meta PagMeta) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data, Meta: &meta})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

// MapDomainError translates domain errors to HTTP status codes and error codes.
// Pipeline errors carry their own message so callers see what went wrong.
func MapDomainError(err error) (status int, code, msg string) {
	var rateLimitErr *extraction.RateLimitError
	switch {
	case errors.As(err, &rateLimitErr):
		return http.StatusTooManyRequests, "RATE_LIMITED", err.Error()
	case errors.Is(err, domain.ErrInvoiceNotFound):
		return http.StatusNotFound, "INVOICE_NOT_FOUND", "invoice not found"
	case errors.Is(err, domain.ErrJobNotFound):
		return http.StatusNotFound, "JOB_NOT_FOUND", "extraction job not found"
	case errors.Is(err, domain.ErrFileNotFound):
		return http.StatusNotFound, "FILE_NOT_FOUND", err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "resource not found"
	case errors.Is(err, domain.ErrConfiguration):
		return http.StatusServiceUnavailable, "CONFIGURATION_ERROR", err.Error()
	case errors.Is(err, domain.ErrUnsupportedFileType):
		return http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE", "unsupported file type; allowed: pdf, jpg, png"
	case errors.Is(err, domain.ErrInvalidFileReference):
		return http.StatusBadRequest, "INVALID_FILE_REFERENCE", err.Error()
	case errors.Is(err, domain.ErrEmptyExtraction):
		return http.StatusUnprocessableEntity, "EMPTY_EXTRACTION", err.Error()
	case errors.Is(err, domain.ErrParse):
		return http.StatusUnprocessableEntity, "PARSE_ERROR", err.Error()
	case errors.Is(err, domain.ErrProvider):
		return http.StatusBadGateway, "PROVIDER_ERROR", err.Error()
	case errors.Is(err, domain.ErrAlreadyConverted):
		return http.StatusConflict, "ALREADY_CONVERTED", "invoice has already been converted"
	case errors.Is(err, domain.ErrIncompleteInvoice):
		return http.StatusBadRequest, "INCOMPLETE_INVOICE", err.Error()
	case errors.Is(err, domain.ErrVersionConflict):
		return http.StatusConflict, "VERSION_CONFLICT", "invoice was modified by someone else; reload and retry"
	case errors.Is(err, domain.ErrInvoiceLocked):
		return http.StatusConflict, "INVOICE_LOCKED", "invoice is being processed"
	case errors.Is(err, domain.ErrSupplierNotLinked):
		return http.StatusBadRequest, "SUPPLIER_NOT_LINKED", "select a supplier first"
	case errors.Is(err, domain.ErrNoItems):
		return http.StatusBadRequest, "NO_ITEMS", "no items found in the extracted invoice"
	case errors.Is(err, domain.ErrNoOriginalFile):
		return http.StatusBadRequest, "NO_ORIGINAL_FILE", "invoice has no original file"
	case errors.Is(err, domain.ErrInvalidStatus):
		return http.StatusBadRequest, "INVALID_STATUS", "invalid status; allowed: Draft, Processing, Ready, Mapped, Converted"
	case errors.Is(err, domain.ErrUnknownLink):
		return http.StatusBadRequest, "UNKNOWN_LINK", err.Error()
	case errors.Is(err, domain.ErrUnsupportedExportFormat):
		return http.StatusBadRequest, "UNSUPPORTED_EXPORT_FORMAT", "unsupported export format; allowed: csv, xlsx"
	case errors.Is(err, domain.ErrUploadFailed):
		return http.StatusInternalServerError, "UPLOAD_FAILED", "file upload to storage failed"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// HandleError maps a domain error and sends the appropriate error response.
func HandleError(c *gin.Context, err error) {
	status, code, msg := MapDomainError(err)
	requestID, _ := c.Get("request_id")
	if status >= 500 {
		zap.L().Error("handler: request failed",
			zap.Any("request_id", requestID), zap.String("path", c.Request.URL.Path), zap.Error(err))
	}

	apiErr := &APIError{Code: code, Message: msg}
	var incomplete *domain.IncompleteError
	if errors.As(err, &incomplete) {
		apiErr.Missing = incomplete.Missing
	}
	c.JSON(status, APIResponse{Success: false, Error: apiErr})
}

func parsePagination(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return offset, limit
}
