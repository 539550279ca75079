package handler

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fatura/internal/domain"
	"fatura/internal/export"
	"fatura/internal/service"
)

const dateLayout = "2006-01-02"

// InvoiceHandler handles extracted invoice endpoints.
type InvoiceHandler struct {
	invoiceService    service.InvoiceService
	extractionService service.ExtractionService
	conversionService service.ConversionService
	maxUploadBytes    int64
	now               func() time.Time
}

// NewInvoiceHandler creates a new InvoiceHandler. A non-positive
// maxUploadBytes disables the size check.
func NewInvoiceHandler(
	invoiceService service.InvoiceService,
	extractionService service.ExtractionService,
	conversionService service.ConversionService,
	maxUploadBytes int64,
) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService:    invoiceService,
		extractionService: extractionService,
		conversionService: conversionService,
		maxUploadBytes:    maxUploadBytes,
		now:               time.Now,
	}
}

func parseInvoiceID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid invoice ID")
		return uuid.Nil, false
	}
	return id, true
}

// Ingest handles POST /api/v1/invoices/ingest
func (h *InvoiceHandler) Ingest(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	if h.maxUploadBytes > 0 && header.Size > h.maxUploadBytes {
		RespondError(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file exceeds maximum allowed size")
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_FILE", "could not read uploaded file")
		return
	}

	inv, err := h.invoiceService.Ingest(c.Request.Context(), &service.IngestInput{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, inv)
}

// List handles GET /api/v1/invoices
func (h *InvoiceHandler) List(c *gin.Context) {
	offset, limit := parsePagination(c)
	status := domain.InvoiceStatus(c.Query("status"))

	invoices, total, err := h.invoiceService.List(c.Request.Context(), status, offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondPaginated(c, invoices, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// GetByID handles GET /api/v1/invoices/:id
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	id, ok := parseInvoiceID(c)
	if !ok {
		return
	}
	inv, err := h.invoiceService.GetByID(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, inv)
}

type updateItemRequest struct {
	ExtractedText string  `json:"extracted_text"`
	ItemName      string  `json:"item_name"`
	ItemLink      string  `json:"item_link"`
	Quantity      float64 `json:"quantity"`
	Rate          float64 `json:"rate"`
	TaxAmount     float64 `json:"tax_amount"`
	Language      string  `json:"language"`
	Taxable       bool    `json:"taxable"`
}

type updateInvoiceRequest struct {
	Version       int                 `json:"version"`
	SupplierName  *string             `json:"supplier_name"`
	SupplierLink  *string             `json:"supplier_link"`
	InvoiceNumber *string             `json:"invoice_number"`
	InvoiceDate   *string             `json:"invoice_date"`
	DueDate       *string             `json:"due_date"`
	Currency      *string             `json:"currency"`
	Subtotal      *float64            `json:"subtotal"`
	TaxAmount     *float64            `json:"tax_amount"`
	TotalAmount   *float64            `json:"total_amount"`
	Items         []updateItemRequest `json:"items"`
}

func parseDate(field string, s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, strings.TrimSpace(*s))
	if err != nil {
		return nil, fmt.Errorf("%s must be YYYY-MM-DD", field)
	}
	return &t, nil
}

// Update handles PUT /api/v1/invoices/:id
func (h *InvoiceHandler) Update(c *gin.Context) {
	id, ok := parseInvoiceID(c)
	if !ok {
		return
	}

	var req updateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "request body is required")
		return
	}
	invoiceDate, err := parseDate("invoice_date", req.InvoiceDate)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	dueDate, err := parseDate("due_date", req.DueDate)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	input := &service.UpdateInvoiceInput{
		ID:            id,
		Version:       req.Version,
		SupplierName:  req.SupplierName,
		SupplierLink:  req.SupplierLink,
		InvoiceNumber: req.InvoiceNumber,
		InvoiceDate:   invoiceDate,
		DueDate:       dueDate,
		Currency:      req.Currency,
		Subtotal:      req.Subtotal,
		TaxAmount:     req.TaxAmount,
		TotalAmount:   req.TotalAmount,
	}
	if req.Items != nil {
		input.Items = make([]service.UpdateItemInput, 0, len(req.Items))
		for _, it := range req.Items {
			input.Items = append(input.Items, service.UpdateItemInput(it))
		}
	}

	inv, err := h.invoiceService.Update(c.Request.Context(), input)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, inv)
}

// Extract handles POST /api/v1/invoices/:id/extract
// By default the extraction is queued; ?sync=true runs it inline.
func (h *InvoiceHandler) Extract(c *gin.Context) {
	id, ok := parseInvoiceID(c)
	if !ok {
		return
	}

	if sync, _ := strconv.ParseBool(c.Query("sync")); sync {
		result, err := h.extractionService.ExtractAndPersist(c.Request.Context(), id)
		if err != nil {
			HandleError(c, err)
			return
		}
		RespondOK(c, result)
		return
	}

	job, err := h.invoiceService.EnqueueExtraction(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondAccepted(c, job)
}

// MarkReady handles POST /api/v1/invoices/:id/ready
func (h *InvoiceHandler) MarkReady(c *gin.Context) {
	id, ok := parseInvoiceID(c)
	if !ok {
		return
	}
	inv, err := h.invoiceService.MarkReady(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, inv)
}

// Convert handles POST /api/v1/invoices/:id/convert
func (h *InvoiceHandler) Convert(c *gin.Context) {
	id, ok := parseInvoiceID(c)
	if !ok {
		return
	}
	pi, err := h.conversionService.CreatePurchaseInvoiceDraft(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, pi)
}

type linkRequest struct {
	PurchaseInvoiceID string `json:"purchase_invoice_id" binding:"required"`
}

// Link handles POST /api/v1/invoices/:id/link
func (h *InvoiceHandler) Link(c *gin.Context) {
	id, ok := parseInvoiceID(c)
	if !ok {
		return
	}
	var req linkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "purchase_invoice_id is required")
		return
	}
	piID, err := uuid.Parse(req.PurchaseInvoiceID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "purchase_invoice_id must be a UUID")
		return
	}

	inv, err := h.conversionService.LinkToPurchaseInvoice(c.Request.Context(), id, piID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, inv)
}

// ValidateTotals handles GET /api/v1/invoices/:id/validate-totals
func (h *InvoiceHandler) ValidateTotals(c *gin.Context) {
	id, ok := parseInvoiceID(c)
	if !ok {
		return
	}
	report, err := h.invoiceService.ValidateTotals(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, report)
}

// FixTotals handles POST /api/v1/invoices/:id/fix-totals
func (h *InvoiceHandler) FixTotals(c *gin.Context) {
	id, ok := parseInvoiceID(c)
	if !ok {
		return
	}
	result, err := h.invoiceService.FixTotals(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{
		"subtotal":     result.Totals.Subtotal,
		"tax_amount":   result.Totals.TaxAmount,
		"total_amount": result.Totals.TotalAmount,
		"tax_rate":     result.TaxRate,
		"invoice":      result.Invoice,
	})
}

// ListAudit handles GET /api/v1/invoices/:id/audit
func (h *InvoiceHandler) ListAudit(c *gin.Context) {
	id, ok := parseInvoiceID(c)
	if !ok {
		return
	}
	offset, limit := parsePagination(c)

	entries, total, err := h.invoiceService.ListAudit(c.Request.Context(), id, offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondPaginated(c, entries, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// File handles GET /api/v1/invoices/:id/file
func (h *InvoiceHandler) File(c *gin.Context) {
	id, ok := parseInvoiceID(c)
	if !ok {
		return
	}
	file, err := h.invoiceService.OpenFile(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	if file.RedirectURL != "" {
		c.Redirect(http.StatusFound, file.RedirectURL)
		return
	}

	contentType := "application/octet-stream"
	if ft, err := domain.FileTypeFromExtension(file.Document.Ext); err == nil {
		contentType = ft.MIMEType()
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", file.Document.Name))
	c.Data(http.StatusOK, contentType, file.Document.Data)
}

// Delete handles DELETE /api/v1/invoices/:id
func (h *InvoiceHandler) Delete(c *gin.Context) {
	id, ok := parseInvoiceID(c)
	if !ok {
		return
	}
	if err := h.invoiceService.Delete(c.Request.Context(), id); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "invoice deleted"})
}

// Export handles GET /api/v1/invoices/export
// The workbook is built in memory so a failure still yields a JSON error.
func (h *InvoiceHandler) Export(c *gin.Context) {
	format := strings.ToLower(c.DefaultQuery("format", export.FormatCSV))
	status := domain.InvoiceStatus(c.Query("status"))

	var buf bytes.Buffer
	if err := h.invoiceService.Export(c.Request.Context(), &buf, format, status); err != nil {
		HandleError(c, err)
		return
	}

	filename := export.BuildFilename(format, h.now())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, export.ContentType(format), buf.Bytes())
}
