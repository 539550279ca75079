// Package export writes extracted invoices as CSV or XLSX.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"fatura/internal/domain"
)

// Supported export formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// columns defines the invoice header row.
var columns = []string{
	"Invoice ID",
	"Status",
	"Supplier Name",
	"Supplier Link",
	"Invoice Number",
	"Invoice Date",
	"Due Date",
	"Currency",
	"Subtotal",
	"Tax Amount",
	"Total Amount",
	"Tax Rate",
	"Line Item Count",
	"Extraction Model",
	"Purchase Invoice",
	"Extracted At",
	"Created At",
}

// itemColumns defines the header of the XLSX Items sheet.
var itemColumns = []string{
	"Invoice ID",
	"Invoice Number",
	"Row",
	"Item Name",
	"Item Link",
	"Extracted Text",
	"Quantity",
	"Rate",
	"Amount",
	"Tax Amount",
	"Total With Tax",
}

// Writer wraps csv.Writer for exporting invoices as CSV.
type Writer struct {
	csv *csv.Writer
}

// NewWriter creates a Writer that writes CSV to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// WriteHeader writes the header row.
func (w *Writer) WriteHeader() error {
	return w.csv.Write(columns)
}

// WriteInvoices converts a batch of invoices to CSV rows and writes them.
func (w *Writer) WriteInvoices(invoices []domain.ExtractedInvoice) error {
	for i := range invoices {
		if err := w.csv.Write(invoiceToRow(&invoices[i])); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *Writer) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *Writer) Error() error {
	return w.csv.Error()
}

// WriteCSV writes the BOM, the header and every invoice to out.
func WriteCSV(out io.Writer, invoices []domain.ExtractedInvoice) error {
	if _, err := out.Write(BOM); err != nil {
		return err
	}
	w := NewWriter(out)
	if err := w.WriteHeader(); err != nil {
		return err
	}
	if err := w.WriteInvoices(invoices); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// Write dispatches on format.
func Write(out io.Writer, format string, invoices []domain.ExtractedInvoice) error {
	switch format {
	case FormatCSV:
		return WriteCSV(out, invoices)
	case FormatXLSX:
		return WriteXLSX(out, invoices)
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedExportFormat, format)
	}
}

// ContentType returns the MIME type of an export format.
func ContentType(format string) string {
	if format == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// BuildFilename returns the Content-Disposition filename for an export
// taken at now: invoices_{YYYY-MM-DD}.{format}.
func BuildFilename(format string, now time.Time) string {
	return fmt.Sprintf("invoices_%s.%s", now.Format("2006-01-02"), format)
}

func invoiceToRow(inv *domain.ExtractedInvoice) []string {
	return []string{
		inv.ID.String(),
		string(inv.Status),
		inv.SupplierName,
		inv.SupplierLink,
		inv.InvoiceNumber,
		formatDate(inv.InvoiceDate),
		formatDate(inv.DueDate),
		inv.Currency,
		formatMoney(inv.Subtotal),
		formatMoney(inv.TaxAmount),
		formatMoney(inv.TotalAmount),
		formatMoney(inv.TaxRate),
		strconv.Itoa(len(inv.Items)),
		inv.ExtractionModel,
		inv.PurchaseInvoiceLink,
		formatTime(inv.ExtractedAt),
		inv.CreatedAt.Format(time.RFC3339),
	}
}

func formatMoney(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
