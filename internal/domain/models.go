package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// InvoiceRecord is the parsed and reconciled result of one extraction.
// JSON field names follow the extraction prompt format.
type InvoiceRecord struct {
	Supplier      string           `json:"supplier"`
	SupplierAr    string           `json:"supplier_ar"`
	InvoiceNumber string           `json:"invoice_number"`
	Date          string           `json:"date"`
	DueDate       string           `json:"due_date"`
	Currency      string           `json:"currency"`
	Subtotal      float64          `json:"subtotal"`
	TaxAmount     float64          `json:"tax_amount"`
	TotalAmount   float64          `json:"total_amount"`
	Items         []LineItem       `json:"items"`
	Validation    ValidationReport `json:"validation"`
}

// LineItem is one billed row of a reconciled record.
type LineItem struct {
	Description   string  `json:"description"`
	DescriptionAr string  `json:"description_ar"`
	Quantity      float64 `json:"quantity"`
	UnitPrice     float64 `json:"unit_price"`
	ItemTotal     float64 `json:"item_total"`
	TaxAmount     float64 `json:"tax_amount"`
	TotalWithTax  float64 `json:"total_with_tax"`
}

// ValidationReport compares computed aggregates with what the model reported.
// Extracted values are the model's figures before any override.
type ValidationReport struct {
	SubtotalCalculated float64 `json:"subtotal_calculated"`
	SubtotalExtracted  float64 `json:"subtotal_extracted"`
	TaxCalculated      float64 `json:"tax_calculated"`
	TaxExtracted       float64 `json:"tax_extracted"`
	TotalCalculated    float64 `json:"total_calculated"`
	TotalExtracted     float64 `json:"total_extracted"`
	SubtotalMatch      bool    `json:"subtotal_match"`
	TaxMatch           bool    `json:"tax_match"`
	TotalMatch         bool    `json:"total_match"`
}

// AsMap renders the record in the same loose shape the parser produces,
// so it can be fed back into reconciliation.
func (r *InvoiceRecord) AsMap() (map[string]any, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// ExtractedInvoice is the persisted, reviewable entity an extraction is projected onto.
type ExtractedInvoice struct {
	ID                  uuid.UUID       `db:"id" json:"id"`
	Status              InvoiceStatus   `db:"status" json:"status"`
	OriginalFile        string          `db:"original_file" json:"original_file"`
	SupplierName        string          `db:"supplier_name" json:"supplier_name"`
	SupplierLink        string          `db:"supplier_link" json:"supplier_link"`
	InvoiceNumber       string          `db:"invoice_number" json:"invoice_number"`
	InvoiceDate         *time.Time      `db:"invoice_date" json:"invoice_date,omitempty"`
	DueDate             *time.Time      `db:"due_date" json:"due_date,omitempty"`
	Currency            string          `db:"currency" json:"currency"`
	Subtotal            float64         `db:"subtotal" json:"subtotal"`
	TaxAmount           float64         `db:"tax_amount" json:"tax_amount"`
	TotalAmount         float64         `db:"total_amount" json:"total_amount"`
	TaxRate             float64         `db:"tax_rate" json:"tax_rate"`
	ExtractionModel     string          `db:"extraction_model" json:"extraction_model"`
	ExtractionError     string          `db:"extraction_error" json:"extraction_error,omitempty"`
	ExtractedData       json.RawMessage `db:"extracted_data" json:"extracted_data,omitempty"`
	ExtractedAt         *time.Time      `db:"extracted_at" json:"extracted_at,omitempty"`
	PurchaseInvoiceLink string          `db:"purchase_invoice_link" json:"purchase_invoice_link"`
	Version             int             `db:"version" json:"version"`
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time       `db:"updated_at" json:"updated_at"`

	Items []ExtractedInvoiceItem `db:"-" json:"items"`
}

// ExtractedInvoiceItem is one row of an extracted invoice.
type ExtractedInvoiceItem struct {
	ID            uuid.UUID `db:"id" json:"id"`
	InvoiceID     uuid.UUID `db:"invoice_id" json:"invoice_id"`
	Idx           int       `db:"idx" json:"idx"`
	ExtractedText string    `db:"extracted_text" json:"extracted_text"`
	ItemName      string    `db:"item_name" json:"item_name"`
	ItemLink      string    `db:"item_link" json:"item_link"`
	Quantity      float64   `db:"quantity" json:"quantity"`
	Rate          float64   `db:"rate" json:"rate"`
	Amount        float64   `db:"amount" json:"amount"`
	TaxAmount     float64   `db:"tax_amount" json:"tax_amount"`
	TotalWithTax  float64   `db:"total_with_tax" json:"total_with_tax"`
	Language      string    `db:"language" json:"language"`
	Taxable       bool      `db:"taxable" json:"taxable"`
}

// Supplier is a catalog supplier an invoice can be linked to.
type Supplier struct {
	ID           string `db:"id" json:"id"`
	SupplierName string `db:"supplier_name" json:"supplier_name"`
	TaxID        string `db:"tax_id" json:"tax_id"`
}

// CatalogItem is a catalog item an invoice row can be linked to.
type CatalogItem struct {
	ID          string `db:"id" json:"id"`
	ItemName    string `db:"item_name" json:"item_name"`
	Description string `db:"description" json:"description"`
	StockUOM    string `db:"stock_uom" json:"stock_uom"`
}

// PurchaseInvoice is the accounting draft created from a converted invoice.
type PurchaseInvoice struct {
	ID                 uuid.UUID `db:"id" json:"id"`
	ExtractedInvoiceID uuid.UUID `db:"extracted_invoice_id" json:"extracted_invoice_id"`
	SupplierID         string    `db:"supplier_id" json:"supplier_id"`
	SupplierName       string    `db:"supplier_name" json:"supplier_name"`
	BillNo             string    `db:"bill_no" json:"bill_no"`
	PostingDate        time.Time `db:"posting_date" json:"posting_date"`
	DueDate            time.Time `db:"due_date" json:"due_date"`
	Currency           string    `db:"currency" json:"currency"`
	TaxRate            *float64  `db:"tax_rate" json:"tax_rate,omitempty"`
	TaxDescription     string    `db:"tax_description" json:"tax_description,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`

	Items []PurchaseInvoiceItem `db:"-" json:"items"`
}

// PurchaseInvoiceItem is one row of a purchase invoice draft.
type PurchaseInvoiceItem struct {
	ID                uuid.UUID `db:"id" json:"id"`
	PurchaseInvoiceID uuid.UUID `db:"purchase_invoice_id" json:"purchase_invoice_id"`
	Idx               int       `db:"idx" json:"idx"`
	ItemCode          string    `db:"item_code" json:"item_code"`
	ItemName          string    `db:"item_name" json:"item_name"`
	Description       string    `db:"description" json:"description"`
	Qty               float64   `db:"qty" json:"qty"`
	Rate              float64   `db:"rate" json:"rate"`
	Amount            float64   `db:"amount" json:"amount"`
	UOM               string    `db:"uom" json:"uom"`
}

// InvoiceAuditEntry records a single invoice mutation.
type InvoiceAuditEntry struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	InvoiceID uuid.UUID       `db:"invoice_id" json:"invoice_id"`
	Action    string          `db:"action" json:"action"`
	Changes   json.RawMessage `db:"changes" json:"changes"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// ExtractionJob is one queued unit of durable extraction work.
type ExtractionJob struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	InvoiceID  uuid.UUID  `db:"invoice_id" json:"invoice_id"`
	Status     JobStatus  `db:"status" json:"status"`
	Attempts   int        `db:"attempts" json:"attempts"`
	RetryAfter *time.Time `db:"retry_after" json:"retry_after,omitempty"`
	LastError  string     `db:"last_error" json:"last_error,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}
