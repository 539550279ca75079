package domain

import (
	"strings"
	"time"
)

// FileType represents the document kinds accepted for extraction.
type FileType string

const (
	FileTypePDF FileType = "pdf"
	FileTypeJPG FileType = "jpg"
	FileTypePNG FileType = "png"
)

// AllowedFileTypes maps FileType to its MIME content type.
var AllowedFileTypes = map[FileType]string{
	FileTypePDF: "application/pdf",
	FileTypeJPG: "image/jpeg",
	FileTypePNG: "image/png",
}

// AllowedContentTypes maps MIME content types back to FileType.
var AllowedContentTypes = map[string]FileType{
	"application/pdf": FileTypePDF,
	"image/jpeg":      FileTypeJPG,
	"image/jpg":       FileTypeJPG,
	"image/png":       FileTypePNG,
}

// AllowedExtensions maps file extensions (without dot) to FileType.
var AllowedExtensions = map[string]FileType{
	"pdf":  FileTypePDF,
	"jpg":  FileTypeJPG,
	"jpeg": FileTypeJPG,
	"png":  FileTypePNG,
}

// FileTypeFromExtension resolves ".PDF", "pdf", ".jpeg" and friends.
func FileTypeFromExtension(ext string) (FileType, error) {
	ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
	ft, ok := AllowedExtensions[ext]
	if !ok {
		return "", ErrUnsupportedFileType
	}
	return ft, nil
}

// MIMEType returns the content type sent to providers.
func (f FileType) MIMEType() string {
	return AllowedFileTypes[f]
}

// InvoiceStatus is the lifecycle state of an extracted invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft      InvoiceStatus = "Draft"
	InvoiceStatusProcessing InvoiceStatus = "Processing"
	InvoiceStatusReady      InvoiceStatus = "Ready"
	InvoiceStatusMapped     InvoiceStatus = "Mapped"
	InvoiceStatusConverted  InvoiceStatus = "Converted"
)

// Valid reports whether s is a known status.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusProcessing, InvoiceStatusReady,
		InvoiceStatusMapped, InvoiceStatusConverted:
		return true
	}
	return false
}

// JobStatus tracks an extraction job in the queue.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// ExtractionJobTimeout bounds one extraction job run. A job still running
// after it was last touched this long ago is treated as abandoned.
const ExtractionJobTimeout = 5 * time.Minute

// AuditAction identifies the kind of invoice mutation recorded in the audit log.
type AuditAction string

const (
	AuditInvoiceCreated       AuditAction = "invoice.created"
	AuditInvoiceUpdated       AuditAction = "invoice.updated"
	AuditInvoiceStatusChanged AuditAction = "invoice.status_changed"
	AuditExtractionQueued     AuditAction = "invoice.extraction_queued"
	AuditExtractionCompleted  AuditAction = "invoice.extraction_completed"
	AuditExtractionFailed     AuditAction = "invoice.extraction_failed"
	AuditInvoiceConverted     AuditAction = "invoice.converted"
	AuditInvoiceLinked        AuditAction = "invoice.linked"
	AuditTotalsFixed          AuditAction = "invoice.totals_fixed"
	AuditInvoiceDeleted       AuditAction = "invoice.deleted"
)

const DefaultCurrency = "SAR"
