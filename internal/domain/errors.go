package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound             = errors.New("resource not found")
	ErrConfiguration        = errors.New("extraction is not configured")
	ErrUnsupportedFileType  = errors.New("unsupported file type")
	ErrFileNotFound         = errors.New("file not found")
	ErrInvalidFileReference = errors.New("invalid file reference")
	ErrProvider             = errors.New("extraction provider failed")
	ErrEmptyExtraction      = errors.New("ocr returned no text")
	ErrParse                = errors.New("no valid JSON in model response")
	ErrUploadFailed         = errors.New("file upload to storage failed")
)

// Invoice lifecycle errors.
var (
	ErrInvoiceNotFound   = errors.New("extracted invoice not found")
	ErrAlreadyConverted  = errors.New("invoice has already been converted")
	ErrIncompleteInvoice = errors.New("invoice is incomplete")
	ErrVersionConflict   = errors.New("invoice was modified concurrently")
	ErrInvoiceLocked     = errors.New("invoice is being processed")
	ErrSupplierNotLinked = errors.New("select a supplier first")
	ErrNoItems           = errors.New("no items found in the extracted invoice")
	ErrNoOriginalFile    = errors.New("original file is empty")
	ErrInvalidStatus     = errors.New("invalid status transition")
	ErrJobNotFound       = errors.New("extraction job not found")
	ErrUnknownLink       = errors.New("linked supplier or item does not exist")
)

// ErrUnsupportedExportFormat is returned for export formats other than csv and xlsx.
var ErrUnsupportedExportFormat = errors.New("unsupported export format")

// IncompleteError lists the fields that block an invoice from being Ready.
type IncompleteError struct {
	Missing []string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("please complete the following fields: %s", strings.Join(e.Missing, ", "))
}

func (e *IncompleteError) Unwrap() error {
	return ErrIncompleteInvoice
}
