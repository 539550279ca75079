package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"fatura/internal/domain"
)

const (
	invoicesSheet = "Invoices"
	itemsSheet    = "Items"
)

// WriteXLSX writes a workbook with an Invoices sheet and an Items sheet.
// Money columns are written as numbers so spreadsheets can sum them.
func WriteXLSX(out io.Writer, invoices []domain.ExtractedInvoice) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", invoicesSheet); err != nil {
		return fmt.Errorf("export.WriteXLSX: %w", err)
	}
	if _, err := f.NewSheet(itemsSheet); err != nil {
		return fmt.Errorf("export.WriteXLSX: %w", err)
	}

	if err := writeRow(f, invoicesSheet, 1, toCells(columns)); err != nil {
		return err
	}
	if err := writeRow(f, itemsSheet, 1, toCells(itemColumns)); err != nil {
		return err
	}

	itemRow := 2
	for i := range invoices {
		inv := &invoices[i]
		if err := writeRow(f, invoicesSheet, i+2, invoiceCells(inv)); err != nil {
			return err
		}
		for j := range inv.Items {
			if err := writeRow(f, itemsSheet, itemRow, itemCells(inv, &inv.Items[j])); err != nil {
				return err
			}
			itemRow++
		}
	}

	_ = f.SetColWidth(invoicesSheet, "A", "A", 38)
	_ = f.SetColWidth(invoicesSheet, "C", "C", 30)
	_ = f.SetColWidth(itemsSheet, "D", "F", 30)

	idx, err := f.GetSheetIndex(invoicesSheet)
	if err == nil {
		f.SetActiveSheet(idx)
	}
	if err := f.Write(out); err != nil {
		return fmt.Errorf("export.WriteXLSX: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("export.writeRow %s!%s: %w", sheet, cell, err)
	}
	return nil
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

func invoiceCells(inv *domain.ExtractedInvoice) []interface{} {
	return []interface{}{
		inv.ID.String(),
		string(inv.Status),
		inv.SupplierName,
		inv.SupplierLink,
		inv.InvoiceNumber,
		formatDate(inv.InvoiceDate),
		formatDate(inv.DueDate),
		inv.Currency,
		inv.Subtotal,
		inv.TaxAmount,
		inv.TotalAmount,
		inv.TaxRate,
		len(inv.Items),
		inv.ExtractionModel,
		inv.PurchaseInvoiceLink,
		formatTime(inv.ExtractedAt),
		inv.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func itemCells(inv *domain.ExtractedInvoice, it *domain.ExtractedInvoiceItem) []interface{} {
	return []interface{}{
		inv.ID.String(),
		inv.InvoiceNumber,
		it.Idx,
		it.ItemName,
		it.ItemLink,
		it.ExtractedText,
		it.Quantity,
		it.Rate,
		it.Amount,
		it.TaxAmount,
		it.TotalWithTax,
	}
}
