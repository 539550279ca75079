package validator

import (
	"fmt"
	"strings"

	"fatura/internal/domain"
)

// requiredFieldRule checks that a header field or a per-row field is set.
// Label is the user-facing field name reported when the check fails.
type requiredFieldRule struct {
	key       string
	name      string
	label     string
	fieldPath string
	present   func(*domain.ExtractedInvoice) bool
	perItem   bool
	itemOK    func(*domain.ExtractedInvoiceItem) bool
}

func (v *requiredFieldRule) Key() string  { return v.key }
func (v *requiredFieldRule) Name() string { return v.name }

func (v *requiredFieldRule) Check(inv *domain.ExtractedInvoice) []Result {
	if v.perItem {
		results := make([]Result, 0, len(inv.Items))
		for i := range inv.Items {
			row := i + 1
			fp := fmt.Sprintf("items[%d].%s", i, v.fieldPath)
			label := fmt.Sprintf("%s in row %d", v.label, row)
			results = append(results, requiredResult(v.itemOK(&inv.Items[i]), fp, label))
		}
		return results
	}
	return []Result{requiredResult(v.present(inv), v.fieldPath, v.label)}
}

func requiredResult(passed bool, fieldPath, label string) Result {
	msg := label + " is present"
	if !passed {
		msg = label
	}
	return Result{Passed: passed, FieldPath: fieldPath, Expected: "non-empty value", Message: msg}
}

func filled(s string) bool {
	return strings.TrimSpace(s) != ""
}

// RequiredFieldRules returns the Ready-boundary completeness rules in the
// order their failures are reported.
func RequiredFieldRules() []*requiredFieldRule {
	return []*requiredFieldRule{
		{
			key: "req.supplier_name", name: "Required: Supplier Name", label: "Supplier Name",
			fieldPath: "supplier_name",
			present:   func(d *domain.ExtractedInvoice) bool { return filled(d.SupplierName) },
		},
		{
			key: "req.invoice_number", name: "Required: Invoice Number", label: "Invoice Number",
			fieldPath: "invoice_number",
			present:   func(d *domain.ExtractedInvoice) bool { return filled(d.InvoiceNumber) },
		},
		{
			key: "req.invoice_date", name: "Required: Invoice Date", label: "Invoice Date",
			fieldPath: "invoice_date",
			present:   func(d *domain.ExtractedInvoice) bool { return d.InvoiceDate != nil && !d.InvoiceDate.IsZero() },
		},
		{
			key: "req.currency", name: "Required: Currency", label: "Currency",
			fieldPath: "currency",
			present:   func(d *domain.ExtractedInvoice) bool { return filled(d.Currency) },
		},
		{
			key: "req.items", name: "Required: Items", label: "Items",
			fieldPath: "items",
			present:   func(d *domain.ExtractedInvoice) bool { return len(d.Items) > 0 },
		},
		{
			key: "req.item.name", name: "Required: Item Name", label: "Item name",
			fieldPath: "item_name", perItem: true,
			itemOK: func(it *domain.ExtractedInvoiceItem) bool { return filled(it.ItemName) },
		},
		{
			key: "req.item.quantity", name: "Required: Item Quantity", label: "Quantity",
			fieldPath: "quantity", perItem: true,
			itemOK: func(it *domain.ExtractedInvoiceItem) bool { return it.Quantity > 0 },
		},
		{
			key: "req.item.rate", name: "Required: Item Rate", label: "Rate",
			fieldPath: "rate", perItem: true,
			itemOK: func(it *domain.ExtractedInvoiceItem) bool { return it.Rate > 0 },
		},
	}
}

// MissingFields lists the labels of every failed completeness rule,
// header fields first, then row fields ordered by row. Duplicates are
// dropped.
func MissingFields(inv *domain.ExtractedInvoice) []string {
	var header []string
	rows := make([][]string, len(inv.Items))
	for _, rule := range RequiredFieldRules() {
		results := rule.Check(inv)
		for i, res := range results {
			if res.Passed {
				continue
			}
			if rule.perItem {
				rows[i] = append(rows[i], res.Message)
			} else {
				header = append(header, res.Message)
			}
		}
	}

	seen := make(map[string]bool)
	var missing []string
	add := func(labels []string) {
		for _, l := range labels {
			if !seen[l] {
				seen[l] = true
				missing = append(missing, l)
			}
		}
	}
	add(header)
	for _, r := range rows {
		add(r)
	}
	return missing
}

// CheckComplete returns an *domain.IncompleteError listing the missing
// fields, or nil when the invoice may be Ready.
func CheckComplete(inv *domain.ExtractedInvoice) error {
	if missing := MissingFields(inv); len(missing) > 0 {
		return &domain.IncompleteError{Missing: missing}
	}
	return nil
}
