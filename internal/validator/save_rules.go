package validator

import (
	"fatura/internal/domain"
)

// ApplySaveRules recomputes every row's amount and total with tax, then
// settles the status on Ready or Mapped when the invoice is reviewable.
// Draft and Processing keep their status. Converted invoices are rejected.
func ApplySaveRules(inv *domain.ExtractedInvoice) error {
	if err := inv.EnsureEditable(); err != nil {
		return err
	}
	for i := range inv.Items {
		it := &inv.Items[i]
		it.Idx = i + 1
		amount := dec(it.Quantity).Mul(dec(it.Rate)).Round(2)
		it.Amount = amount.InexactFloat64()
		it.TotalWithTax = round2(amount.Add(dec(it.TaxAmount)))
	}
	if inv.IsReviewable() {
		inv.Status = inv.MappingStatus()
	}
	return nil
}

// PrepareSave applies the save rules and then enforces completeness for
// reviewable invoices.
func PrepareSave(inv *domain.ExtractedInvoice) error {
	if err := ApplySaveRules(inv); err != nil {
		return err
	}
	if inv.IsReviewable() {
		return CheckComplete(inv)
	}
	return nil
}

// MarkReady moves a complete Draft or Processing invoice to Ready, then
// applies the save rules, which may settle it on Mapped.
func MarkReady(inv *domain.ExtractedInvoice) error {
	if err := inv.EnsureEditable(); err != nil {
		return err
	}
	if inv.IsReviewable() {
		return PrepareSave(inv)
	}
	if err := CheckComplete(inv); err != nil {
		return err
	}
	inv.Status = domain.InvoiceStatusReady
	return ApplySaveRules(inv)
}
