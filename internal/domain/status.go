package domain

// AllItemsLinked reports whether every row has a catalog item link.
func (inv *ExtractedInvoice) AllItemsLinked() bool {
	for i := range inv.Items {
		if inv.Items[i].ItemLink == "" {
			return false
		}
	}
	return true
}

// MappingStatus is the status a saved, reviewable invoice settles on:
// Mapped once the supplier and every item are linked, Ready otherwise.
func (inv *ExtractedInvoice) MappingStatus() InvoiceStatus {
	if inv.SupplierLink != "" && inv.AllItemsLinked() {
		return InvoiceStatusMapped
	}
	return InvoiceStatusReady
}

// IsReviewable reports whether the save rules recompute the status.
func (inv *ExtractedInvoice) IsReviewable() bool {
	return inv.Status == InvoiceStatusReady || inv.Status == InvoiceStatusMapped
}

// EnsureEditable rejects any mutation of a converted invoice.
func (inv *ExtractedInvoice) EnsureEditable() error {
	if inv.Status == InvoiceStatusConverted {
		return ErrAlreadyConverted
	}
	return nil
}

// MarkConverted is the one-way transition into Converted.
func (inv *ExtractedInvoice) MarkConverted(purchaseInvoiceID string) error {
	if err := inv.EnsureEditable(); err != nil {
		return err
	}
	inv.PurchaseInvoiceLink = purchaseInvoiceID
	inv.Status = InvoiceStatusConverted
	return nil
}

// HasExtractedData reports whether a reconciled record has been stored.
func (inv *ExtractedInvoice) HasExtractedData() bool {
	s := string(inv.ExtractedData)
	return s != "" && s != "null"
}
