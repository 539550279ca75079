// Package reconcile repairs and cross-checks the numbers of a parsed
// invoice response. It performs no I/O.
package reconcile

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"fatura/internal/domain"
	"fatura/internal/parse"
)

// Tolerance is the largest difference at which a reported figure is
// still trusted over a computed one.
var Tolerance = decimal.New(1, -2)

// Reconcile builds a record from a decoded model response. Line items are
// normalized first; subtotal, tax and total are then settled independently
// against the item sums:
//
//   - subtotal takes the item sum when there are items and the reported
//     value is zero or off by more than Tolerance;
//   - tax takes the item sum only when that sum is positive and the
//     reported value is off by more than Tolerance, so a zero item sum
//     never erases a reported tax;
//   - total takes subtotal+tax when the reported value is zero or off by
//     more than Tolerance.
//
// The validation report compares computed values with the reported ones
// as they were before any override.
func Reconcile(doc map[string]any) *domain.InvoiceRecord {
	rawItems := objects(doc["items"])
	items := make([]domain.LineItem, 0, len(rawItems))

	calcSubtotal := decimal.Zero
	calcTax := decimal.Zero
	for _, raw := range rawItems {
		item, total, tax := lineItem(raw)
		items = append(items, item)
		calcSubtotal = calcSubtotal.Add(total)
		calcTax = calcTax.Add(tax)
	}
	calcSubtotal = calcSubtotal.Round(2)
	calcTax = calcTax.Round(2)

	reportedSubtotal := parse.Decimal(doc["subtotal"]).Round(2)
	reportedTax := parse.Decimal(doc["tax_amount"]).Round(2)
	reportedTotal := parse.Decimal(doc["total_amount"]).Round(2)

	subtotal := reportedSubtotal
	if len(items) > 0 && (reportedSubtotal.IsZero() || differs(reportedSubtotal, calcSubtotal)) {
		subtotal = calcSubtotal
	}

	tax := reportedTax
	if calcTax.IsPositive() && differs(reportedTax, calcTax) {
		tax = calcTax
	}

	calcTotal := subtotal.Add(tax).Round(2)
	total := reportedTotal
	if reportedTotal.IsZero() || differs(reportedTotal, calcTotal) {
		total = calcTotal
	}

	currency := text(doc["currency"])
	if currency == "" {
		currency = domain.DefaultCurrency
	}

	return &domain.InvoiceRecord{
		Supplier:      text(doc["supplier"]),
		SupplierAr:    text(doc["supplier_ar"]),
		InvoiceNumber: text(doc["invoice_number"]),
		Date:          text(doc["date"]),
		DueDate:       text(doc["due_date"]),
		Currency:      currency,
		Subtotal:      subtotal.InexactFloat64(),
		TaxAmount:     tax.InexactFloat64(),
		TotalAmount:   total.InexactFloat64(),
		Items:         items,
		Validation: domain.ValidationReport{
			SubtotalCalculated: calcSubtotal.InexactFloat64(),
			SubtotalExtracted:  reportedSubtotal.InexactFloat64(),
			TaxCalculated:      calcTax.InexactFloat64(),
			TaxExtracted:       reportedTax.InexactFloat64(),
			TotalCalculated:    calcTotal.InexactFloat64(),
			TotalExtracted:     reportedTotal.InexactFloat64(),
			SubtotalMatch:      matches(calcSubtotal, reportedSubtotal),
			TaxMatch:           matches(calcTax, reportedTax),
			TotalMatch:         matches(calcTotal, reportedTotal),
		},
	}
}

// lineItem normalizes one item and returns it with its rounded total and tax.
func lineItem(raw map[string]any) (domain.LineItem, decimal.Decimal, decimal.Decimal) {
	qty := parse.Decimal(raw["quantity"])
	price := parse.Decimal(raw["unit_price"])

	total := parse.Decimal(raw["item_total"]).Round(2)
	if total.IsZero() {
		total = qty.Mul(price).Round(2)
	}
	tax := parse.Decimal(raw["tax_amount"]).Round(2)

	return domain.LineItem{
		Description:   text(raw["description"]),
		DescriptionAr: text(raw["description_ar"]),
		Quantity:      qty.InexactFloat64(),
		UnitPrice:     price.InexactFloat64(),
		ItemTotal:     total.InexactFloat64(),
		TaxAmount:     tax.InexactFloat64(),
		TotalWithTax:  total.Add(tax).Round(2).InexactFloat64(),
	}, total, tax
}

func differs(reported, calculated decimal.Decimal) bool {
	return reported.Sub(calculated).Abs().GreaterThan(Tolerance)
}

func matches(calculated, extracted decimal.Decimal) bool {
	return calculated.Sub(extracted).Abs().LessThan(Tolerance)
}

func objects(v any) []map[string]any {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(list))
	for _, e := range list {
		if m, ok := e.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// Round2 rounds a money value half away from zero to two places.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Differs reports whether two money values differ by more than Tolerance.
func Differs(a, b float64) bool {
	return differs(decimal.NewFromFloat(a), decimal.NewFromFloat(b))
}
