package validator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"fatura/internal/domain"
)

// matchTolerance is the strict bound below which two money values match.
var matchTolerance = decimal.New(1, -2)

// DefaultTaxRate is the rate assumed when a taxed invoice has no subtotal.
const DefaultTaxRate = 15.0

// mathRule checks an aggregate against the value derived from the rows.
type mathRule struct {
	key      string
	name     string
	validate func(*domain.ExtractedInvoice) []Result
}

func (v *mathRule) Key() string  { return v.key }
func (v *mathRule) Name() string { return v.name }

func (v *mathRule) Check(inv *domain.ExtractedInvoice) []Result {
	return v.validate(inv)
}

func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func dec(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func moneyMatch(a, b float64) bool {
	return dec(a).Sub(dec(b)).Abs().LessThan(matchTolerance)
}

func mathResult(passed bool, fieldPath string, expected, actual float64, ruleName string) Result {
	msg := fmt.Sprintf("%s: %s matches", ruleName, fieldPath)
	if !passed {
		msg = fmt.Sprintf("%s: %s mismatch (expected %.2f, got %.2f)", ruleName, fieldPath, expected, actual)
	}
	return Result{
		Passed: passed, FieldPath: fieldPath,
		Expected: fmt.Sprintf("%.2f", expected), Actual: fmt.Sprintf("%.2f", actual), Message: msg,
	}
}

// Totals is a subtotal/tax/total triple.
type Totals struct {
	Subtotal    float64 `json:"subtotal"`
	TaxAmount   float64 `json:"tax_amount"`
	TotalAmount float64 `json:"total_amount"`
}

// ItemTotals derives the aggregates from qty x rate and row tax.
func ItemTotals(inv *domain.ExtractedInvoice) Totals {
	sub := decimal.Zero
	tax := decimal.Zero
	for i := range inv.Items {
		it := &inv.Items[i]
		sub = sub.Add(dec(it.Quantity).Mul(dec(it.Rate)))
		tax = tax.Add(dec(it.TaxAmount))
	}
	sub = sub.Round(2)
	tax = tax.Round(2)
	return Totals{
		Subtotal:    sub.InexactFloat64(),
		TaxAmount:   tax.InexactFloat64(),
		TotalAmount: round2(sub.Add(tax)),
	}
}

// TotalsRules returns the aggregate checks.
func TotalsRules() []*mathRule {
	return []*mathRule{
		{
			key: "math.totals.subtotal", name: "Math: Subtotal",
			validate: func(d *domain.ExtractedInvoice) []Result {
				want := ItemTotals(d).Subtotal
				return []Result{mathResult(moneyMatch(want, d.Subtotal), "subtotal", want, d.Subtotal, "Math: Subtotal")}
			},
		},
		{
			key: "math.totals.tax_amount", name: "Math: Tax Amount",
			validate: func(d *domain.ExtractedInvoice) []Result {
				want := ItemTotals(d).TaxAmount
				return []Result{mathResult(moneyMatch(want, d.TaxAmount), "tax_amount", want, d.TaxAmount, "Math: Tax Amount")}
			},
		},
		{
			key: "math.totals.total_amount", name: "Math: Total Amount",
			validate: func(d *domain.ExtractedInvoice) []Result {
				want := ItemTotals(d).TotalAmount
				return []Result{mathResult(moneyMatch(want, d.TotalAmount), "total_amount", want, d.TotalAmount, "Math: Total Amount")}
			},
		},
	}
}

// ItemSummary is one row of the totals report.
type ItemSummary struct {
	ItemName     string  `json:"item_name"`
	Quantity     float64 `json:"quantity"`
	Rate         float64 `json:"rate"`
	ItemTotal    float64 `json:"item_total"`
	TaxAmount    float64 `json:"tax_amount"`
	TotalWithTax float64 `json:"total_with_tax"`
}

// TotalsReport compares item-derived aggregates with the stored ones.
type TotalsReport struct {
	FromItems         Totals        `json:"from_items"`
	FromExtracted     Totals        `json:"from_extracted"`
	TaxRatePercentage float64       `json:"tax_rate_percentage"`
	SubtotalMatch     bool          `json:"subtotal_match"`
	TaxMatch          bool          `json:"tax_match"`
	TotalMatch        bool          `json:"total_match"`
	AllMatch          bool          `json:"all_match"`
	Differences       Totals        `json:"differences"`
	ItemsSummary      []ItemSummary `json:"items_summary"`
	Results           []Result      `json:"results"`
	// Checks is the full review checklist, completeness included.
	Checks []Result `json:"checks"`
}

// ValidateTotals builds the totals report for inv without changing it.
func ValidateTotals(inv *domain.ExtractedInvoice) *TotalsReport {
	items := ItemTotals(inv)
	stored := Totals{Subtotal: inv.Subtotal, TaxAmount: inv.TaxAmount, TotalAmount: inv.TotalAmount}

	var results []Result
	for _, r := range TotalsRules() {
		results = append(results, r.Check(inv)...)
	}

	rep := &TotalsReport{
		FromItems:         items,
		FromExtracted:     stored,
		TaxRatePercentage: taxRate(stored.TaxAmount, stored.Subtotal),
		SubtotalMatch:     results[0].Passed,
		TaxMatch:          results[1].Passed,
		TotalMatch:        results[2].Passed,
		Differences: Totals{
			Subtotal:    round2(dec(items.Subtotal).Sub(dec(stored.Subtotal))),
			TaxAmount:   round2(dec(items.TaxAmount).Sub(dec(stored.TaxAmount))),
			TotalAmount: round2(dec(items.TotalAmount).Sub(dec(stored.TotalAmount))),
		},
		ItemsSummary: make([]ItemSummary, 0, len(inv.Items)),
		Results:      results,
		Checks:       reviewChecks.Run(inv),
	}
	rep.AllMatch = rep.SubtotalMatch && rep.TaxMatch && rep.TotalMatch

	for i := range inv.Items {
		it := &inv.Items[i]
		amount := dec(it.Quantity).Mul(dec(it.Rate))
		rep.ItemsSummary = append(rep.ItemsSummary, ItemSummary{
			ItemName:     it.ItemName,
			Quantity:     it.Quantity,
			Rate:         it.Rate,
			ItemTotal:    round2(amount),
			TaxAmount:    round2(dec(it.TaxAmount)),
			TotalWithTax: round2(amount.Add(dec(it.TaxAmount))),
		})
	}
	return rep
}

// FixTotals overwrites the aggregates of inv with the item-derived values
// and refreshes the tax rate when there is a subtotal. It returns the
// values written.
func FixTotals(inv *domain.ExtractedInvoice) Totals {
	t := ItemTotals(inv)
	inv.Subtotal = t.Subtotal
	inv.TaxAmount = t.TaxAmount
	inv.TotalAmount = t.TotalAmount
	if t.Subtotal > 0 {
		inv.TaxRate = taxRate(t.TaxAmount, t.Subtotal)
	}
	return t
}

// taxRate is tax/subtotal as a percentage rounded to 2, or 0 without a subtotal.
func taxRate(tax, subtotal float64) float64 {
	if subtotal <= 0 {
		return 0
	}
	return round2(dec(tax).Div(dec(subtotal)).Mul(decimal.NewFromInt(100)))
}

// PurchaseTaxRate is the rate put on a purchase invoice draft: the
// effective rate when there is a subtotal, DefaultTaxRate otherwise.
func PurchaseTaxRate(tax, subtotal float64) float64 {
	if subtotal == 0 {
		return DefaultTaxRate
	}
	return round2(dec(tax).Div(dec(subtotal)).Mul(decimal.NewFromInt(100)))
}
