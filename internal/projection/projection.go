// Package projection maps a reconciled extraction onto the persisted
// invoice entity and resolves its catalog links.
package projection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"fatura/internal/domain"
	"fatura/internal/port"
	"fatura/internal/validator"
)

var tagPattern = regexp.MustCompile(`#([^#]+)#`)

// dateLayouts are tried in order for invoice and due dates.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"02-01-2006",
	"02.01.2006",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2 January 2006",
	"January 2, 2006",
	"02 Jan 2006",
}

// Projector applies reconciled records to extracted invoices.
type Projector struct {
	catalog port.CatalogRepository
	now     func() time.Time
}

// New creates a Projector backed by the catalog.
func New(catalog port.CatalogRepository) *Projector {
	return &Projector{catalog: catalog, now: time.Now}
}

// Apply overwrites the extracted fields and items of inv with rec.
//
// A complete result moves inv to Ready and runs the save rules, which may
// settle it on Mapped. An incomplete one keeps the data but leaves inv in
// Processing with the missing fields recorded in ExtractionError; the
// missing field labels are returned either way.
func (p *Projector) Apply(ctx context.Context, inv *domain.ExtractedInvoice, rec *domain.InvoiceRecord, modelUsed string) ([]string, error) {
	if err := inv.EnsureEditable(); err != nil {
		return nil, err
	}

	supplierName := strings.TrimSpace(rec.SupplierAr)
	if supplierName == "" {
		supplierName = strings.TrimSpace(rec.Supplier)
	}
	supplierLink, err := p.matchSupplier(ctx, supplierName)
	if err != nil {
		return nil, err
	}
	currency, err := p.resolveCurrency(ctx, rec.Currency)
	if err != nil {
		return nil, err
	}
	blob, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("projection.Apply: encoding record: %w", err)
	}

	items := make([]domain.ExtractedInvoiceItem, 0, len(rec.Items))
	for i := range rec.Items {
		item, err := p.projectItem(ctx, &rec.Items[i])
		if err != nil {
			return nil, err
		}
		item.InvoiceID = inv.ID
		item.Idx = i + 1
		items = append(items, item)
	}

	now := p.now().UTC()
	inv.SupplierName = supplierName
	inv.SupplierLink = supplierLink
	inv.InvoiceNumber = strings.TrimSpace(rec.InvoiceNumber)
	inv.InvoiceDate = ParseDate(rec.Date)
	inv.DueDate = ParseDate(rec.DueDate)
	inv.Currency = currency
	inv.Subtotal = rec.Subtotal
	inv.TaxAmount = rec.TaxAmount
	inv.TotalAmount = rec.TotalAmount
	inv.ExtractedData = blob
	inv.ExtractionModel = modelUsed
	inv.ExtractedAt = &now
	inv.Items = items

	missing := validator.MissingFields(inv)
	if len(missing) == 0 {
		inv.Status = domain.InvoiceStatusReady
		inv.ExtractionError = ""
	} else {
		inv.Status = domain.InvoiceStatusProcessing
		inv.ExtractionError = (&domain.IncompleteError{Missing: missing}).Error()
	}
	if err := validator.ApplySaveRules(inv); err != nil {
		return nil, err
	}
	return missing, nil
}

func (p *Projector) projectItem(ctx context.Context, li *domain.LineItem) (domain.ExtractedInvoiceItem, error) {
	desc := strings.TrimSpace(li.DescriptionAr)
	if desc == "" {
		desc = strings.TrimSpace(li.Description)
	}
	if desc == "" {
		desc = "Item"
	}
	qty := li.Quantity
	if qty == 0 {
		qty = 1
	}
	link, err := p.matchItem(ctx, desc)
	if err != nil {
		return domain.ExtractedInvoiceItem{}, err
	}
	lang := "en"
	if strings.TrimSpace(li.DescriptionAr) != "" {
		lang = "ar"
	}
	return domain.ExtractedInvoiceItem{
		ExtractedText: desc,
		ItemName:      desc,
		ItemLink:      link,
		Quantity:      qty,
		Rate:          li.UnitPrice,
		Amount:        li.ItemTotal,
		TaxAmount:     li.TaxAmount,
		TotalWithTax:  li.TotalWithTax,
		Language:      lang,
		Taxable:       li.TaxAmount > 0,
	}, nil
}

// matchSupplier returns the id of the first supplier whose name contains
// name, or "" when there is none.
func (p *Projector) matchSupplier(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", nil
	}
	s, err := p.catalog.FindSupplierLike(ctx, name)
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("projection: matching supplier: %w", err)
	}
	return s.ID, nil
}

// matchItem resolves a row description to a catalog item: an embedded
// #TAG# marker is looked up in item descriptions first, then the plain
// description is matched against item names.
func (p *Projector) matchItem(ctx context.Context, desc string) (string, error) {
	if m := tagPattern.FindStringSubmatch(desc); m != nil {
		if tag := strings.TrimSpace(m[1]); tag != "" {
			item, err := p.catalog.FindItemByTag(ctx, tag)
			switch {
			case err == nil:
				return item.ID, nil
			case !errors.Is(err, domain.ErrNotFound):
				return "", fmt.Errorf("projection: matching item tag: %w", err)
			}
		}
	}
	item, err := p.catalog.FindItemByNameLike(ctx, desc)
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("projection: matching item name: %w", err)
	}
	return item.ID, nil
}

// resolveCurrency defaults a blank code to SAR and keeps it only when the
// currency is known.
func (p *Projector) resolveCurrency(ctx context.Context, code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = domain.DefaultCurrency
	}
	ok, err := p.catalog.CurrencyExists(ctx, code)
	if err != nil {
		return "", fmt.Errorf("projection: checking currency: %w", err)
	}
	if !ok {
		return "", nil
	}
	return code, nil
}

// ParseDate parses s with the known layouts; blank or unparseable input
// yields nil.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d
		}
	}
	return nil
}
