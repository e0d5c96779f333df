// Package totals computes line and document monetary totals. All math runs
// on decimals rounded half-up to 2 places at every step, line level
// included, so a document total always equals the sum of its line totals.
package totals

import (
	"github.com/shopspring/decimal"
)

// Treatment enumerates tax treatment codes per line.
type Treatment string

const (
	// TreatmentTaxed applies the tenant rate to the line subtotal.
	TreatmentTaxed Treatment = "TAXED"
	// TreatmentExempt carries no tax.
	TreatmentExempt Treatment = "EXEMPT"
	// TreatmentUnaffected is outside the scope of the tax altogether.
	TreatmentUnaffected Treatment = "UNAFFECTED"
)

// LineInput carries the raw figures of one document line.
type LineInput struct {
	Qty       decimal.Decimal
	UnitPrice decimal.Decimal
	Discount  decimal.Decimal
	Treatment Treatment
}

// LineTotals holds the computed amounts of one line.
// Total = Subtotal + Tax; Subtotal = Qty*UnitPrice - Discount, 2dp half-up.
type LineTotals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// DocumentTotals aggregates line totals.
type DocumentTotals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// ComputeLine computes one line at the given percent rate.
func ComputeLine(in LineInput, rate decimal.Decimal) LineTotals {
	subtotal := in.Qty.Mul(in.UnitPrice).Sub(in.Discount).Round(2)
	tax := decimal.Zero
	if in.Treatment == TreatmentTaxed {
		tax = subtotal.Mul(rate).Div(hundred).Round(2)
	}
	total := subtotal.Add(tax).Round(2)
	return LineTotals{Subtotal: subtotal, Tax: tax, Total: total}
}

// ComputeDocument computes every line and the document aggregate. When the
// document is export/zero-rated, tax is forced to zero regardless of line
// treatments and the line taxes are zeroed to keep the sum identity.
func ComputeDocument(lines []LineInput, rate decimal.Decimal, export bool) (DocumentTotals, []LineTotals) {
	effective := rate
	if export {
		effective = decimal.Zero
	}
	out := make([]LineTotals, 0, len(lines))
	doc := DocumentTotals{Subtotal: decimal.Zero, Tax: decimal.Zero, Total: decimal.Zero}
	for _, line := range lines {
		lt := ComputeLine(line, effective)
		if export {
			lt.Tax = decimal.Zero
			lt.Total = lt.Subtotal
		}
		out = append(out, lt)
		doc.Subtotal = doc.Subtotal.Add(lt.Subtotal)
		doc.Tax = doc.Tax.Add(lt.Tax)
	}
	doc.Subtotal = doc.Subtotal.Round(2)
	doc.Tax = doc.Tax.Round(2)
	doc.Total = doc.Subtotal.Add(doc.Tax).Round(2)
	return doc, out
}
