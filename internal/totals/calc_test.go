package totals

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestComputeDocumentMixedTreatments(t *testing.T) {
	lines := []LineInput{
		{Qty: dec("2"), UnitPrice: dec("100"), Discount: decimal.Zero, Treatment: TreatmentTaxed},
		{Qty: dec("1"), UnitPrice: dec("50"), Discount: decimal.Zero, Treatment: TreatmentExempt},
	}

	doc, lineTotals := ComputeDocument(lines, dec("18"), false)

	require.Len(t, lineTotals, 2)
	require.Equal(t, "200.00", lineTotals[0].Subtotal.StringFixed(2))
	require.Equal(t, "36.00", lineTotals[0].Tax.StringFixed(2))
	require.Equal(t, "50.00", lineTotals[1].Subtotal.StringFixed(2))
	require.Equal(t, "0.00", lineTotals[1].Tax.StringFixed(2))

	require.Equal(t, "250.00", doc.Subtotal.StringFixed(2))
	require.Equal(t, "36.00", doc.Tax.StringFixed(2))
	require.Equal(t, "286.00", doc.Total.StringFixed(2))
}

func TestComputeLineDiscountAndRounding(t *testing.T) {
	// 3 * 0.335 = 1.005 rounds half-up to 1.01 at the line level.
	lt := ComputeLine(LineInput{Qty: dec("3"), UnitPrice: dec("0.335"), Treatment: TreatmentTaxed}, dec("18"))
	require.Equal(t, "1.01", lt.Subtotal.StringFixed(2))
	require.Equal(t, "0.18", lt.Tax.StringFixed(2))
	require.Equal(t, "1.19", lt.Total.StringFixed(2))

	lt = ComputeLine(LineInput{Qty: dec("2"), UnitPrice: dec("100"), Discount: dec("25.50"), Treatment: TreatmentTaxed}, dec("18"))
	require.Equal(t, "174.50", lt.Subtotal.StringFixed(2))
	require.Equal(t, "31.41", lt.Tax.StringFixed(2))
	require.Equal(t, "205.91", lt.Total.StringFixed(2))
}

func TestComputeDocumentExportZeroRated(t *testing.T) {
	lines := []LineInput{
		{Qty: dec("4"), UnitPrice: dec("75"), Treatment: TreatmentTaxed},
		{Qty: dec("1"), UnitPrice: dec("20"), Treatment: TreatmentTaxed},
	}

	doc, lineTotals := ComputeDocument(lines, dec("18"), true)

	require.Equal(t, "320.00", doc.Subtotal.StringFixed(2))
	require.Equal(t, "0.00", doc.Tax.StringFixed(2))
	require.Equal(t, "320.00", doc.Total.StringFixed(2))
	for _, lt := range lineTotals {
		require.True(t, lt.Tax.IsZero())
		require.True(t, lt.Total.Equal(lt.Subtotal))
	}
}

func TestComputeDocumentSumIdentity(t *testing.T) {
	lines := []LineInput{
		{Qty: dec("7"), UnitPrice: dec("3.333"), Treatment: TreatmentTaxed},
		{Qty: dec("2"), UnitPrice: dec("9.995"), Discount: dec("0.01"), Treatment: TreatmentTaxed},
		{Qty: dec("5"), UnitPrice: dec("1.111"), Treatment: TreatmentUnaffected},
	}

	doc, lineTotals := ComputeDocument(lines, dec("18"), false)

	sumSub, sumTax := decimal.Zero, decimal.Zero
	for _, lt := range lineTotals {
		sumSub = sumSub.Add(lt.Subtotal)
		sumTax = sumTax.Add(lt.Tax)
	}
	require.True(t, doc.Subtotal.Equal(sumSub))
	require.True(t, doc.Tax.Equal(sumTax))
	require.True(t, doc.Total.Equal(doc.Subtotal.Add(doc.Tax)))
}
