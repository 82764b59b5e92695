package quotations

// ItemInput is the quantity/price pair the calculator works on.
type ItemInput struct {
	Quantity  float64
	UnitPrice float64
}

// Totals holds the derived financial attributes of a quotation.
type Totals struct {
	Subtotal       float64
	DiscountAmount float64
	VATAmount      float64
	GrandTotal     float64
}

// ComputeTotals derives the stored financial fields from the line items and
// the document-level percentages. VAT applies to the post-discount taxable
// amount, not the raw subtotal. Line totals are summed in input order so the
// result is deterministic for a given input.
func ComputeTotals(items []ItemInput, discountPercent, vatPercent float64) Totals {
	var subtotal float64
	for _, item := range items {
		subtotal += item.Quantity * item.UnitPrice
	}
	discountAmount := subtotal * discountPercent / 100
	taxable := subtotal - discountAmount
	vatAmount := taxable * vatPercent / 100
	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: discountAmount,
		VATAmount:      vatAmount,
		GrandTotal:     taxable + vatAmount,
	}
}

// LineTotal computes the stored total for a single line.
func LineTotal(quantity, unitPrice float64) float64 {
	return quantity * unitPrice
}
