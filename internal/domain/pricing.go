package domain

// PricingInputs carries the knobs the totals calculation depends on. All
// amounts are in the smallest currency unit.
type PricingInputs struct {
	ShippingFee           int64
	FreeShippingThreshold int64
	PercentOff            int
}

// ComputeTotals rolls line items into order totals. The discount applies to
// the subtotal only; shipping is waived when the discounted subtotal meets or
// exceeds the free-shipping threshold (boundary inclusive).
func ComputeTotals(items []OrderLineItem, in PricingInputs) OrderTotals {
	var subtotal int64
	for _, item := range items {
		subtotal += item.Total
	}

	var discount int64
	if in.PercentOff > 0 {
		discount = subtotal * int64(in.PercentOff) / 100
	}

	shipping := in.ShippingFee
	if FreeShipping(subtotal-discount, in.FreeShippingThreshold) {
		shipping = 0
	}

	return OrderTotals{
		Subtotal: subtotal,
		Discount: discount,
		Shipping: shipping,
		Total:    subtotal - discount + shipping,
	}
}

// FreeShipping reports whether the discounted subtotal qualifies for waived
// shipping.
func FreeShipping(discountedSubtotal, threshold int64) bool {
	return threshold > 0 && discountedSubtotal >= threshold
}
