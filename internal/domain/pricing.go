package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PricingConfig holds the checkout pricing rules. It is the single source of
// the free-shipping threshold, flat fee and tax rate.
type PricingConfig struct {
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
	TaxRate               decimal.Decimal
	Currency              string
}

// DefaultPricing returns $75.00 free shipping, $9.99 flat fee and 8% tax.
func DefaultPricing() PricingConfig {
	return PricingConfig{
		FreeShippingThreshold: decimal.RequireFromString("75.00"),
		FlatShippingFee:       decimal.RequireFromString("9.99"),
		TaxRate:               decimal.RequireFromString("0.08"),
		Currency:              "USD",
	}
}

// Validate rejects configurations that would produce nonsensical totals.
func (pc PricingConfig) Validate() error {
	if pc.FreeShippingThreshold.IsNegative() {
		return fmt.Errorf("free shipping threshold must not be negative, got %s", pc.FreeShippingThreshold)
	}
	if err := checkAmount(pc.FlatShippingFee); err != nil {
		return fmt.Errorf("flat shipping fee: %w", err)
	}
	if pc.TaxRate.IsNegative() || pc.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("tax rate must be in [0, 1), got %s", pc.TaxRate)
	}
	if len(pc.Currency) != 3 {
		return fmt.Errorf("currency must be a 3-letter ISO code, got %q", pc.Currency)
	}
	return nil
}

// OrderTotals is the derived price breakdown of a cart.
type OrderTotals struct {
	Subtotal              decimal.Decimal `json:"subtotal"`
	Shipping              decimal.Decimal `json:"shipping"`
	Tax                   decimal.Decimal `json:"tax"`
	Total                 decimal.Decimal `json:"total"`
	FreeShippingRemaining decimal.Decimal `json:"free_shipping_remaining"`
	Currency              string          `json:"currency"`
}

// TotalMinorUnits is the amount handed to the payment gateway.
func (t OrderTotals) TotalMinorUnits() int64 {
	return ToMinorUnits(t.Total)
}

// ComputeOrderTotals prices the cart's subtotal. It is pure.
func ComputeOrderTotals(c *Cart, pc PricingConfig) OrderTotals {
	return TotalsForSubtotal(c.Subtotal, pc)
}

// TotalsForSubtotal applies the pricing rules to a subtotal. Shipping is
// waived at or above the threshold; tax is subtotal × rate rounded to cents;
// the total is rounded to cents.
func TotalsForSubtotal(subtotal decimal.Decimal, pc PricingConfig) OrderTotals {
	shipping := pc.FlatShippingFee
	remaining := pc.FreeShippingThreshold.Sub(subtotal)
	if subtotal.GreaterThanOrEqual(pc.FreeShippingThreshold) {
		shipping = decimal.Zero
		remaining = decimal.Zero
	}

	tax := subtotal.Mul(pc.TaxRate).Round(2)
	total := subtotal.Add(shipping).Add(tax).Round(2)

	return OrderTotals{
		Subtotal:              subtotal,
		Shipping:              shipping,
		Tax:                   tax,
		Total:                 total,
		FreeShippingRemaining: remaining,
		Currency:              pc.Currency,
	}
}
