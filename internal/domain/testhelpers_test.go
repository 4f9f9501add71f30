package domain

import (
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func tee() *Product {
	return &Product{
		ID:       "tee-001",
		Name:     "Essential Box Tee",
		Price:    dec("29.99"),
		Category: CategoryTees,
		Sizes:    []string{"S", "M", "L", "XL"},
		Colors:   []string{"Black", "White"},
		InStock:  true,
	}
}

func hoodie() *Product {
	return &Product{
		ID:       "hoodie-001",
		Name:     "Heavyweight Hoodie",
		Price:    dec("65.00"),
		Category: CategoryHoodies,
		Sizes:    []string{"M", "L"},
		Colors:   []string{"Black", "Olive"},
		InStock:  true,
	}
}

func assertSubtotalConsistent(t interface {
	Helper()
	Errorf(format string, args ...any)
}, c *Cart) {
	t.Helper()
	if computed, ok := c.VerifySubtotal(); !ok {
		t.Errorf("subtotal drift: running %s, computed %s", c.Subtotal, computed)
	}
}
