package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Category groups products in the catalog.
type Category string

const (
	CategoryTees    Category = "tees"
	CategoryHoodies Category = "hoodies"
	CategoryBottoms Category = "bottoms"
)

// Categories lists every valid category in display order.
var Categories = []Category{CategoryTees, CategoryHoodies, CategoryBottoms}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return slices.Contains(Categories, c)
}

// Product is a catalog entry. Carts only read it: the unit price and the
// declared sizes and colors.
type Product struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	Description   string              `json:"description,omitempty"`
	Price         decimal.Decimal     `json:"price"`
	OriginalPrice decimal.NullDecimal `json:"original_price"`
	Category      Category            `json:"category"`
	Sizes         []string            `json:"sizes"`
	Colors        []string            `json:"colors"`
	InStock       bool                `json:"in_stock"`
	StockCount    *int                `json:"stock_count,omitempty"`
	Featured      bool                `json:"featured"`
	NewArrival    bool                `json:"new_arrival"`
	ImageURL      string              `json:"image_url,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// OffersSize reports whether size is one of the product's sizes.
func (p *Product) OffersSize(size string) bool {
	return slices.Contains(p.Sizes, size)
}

// OffersColor reports whether color is one of the product's colors.
func (p *Product) OffersColor(color string) bool {
	return slices.Contains(p.Colors, color)
}

// Purchasable reports whether the product may be added to a cart.
func (p *Product) Purchasable() bool {
	if !p.InStock {
		return false
	}
	return p.StockCount == nil || *p.StockCount > 0
}

// OnSale reports whether an original price above the current price is set.
func (p *Product) OnSale() bool {
	return p.OriginalPrice.Valid && p.OriginalPrice.Decimal.GreaterThan(p.Price)
}

// Validate checks the catalog invariants for a product about to be stored.
func (p *Product) Validate() error {
	var problems []string

	if strings.TrimSpace(p.Name) == "" {
		problems = append(problems, "name is required")
	}
	if !p.Category.Valid() {
		problems = append(problems, fmt.Sprintf("category %q is not one of tees, hoodies, bottoms", p.Category))
	}
	if err := checkAmount(p.Price); err != nil {
		problems = append(problems, "price: "+err.Error())
	}
	if p.OriginalPrice.Valid {
		if err := checkAmount(p.OriginalPrice.Decimal); err != nil {
			problems = append(problems, "original_price: "+err.Error())
		} else if p.OriginalPrice.Decimal.LessThan(p.Price) {
			problems = append(problems, "original_price must not be below price")
		}
	}
	if len(p.Sizes) == 0 {
		problems = append(problems, "at least one size is required")
	}
	if len(p.Colors) == 0 {
		problems = append(problems, "at least one color is required")
	}
	if hasDuplicates(p.Sizes) {
		problems = append(problems, "sizes must be unique")
	}
	if hasDuplicates(p.Colors) {
		problems = append(problems, "colors must be unique")
	}
	if p.StockCount != nil && *p.StockCount < 0 {
		problems = append(problems, "stock_count must not be negative")
	}

	if len(problems) > 0 {
		return apperrors.InvalidInput(strings.Join(problems, "; "))
	}
	return nil
}

func hasDuplicates(values []string) bool {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			return true
		}
		seen[v] = struct{}{}
	}
	return false
}
