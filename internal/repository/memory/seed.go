package memory

import (
	_ "embed"
	"fmt"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/utafrali/storefront/internal/domain"
)

//go:embed seed/catalog.yaml
var seedCatalog []byte

type catalogFile struct {
	Products []catalogEntry `yaml:"products"`
}

// catalogEntry keeps prices as strings so they parse as exact decimals.
type catalogEntry struct {
	ID            string   `yaml:"id"`
	Name          string   `yaml:"name"`
	Description   string   `yaml:"description"`
	Price         string   `yaml:"price"`
	OriginalPrice string   `yaml:"original_price"`
	Category      string   `yaml:"category"`
	Sizes         []string `yaml:"sizes"`
	Colors        []string `yaml:"colors"`
	InStock       bool     `yaml:"in_stock"`
	StockCount    *int     `yaml:"stock_count"`
	Featured      bool     `yaml:"featured"`
	NewArrival    bool     `yaml:"new_arrival"`
	ImageURL      string   `yaml:"image_url"`
}

// SeedCatalog returns the embedded initial catalog.
func SeedCatalog() ([]domain.Product, error) {
	return ParseCatalog(seedCatalog)
}

// ParseCatalog decodes a YAML catalog and validates every product in it.
func ParseCatalog(data []byte) ([]domain.Product, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	products := make([]domain.Product, 0, len(file.Products))
	seen := make(map[string]bool, len(file.Products))
	for i, e := range file.Products {
		p, err := e.toProduct()
		if err != nil {
			return nil, fmt.Errorf("catalog entry %d (%s): %w", i, e.ID, err)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("catalog entry %d: duplicate product id %s", i, p.ID)
		}
		seen[p.ID] = true
		products = append(products, p)
	}
	return products, nil
}

func (e catalogEntry) toProduct() (domain.Product, error) {
	price, err := domain.ParseAmount(e.Price)
	if err != nil {
		return domain.Product{}, fmt.Errorf("price: %w", err)
	}

	var original decimal.NullDecimal
	if e.OriginalPrice != "" {
		d, err := domain.ParseAmount(e.OriginalPrice)
		if err != nil {
			return domain.Product{}, fmt.Errorf("original_price: %w", err)
		}
		original = decimal.NewNullDecimal(d)
	}

	p := domain.Product{
		ID:            e.ID,
		Name:          e.Name,
		Description:   e.Description,
		Price:         price,
		OriginalPrice: original,
		Category:      domain.Category(e.Category),
		Sizes:         e.Sizes,
		Colors:        e.Colors,
		InStock:       e.InStock,
		StockCount:    e.StockCount,
		Featured:      e.Featured,
		NewArrival:    e.NewArrival,
		ImageURL:      e.ImageURL,
	}
	if err := p.Validate(); err != nil {
		return domain.Product{}, err
	}
	return p, nil
}
