package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// CreateProductInput holds the parameters for adding a product to the catalog.
type CreateProductInput struct {
	Name          string   `json:"name" validate:"required,max=200"`
	Description   string   `json:"description" validate:"max=2000"`
	Price         string   `json:"price" validate:"required,money"`
	OriginalPrice *string  `json:"original_price,omitempty" validate:"omitempty,money"`
	Category      string   `json:"category" validate:"required,oneof=tees hoodies bottoms"`
	Sizes         []string `json:"sizes" validate:"required,min=1,dive,required"`
	Colors        []string `json:"colors" validate:"required,min=1,dive,required"`
	InStock       *bool    `json:"in_stock,omitempty"`
	StockCount    *int     `json:"stock_count,omitempty" validate:"omitempty,gte=0"`
	Featured      bool     `json:"featured"`
	NewArrival    bool     `json:"new_arrival"`
	ImageURL      string   `json:"image_url" validate:"omitempty,url"`
}

// UpdateProductInput holds a partial product update. Nil fields are left unchanged.
type UpdateProductInput struct {
	Name        *string   `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string   `json:"description,omitempty" validate:"omitempty,max=2000"`
	Category    *string   `json:"category,omitempty" validate:"omitempty,oneof=tees hoodies bottoms"`
	Sizes       *[]string `json:"sizes,omitempty" validate:"omitempty,min=1,dive,required"`
	Colors      *[]string `json:"colors,omitempty" validate:"omitempty,min=1,dive,required"`
	InStock     *bool     `json:"in_stock,omitempty"`
	StockCount  *int      `json:"stock_count,omitempty" validate:"omitempty,gte=0"`
	Featured    *bool     `json:"featured,omitempty"`
	NewArrival  *bool     `json:"new_arrival,omitempty"`
	ImageURL    *string   `json:"image_url,omitempty" validate:"omitempty,url"`
}

// UpdatePriceInput sets a product's price. A nil OriginalPrice clears the sale.
type UpdatePriceInput struct {
	Price         string  `json:"price" validate:"required,money"`
	OriginalPrice *string `json:"original_price,omitempty" validate:"omitempty,money"`
}

// CatalogService implements the business logic for the product catalog.
type CatalogService struct {
	repo   repository.ProductRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(repo repository.ProductRepository, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// GetProduct retrieves a product by ID.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// ListProducts returns one page of products and the total match count.
func (s *CatalogService) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	if filter.Category != nil && !filter.Category.Valid() {
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf("unknown category %q", *filter.Category))
	}
	products, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	return products, total, nil
}

// CreateProduct validates and stores a new product.
func (s *CatalogService) CreateProduct(ctx context.Context, input CreateProductInput) (*domain.Product, error) {
	price, original, err := parsePrices(input.Price, input.OriginalPrice)
	if err != nil {
		return nil, err
	}

	inStock := true
	if input.InStock != nil {
		inStock = *input.InStock
	}

	now := s.now()
	p := &domain.Product{
		ID:            uuid.NewString(),
		Name:          input.Name,
		Description:   input.Description,
		Price:         price,
		OriginalPrice: original,
		Category:      domain.Category(input.Category),
		Sizes:         input.Sizes,
		Colors:        input.Colors,
		InStock:       inStock,
		StockCount:    input.StockCount,
		Featured:      input.Featured,
		NewArrival:    input.NewArrival,
		ImageURL:      input.ImageURL,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", p.ID),
		slog.String("category", string(p.Category)),
		slog.String("price", p.Price.StringFixed(2)),
	)
	return p, nil
}

// UpdateProduct applies a partial update. Prices change only through UpdatePrice.
func (s *CatalogService) UpdateProduct(ctx context.Context, id string, input UpdateProductInput) (*domain.Product, error) {
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		p.Name = *input.Name
	}
	if input.Description != nil {
		p.Description = *input.Description
	}
	if input.Category != nil {
		p.Category = domain.Category(*input.Category)
	}
	if input.Sizes != nil {
		p.Sizes = *input.Sizes
	}
	if input.Colors != nil {
		p.Colors = *input.Colors
	}
	if input.InStock != nil {
		p.InStock = *input.InStock
	}
	if input.StockCount != nil {
		p.StockCount = input.StockCount
	}
	if input.Featured != nil {
		p.Featured = *input.Featured
	}
	if input.NewArrival != nil {
		p.NewArrival = *input.NewArrival
	}
	if input.ImageURL != nil {
		p.ImageURL = *input.ImageURL
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.logger.InfoContext(ctx, "product updated", slog.String("product_id", p.ID))
	return p, nil
}

// UpdatePrice sets a product's price and optional pre-discount price. Carts
// keep the unit price captured when a line was added.
func (s *CatalogService) UpdatePrice(ctx context.Context, id string, input UpdatePriceInput) (*domain.Product, error) {
	price, original, err := parsePrices(input.Price, input.OriginalPrice)
	if err != nil {
		return nil, err
	}

	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	old := p.Price

	p.Price = price
	p.OriginalPrice = original
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.UpdatePrice(ctx, id, price, original); err != nil {
		return nil, fmt.Errorf("update product price: %w", err)
	}
	p.UpdatedAt = s.now()

	s.logger.InfoContext(ctx, "product price updated",
		slog.String("product_id", id),
		slog.String("old_price", old.StringFixed(2)),
		slog.String("new_price", price.StringFixed(2)),
	)
	return p, nil
}

// DeleteProduct removes a product from the catalog.
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("product id is required")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	s.logger.InfoContext(ctx, "product deleted", slog.String("product_id", id))
	return nil
}

func parsePrices(price string, original *string) (decimal.Decimal, decimal.NullDecimal, error) {
	p, err := domain.ParseAmount(price)
	if err != nil {
		return decimal.Zero, decimal.NullDecimal{}, apperrors.InvalidInput(fmt.Sprintf("price %q: %v", price, err))
	}

	var op decimal.NullDecimal
	if original != nil {
		d, err := domain.ParseAmount(*original)
		if err != nil {
			return decimal.Zero, decimal.NullDecimal{}, apperrors.InvalidInput(fmt.Sprintf("original_price %q: %v", *original, err))
		}
		op = decimal.NewNullDecimal(d)
	}
	return p, op, nil
}
