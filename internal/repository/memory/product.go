package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
)

// ProductRepository implements repository.ProductRepository in process.
// Listing preserves insertion order.
type ProductRepository struct {
	mu       sync.RWMutex
	products map[string]domain.Product
	order    []string
}

// NewProductRepository creates a repository holding the given products.
func NewProductRepository(products ...domain.Product) *ProductRepository {
	r := &ProductRepository{products: make(map[string]domain.Product, len(products))}
	now := time.Now().UTC()
	for _, p := range products {
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
			p.UpdatedAt = now
		}
		if _, dup := r.products[p.ID]; !dup {
			r.order = append(r.order, p.ID)
		}
		r.products[p.ID] = cloneProduct(p)
	}
	return r
}

// NewSeededProductRepository creates a repository holding the embedded catalog.
func NewSeededProductRepository() (*ProductRepository, error) {
	products, err := SeedCatalog()
	if err != nil {
		return nil, err
	}
	return NewProductRepository(products...), nil
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(_ context.Context, id string) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return nil, apperrors.NotFound("product", id)
	}
	out := cloneProduct(p)
	return &out, nil
}

// List returns one page of products matching the filter and the total match count.
func (r *ProductRepository) List(_ context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []domain.Product
	for _, id := range r.order {
		p := r.products[id]
		if filter.Category != nil && p.Category != *filter.Category {
			continue
		}
		if filter.InStock != nil && p.Purchasable() != *filter.InStock {
			continue
		}
		if filter.Featured != nil && p.Featured != *filter.Featured {
			continue
		}
		matched = append(matched, cloneProduct(p))
	}

	params := normalize(filter.Params)
	start, end := params.Window(len(matched))
	page := matched[start:end]
	if page == nil {
		page = []domain.Product{}
	}
	return page, len(matched), nil
}

// Create inserts a new product.
func (r *ProductRepository) Create(_ context.Context, p *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[p.ID]; ok {
		return apperrors.AlreadyExists("product", "id", p.ID)
	}
	r.products[p.ID] = cloneProduct(*p)
	r.order = append(r.order, p.ID)
	return nil
}

// Update replaces an existing product, keeping its creation time.
func (r *ProductRepository) Update(_ context.Context, p *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.products[p.ID]
	if !ok {
		return apperrors.NotFound("product", p.ID)
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	r.products[p.ID] = cloneProduct(*p)
	return nil
}

// UpdatePrice changes a product's price and original price.
func (r *ProductRepository) UpdatePrice(_ context.Context, id string, price decimal.Decimal, original decimal.NullDecimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return apperrors.NotFound("product", id)
	}
	p.Price = price
	p.OriginalPrice = original
	p.UpdatedAt = time.Now().UTC()
	r.products[id] = p
	return nil
}

// Delete removes a product.
func (r *ProductRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		return apperrors.NotFound("product", id)
	}
	delete(r.products, id)
	r.order = slices.DeleteFunc(r.order, func(v string) bool { return v == id })
	return nil
}

func cloneProduct(p domain.Product) domain.Product {
	p.Sizes = slices.Clone(p.Sizes)
	p.Colors = slices.Clone(p.Colors)
	if p.StockCount != nil {
		n := *p.StockCount
		p.StockCount = &n
	}
	return p
}

func normalize(p pagination.Params) pagination.Params {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = pagination.DefaultPerPage
	}
	return p
}
