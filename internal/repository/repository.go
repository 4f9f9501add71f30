package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/pagination"
)

// ProductFilter defines filter criteria for listing products.
type ProductFilter struct {
	Category *domain.Category
	InStock  *bool
	Featured *bool
	pagination.Params
}

// ProductRepository defines the interface for catalog persistence.
type ProductRepository interface {
	// GetByID retrieves a product by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// List returns products matching the filter along with the total count.
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, int, error)

	// Create inserts a new product.
	Create(ctx context.Context, product *domain.Product) error

	// Update replaces an existing product.
	Update(ctx context.Context, product *domain.Product) error

	// UpdatePrice changes only the current and original price of a product.
	UpdatePrice(ctx context.Context, id string, price decimal.Decimal, original decimal.NullDecimal) error

	// Delete removes a product.
	Delete(ctx context.Context, id string) error
}

// CartRepository defines the interface for per-session cart persistence.
type CartRepository interface {
	// Get retrieves the cart owned by a session.
	Get(ctx context.Context, sessionID string) (*domain.Cart, error)

	// SaveIfVersion stores cart only if the stored version still equals
	// expected (0 meaning no cart is stored). On success cart.Version is
	// incremented. A lost race returns a Conflict error.
	SaveIfVersion(ctx context.Context, cart *domain.Cart, expected int64) error

	// DeleteIfVersion removes a session's cart only if the stored version
	// still equals expected. Deleting a missing cart at version 0 is not an
	// error. A lost race returns a Conflict error.
	DeleteIfVersion(ctx context.Context, sessionID string, expected int64) error
}

// OrderFilter defines filter criteria for listing orders.
type OrderFilter struct {
	Status *domain.OrderStatus
	Email  string
	// Query matches a case-insensitive substring of the order ID, customer
	// name or customer email.
	Query string
	// CreatedFrom and CreatedTo bound created_at inclusively.
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	pagination.Params
}

// OrderRepository defines the interface for order persistence.
type OrderRepository interface {
	// Create inserts an order together with its line items.
	Create(ctx context.Context, order *domain.Order) error

	// GetByID retrieves an order with its line items.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// List returns orders matching the filter along with the total count.
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, int, error)

	// UpdateStatus moves an order from one status to another only if it is
	// still in from. A lost race returns a Conflict error.
	UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus, updatedAt time.Time) error

	// Delete removes an order and its line items.
	Delete(ctx context.Context, id string) error
}
