package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// OrderRepository implements repository.OrderRepository in process.
type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
}

// NewOrderRepository creates an empty in-memory order repository.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{orders: make(map[string]domain.Order)}
}

// Create inserts an order.
func (r *OrderRepository) Create(_ context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[o.ID]; ok {
		return apperrors.AlreadyExists("order", "id", o.ID)
	}
	r.orders[o.ID] = cloneOrder(*o)
	return nil
}

// GetByID retrieves an order by its ID.
func (r *OrderRepository) GetByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, apperrors.NotFound("order", id)
	}
	out := cloneOrder(o)
	return &out, nil
}

// List returns one page of orders, newest first.
func (r *OrderRepository) List(_ context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	r.mu.RLock()
	var matched []domain.Order
	for _, o := range r.orders {
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		if filter.Email != "" && !strings.EqualFold(o.Customer.Email, filter.Email) {
			continue
		}
		if filter.Query != "" && !matchesQuery(o, filter.Query) {
			continue
		}
		if filter.CreatedFrom != nil && o.CreatedAt.Before(*filter.CreatedFrom) {
			continue
		}
		if filter.CreatedTo != nil && o.CreatedAt.After(*filter.CreatedTo) {
			continue
		}
		matched = append(matched, cloneOrder(o))
	}
	r.mu.RUnlock()

	slices.SortFunc(matched, func(a, b domain.Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	params := normalize(filter.Params)
	start, end := params.Window(len(matched))
	page := matched[start:end]
	if page == nil {
		page = []domain.Order{}
	}
	return page, len(matched), nil
}

// UpdateStatus moves an order from one status to another.
func (r *OrderRepository) UpdateStatus(_ context.Context, id string, from, to domain.OrderStatus, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return apperrors.NotFound("order", id)
	}
	if o.Status != from {
		return apperrors.Conflict(fmt.Sprintf("order %s is no longer %s", id, from))
	}
	o.Status = to
	o.UpdatedAt = updatedAt
	r.orders[id] = o
	return nil
}

// Delete removes an order.
func (r *OrderRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[id]; !ok {
		return apperrors.NotFound("order", id)
	}
	delete(r.orders, id)
	return nil
}

func matchesQuery(o domain.Order, query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(o.ID), q) ||
		strings.Contains(strings.ToLower(o.Customer.Name), q) ||
		strings.Contains(strings.ToLower(o.Customer.Email), q)
}

func cloneOrder(o domain.Order) domain.Order {
	o.Items = slices.Clone(o.Items)
	return o
}
