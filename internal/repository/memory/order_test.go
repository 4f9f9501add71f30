package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
)

var base = time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

func sampleOrder(id, email string, status domain.OrderStatus, createdAt time.Time) *domain.Order {
	return &domain.Order{
		ID:         id,
		SessionID:  "sess-" + id,
		Customer:   domain.Customer{Name: "Ada", Email: email},
		Items:      []domain.OrderItem{{ProductID: "1", Size: "M", Color: "Black", UnitPriceCents: 4500, Quantity: 2, LineTotalCents: 9000}},
		TotalCents: 9720,
		Currency:   "USD",
		Status:     status,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
}

func TestOrderRepository_CreateAndGet(t *testing.T) {
	repo := NewOrderRepository()
	ctx := context.Background()

	o := sampleOrder("o1", "ada@example.com", domain.OrderStatusPending, base)
	require.NoError(t, repo.Create(ctx, o))
	assert.ErrorIs(t, repo.Create(ctx, o), apperrors.ErrAlreadyExists)

	got, err := repo.GetByID(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, *o, *got)

	_, err = repo.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestOrderRepository_List(t *testing.T) {
	repo := NewOrderRepository()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		status := domain.OrderStatusPending
		if i%2 == 1 {
			status = domain.OrderStatusShipped
		}
		email := "ada@example.com"
		if i == 4 {
			email = "bob@example.com"
		}
		require.NoError(t, repo.Create(ctx, sampleOrder(fmt.Sprintf("o%d", i), email, status, base.Add(time.Duration(i)*time.Hour))))
	}

	all, total, err := repo.List(ctx, repository.OrderFilter{})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Equal(t, "o4", all[0].ID, "newest first")

	shipped := domain.OrderStatusShipped
	got, total, err := repo.List(ctx, repository.OrderFilter{Status: &shipped})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, "o3", got[0].ID)

	got, total, err = repo.List(ctx, repository.OrderFilter{Email: "BOB@example.com"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "o4", got[0].ID)

	got, total, err = repo.List(ctx, repository.OrderFilter{Params: pagination.Params{Page: 2, PerPage: 2}})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, got, 2)
	assert.Equal(t, "o2", got[0].ID)
}

func TestOrderRepository_List_SearchAndDateRange(t *testing.T) {
	repo := NewOrderRepository()
	ctx := context.Background()

	grace := sampleOrder("o-grace", "grace@navy.mil", domain.OrderStatusPending, base.Add(48*time.Hour))
	grace.Customer.Name = "Grace Hopper"
	require.NoError(t, repo.Create(ctx, sampleOrder("o-ada", "ada@example.com", domain.OrderStatusPending, base)))
	require.NoError(t, repo.Create(ctx, grace))
	require.NoError(t, repo.Create(ctx, sampleOrder("o-3", "linus@example.com", domain.OrderStatusPending, base.Add(24*time.Hour))))

	tests := []struct {
		name   string
		filter repository.OrderFilter
		want   []string
	}{
		{"name substring", repository.OrderFilter{Query: "HOPPER"}, []string{"o-grace"}},
		{"email substring", repository.OrderFilter{Query: "example.com"}, []string{"o-3", "o-ada"}},
		{"id substring", repository.OrderFilter{Query: "o-3"}, []string{"o-3"}},
		{"inclusive range", repository.OrderFilter{CreatedFrom: ptr(base), CreatedTo: ptr(base.Add(24 * time.Hour))}, []string{"o-3", "o-ada"}},
		{"open ended", repository.OrderFilter{CreatedFrom: ptr(base.Add(time.Hour))}, []string{"o-grace", "o-3"}},
		{"search within range", repository.OrderFilter{Query: "example", CreatedTo: ptr(base)}, []string{"o-ada"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.filter.Params = pagination.DefaultParams()
			got, total, err := repo.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, len(tt.want), total)
			ids := make([]string, len(got))
			for i, o := range got {
				ids[i] = o.ID
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func ptr[T any](v T) *T { return &v }

func TestOrderRepository_UpdateStatus(t *testing.T) {
	repo := NewOrderRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, sampleOrder("o1", "ada@example.com", domain.OrderStatusPending, base)))

	later := base.Add(time.Hour)
	require.NoError(t, repo.UpdateStatus(ctx, "o1", domain.OrderStatusPending, domain.OrderStatusProcessing, later))

	got, err := repo.GetByID(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusProcessing, got.Status)
	assert.Equal(t, later, got.UpdatedAt)

	assert.ErrorIs(t, repo.UpdateStatus(ctx, "nope", domain.OrderStatusPending, domain.OrderStatusShipped, later), apperrors.ErrNotFound)
}

func TestOrderRepository_UpdateStatus_StaleFromConflicts(t *testing.T) {
	repo := NewOrderRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, sampleOrder("o1", "ada@example.com", domain.OrderStatusProcessing, base)))

	// Two writers both read processing; the second must lose.
	require.NoError(t, repo.UpdateStatus(ctx, "o1", domain.OrderStatusProcessing, domain.OrderStatusShipped, base.Add(time.Hour)))
	err := repo.UpdateStatus(ctx, "o1", domain.OrderStatusProcessing, domain.OrderStatusCancelled, base.Add(2*time.Hour))
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	got, err := repo.GetByID(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusShipped, got.Status)
}

func TestOrderRepository_Delete(t *testing.T) {
	repo := NewOrderRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, sampleOrder("o1", "ada@example.com", domain.OrderStatusPending, base)))

	require.NoError(t, repo.Delete(ctx, "o1"))
	_, err := repo.GetByID(ctx, "o1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "o1"), apperrors.ErrNotFound)
}
