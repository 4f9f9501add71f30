package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

func TestOrderStatus_Transitions(t *testing.T) {
	allowed := map[OrderStatus][]OrderStatus{
		OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
		OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
		OrderStatusShipped:    {OrderStatusDelivered},
		OrderStatusDelivered:  {},
		OrderStatusCancelled:  {},
	}
	all := []OrderStatus{OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled}

	for from, targets := range allowed {
		for _, to := range all {
			want := false
			for _, a := range targets {
				if a == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestOrderStatus_Valid(t *testing.T) {
	assert.True(t, OrderStatusShipped.Valid())
	assert.False(t, OrderStatus("lost").Valid())
}

func TestNewOrder_SnapshotsCart(t *testing.T) {
	c := NewCart("c1", "sess-1", "USD")
	require.NoError(t, c.AddItem(hoodie(), "M", "Black"))
	require.NoError(t, c.AddItem(tee(), "L", "White"))
	require.NoError(t, c.AddItem(tee(), "L", "White"))
	totals := ComputeOrderTotals(c, DefaultPricing())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	o := NewOrder("o1", c, totals, Customer{Name: "Ada", Email: "ada@example.com"},
		Address{Line1: "1 Main St", City: "Springfield", State: "IL", PostalCode: "62701", Country: "US"}, "txn_1", now)

	assert.Equal(t, "sess-1", o.SessionID)
	assert.Equal(t, OrderStatusPending, o.Status)
	assert.Equal(t, "txn_1", o.PaymentTransactionID)
	assert.Equal(t, int64(12498), o.SubtotalCents)
	assert.Equal(t, int64(0), o.ShippingCents)
	assert.Equal(t, int64(1000), o.TaxCents)
	assert.Equal(t, int64(13498), o.TotalCents)
	assert.Equal(t, o.SubtotalCents+o.ShippingCents+o.TaxCents, o.TotalCents)
	require.Len(t, o.Items, 2)
	assert.Equal(t, int64(5998), o.Items[1].LineTotalCents)
	assert.Equal(t, 3, o.ItemCount())
	assert.Equal(t, now, o.CreatedAt)
}

func TestOrder_TransitionTo(t *testing.T) {
	o := &Order{ID: "o1", Status: OrderStatusPending}
	now := time.Now().UTC()

	require.NoError(t, o.TransitionTo(OrderStatusProcessing, now))
	assert.Equal(t, OrderStatusProcessing, o.Status)
	assert.Equal(t, now, o.UpdatedAt)

	require.NoError(t, o.TransitionTo(OrderStatusShipped, now))

	err := o.TransitionTo(OrderStatusCancelled, now)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
	assert.Equal(t, OrderStatusShipped, o.Status)

	err = o.TransitionTo("teleported", now)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}
