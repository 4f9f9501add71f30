package domain

import (
	"fmt"
	"slices"
	"time"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether an order may move from s to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return slices.Contains(orderTransitions[s], next)
}

// Address is a shipping destination.
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Customer identifies who placed an order.
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// OrderItem is a line snapshot taken at checkout, in minor units.
type OrderItem struct {
	ProductID      string `json:"product_id"`
	Name           string `json:"name"`
	Size           string `json:"size"`
	Color          string `json:"color"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Quantity       int    `json:"quantity"`
	LineTotalCents int64  `json:"line_total_cents"`
}

// Order is the record written after a successful charge. Amounts are stored
// in minor units so they match what the gateway captured.
type Order struct {
	ID                   string      `json:"id"`
	SessionID            string      `json:"session_id"`
	Customer             Customer    `json:"customer"`
	ShippingAddress      Address     `json:"shipping_address"`
	Items                []OrderItem `json:"items"`
	SubtotalCents        int64       `json:"subtotal_cents"`
	ShippingCents        int64       `json:"shipping_cents"`
	TaxCents             int64       `json:"tax_cents"`
	TotalCents           int64       `json:"total_cents"`
	Currency             string      `json:"currency"`
	Status               OrderStatus `json:"status"`
	PaymentTransactionID string      `json:"payment_transaction_id"`
	CreatedAt            time.Time   `json:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at"`
}

// NewOrder snapshots the cart and its totals into a pending order.
func NewOrder(id string, cart *Cart, totals OrderTotals, customer Customer, addr Address, transactionID string, now time.Time) *Order {
	items := make([]OrderItem, 0, len(cart.Items))
	for _, li := range cart.Items {
		items = append(items, OrderItem{
			ProductID:      li.ProductID,
			Name:           li.Name,
			Size:           li.Size,
			Color:          li.Color,
			UnitPriceCents: ToMinorUnits(li.UnitPrice),
			Quantity:       li.Quantity,
			LineTotalCents: ToMinorUnits(li.LineTotal()),
		})
	}

	return &Order{
		ID:                   id,
		SessionID:            cart.SessionID,
		Customer:             customer,
		ShippingAddress:      addr,
		Items:                items,
		SubtotalCents:        ToMinorUnits(totals.Subtotal),
		ShippingCents:        ToMinorUnits(totals.Shipping),
		TaxCents:             ToMinorUnits(totals.Tax),
		TotalCents:           totals.TotalMinorUnits(),
		Currency:             totals.Currency,
		Status:               OrderStatusPending,
		PaymentTransactionID: transactionID,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// TransitionTo moves the order to next or returns a Conflict error.
func (o *Order) TransitionTo(next OrderStatus, now time.Time) error {
	if !next.Valid() {
		return apperrors.InvalidInput(fmt.Sprintf("unknown order status %q", next))
	}
	if !o.Status.CanTransitionTo(next) {
		return apperrors.Conflict(fmt.Sprintf("order %s cannot move from %s to %s", o.ID, o.Status, next))
	}
	o.Status = next
	o.UpdatedAt = now
	return nil
}

// ItemCount is the total quantity across all order lines.
func (o *Order) ItemCount() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}
