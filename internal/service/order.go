package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/gateway"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// UpdateStatusInput holds the target status for an order.
type UpdateStatusInput struct {
	Status string `json:"status" validate:"required,oneof=pending processing shipped delivered cancelled"`
}

// OrderService manages placed orders.
type OrderService struct {
	repo     repository.OrderRepository
	gateway  gateway.Gateway
	producer *event.Producer
	logger   *slog.Logger
	now      func() time.Time
}

// NewOrderService creates a new order service.
func NewOrderService(repo repository.OrderRepository, gw gateway.Gateway, producer *event.Producer, logger *slog.Logger) *OrderService {
	return &OrderService{
		repo:     repo,
		gateway:  gw,
		producer: producer,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// GetOrder retrieves an order by ID.
func (s *OrderService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("order id is required")
	}
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

// ListOrders returns one page of orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf("unknown order status %q", *filter.Status))
	}
	orders, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

// UpdateStatus moves an order along its lifecycle. The stored status is
// compared and swapped, so of two concurrent transitions from the same status
// only one applies. Cancelling claims the order before refunding and puts it
// back if the refund fails, so a cancellation is refunded at most once.
func (s *OrderService) UpdateStatus(ctx context.Context, id string, input UpdateStatusInput) (*domain.Order, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	from := order.Status
	fromUpdatedAt := order.UpdatedAt
	next := domain.OrderStatus(input.Status)
	if err := order.TransitionTo(next, s.now()); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, order.ID, from, next, order.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	if next == domain.OrderStatusCancelled {
		if err := s.refund(ctx, order); err != nil {
			s.revert(ctx, order, from, fromUpdatedAt)
			return nil, fmt.Errorf("refund order %s: %w", order.ID, err)
		}
	}

	s.logger.InfoContext(ctx, "order status updated",
		slog.String("order_id", order.ID),
		slog.String("from", string(from)),
		slog.String("to", string(next)),
	)

	if err := s.producer.PublishOrderStatusChanged(ctx, order.ID, from, next); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order status changed event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}
	return order, nil
}

// DeleteOrder removes an order record. The payment is left untouched.
func (s *OrderService) DeleteOrder(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("order id is required")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	s.logger.InfoContext(ctx, "order deleted", slog.String("order_id", id))
	return nil
}

// PaymentStatus asks the gateway for the state of an order's charge.
func (s *OrderService) PaymentStatus(ctx context.Context, id string) (*gateway.PaymentStatus, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	st, err := s.gateway.Status(ctx, order.PaymentTransactionID)
	if err != nil {
		return nil, fmt.Errorf("payment status for order %s: %w", order.ID, err)
	}
	return st, nil
}

func (s *OrderService) refund(ctx context.Context, order *domain.Order) error {
	res, err := s.gateway.Refund(ctx, gateway.RefundRequest{
		TransactionID:    order.PaymentTransactionID,
		AmountMinorUnits: order.TotalCents,
		Currency:         order.Currency,
		Reason:           "order cancelled",
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "order refunded",
		slog.String("order_id", order.ID),
		slog.String("refund_id", res.RefundID),
		slog.Int64("amount_cents", order.TotalCents),
	)
	return nil
}

// revert restores the status an order had before a cancellation whose
// refund failed. It runs on a context that survives request cancellation.
func (s *OrderService) revert(ctx context.Context, order *domain.Order, from domain.OrderStatus, updatedAt time.Time) {
	ctx = context.WithoutCancel(ctx)
	if err := s.repo.UpdateStatus(ctx, order.ID, domain.OrderStatusCancelled, from, updatedAt); err != nil {
		s.logger.ErrorContext(ctx, "failed to restore order after refund failure, manual intervention required",
			slog.String("order_id", order.ID),
			slog.String("status", string(from)),
			slog.String("error", err.Error()),
		)
	}
}
