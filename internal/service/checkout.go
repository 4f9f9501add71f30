package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/gateway"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/tracing"
)

// Checkout outcomes recorded in storefront_checkout_outcomes_total.
const (
	OutcomePlaced        = "placed"
	OutcomeEmptyCart     = "empty_cart"
	OutcomeDeclined      = "declined"
	OutcomeGatewayError  = "gateway_error"
	OutcomeOrderNotSaved = "order_not_saved"
	OutcomeInProgress    = "in_progress"
)

// DefaultClaimTTL bounds how long a checkout may hold a cart. It must exceed
// the payment timeout.
const DefaultClaimTTL = 2 * time.Minute

var checkoutOutcomes = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "storefront_checkout_outcomes_total",
		Help: "Checkout attempts by outcome.",
	},
	[]string{"outcome"},
)

// AddressInput is a shipping address as submitted at checkout.
type AddressInput struct {
	Line1      string `json:"line1" validate:"required,max=200"`
	Line2      string `json:"line2" validate:"max=200"`
	City       string `json:"city" validate:"required,max=100"`
	State      string `json:"state" validate:"required,max=100"`
	PostalCode string `json:"postal_code" validate:"required,max=20"`
	Country    string `json:"country" validate:"required,len=2"`
}

// PlaceOrderInput holds the parameters for checking out a cart.
type PlaceOrderInput struct {
	CustomerName    string       `json:"customer_name" validate:"required,max=200"`
	CustomerEmail   string       `json:"customer_email" validate:"required,email"`
	ShippingAddress AddressInput `json:"shipping_address"`
	PaymentToken    string       `json:"payment_token" validate:"required"`
}

// CheckoutService turns a session's cart into a paid order.
type CheckoutService struct {
	carts    *CartService
	orders   repository.OrderRepository
	gateway  gateway.Gateway
	producer *event.Producer
	logger   *slog.Logger
	now      func() time.Time
	claimTTL time.Duration
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(
	carts *CartService,
	orders repository.OrderRepository,
	gw gateway.Gateway,
	producer *event.Producer,
	logger *slog.Logger,
) *CheckoutService {
	return &CheckoutService{
		carts:    carts,
		orders:   orders,
		gateway:  gw,
		producer: producer,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		claimTTL: DefaultClaimTTL,
	}
}

// Quote prices the session's current cart.
func (s *CheckoutService) Quote(ctx context.Context, sessionID string) (*Quote, error) {
	return s.carts.Quote(ctx, sessionID)
}

// PlaceOrder charges the cart total and records the order. The cart is
// claimed before the charge so concurrent checkouts of it fail with a
// Conflict, and only the charged lines are cleared once the order is stored.
// If the order cannot be stored the charge is refunded.
func (s *CheckoutService) PlaceOrder(ctx context.Context, sessionID string, input PlaceOrderInput) (*domain.Order, error) {
	ctx, span := tracing.StartSpan(ctx, "checkout.place_order", attribute.String("session.id", sessionID))
	defer span.End()

	order, err := s.placeOrder(ctx, sessionID, input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("order.id", order.ID))
	return order, nil
}

func (s *CheckoutService) placeOrder(ctx context.Context, sessionID string, input PlaceOrderInput) (*domain.Order, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}

	cart, err := s.carts.GetCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		checkoutOutcomes.WithLabelValues(OutcomeEmptyCart).Inc()
		return nil, apperrors.InvalidInput("cannot checkout an empty cart")
	}

	if cart.CheckingOut(s.now()) {
		checkoutOutcomes.WithLabelValues(OutcomeInProgress).Inc()
		return nil, apperrors.Conflict("checkout already in progress for this cart")
	}

	totals := domain.ComputeOrderTotals(cart, s.carts.Pricing())
	orderID := uuid.NewString()
	charged := cart.Lines()
	if err := s.carts.claim(ctx, cart, orderID, s.claimTTL); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			checkoutOutcomes.WithLabelValues(OutcomeInProgress).Inc()
			return nil, apperrors.Conflict("cart changed or is already being checked out")
		}
		return nil, fmt.Errorf("claim cart: %w", err)
	}
	claimed := cart.Version

	customer := domain.Customer{
		Name:  strings.TrimSpace(input.CustomerName),
		Email: strings.TrimSpace(input.CustomerEmail),
	}

	charge, err := s.gateway.Charge(ctx, gateway.ChargeRequest{
		Token:            input.PaymentToken,
		AmountMinorUnits: totals.TotalMinorUnits(),
		Currency:         totals.Currency,
		ReferenceID:      orderID,
		BuyerEmail:       customer.Email,
	})
	if err != nil {
		s.carts.release(ctx, cart)
		return nil, s.chargeFailed(ctx, sessionID, orderID, err)
	}

	order := domain.NewOrder(orderID, cart, totals, customer, toAddress(input.ShippingAddress), charge.TransactionID, s.now())
	if err := s.orders.Create(ctx, order); err != nil {
		checkoutOutcomes.WithLabelValues(OutcomeOrderNotSaved).Inc()
		s.logger.ErrorContext(ctx, "failed to store order, refunding charge",
			slog.String("order_id", orderID),
			slog.String("transaction_id", charge.TransactionID),
			slog.String("error", err.Error()),
		)
		s.refund(ctx, order, "order could not be stored")
		s.carts.release(ctx, cart)
		return nil, fmt.Errorf("create order: %w", err)
	}

	if err := s.carts.settle(ctx, sessionID, claimed, orderID, charged); err != nil {
		s.logger.ErrorContext(ctx, "failed to clear cart after checkout",
			slog.String("session_id", sessionID),
			slog.String("order_id", orderID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.producer.PublishOrderPlaced(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order placed event",
			slog.String("order_id", orderID),
			slog.String("error", err.Error()),
		)
	}

	checkoutOutcomes.WithLabelValues(OutcomePlaced).Inc()
	s.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", orderID),
		slog.String("session_id", sessionID),
		slog.String("transaction_id", charge.TransactionID),
		slog.Int64("total_cents", order.TotalCents),
	)
	return order, nil
}

// chargeFailed classifies a gateway error. Declines and rejected requests
// are returned as-is; anything else is reported as the gateway being
// unavailable.
func (s *CheckoutService) chargeFailed(ctx context.Context, sessionID, orderID string, err error) error {
	if errors.Is(err, apperrors.ErrPaymentFailed) {
		checkoutOutcomes.WithLabelValues(OutcomeDeclined).Inc()
		s.logger.InfoContext(ctx, "payment declined",
			slog.String("session_id", sessionID),
			slog.String("order_id", orderID),
			slog.String("reason", err.Error()),
		)
		return err
	}

	checkoutOutcomes.WithLabelValues(OutcomeGatewayError).Inc()
	s.logger.ErrorContext(ctx, "payment gateway error",
		slog.String("session_id", sessionID),
		slog.String("order_id", orderID),
		slog.String("gateway", s.gateway.Name()),
		slog.String("error", err.Error()),
	)

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.ServiceUnavailable("payment gateway unavailable")
}

// refund returns the order's captured amount. It runs on a context that
// survives request cancellation.
func (s *CheckoutService) refund(ctx context.Context, order *domain.Order, reason string) {
	ctx = context.WithoutCancel(ctx)
	res, err := s.gateway.Refund(ctx, gateway.RefundRequest{
		TransactionID:    order.PaymentTransactionID,
		AmountMinorUnits: order.TotalCents,
		Currency:         order.Currency,
		Reason:           reason,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "refund failed, manual intervention required",
			slog.String("order_id", order.ID),
			slog.String("transaction_id", order.PaymentTransactionID),
			slog.Int64("amount_cents", order.TotalCents),
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.InfoContext(ctx, "charge refunded",
		slog.String("order_id", order.ID),
		slog.String("refund_id", res.RefundID),
	)
}

func toAddress(in AddressInput) domain.Address {
	return domain.Address{
		Line1:      strings.TrimSpace(in.Line1),
		Line2:      strings.TrimSpace(in.Line2),
		City:       strings.TrimSpace(in.City),
		State:      strings.TrimSpace(in.State),
		PostalCode: strings.TrimSpace(in.PostalCode),
		Country:    strings.ToUpper(strings.TrimSpace(in.Country)),
	}
}
