// Package gateway defines the payment boundary used by checkout.
package gateway

import (
	"context"
	"strings"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// ChargeRequest holds the parameters for charging a tokenized card.
type ChargeRequest struct {
	// Token is the single-use payment token produced by the client-side form.
	Token            string
	AmountMinorUnits int64
	Currency         string
	// ReferenceID ties the charge to an order and doubles as its idempotency key.
	ReferenceID string
	BuyerEmail  string
}

// Validate checks the request before it is sent to a provider.
func (r ChargeRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.Token) == "":
		return apperrors.InvalidInput("payment token is required")
	case r.AmountMinorUnits <= 0:
		return apperrors.InvalidInput("charge amount must be positive")
	case len(r.Currency) != 3:
		return apperrors.InvalidInput("currency must be a 3-letter ISO code")
	case r.ReferenceID == "":
		return apperrors.InvalidInput("reference id is required")
	}
	return nil
}

// ChargeResult holds the outcome of a successful charge.
type ChargeResult struct {
	TransactionID string
	Status        string
	CardBrand     string
	Last4         string
}

// RefundRequest holds the parameters for refunding a captured charge.
type RefundRequest struct {
	TransactionID    string
	AmountMinorUnits int64
	Currency         string
	Reason           string
}

// RefundResult holds the outcome of a refund.
type RefundResult struct {
	RefundID string
	Status   string
}

// Payment states reported by Status.
const (
	PaymentCompleted         = "COMPLETED"
	PaymentPartiallyRefunded = "PARTIALLY_REFUNDED"
	PaymentRefunded          = "REFUNDED"
)

// PaymentStatus is the provider's current view of a charge.
type PaymentStatus struct {
	TransactionID      string
	Status             string
	AmountMinorUnits   int64
	RefundedMinorUnits int64
	Currency           string
}

// RefundState derives the payment state from captured and refunded amounts.
func RefundState(amount, refunded int64) string {
	switch {
	case refunded <= 0:
		return PaymentCompleted
	case refunded < amount:
		return PaymentPartiallyRefunded
	default:
		return PaymentRefunded
	}
}

// Gateway is a payment provider. A declined charge returns an error matching
// errors.ErrPaymentFailed whose message is the provider's reason verbatim.
type Gateway interface {
	// Name returns the provider name (e.g., "mock", "http").
	Name() string

	// Charge captures the amount from the token.
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)

	// Refund returns a previously captured amount.
	Refund(ctx context.Context, req RefundRequest) (*RefundResult, error)

	// Status reports the current state of a charge.
	Status(ctx context.Context, transactionID string) (*PaymentStatus, error)
}
