package mock

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/gateway"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// DeclinePrefix marks tokens the mock provider declines.
const DeclinePrefix = "tok_decline"

// declineReasons maps the token suffix after DeclinePrefix to a reason.
var declineReasons = map[string]string{
	"":                    "GENERIC_DECLINE: the card was declined",
	"_insufficient_funds": "INSUFFICIENT_FUNDS: the card has insufficient funds",
	"_expired":            "CARD_EXPIRED: the card has expired",
	"_cvv":                "CVV_FAILURE: the card verification code did not match",
}

type charge struct {
	amount   int64
	refunded int64
	currency string
}

// Provider is a deterministic in-process gateway for development and tests.
// Tokens starting with tok_decline are declined; everything else succeeds.
type Provider struct {
	mu      sync.Mutex
	charges map[string]*charge
	delay   time.Duration
}

// Option configures a Provider.
type Option func(*Provider)

// WithDelay simulates provider latency on every call.
func WithDelay(d time.Duration) Option {
	return func(p *Provider) { p.delay = d }
}

// NewProvider creates a new mock payment provider.
func NewProvider(opts ...Option) *Provider {
	p := &Provider{charges: make(map[string]*charge)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "mock"
}

// Charge approves or declines based on the token.
func (p *Provider) Charge(ctx context.Context, req gateway.ChargeRequest) (*gateway.ChargeResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := p.wait(ctx); err != nil {
		return nil, err
	}

	if suffix, ok := strings.CutPrefix(req.Token, DeclinePrefix); ok {
		reason, known := declineReasons[suffix]
		if !known {
			reason = declineReasons[""]
		}
		return nil, apperrors.PaymentFailed(reason)
	}

	id := "mock_pay_" + uuid.NewString()

	p.mu.Lock()
	p.charges[id] = &charge{amount: req.AmountMinorUnits, currency: req.Currency}
	p.mu.Unlock()

	return &gateway.ChargeResult{
		TransactionID: id,
		Status:        "COMPLETED",
		CardBrand:     "VISA",
		Last4:         "4242",
	}, nil
}

// Refund returns part or all of a charge made through this provider.
func (p *Provider) Refund(ctx context.Context, req gateway.RefundRequest) (*gateway.RefundResult, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	c, ok := p.charges[req.TransactionID]
	if !ok {
		return nil, apperrors.NotFound("payment", req.TransactionID)
	}
	if req.AmountMinorUnits <= 0 || c.refunded+req.AmountMinorUnits > c.amount {
		return nil, apperrors.InvalidInput(fmt.Sprintf("refund of %d exceeds refundable amount %d", req.AmountMinorUnits, c.amount-c.refunded))
	}
	c.refunded += req.AmountMinorUnits

	return &gateway.RefundResult{
		RefundID: "mock_ref_" + uuid.NewString(),
		Status:   "COMPLETED",
	}, nil
}

// Status reports the captured and refunded amounts of a charge.
func (p *Provider) Status(ctx context.Context, transactionID string) (*gateway.PaymentStatus, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	c, ok := p.charges[transactionID]
	if !ok {
		return nil, apperrors.NotFound("payment", transactionID)
	}
	return &gateway.PaymentStatus{
		TransactionID:      transactionID,
		Status:             gateway.RefundState(c.amount, c.refunded),
		AmountMinorUnits:   c.amount,
		RefundedMinorUnits: c.refunded,
		Currency:           c.currency,
	}, nil
}

// Refunded reports how much of a charge has been refunded.
func (p *Provider) Refunded(transactionID string) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.charges[transactionID]; ok {
		return c.refunded
	}
	return 0
}

func (p *Provider) wait(ctx context.Context) error {
	if p.delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(p.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
