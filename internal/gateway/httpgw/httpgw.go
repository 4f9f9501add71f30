// Package httpgw charges cards through a Square-style payments HTTP API.
package httpgw

import (
	"context"
	"fmt"
	neturl "net/url"
	"strings"

	"github.com/utafrali/storefront/internal/gateway"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httpclient"
)

const (
	serviceName       = "payment-gateway"
	defaultAPIVersion = "2024-01-18"
)

// Config holds the provider credentials.
type Config struct {
	BaseURL    string
	APIKey     string
	LocationID string
	APIVersion string
}

// Provider implements gateway.Gateway over HTTP. Requests carry an
// idempotency key so the retrying client may safely resend them.
type Provider struct {
	cfg  Config
	doer httpclient.Doer
}

// New creates a Provider sending requests through doer, usually a
// circuit-breaker-wrapped retrying client.
func New(cfg Config, doer httpclient.Doer) *Provider {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.APIVersion == "" {
		cfg.APIVersion = defaultAPIVersion
	}
	return &Provider{cfg: cfg, doer: doer}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "http"
}

type money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type createPaymentRequest struct {
	SourceID          string `json:"source_id"`
	IdempotencyKey    string `json:"idempotency_key"`
	AmountMoney       money  `json:"amount_money"`
	LocationID        string `json:"location_id,omitempty"`
	ReferenceID       string `json:"reference_id,omitempty"`
	BuyerEmailAddress string `json:"buyer_email_address,omitempty"`
	Autocomplete      bool   `json:"autocomplete"`
}

type createPaymentResponse struct {
	Payment struct {
		ID          string `json:"id"`
		Status      string `json:"status"`
		CardDetails struct {
			Card struct {
				CardBrand string `json:"card_brand"`
				Last4     string `json:"last_4"`
			} `json:"card"`
		} `json:"card_details"`
	} `json:"payment"`
}

type getPaymentResponse struct {
	Payment struct {
		ID            string `json:"id"`
		Status        string `json:"status"`
		AmountMoney   money  `json:"amount_money"`
		RefundedMoney *money `json:"refunded_money"`
	} `json:"payment"`
}

type refundPaymentRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
	PaymentID      string `json:"payment_id"`
	AmountMoney    money  `json:"amount_money"`
	Reason         string `json:"reason,omitempty"`
}

type refundPaymentResponse struct {
	Refund struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"refund"`
}

// Charge creates and completes a payment.
func (p *Provider) Charge(ctx context.Context, req gateway.ChargeRequest) (*gateway.ChargeResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	key := "charge-" + req.ReferenceID
	body := createPaymentRequest{
		SourceID:          req.Token,
		IdempotencyKey:    key,
		AmountMoney:       money{Amount: req.AmountMinorUnits, Currency: req.Currency},
		LocationID:        p.cfg.LocationID,
		ReferenceID:       req.ReferenceID,
		BuyerEmailAddress: req.BuyerEmail,
		Autocomplete:      true,
	}

	var out createPaymentResponse
	if err := httpclient.PostJSON(ctx, p.doer, p.cfg.BaseURL+"/v2/payments", p.headers(key), body, &out, serviceName); err != nil {
		return nil, err
	}

	switch out.Payment.Status {
	case "COMPLETED", "APPROVED":
	case "":
		return nil, fmt.Errorf("%s: payment response has no status", serviceName)
	default:
		return nil, apperrors.PaymentFailed(out.Payment.Status)
	}

	return &gateway.ChargeResult{
		TransactionID: out.Payment.ID,
		Status:        out.Payment.Status,
		CardBrand:     out.Payment.CardDetails.Card.CardBrand,
		Last4:         out.Payment.CardDetails.Card.Last4,
	}, nil
}

// Refund refunds part or all of a completed payment.
func (p *Provider) Refund(ctx context.Context, req gateway.RefundRequest) (*gateway.RefundResult, error) {
	if req.TransactionID == "" || req.AmountMinorUnits <= 0 {
		return nil, apperrors.InvalidInput("refund needs a transaction id and a positive amount")
	}

	key := fmt.Sprintf("refund-%s-%d", req.TransactionID, req.AmountMinorUnits)
	body := refundPaymentRequest{
		IdempotencyKey: key,
		PaymentID:      req.TransactionID,
		AmountMoney:    money{Amount: req.AmountMinorUnits, Currency: req.Currency},
		Reason:         req.Reason,
	}

	var out refundPaymentResponse
	if err := httpclient.PostJSON(ctx, p.doer, p.cfg.BaseURL+"/v2/refunds", p.headers(key), body, &out, serviceName); err != nil {
		return nil, err
	}

	return &gateway.RefundResult{RefundID: out.Refund.ID, Status: out.Refund.Status}, nil
}

// Status fetches a payment and reports its refund state.
func (p *Provider) Status(ctx context.Context, transactionID string) (*gateway.PaymentStatus, error) {
	if transactionID == "" {
		return nil, apperrors.InvalidInput("transaction id is required")
	}

	var out getPaymentResponse
	url := p.cfg.BaseURL + "/v2/payments/" + neturl.PathEscape(transactionID)
	if err := httpclient.GetJSON(ctx, p.doer, url, p.headers(""), &out, serviceName); err != nil {
		return nil, err
	}

	var refunded int64
	if out.Payment.RefundedMoney != nil {
		refunded = out.Payment.RefundedMoney.Amount
	}
	status := out.Payment.Status
	if status == "COMPLETED" {
		status = gateway.RefundState(out.Payment.AmountMoney.Amount, refunded)
	}

	return &gateway.PaymentStatus{
		TransactionID:      out.Payment.ID,
		Status:             status,
		AmountMinorUnits:   out.Payment.AmountMoney.Amount,
		RefundedMinorUnits: refunded,
		Currency:           out.Payment.AmountMoney.Currency,
	}, nil
}

func (p *Provider) headers(idempotencyKey string) map[string]string {
	h := map[string]string{
		"Authorization":  "Bearer " + p.cfg.APIKey,
		"Square-Version": p.cfg.APIVersion,
	}
	if idempotencyKey != "" {
		h[httpclient.IdempotencyKeyHeader] = idempotencyKey
	}
	return h
}
