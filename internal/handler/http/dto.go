package http

import (
	"time"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/gateway"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/pagination"
)

// Money values are rendered as fixed two-place strings so clients never see
// float rounding.

// ProductResponse is the JSON shape of a catalog product.
type ProductResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	Price         string    `json:"price"`
	OriginalPrice *string   `json:"original_price,omitempty"`
	OnSale        bool      `json:"on_sale"`
	Category      string    `json:"category"`
	Sizes         []string  `json:"sizes"`
	Colors        []string  `json:"colors"`
	InStock       bool      `json:"in_stock"`
	StockCount    *int      `json:"stock_count,omitempty"`
	Featured      bool      `json:"featured"`
	NewArrival    bool      `json:"new_arrival"`
	ImageURL      string    `json:"image_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toProductResponse(p *domain.Product) ProductResponse {
	resp := ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.StringFixed(2),
		OnSale:      p.OnSale(),
		Category:    string(p.Category),
		Sizes:       p.Sizes,
		Colors:      p.Colors,
		InStock:     p.Purchasable(),
		StockCount:  p.StockCount,
		Featured:    p.Featured,
		NewArrival:  p.NewArrival,
		ImageURL:    p.ImageURL,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.OriginalPrice.Valid {
		s := p.OriginalPrice.Decimal.StringFixed(2)
		resp.OriginalPrice = &s
	}
	return resp
}

func toProductList(products []domain.Product, total int, params pagination.Params) pagination.Result[ProductResponse] {
	out := make([]ProductResponse, len(products))
	for i := range products {
		out[i] = toProductResponse(&products[i])
	}
	return pagination.NewResult(out, total, params)
}

// LineItemResponse is one cart line.
type LineItemResponse struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	LineTotal string `json:"line_total"`
}

// CartResponse is the JSON shape of a session cart.
type CartResponse struct {
	ID        string             `json:"id"`
	SessionID string             `json:"session_id"`
	Items     []LineItemResponse `json:"items"`
	ItemCount int                `json:"item_count"`
	Subtotal  string             `json:"subtotal"`
	Currency  string             `json:"currency"`
	Version   int64              `json:"version"`
	ExpiresAt *time.Time         `json:"expires_at,omitempty"`
}

func toCartResponse(c *domain.Cart) CartResponse {
	items := make([]LineItemResponse, len(c.Items))
	for i, li := range c.Items {
		items[i] = LineItemResponse{
			ProductID: li.ProductID,
			Name:      li.Name,
			Size:      li.Size,
			Color:     li.Color,
			UnitPrice: li.UnitPrice.StringFixed(2),
			Quantity:  li.Quantity,
			LineTotal: li.LineTotal().StringFixed(2),
		}
	}

	resp := CartResponse{
		ID:        c.ID,
		SessionID: c.SessionID,
		Items:     items,
		ItemCount: c.ItemCount(),
		Subtotal:  c.Subtotal.StringFixed(2),
		Currency:  c.Currency,
		Version:   c.Version,
	}
	if !c.ExpiresAt.IsZero() {
		exp := c.ExpiresAt
		resp.ExpiresAt = &exp
	}
	return resp
}

// TotalsResponse is the priced breakdown of a cart.
type TotalsResponse struct {
	Subtotal              string `json:"subtotal"`
	Shipping              string `json:"shipping"`
	Tax                   string `json:"tax"`
	Total                 string `json:"total"`
	TotalMinorUnits       int64  `json:"total_minor_units"`
	FreeShipping          bool   `json:"free_shipping"`
	FreeShippingRemaining string `json:"free_shipping_remaining"`
	Currency              string `json:"currency"`
}

func toTotalsResponse(t domain.OrderTotals) TotalsResponse {
	return TotalsResponse{
		Subtotal:              t.Subtotal.StringFixed(2),
		Shipping:              t.Shipping.StringFixed(2),
		Tax:                   t.Tax.StringFixed(2),
		Total:                 t.Total.StringFixed(2),
		TotalMinorUnits:       t.TotalMinorUnits(),
		FreeShipping:          t.Shipping.IsZero(),
		FreeShippingRemaining: t.FreeShippingRemaining.StringFixed(2),
		Currency:              t.Currency,
	}
}

// QuoteResponse pairs a cart with its totals.
type QuoteResponse struct {
	Cart   CartResponse   `json:"cart"`
	Totals TotalsResponse `json:"totals"`
}

func toQuoteResponse(q *service.Quote) QuoteResponse {
	return QuoteResponse{Cart: toCartResponse(q.Cart), Totals: toTotalsResponse(q.Totals)}
}

// OrderItemResponse is one order line.
type OrderItemResponse struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	LineTotal string `json:"line_total"`
}

// OrderResponse is the JSON shape of a placed order.
type OrderResponse struct {
	ID                   string              `json:"id"`
	Status               string              `json:"status"`
	Customer             domain.Customer     `json:"customer"`
	ShippingAddress      domain.Address      `json:"shipping_address"`
	Items                []OrderItemResponse `json:"items"`
	Subtotal             string              `json:"subtotal"`
	Shipping             string              `json:"shipping"`
	Tax                  string              `json:"tax"`
	Total                string              `json:"total"`
	TotalMinorUnits      int64               `json:"total_minor_units"`
	Currency             string              `json:"currency"`
	PaymentTransactionID string              `json:"payment_transaction_id"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

func toOrderResponse(o *domain.Order) OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = OrderItemResponse{
			ProductID: it.ProductID,
			Name:      it.Name,
			Size:      it.Size,
			Color:     it.Color,
			UnitPrice: domain.FromMinorUnits(it.UnitPriceCents).StringFixed(2),
			Quantity:  it.Quantity,
			LineTotal: domain.FromMinorUnits(it.LineTotalCents).StringFixed(2),
		}
	}

	return OrderResponse{
		ID:                   o.ID,
		Status:               string(o.Status),
		Customer:             o.Customer,
		ShippingAddress:      o.ShippingAddress,
		Items:                items,
		Subtotal:             domain.FromMinorUnits(o.SubtotalCents).StringFixed(2),
		Shipping:             domain.FromMinorUnits(o.ShippingCents).StringFixed(2),
		Tax:                  domain.FromMinorUnits(o.TaxCents).StringFixed(2),
		Total:                domain.FromMinorUnits(o.TotalCents).StringFixed(2),
		TotalMinorUnits:      o.TotalCents,
		Currency:             o.Currency,
		PaymentTransactionID: o.PaymentTransactionID,
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
	}
}

func toOrderList(orders []domain.Order, total int, params pagination.Params) pagination.Result[OrderResponse] {
	out := make([]OrderResponse, len(orders))
	for i := range orders {
		out[i] = toOrderResponse(&orders[i])
	}
	return pagination.NewResult(out, total, params)
}

// PaymentStatusResponse is the JSON shape of an order's payment state.
type PaymentStatusResponse struct {
	OrderID            string `json:"order_id"`
	TransactionID      string `json:"transaction_id"`
	Status             string `json:"status"`
	Amount             string `json:"amount"`
	Refunded           string `json:"refunded"`
	AmountMinorUnits   int64  `json:"amount_minor_units"`
	RefundedMinorUnits int64  `json:"refunded_minor_units"`
	Currency           string `json:"currency"`
}

func toPaymentStatusResponse(orderID string, st *gateway.PaymentStatus) PaymentStatusResponse {
	return PaymentStatusResponse{
		OrderID:            orderID,
		TransactionID:      st.TransactionID,
		Status:             st.Status,
		Amount:             domain.FromMinorUnits(st.AmountMinorUnits).StringFixed(2),
		Refunded:           domain.FromMinorUnits(st.RefundedMinorUnits).StringFixed(2),
		AmountMinorUnits:   st.AmountMinorUnits,
		RefundedMinorUnits: st.RefundedMinorUnits,
		Currency:           st.Currency,
	}
}
