package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/service"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/validator"
)

// CartHandler handles HTTP requests for cart endpoints. The session comes
// from the Session middleware.
type CartHandler struct {
	service *service.CartService
	logger  *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(svc *service.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		service: svc,
		logger:  logger,
	}
}

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.GetCart(r.Context(), middleware.SessionIDFromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, toCartResponse(cart))
}

// GetTotals handles GET /api/v1/cart/totals
func (h *CartHandler) GetTotals(w http.ResponseWriter, r *http.Request) {
	q, err := h.service.Quote(r.Context(), middleware.SessionIDFromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, toQuoteResponse(q))
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req service.AddItemInput
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	cart, err := h.service.AddItem(r.Context(), middleware.SessionIDFromRequest(r), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, toCartResponse(cart))
}

// UpdateItemQuantity handles PUT /api/v1/cart/items/{productId}/{size}/{color}
func (h *CartHandler) UpdateItemQuantity(w http.ResponseWriter, r *http.Request) {
	key, ok := h.lineKey(w, r)
	if !ok {
		return
	}

	var req service.UpdateQuantityInput
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	cart, err := h.service.UpdateQuantity(r.Context(), middleware.SessionIDFromRequest(r), key, req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, toCartResponse(cart))
}

// RemoveItem handles DELETE /api/v1/cart/items/{productId}/{size}/{color}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	key, ok := h.lineKey(w, r)
	if !ok {
		return
	}

	cart, err := h.service.RemoveItem(r.Context(), middleware.SessionIDFromRequest(r), key)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, toCartResponse(cart))
}

// ClearCart handles DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearCart(r.Context(), middleware.SessionIDFromRequest(r)); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (h *CartHandler) lineKey(w http.ResponseWriter, r *http.Request) (domain.LineKey, bool) {
	key := domain.LineKey{
		ProductID: chi.URLParam(r, "productId"),
		Size:      chi.URLParam(r, "size"),
		Color:     chi.URLParam(r, "color"),
	}
	if key.ProductID == "" || key.Size == "" || key.Color == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("productId, size and color are required"), h.logger)
		return domain.LineKey{}, false
	}
	return key, true
}
