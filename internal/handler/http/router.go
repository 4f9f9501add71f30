package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/middleware"
)

// ServiceName labels metrics and spans emitted by the router.
const ServiceName = "storefront"

// Services bundles the business services the router exposes.
type Services struct {
	Catalog  *service.CatalogService
	Cart     *service.CartService
	Checkout *service.CheckoutService
	Orders   *service.OrderService
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(
	svcs Services,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cors middleware.CORSConfig,
	limit middleware.RateLimitConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cors))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(ServiceName))
	r.Use(middleware.Tracing(ServiceName))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	products := NewProductHandler(svcs.Catalog, logger)
	carts := NewCartHandler(svcs.Cart, logger)
	checkout := NewCheckoutHandler(svcs.Checkout, logger)
	orders := NewOrderHandler(svcs.Orders, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(LimitBody)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequestLogger(logger))

			r.Get("/products", products.ListProducts)
			r.Get("/products/{id}", products.GetProduct)
			r.Get("/orders/{id}", orders.GetOrder)

			r.Route("/admin", func(r chi.Router) {
				r.Post("/products", products.CreateProduct)
				r.Put("/products/{id}", products.UpdateProduct)
				r.Patch("/products/{id}/price", products.UpdatePrice)
				r.Delete("/products/{id}", products.DeleteProduct)

				r.Get("/orders", orders.ListOrders)
				r.Patch("/orders/{id}/status", orders.UpdateStatus)
				r.Get("/orders/{id}/payment", orders.PaymentStatus)
				r.Delete("/orders/{id}", orders.DeleteOrder)
			})
		})

		// Session-scoped endpoints.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(limit, logger))
			r.Use(middleware.Session())
			r.Use(middleware.RequestLogger(logger))

			r.Get("/cart", carts.GetCart)
			r.Delete("/cart", carts.ClearCart)
			r.Get("/cart/totals", carts.GetTotals)

			r.Post("/cart/items", carts.AddItem)
			r.Put("/cart/items/{productId}/{size}/{color}", carts.UpdateItemQuantity)
			r.Delete("/cart/items/{productId}/{size}/{color}", carts.RemoveItem)

			r.Post("/checkout", checkout.PlaceOrder)
		})
	})

	return r
}
