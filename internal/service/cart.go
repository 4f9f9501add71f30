package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Cart operation upper-bound limits to prevent abuse.
const (
	// MaxQuantityPerItem is the maximum quantity allowed for a single line.
	MaxQuantityPerItem = 100
	// MaxItemsPerCart is the maximum number of distinct lines allowed in a cart.
	MaxItemsPerCart = 50
)

// ClearReasonUser and ClearReasonCheckout label cart.cleared events.
const (
	ClearReasonUser     = "user"
	ClearReasonCheckout = "checkout"
)

// AddItemInput holds the parameters for adding one unit to the cart.
type AddItemInput struct {
	ProductID string `json:"product_id" validate:"required"`
	Size      string `json:"size" validate:"required"`
	Color     string `json:"color" validate:"required"`
}

// UpdateQuantityInput holds the parameters for setting a line's quantity.
// Zero or less removes the line; a missing quantity is rejected.
type UpdateQuantityInput struct {
	Quantity *int `json:"quantity" validate:"required,lte=100"`
}

// Quote is a cart together with its priced totals.
type Quote struct {
	Cart   *domain.Cart       `json:"cart"`
	Totals domain.OrderTotals `json:"totals"`
}

// CartService implements the business logic for cart operations.
type CartService struct {
	repo     repository.CartRepository
	products repository.ProductRepository
	producer *event.Producer
	logger   *slog.Logger
	pricing  domain.PricingConfig
	now      func() time.Time
}

// NewCartService creates a new cart service.
func NewCartService(
	repo repository.CartRepository,
	products repository.ProductRepository,
	producer *event.Producer,
	logger *slog.Logger,
	pricing domain.PricingConfig,
) *CartService {
	return &CartService{
		repo:     repo,
		products: products,
		producer: producer,
		logger:   logger,
		pricing:  pricing,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Pricing returns the pricing rules the service quotes with.
func (s *CartService) Pricing() domain.PricingConfig {
	return s.pricing
}

// GetCart retrieves the cart for a session. If no cart exists, returns an empty cart.
func (s *CartService) GetCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}
	return s.load(ctx, sessionID)
}

// AddItem adds one unit of a product in the given size and color. Adding an
// existing selection increments its quantity.
func (s *CartService) AddItem(ctx context.Context, sessionID string, input AddItemInput) (*domain.Cart, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}
	if input.ProductID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}

	product, err := s.products.GetByID(ctx, input.ProductID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if !product.Purchasable() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("product %s is out of stock", product.ID))
	}

	cart, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.checkOpen(cart); err != nil {
		return nil, err
	}
	expectedVersion := cart.Version

	key := domain.LineKey{ProductID: input.ProductID, Size: input.Size, Color: input.Color}
	if existing, ok := cart.Find(key); ok {
		if existing.Quantity+1 > MaxQuantityPerItem {
			return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerItem))
		}
	} else if len(cart.Items) >= MaxItemsPerCart {
		return nil, apperrors.InvalidInput(fmt.Sprintf("cart must not contain more than %d items", MaxItemsPerCart))
	}

	if err := cart.AddItem(product, input.Size, input.Color); err != nil {
		return nil, err
	}

	if err := s.repo.SaveIfVersion(ctx, cart, expectedVersion); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}

	s.logger.InfoContext(ctx, "item added to cart",
		slog.String("session_id", sessionID),
		slog.String("line", key.String()),
		slog.String("subtotal", cart.Subtotal.StringFixed(2)),
	)
	s.publishUpdated(ctx, cart)
	return cart, nil
}

// RemoveItem drops a line from the cart. Removing a missing line is a no-op.
func (s *CartService) RemoveItem(ctx context.Context, sessionID string, key domain.LineKey) (*domain.Cart, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}

	cart, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if _, ok := cart.Find(key); !ok {
		return cart, nil
	}
	if err := s.checkOpen(cart); err != nil {
		return nil, err
	}
	expectedVersion := cart.Version

	cart.RemoveItem(key)

	if err := s.repo.SaveIfVersion(ctx, cart, expectedVersion); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}

	s.logger.InfoContext(ctx, "item removed from cart",
		slog.String("session_id", sessionID),
		slog.String("line", key.String()),
	)
	s.publishUpdated(ctx, cart)
	return cart, nil
}

// UpdateQuantity sets a line's quantity. A quantity of zero or less removes
// the line.
func (s *CartService) UpdateQuantity(ctx context.Context, sessionID string, key domain.LineKey, input UpdateQuantityInput) (*domain.Cart, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}
	if input.Quantity == nil {
		return nil, apperrors.InvalidInput("quantity is required")
	}
	quantity := *input.Quantity
	if quantity > MaxQuantityPerItem {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerItem))
	}

	cart, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	_, exists := cart.Find(key)
	if quantity <= 0 && !exists {
		return cart, nil
	}
	if err := s.checkOpen(cart); err != nil {
		return nil, err
	}
	expectedVersion := cart.Version

	if err := cart.UpdateQuantity(key, quantity); err != nil {
		return nil, err
	}

	if err := s.repo.SaveIfVersion(ctx, cart, expectedVersion); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}

	s.logger.InfoContext(ctx, "cart item quantity updated",
		slog.String("session_id", sessionID),
		slog.String("line", key.String()),
		slog.Int("quantity", quantity),
	)
	s.publishUpdated(ctx, cart)
	return cart, nil
}

// ClearCart deletes the session's cart. A cart held by a checkout cannot be
// cleared until the checkout finishes.
func (s *CartService) ClearCart(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return apperrors.InvalidInput("session id is required")
	}

	cart, err := s.load(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := s.checkOpen(cart); err != nil {
		return err
	}

	if err := s.repo.DeleteIfVersion(ctx, sessionID, cart.Version); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	s.cleared(ctx, sessionID, ClearReasonUser)
	return nil
}

// Quote prices the session's current cart.
func (s *CartService) Quote(ctx context.Context, sessionID string) (*Quote, error) {
	cart, err := s.GetCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &Quote{Cart: cart, Totals: domain.ComputeOrderTotals(cart, s.pricing)}, nil
}

// checkOpen rejects mutations while a checkout holds the cart. An expired
// claim is dropped so the next save releases the cart.
func (s *CartService) checkOpen(cart *domain.Cart) error {
	if cart.CheckingOut(s.now()) {
		return apperrors.Conflict(fmt.Sprintf("checkout in progress for session %s", cart.SessionID))
	}
	cart.Release()
	return nil
}

// claim marks the cart as held by the checkout for orderID with a
// version-checked write. A concurrent checkout or edit of the same version
// loses with a Conflict error.
func (s *CartService) claim(ctx context.Context, cart *domain.Cart, orderID string, ttl time.Duration) error {
	expected := cart.Version
	cart.Claim(orderID, s.now().Add(ttl))
	if err := s.repo.SaveIfVersion(ctx, cart, expected); err != nil {
		cart.Release()
		return err
	}
	return nil
}

// release drops the checkout claim after a failed checkout. It runs on a
// context that survives request cancellation.
func (s *CartService) release(ctx context.Context, cart *domain.Cart) {
	ctx = context.WithoutCancel(ctx)
	orderID := cart.Checkout.OrderID
	expected := cart.Version
	cart.Release()
	if err := s.repo.SaveIfVersion(ctx, cart, expected); err != nil {
		s.logger.WarnContext(ctx, "failed to release cart after checkout",
			slog.String("session_id", cart.SessionID),
			slog.String("order_id", orderID),
			slog.String("error", err.Error()),
		)
	}
}

// settle removes what a checkout charged for. If the cart is still at the
// claimed version it is deleted; otherwise only the charged quantities are
// taken out and anything added since is kept.
func (s *CartService) settle(ctx context.Context, sessionID string, claimed int64, orderID string, charged []domain.LineItem) error {
	err := s.repo.DeleteIfVersion(ctx, sessionID, claimed)
	if err == nil {
		s.cleared(ctx, sessionID, ClearReasonCheckout)
		return nil
	}
	if !errors.Is(err, apperrors.ErrConflict) {
		return fmt.Errorf("delete cart: %w", err)
	}

	cart, err := s.load(ctx, sessionID)
	if err != nil {
		return err
	}
	if cart.Version == 0 {
		return nil
	}
	if cart.CheckingOut(s.now()) && cart.Checkout.OrderID != orderID {
		return apperrors.Conflict(fmt.Sprintf("cart for session %s is held by checkout %s", sessionID, cart.Checkout.OrderID))
	}
	expected := cart.Version
	cart.Subtract(charged)
	if cart.Checkout != nil && cart.Checkout.OrderID == orderID {
		cart.Release()
	}
	if err := s.repo.SaveIfVersion(ctx, cart, expected); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}

	s.logger.InfoContext(ctx, "charged lines removed from modified cart",
		slog.String("session_id", sessionID),
		slog.String("order_id", orderID),
		slog.Int("remaining_lines", len(cart.Items)),
	)
	s.publishUpdated(ctx, cart)
	return nil
}

func (s *CartService) cleared(ctx context.Context, sessionID, reason string) {
	s.logger.InfoContext(ctx, "cart cleared",
		slog.String("session_id", sessionID),
		slog.String("reason", reason),
	)

	if err := s.producer.PublishCartCleared(ctx, sessionID, reason); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart cleared event",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}
}

// load returns the stored cart or a new empty one, repairing a running
// subtotal that no longer matches its lines.
func (s *CartService) load(ctx context.Context, sessionID string) (*domain.Cart, error) {
	cart, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.NewCart(uuid.NewString(), sessionID, s.pricing.Currency), nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}

	if computed, ok := cart.VerifySubtotal(); !ok {
		s.logger.WarnContext(ctx, "cart subtotal drift detected, repairing",
			slog.String("session_id", sessionID),
			slog.String("stored", cart.Subtotal.StringFixed(2)),
			slog.String("computed", computed.StringFixed(2)),
		)
		cart.Subtotal = computed
	}
	return cart, nil
}

func (s *CartService) publishUpdated(ctx context.Context, cart *domain.Cart) {
	if err := s.producer.PublishCartUpdated(ctx, cart); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart updated event",
			slog.String("session_id", cart.SessionID),
			slog.String("error", err.Error()),
		)
	}
}
