package service

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/gateway"
	"github.com/utafrali/storefront/internal/repository"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
)

// --- Mock Repositories ---

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Product), args.Int(1), args.Error(2)
}

func (m *mockProductRepository) Create(ctx context.Context, p *domain.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockProductRepository) Update(ctx context.Context, p *domain.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockProductRepository) UpdatePrice(ctx context.Context, id string, price decimal.Decimal, original decimal.NullDecimal) error {
	return m.Called(ctx, id, price, original).Error(0)
}

func (m *mockProductRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockCartRepository struct {
	mock.Mock
}

func (m *mockCartRepository) Get(ctx context.Context, sessionID string) (*domain.Cart, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockCartRepository) SaveIfVersion(ctx context.Context, cart *domain.Cart, expected int64) error {
	args := m.Called(ctx, cart, expected)
	if err := args.Error(0); err != nil {
		return err
	}
	cart.Version = expected + 1
	return nil
}

func (m *mockCartRepository) DeleteIfVersion(ctx context.Context, sessionID string, expected int64) error {
	return m.Called(ctx, sessionID, expected).Error(0)
}

type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *mockOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Order), args.Int(1), args.Error(2)
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus, updatedAt time.Time) error {
	return m.Called(ctx, id, from, to, updatedAt).Error(0)
}

func (m *mockOrderRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// --- Mock Gateway ---

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Name() string { return "mock" }

func (m *mockGateway) Charge(ctx context.Context, req gateway.ChargeRequest) (*gateway.ChargeResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.ChargeResult), args.Error(1)
}

func (m *mockGateway) Refund(ctx context.Context, req gateway.RefundRequest) (*gateway.RefundResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.RefundResult), args.Error(1)
}

func (m *mockGateway) Status(ctx context.Context, transactionID string) (*gateway.PaymentStatus, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.PaymentStatus), args.Error(1)
}

// --- Event capture ---

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, topic string, _ *pkgkafka.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.topics = append(r.topics, topic)
	return nil
}

func (r *recordingPublisher) published() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.topics...)
}

// --- Test Helpers ---

var fixedNow = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestProducer(pub *recordingPublisher) *event.Producer {
	return event.NewProducer(pub, newTestLogger())
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func boolPtr(v bool) *bool { return &v }

func newTee() *domain.Product {
	return &domain.Product{
		ID:         "tee-1",
		Name:       "Tactical Tee",
		Price:      decimal.RequireFromString("45.00"),
		Category:   domain.CategoryTees,
		Sizes:      []string{"S", "M", "L", "XL"},
		Colors:     []string{"Black", "Olive"},
		InStock:    true,
		StockCount: intPtr(20),
		CreatedAt:  fixedNow,
		UpdatedAt:  fixedNow,
	}
}

func newHoodie() *domain.Product {
	return &domain.Product{
		ID:        "hoodie-1",
		Name:      "Combat Ready Hoodie",
		Price:     decimal.RequireFromString("85.00"),
		Category:  domain.CategoryHoodies,
		Sizes:     []string{"M", "L"},
		Colors:    []string{"Black"},
		InStock:   true,
		CreatedAt: fixedNow,
		UpdatedAt: fixedNow,
	}
}

// storedCart builds a cart as the store would return it, with the given lines
// added through the engine.
func storedCart(sessionID string, version int64, lines ...domain.LineItem) *domain.Cart {
	c := domain.NewCart("cart-1", sessionID, "USD")
	if err := domain.Replay(c, lines, nil); err != nil {
		panic(err)
	}
	c.Version = version
	c.CreatedAt = fixedNow
	c.UpdatedAt = fixedNow
	return c
}

func teeLine(qty int) domain.LineItem {
	return domain.LineItem{
		ProductID: "tee-1",
		Name:      "Tactical Tee",
		UnitPrice: decimal.RequireFromString("45.00"),
		Size:      "M",
		Color:     "Black",
		Quantity:  qty,
	}
}
