package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
)

// ─────────────────────────────────────────────────────────────────────────────
// helpers
// ─────────────────────────────────────────────────────────────────────────────

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return mock
}

func boolPtr(b bool) *bool { return &b }
func intPtr(n int) *int    { return &n }

var now = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

var productCols = []string{
	"id", "name", "description", "price", "original_price", "category", "sizes", "colors",
	"in_stock", "stock_count", "featured", "new_arrival", "image_url", "created_at", "updated_at",
}

var productColsWithCount = append(append([]string{}, productCols...), "total_count")

func sampleProduct() domain.Product {
	return domain.Product{
		ID:            "1",
		Name:          "RICH-U-ALS Tactical Tee",
		Description:   "Premium tee",
		Price:         decimal.RequireFromString("45.00"),
		OriginalPrice: decimal.NewNullDecimal(decimal.RequireFromString("55.00")),
		Category:      domain.CategoryTees,
		Sizes:         []string{"S", "M", "L"},
		Colors:        []string{"Black", "Olive"},
		InStock:       true,
		StockCount:    intPtr(12),
		Featured:      true,
		ImageURL:      "https://img.example.com/tee.jpg",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func productRow(p domain.Product) []any {
	return []any{
		p.ID, p.Name, p.Description, p.Price, p.OriginalPrice, string(p.Category), p.Sizes, p.Colors,
		p.InStock, p.StockCount, p.Featured, p.NewArrival, p.ImageURL, p.CreatedAt, p.UpdatedAt,
	}
}

func productArgs(p domain.Product) []any {
	return []any{
		p.ID, p.Name, p.Description, p.Price, p.OriginalPrice, p.Category, p.Sizes, p.Colors,
		p.InStock, p.StockCount, p.Featured, p.NewArrival, p.ImageURL, p.CreatedAt, p.UpdatedAt,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Create
// ─────────────────────────────────────────────────────────────────────────────

func TestProductRepository_Create_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock, nil)

	p := sampleProduct()
	mock.ExpectExec("INSERT INTO products").
		WithArgs(productArgs(p)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), &p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Create_UniqueViolation(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock, nil)

	p := sampleProduct()
	mock.ExpectExec("INSERT INTO products").
		WithArgs(productArgs(p)...).
		WillReturnError(errors.New("ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)"))

	err := repo.Create(context.Background(), &p)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ─────────────────────────────────────────────────────────────────────────────
// GetByID
// ─────────────────────────────────────────────────────────────────────────────

func TestProductRepository_GetByID_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock, database.NewQueryTracer(nil, time.Second))

	p := sampleProduct()
	mock.ExpectQuery("SELECT .+ FROM products WHERE id").
		WithArgs(p.ID).
		WillReturnRows(pgxmock.NewRows(productCols).AddRow(productRow(p)...))

	got, err := repo.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
	assert.Equal(t, domain.CategoryTees, got.Category)
	assert.True(t, got.Price.Equal(p.Price))
	assert.True(t, got.OnSale())
	assert.Equal(t, []string{"S", "M", "L"}, got.Sizes)
	require.NotNil(t, got.StockCount)
	assert.Equal(t, 12, *got.StockCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_GetByID_NotFound(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock, nil)

	mock.ExpectQuery("SELECT .+ FROM products WHERE id").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	got, err := repo.GetByID(context.Background(), "missing")
	assert.Nil(t, got)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_GetByID_DBError(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock, nil)

	mock.ExpectQuery("SELECT .+ FROM products WHERE id").
		WithArgs("1").
		WillReturnError(errors.New("connection reset"))

	_, err := repo.GetByID(context.Background(), "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get product")
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)
}

// ─────────────────────────────────────────────────────────────────────────────
// List
// ─────────────────────────────────────────────────────────────────────────────

func TestProductRepository_List_Defaults(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock, nil)

	p := sampleProduct()
	mock.ExpectQuery("SELECT .+ FROM products").
		WithArgs(20, 0).
		WillReturnRows(pgxmock.NewRows(productColsWithCount).AddRow(append(productRow(p), 1)...))

	products, total, err := repo.List(context.Background(), repository.ProductFilter{})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, p.ID, products[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_List_WithFilters(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock, nil)

	cat := domain.CategoryHoodies
	filter := repository.ProductFilter{
		Category: &cat,
		InStock:  boolPtr(true),
		Featured: boolPtr(true),
		Params:   pagination.Params{Page: 3, PerPage: 5},
	}

	mock.ExpectQuery(`SELECT .+ FROM products WHERE category = \$1 AND in_stock AND .+ AND featured = \$2`).
		WithArgs("hoodies", true, 5, 10).
		WillReturnRows(pgxmock.NewRows(productColsWithCount))

	products, total, err := repo.List(context.Background(), filter)
	require.NoError(t, err)
	assert.Empty(t, products)
	assert.NotNil(t, products)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ─────────────────────────────────────────────────────────────────────────────
// Update / UpdatePrice / Delete
// ─────────────────────────────────────────────────────────────────────────────

func TestProductRepository_Update(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock, nil)

	p := sampleProduct()
	args := []any{
		p.Name, p.Description, p.Price, p.OriginalPrice, p.Category, p.Sizes, p.Colors,
		p.InStock, p.StockCount, p.Featured, p.NewArrival, p.ImageURL, pgxmock.AnyArg(), p.ID,
	}

	mock.ExpectExec("UPDATE products").WithArgs(args...).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, repo.Update(context.Background(), &p))
	assert.True(t, p.UpdatedAt.After(now))

	mock.ExpectExec("UPDATE products").WithArgs(args...).WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	err := repo.Update(context.Background(), &p)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_UpdatePrice(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock, nil)

	price := decimal.RequireFromString("39.99")
	mock.ExpectExec("UPDATE products SET price").
		WithArgs(price, decimal.NullDecimal{}, pgxmock.AnyArg(), "1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, repo.UpdatePrice(context.Background(), "1", price, decimal.NullDecimal{}))

	mock.ExpectExec("UPDATE products SET price").
		WithArgs(price, decimal.NullDecimal{}, pgxmock.AnyArg(), "nope").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	assert.ErrorIs(t, repo.UpdatePrice(context.Background(), "nope", price, decimal.NullDecimal{}), apperrors.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Delete(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock, nil)

	mock.ExpectExec("DELETE FROM products WHERE").WithArgs("1").WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, repo.Delete(context.Background(), "1"))

	mock.ExpectExec("DELETE FROM products WHERE").WithArgs("1").WillReturnResult(pgxmock.NewResult("DELETE", 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), "1"), apperrors.ErrNotFound)

	mock.ExpectExec("DELETE FROM products WHERE").WithArgs("2").WillReturnError(errors.New("fk violation"))
	err := repo.Delete(context.Background(), "2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete product")

	assert.NoError(t, mock.ExpectationsWereMet())
}
