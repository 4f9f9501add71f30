package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
)

const productColumns = `id, name, description, price, original_price, category, sizes, colors,
		in_stock, stock_count, featured, new_arrival, image_url, created_at, updated_at`

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	db     database.DBTX
	tracer *database.QueryTracer
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(db database.DBTX, tracer *database.QueryTracer) *ProductRepository {
	return &ProductRepository{db: db, tracer: tracer}
}

// Create inserts a new product into the database.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) (err error) {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	ctx, done := r.tracer.Trace(ctx, "products.create", query)
	defer func() { done(err) }()

	_, err = r.db.Exec(ctx, query,
		p.ID,
		p.Name,
		p.Description,
		p.Price,
		p.OriginalPrice,
		p.Category,
		p.Sizes,
		p.Colors,
		p.InStock,
		p.StockCount,
		p.Featured,
		p.NewArrival,
		p.ImageURL,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("product", "id", p.ID)
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (_ *domain.Product, err error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	ctx, done := r.tracer.Trace(ctx, "products.get", query)
	defer func() { done(err) }()

	p, err := scanProduct(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// List returns products matching the given filter with the total count.
func (r *ProductRepository) List(ctx context.Context, filter repository.ProductFilter) (_ []domain.Product, _ int, err error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.Category != nil {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argIndex))
		args = append(args, string(*filter.Category))
		argIndex++
	}

	if filter.InStock != nil {
		if *filter.InStock {
			conditions = append(conditions, "in_stock AND (stock_count IS NULL OR stock_count > 0)")
		} else {
			conditions = append(conditions, "NOT (in_stock AND (stock_count IS NULL OR stock_count > 0))")
		}
	}

	if filter.Featured != nil {
		conditions = append(conditions, fmt.Sprintf("featured = $%d", argIndex))
		args = append(args, *filter.Featured)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s,
			   count(*) OVER() AS total_count
		FROM products
		%s
		ORDER BY created_at, id
		LIMIT $%d OFFSET $%d`,
		productColumns, whereClause, argIndex, argIndex+1,
	)

	params := normalize(filter.Params)
	args = append(args, params.PerPage, params.Offset())

	ctx, done := r.tracer.Trace(ctx, "products.list", query)
	defer func() { done(err) }()

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var (
		products   []domain.Product
		totalCount int
	)
	for rows.Next() {
		p, err := scanProduct(rows, &totalCount)
		if err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}

	if products == nil {
		products = []domain.Product{}
	}
	return products, totalCount, nil
}

// Update modifies an existing product in the database.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) (err error) {
	p.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE products
		SET name = $1, description = $2, price = $3, original_price = $4, category = $5,
		    sizes = $6, colors = $7, in_stock = $8, stock_count = $9, featured = $10,
		    new_arrival = $11, image_url = $12, updated_at = $13
		WHERE id = $14`

	ctx, done := r.tracer.Trace(ctx, "products.update", query)
	defer func() { done(err) }()

	ct, err := r.db.Exec(ctx, query,
		p.Name,
		p.Description,
		p.Price,
		p.OriginalPrice,
		p.Category,
		p.Sizes,
		p.Colors,
		p.InStock,
		p.StockCount,
		p.Featured,
		p.NewArrival,
		p.ImageURL,
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", p.ID)
	}
	return nil
}

// UpdatePrice changes a product's current and original price.
func (r *ProductRepository) UpdatePrice(ctx context.Context, id string, price decimal.Decimal, original decimal.NullDecimal) (err error) {
	query := `UPDATE products SET price = $1, original_price = $2, updated_at = $3 WHERE id = $4`

	ctx, done := r.tracer.Trace(ctx, "products.update_price", query)
	defer func() { done(err) }()

	ct, err := r.db.Exec(ctx, query, price, original, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update product price: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", id)
	}
	return nil
}

// Delete removes a product from the database by its ID.
func (r *ProductRepository) Delete(ctx context.Context, id string) (err error) {
	query := `DELETE FROM products WHERE id = $1`

	ctx, done := r.tracer.Trace(ctx, "products.delete", query)
	defer func() { done(err) }()

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", id)
	}
	return nil
}

// scanProduct reads one product row. Extra destinations follow the product columns.
func scanProduct(row pgx.Row, extra ...any) (*domain.Product, error) {
	var p domain.Product
	dest := []any{
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.OriginalPrice,
		&p.Category,
		&p.Sizes,
		&p.Colors,
		&p.InStock,
		&p.StockCount,
		&p.Featured,
		&p.NewArrival,
		&p.ImageURL,
		&p.CreatedAt,
		&p.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &p, nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}

func normalize(p pagination.Params) pagination.Params {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = pagination.DefaultPerPage
	}
	return p
}
