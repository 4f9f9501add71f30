package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

const orderColumns = `id, session_id, customer_name, customer_email, shipping_address,
		subtotal_cents, shipping_cents, tax_cents, total_cents, currency, status,
		payment_transaction_id, created_at, updated_at`

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	db     database.DBTX
	tracer *database.QueryTracer
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(db database.DBTX, tracer *database.QueryTracer) *OrderRepository {
	return &OrderRepository{db: db, tracer: tracer}
}

// Create inserts the order and its items in one transaction.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) (err error) {
	addressJSON, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshal shipping address: %w", err)
	}

	orderQuery := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	itemQuery := `
		INSERT INTO order_items (order_id, product_id, name, size, color, unit_price_cents, quantity, line_total_cents)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	ctx, done := r.tracer.Trace(ctx, "orders.create", orderQuery)
	defer func() { done(err) }()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin order tx: %w", err)
	}

	_, err = tx.Exec(ctx, orderQuery,
		o.ID,
		o.SessionID,
		o.Customer.Name,
		o.Customer.Email,
		addressJSON,
		o.SubtotalCents,
		o.ShippingCents,
		o.TaxCents,
		o.TotalCents,
		o.Currency,
		o.Status,
		o.PaymentTransactionID,
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		_ = tx.Rollback(ctx)
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("order", "id", o.ID)
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for _, it := range o.Items {
		if _, err = tx.Exec(ctx, itemQuery,
			o.ID,
			it.ProductID,
			it.Name,
			it.Size,
			it.Color,
			it.UnitPriceCents,
			it.Quantity,
			it.LineTotalCents,
		); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit order tx: %w", err)
	}
	return nil
}

// GetByID retrieves an order and its items.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (_ *domain.Order, err error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	ctx, done := r.tracer.Trace(ctx, "orders.get", query)
	defer func() { done(err) }()

	o, err := scanOrder(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", id)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	items, err := r.loadItems(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	o.Items = items[id]
	if o.Items == nil {
		o.Items = []domain.OrderItem{}
	}
	return o, nil
}

// List returns orders matching the filter, newest first, with the total count.
func (r *OrderRepository) List(ctx context.Context, filter repository.OrderFilter) (_ []domain.Order, _ int, err error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, string(*filter.Status))
		argIndex++
	}

	if filter.Email != "" {
		conditions = append(conditions, fmt.Sprintf("lower(customer_email) = lower($%d)", argIndex))
		args = append(args, filter.Email)
		argIndex++
	}

	if filter.Query != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(id ILIKE $%[1]d OR customer_name ILIKE $%[1]d OR customer_email ILIKE $%[1]d)", argIndex))
		args = append(args, "%"+escapeLike(filter.Query)+"%")
		argIndex++
	}

	if filter.CreatedFrom != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argIndex))
		args = append(args, *filter.CreatedFrom)
		argIndex++
	}

	if filter.CreatedTo != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argIndex))
		args = append(args, *filter.CreatedTo)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s,
			   count(*) OVER() AS total_count
		FROM orders
		%s
		ORDER BY created_at DESC, id
		LIMIT $%d OFFSET $%d`,
		orderColumns, whereClause, argIndex, argIndex+1,
	)

	params := normalize(filter.Params)
	args = append(args, params.PerPage, params.Offset())

	ctx, done := r.tracer.Trace(ctx, "orders.list", query)
	defer func() { done(err) }()

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}

	var (
		orders     []domain.Order
		ids        []string
		totalCount int
	)
	for rows.Next() {
		o, err := scanOrder(rows, &totalCount)
		if err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, *o)
		ids = append(ids, o.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}

	if len(orders) == 0 {
		return []domain.Order{}, totalCount, nil
	}

	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
		if orders[i].Items == nil {
			orders[i].Items = []domain.OrderItem{}
		}
	}
	return orders, totalCount, nil
}

// UpdateStatus moves an order from one status to another. The status is
// compared in the same statement so concurrent transitions cannot both apply.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus, updatedAt time.Time) (err error) {
	query := `UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`

	ctx, done := r.tracer.Trace(ctx, "orders.update_status", query)
	defer func() { done(err) }()

	ct, err := r.db.Exec(ctx, query, string(to), updatedAt, id, string(from))
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if ct.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check order exists: %w", err)
	}
	if !exists {
		return apperrors.NotFound("order", id)
	}
	return apperrors.Conflict(fmt.Sprintf("order %s is no longer %s", id, from))
}

// Delete removes an order; its items go with it through ON DELETE CASCADE.
func (r *OrderRepository) Delete(ctx context.Context, id string) (err error) {
	query := `DELETE FROM orders WHERE id = $1`

	ctx, done := r.tracer.Trace(ctx, "orders.delete", query)
	defer func() { done(err) }()

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("order", id)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// loadItems returns the items of the given orders keyed by order ID.
func (r *OrderRepository) loadItems(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItem, error) {
	query := `
		SELECT order_id, product_id, name, size, color, unit_price_cents, quantity, line_total_cents
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY id`

	rows, err := r.db.Query(ctx, query, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	items := make(map[string][]domain.OrderItem, len(orderIDs))
	for rows.Next() {
		var (
			orderID string
			it      domain.OrderItem
		)
		if err := rows.Scan(
			&orderID,
			&it.ProductID,
			&it.Name,
			&it.Size,
			&it.Color,
			&it.UnitPriceCents,
			&it.Quantity,
			&it.LineTotalCents,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items[orderID] = append(items[orderID], it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}
	return items, nil
}

// scanOrder reads one order row. Extra destinations follow the order columns.
func scanOrder(row pgx.Row, extra ...any) (*domain.Order, error) {
	var (
		o           domain.Order
		addressJSON []byte
	)
	dest := []any{
		&o.ID,
		&o.SessionID,
		&o.Customer.Name,
		&o.Customer.Email,
		&addressJSON,
		&o.SubtotalCents,
		&o.ShippingCents,
		&o.TaxCents,
		&o.TotalCents,
		&o.Currency,
		&o.Status,
		&o.PaymentTransactionID,
		&o.CreatedAt,
		&o.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	if addressJSON != nil {
		if err := json.Unmarshal(addressJSON, &o.ShippingAddress); err != nil {
			return nil, fmt.Errorf("unmarshal shipping address: %w", err)
		}
	}
	return &o, nil
}
