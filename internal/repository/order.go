package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flicky/bakery-api/internal/model"
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrStatusConflict    = errors.New("order status changed concurrently")
)

// OrderFilter narrows the admin order listing. Zero values disable a filter.
type OrderFilter struct {
	Limit  int
	Offset int
	Status model.OrderStatus
	From   *time.Time
	To     *time.Time
}

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]model.Order, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.OrderStatus) error
	Cancel(ctx context.Context, id uuid.UUID) error
	ListForReport(ctx context.Context, from, to time.Time) ([]model.Order, error)
}

type pgOrderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &pgOrderRepo{pool: pool}
}

const orderColumns = `id, user_id, total, status, delivery_date, delivery_address, phone, notes, payment_method, created_at, updated_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	o := &model.Order{}
	err := row.Scan(&o.ID, &o.UserID, &o.Total, &o.Status, &o.DeliveryDate, &o.DeliveryAddress,
		&o.Phone, &o.Notes, &o.PaymentMethod, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

// Create inserts the order, its lines and the stock decrements in a single
// transaction. Lines must already carry unit prices and subtotals.
func (r *pgOrderRepo) Create(ctx context.Context, order *model.Order) error {
	order.ID = uuid.New()
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO orders (id, user_id, total, status, delivery_date, delivery_address, phone, notes, payment_method, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW()) RETURNING created_at, updated_at`,
			order.ID, order.UserID, order.Total, order.Status, order.DeliveryDate, order.DeliveryAddress,
			order.Phone, order.Notes, order.PaymentMethod,
		).Scan(&order.CreatedAt, &order.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for i := range order.Lines {
			line := &order.Lines[i]
			ct, err := tx.Exec(ctx,
				`UPDATE products SET stock = stock - $2, updated_at = NOW() WHERE id = $1 AND active AND stock >= $2`,
				line.ProductID, line.Quantity,
			)
			if err != nil {
				return fmt.Errorf("decrement stock: %w", err)
			}
			if ct.RowsAffected() == 0 {
				return fmt.Errorf("%w: %s", ErrInsufficientStock, line.ProductName)
			}

			line.ID = uuid.New()
			line.OrderID = order.ID
			_, err = tx.Exec(ctx,
				`INSERT INTO order_lines (id, order_id, product_id, product_name, quantity, unit_price, subtotal)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				line.ID, line.OrderID, line.ProductID, line.ProductName, line.Quantity, line.UnitPrice, line.Subtotal,
			)
			if err != nil {
				return fmt.Errorf("insert order line: %w", err)
			}
		}
		return nil
	})
}

func (r *pgOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	lines, err := r.linesFor(ctx, r.pool, []uuid.UUID{order.ID})
	if err != nil {
		return nil, err
	}
	order.Lines = lines[order.ID]
	return order, nil
}

func (r *pgOrderRepo) ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	orders, err := collectOrders(rows)
	if err != nil {
		return nil, err
	}
	return orders, r.attachLines(ctx, r.pool, orders)
}

func (r *pgOrderRepo) List(ctx context.Context, f OrderFilter) ([]model.Order, int, error) {
	where := `WHERE ($1 = '' OR status = $1)
		AND ($2::timestamptz IS NULL OR created_at >= $2)
		AND ($3::timestamptz IS NULL OR created_at < $3)`
	args := []any{string(f.Status), f.From, f.To}

	var (
		orders []model.Order
		total  int
	)
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM orders `+where, args...).Scan(&total); err != nil {
			return fmt.Errorf("count orders: %w", err)
		}
		rows, err := tx.Query(ctx,
			`SELECT `+orderColumns+` FROM orders `+where+` ORDER BY created_at DESC LIMIT $4 OFFSET $5`,
			append(args, f.Limit, f.Offset)...,
		)
		if err != nil {
			return fmt.Errorf("list orders: %w", err)
		}
		if orders, err = collectOrders(rows); err != nil {
			return err
		}
		return r.attachLines(ctx, tx, orders)
	})
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *pgOrderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.OrderStatus) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`,
		id, from, to,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrStatusConflict
	}
	return nil
}

// Cancel moves a pending order to cancelled and gives its stock back.
func (r *pgOrderRepo) Cancel(ctx context.Context, id uuid.UUID) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx,
			`UPDATE orders SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`,
			id, model.OrderStatusPending, model.OrderStatusCancelled,
		)
		if err != nil {
			return fmt.Errorf("cancel order: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return ErrStatusConflict
		}

		_, err = tx.Exec(ctx,
			`UPDATE products p SET stock = p.stock + l.quantity, updated_at = NOW()
			 FROM order_lines l WHERE l.order_id = $1 AND l.product_id = p.id`, id,
		)
		if err != nil {
			return fmt.Errorf("restore stock: %w", err)
		}
		return nil
	})
}

// ListForReport returns every non-cancelled order created in [from, to) with
// its lines, category ids included.
func (r *pgOrderRepo) ListForReport(ctx context.Context, from, to time.Time) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE created_at >= $1 AND created_at < $2 AND status <> $3
		 ORDER BY created_at`,
		from, to, model.OrderStatusCancelled,
	)
	if err != nil {
		return nil, fmt.Errorf("list report orders: %w", err)
	}
	orders, err := collectOrders(rows)
	if err != nil {
		return nil, err
	}
	return orders, r.attachLines(ctx, r.pool, orders)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func collectOrders(rows pgx.Rows) ([]model.Order, error) {
	defer rows.Close()
	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func (r *pgOrderRepo) attachLines(ctx context.Context, q querier, orders []model.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	lines, err := r.linesFor(ctx, q, ids)
	if err != nil {
		return err
	}
	for i := range orders {
		orders[i].Lines = lines[orders[i].ID]
	}
	return nil
}

func (r *pgOrderRepo) linesFor(ctx context.Context, q querier, orderIDs []uuid.UUID) (map[uuid.UUID][]model.OrderLine, error) {
	ids := make([]string, len(orderIDs))
	for i, id := range orderIDs {
		ids[i] = id.String()
	}

	rows, err := q.Query(ctx,
		`SELECT l.id, l.order_id, l.product_id, l.product_name, p.category_id, l.quantity, l.unit_price, l.subtotal
		 FROM order_lines l JOIN products p ON p.id = l.product_id
		 WHERE l.order_id = ANY($1::uuid[])`, ids,
	)
	if err != nil {
		return nil, fmt.Errorf("get order lines: %w", err)
	}
	defer rows.Close()

	result := make(map[uuid.UUID][]model.OrderLine, len(orderIDs))
	for rows.Next() {
		var l model.OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.ProductName, &l.CategoryID,
			&l.Quantity, &l.UnitPrice, &l.Subtotal); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		result[l.OrderID] = append(result[l.OrderID], l)
	}
	return result, rows.Err()
}
