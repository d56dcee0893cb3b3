package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MohasaidAli/coffee-shop-system/internal/domain/order"
	"github.com/MohasaidAli/coffee-shop-system/internal/domain/product"
)

const (
	createOrderSQL = `INSERT INTO orders (id, customer_id, total_amount, location, contact, note, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	createOrderItemSQL = `INSERT INTO order_items (order_id, product_id, quantity, price)
		VALUES ($1, $2, $3, $4)`

	decrementStockSQL = `UPDATE products SET stock = stock - $1 WHERE id = $2`

	orderColumns = `id, customer_id, total_amount, location, contact, note,
		status, cancel_reason, canceled_by, created_at`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	lockOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

	listOrderItemsSQL = `SELECT COALESCE(product_id, ''), quantity, price
		FROM order_items WHERE order_id = $1 ORDER BY id`

	listByCustomerSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE customer_id = $1 ORDER BY created_at DESC`

	listAllSQL = `SELECT o.id, o.customer_id, o.total_amount, o.location, o.contact, o.note,
		o.status, o.cancel_reason, o.canceled_by, o.created_at, u.name
		FROM orders o JOIN users u ON o.customer_id = u.id
		ORDER BY o.created_at DESC`

	revenueStatsSQL = `SELECT
		COALESCE(SUM(CASE WHEN status = 'Completed' THEN total_amount ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN status NOT IN ('Completed', 'Canceled') THEN total_amount ELSE 0 END), 0)
		FROM orders`

	updateOrderStatusSQL = `UPDATE orders SET status = $1, cancel_reason = $2, canceled_by = $3
		WHERE id = $4`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order header, its line items, and the per-item stock
// decrements in one transaction. A decrement that matches no product row
// aborts the whole operation with product.ErrNotFound, so a failed placement
// leaves orders, items and stock levels untouched.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	return withinTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, createOrderSQL,
			o.ID, o.CustomerID, o.TotalAmount, o.Location, o.Contact, o.Note, string(o.Status),
		).Scan(&o.CreatedAt)
		if err != nil {
			return fmt.Errorf("creating order %q: %w", o.ID, err)
		}

		// Line items and stock decrements go out as one batch. The UPDATE does
		// its arithmetic in the database under the row lock it takes, so two
		// concurrent placements hitting the same product cannot lose a decrement.
		batch := &pgx.Batch{}
		for _, item := range o.Items {
			batch.Queue(createOrderItemSQL, o.ID, item.ProductID, item.Quantity, item.Price)
		}
		for _, item := range o.Items {
			batch.Queue(decrementStockSQL, item.Quantity, item.ProductID)
		}

		br := tx.SendBatch(ctx, batch)
		defer br.Close() //nolint:errcheck // second close is a no-op

		for _, item := range o.Items {
			if _, err := br.Exec(); err != nil {
				// An unknown product trips the order_items foreign key before
				// the decrement stage gets a chance to report it.
				if isForeignKeyViolation(err) {
					return fmt.Errorf("creating order item for product %q: %w", item.ProductID, product.ErrNotFound)
				}
				return fmt.Errorf("creating order item for product %q: %w", item.ProductID, err)
			}
		}
		for _, item := range o.Items {
			tag, err := br.Exec()
			if err != nil {
				return fmt.Errorf("decrementing stock for product %q: %w", item.ProductID, err)
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("decrementing stock for product %q: %w", item.ProductID, product.ErrNotFound)
			}
		}

		return br.Close()
	})
}

// GetByID returns the order header with its line items.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, getOrderSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	rows, err := r.pool.Query(ctx, listOrderItemsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order items for %q: %w", id, err)
	}
	o.Items, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.OrderItem, error) {
		var item order.OrderItem
		err := row.Scan(&item.ProductID, &item.Quantity, &item.Price)
		return item, err
	})
	if err != nil {
		return nil, fmt.Errorf("getting order items for %q: %w", id, err)
	}

	return o, nil
}

// ListByCustomer returns the customer's order headers, newest first.
func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listByCustomerSQL, customerID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for customer %q: %w", customerID, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.Order, error) {
		o, err := scanOrder(row)
		if err != nil {
			return order.Order{}, err
		}
		return *o, nil
	})
}

// ListAll returns every order joined with the customer name, newest first.
func (r *OrderRepository) ListAll(ctx context.Context) ([]order.AdminOrder, error) {
	rows, err := r.pool.Query(ctx, listAllSQL)
	if err != nil {
		return nil, fmt.Errorf("listing all orders: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.AdminOrder, error) {
		var (
			ao           order.AdminOrder
			status       string
			cancelReason *string
			canceledBy   *string
		)
		err := row.Scan(
			&ao.ID, &ao.CustomerID, &ao.TotalAmount, &ao.Location, &ao.Contact, &ao.Note,
			&status, &cancelReason, &canceledBy, &ao.CreatedAt, &ao.CustomerName,
		)
		ao.Status = order.Status(status)
		ao.CancelReason = cancelReason
		ao.CanceledBy = toActorKind(canceledBy)
		return ao, err
	})
}

// RevenueStats sums amounts for Completed orders and for orders still in
// flight. Canceled orders count toward neither.
func (r *OrderRepository) RevenueStats(ctx context.Context) (*order.RevenueStats, error) {
	var stats order.RevenueStats
	err := r.pool.QueryRow(ctx, revenueStatsSQL).Scan(&stats.TotalRevenue, &stats.PotentialRevenue)
	if err != nil {
		return nil, fmt.Errorf("computing revenue stats: %w", err)
	}
	return &stats, nil
}

// Transition loads the order under FOR UPDATE, applies fn, and writes the
// status fields back before committing. Holding the row lock across the
// guard-read and the write means two concurrent transitions cannot both pass
// a guard on stale state.
func (r *OrderRepository) Transition(ctx context.Context, id string, fn func(o *order.Order) error) error {
	return withinTx(ctx, r.pool, func(tx pgx.Tx) error {
		o, err := scanOrder(tx.QueryRow(ctx, lockOrderSQL, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return order.ErrNotFound
			}
			return fmt.Errorf("locking order %q: %w", id, err)
		}

		if err := fn(o); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, updateOrderStatusSQL,
			string(o.Status), o.CancelReason, fromActorKind(o.CanceledBy), id,
		)
		if err != nil {
			return fmt.Errorf("updating order %q: %w", id, err)
		}
		return nil
	})
}

// isForeignKeyViolation reports whether err is PostgreSQL error 23503.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// row is the subset of pgx.Row/CollectableRow both query paths satisfy.
type row interface {
	Scan(dest ...any) error
}

func scanOrder(r row) (*order.Order, error) {
	var (
		o            order.Order
		status       string
		cancelReason *string
		canceledBy   *string
	)
	err := r.Scan(
		&o.ID, &o.CustomerID, &o.TotalAmount, &o.Location, &o.Contact, &o.Note,
		&status, &cancelReason, &canceledBy, &o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Status = order.Status(status)
	o.CancelReason = cancelReason
	o.CanceledBy = toActorKind(canceledBy)
	return &o, nil
}

func toActorKind(s *string) *order.ActorKind {
	if s == nil {
		return nil
	}
	kind := order.ActorKind(*s)
	return &kind
}

func fromActorKind(k *order.ActorKind) *string {
	if k == nil {
		return nil
	}
	s := string(*k)
	return &s
}
