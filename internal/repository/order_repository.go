package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"stride/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderNumberConflict = errors.New("order number already exists")
)

// OrderStats aggregates every stored order for the admin dashboard
type OrderStats struct {
	TotalSales      decimal.Decimal `json:"totalSales"`
	TotalOrders     int             `json:"totalOrders"`
	UniqueCustomers int             `json:"uniqueCustomers"`
}

// OrderRepository is the remote order store
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Order, error)
	ListAll(ctx context.Context) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteForUser(ctx context.Context, id, userID uuid.UUID) error
	Stats(ctx context.Context) (OrderStats, error)
}

type orderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `id, user_id, order_number, status, items, subtotal, shipping, tax, total,
	shipping_address, created_at, updated_at`

// Create inserts the order and fills in the generated id and timestamps
func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to encode order items: %w", err)
	}
	address, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("failed to encode shipping address: %w", err)
	}
	if order.Status == "" {
		order.Status = domain.StatusPending
	}

	query := `
		INSERT INTO orders (user_id, order_number, status, items, subtotal, shipping, tax, total, shipping_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	err = r.db.QueryRowContext(ctx, query,
		order.UserID,
		order.OrderNumber,
		string(order.Status),
		string(items),
		order.Subtotal.StringFixed(2),
		order.Shipping.StringFixed(2),
		order.Tax.StringFixed(2),
		order.Total.StringFixed(2),
		string(address),
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrOrderNumberConflict
		}
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}
	return order, nil
}

// ListByUser returns the order history of a user, newest first
func (r *orderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC, order_number DESC`
	return r.list(ctx, query, userID)
}

func (r *orderRepository) ListAll(ctx context.Context) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC, order_number DESC`
	return r.list(ctx, query)
}

func (r *orderRepository) list(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus changes the status and returns the updated row. The
// order_status_updates trigger announces the change to listeners.
func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	query := `UPDATE orders SET status = $1 WHERE id = $2 RETURNING ` + orderColumns

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, string(status), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	return order, nil
}

func (r *orderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	return requireRow(result, ErrOrderNotFound)
}

// DeleteForUser deletes an order only when it belongs to userID. Orders of
// other users are reported as not found.
func (r *orderRepository) DeleteForUser(ctx context.Context, id, userID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	return requireRow(result, ErrOrderNotFound)
}

func (r *orderRepository) Stats(ctx context.Context) (OrderStats, error) {
	query := `SELECT COALESCE(SUM(total), 0), COUNT(*), COUNT(DISTINCT user_id) FROM orders`

	var stats OrderStats
	err := r.db.QueryRowContext(ctx, query).Scan(&stats.TotalSales, &stats.TotalOrders, &stats.UniqueCustomers)
	if err != nil {
		return OrderStats{}, fmt.Errorf("failed to compute order stats: %w", err)
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		order   domain.Order
		status  string
		items   []byte
		address []byte
	)
	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.OrderNumber,
		&status,
		&items,
		&order.Subtotal,
		&order.Shipping,
		&order.Tax,
		&order.Total,
		&address,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	order.Status = domain.OrderStatus(status)
	if err := json.Unmarshal(items, &order.Items); err != nil {
		return nil, fmt.Errorf("failed to decode order items: %w", err)
	}
	if err := json.Unmarshal(address, &order.ShippingAddress); err != nil {
		return nil, fmt.Errorf("failed to decode shipping address: %w", err)
	}
	return &order, nil
}

func requireRow(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}
