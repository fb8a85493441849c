package repositories

import (
	"context"

	"stockflow/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByStatus(ctx context.Context, status models.OrderStatus, limit int) ([]*models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error
}

type orderRepo struct {
	db DB
}

func NewOrderRepository(db DB) OrderRepository {
	return &orderRepo{db: db}
}

func (r *orderRepo) Create(ctx context.Context, order *models.Order) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		query := `
			INSERT INTO orders (id, order_number, customer_name, status, notes, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
			RETURNING created_at, updated_at
		`
		err := tx.QueryRow(ctx, query, order.ID, order.OrderNumber, order.CustomerName, string(order.Status), order.Notes).
			Scan(&order.CreatedAt, &order.UpdatedAt)
		if err != nil {
			return err
		}

		itemQuery := `
			INSERT INTO order_items (id, order_id, line_no, product_id, quantity, created_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
		`
		for i, item := range order.Items {
			item.OrderID = order.ID
			item.LineNo = i + 1
			if _, err := tx.Exec(ctx, itemQuery, item.ID, item.OrderID, item.LineNo, item.ProductID, item.Quantity); err != nil {
				return err
			}
			item.CreatedAt = order.CreatedAt
		}
		return nil
	})
	return duplicate(err)
}

func (r *orderRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	query := `
		SELECT id, order_number, customer_name, status, notes, created_at, updated_at
		FROM orders
		WHERE id = $1
	`
	order, err := scanOrder(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// ListByStatus returns orders in submission order
func (r *orderRepo) ListByStatus(ctx context.Context, status models.OrderStatus, limit int) ([]*models.Order, error) {
	limit, _ = pageDefaults(limit, 0)
	query := `
		SELECT id, order_number, customer_name, status, notes, created_at, updated_at
		FROM orders
		WHERE status = $1
		ORDER BY created_at, order_number
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, string(status), limit)
	if err != nil {
		return nil, err
	}
	var orders []*models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		orders = append(orders, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, o := range orders {
		if err := r.loadItems(ctx, o); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *orderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error {
	query := `UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`
	return affectedOne(r.db.Exec(ctx, query, id, string(status)))
}

func (r *orderRepo) loadItems(ctx context.Context, order *models.Order) error {
	query := `
		SELECT id, order_id, line_no, product_id, quantity, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY line_no
	`
	rows, err := r.db.Query(ctx, query, order.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	order.Items = nil
	for rows.Next() {
		item := &models.OrderItem{}
		if err := rows.Scan(&item.ID, &item.OrderID, &item.LineNo, &item.ProductID, &item.Quantity, &item.CreatedAt); err != nil {
			return err
		}
		order.Items = append(order.Items, item)
	}
	return rows.Err()
}

func scanOrder(row pgx.Row) (*models.Order, error) {
	o := &models.Order{}
	var status string
	if err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerName, &status, &o.Notes, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	o.Status = models.OrderStatus(status)
	return o, nil
}
