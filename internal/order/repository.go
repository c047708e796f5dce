// AngelaMos | 2026
// repository.go

package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/carterperez-dev/tailorbook/internal/core"
)

type Repository interface {
	List(ctx context.Context, params ListParams) ([]Order, error)
	GetByID(ctx context.Context, id string) (*Order, error)
	Create(ctx context.Context, o *Order) error
	UpdateStatus(ctx context.Context, id, status string) (*Order, error)
	Delete(ctx context.Context, id string) (*Order, error)
	CountByStatus(ctx context.Context) ([]StatusCount, error)
}

const orderColumns = `
	o.id, o.user_id, o.business_id, o.dress_type, o.fabric_type,
	o.price::float8 AS price, o.status, o.urgency_level,
	o.delivery_date::text AS delivery_date, o.notes, o.created_at, o.updated_at`

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context, params ListParams) ([]Order, error) {
	var (
		conditions []string
		args       []any
	)

	if params.OwnerID != "" {
		args = append(args, params.OwnerID)
		conditions = append(conditions, fmt.Sprintf("o.user_id = $%d", len(args)))
	}
	if params.Status != "" {
		args = append(args, params.Status)
		conditions = append(conditions, fmt.Sprintf("o.status = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := "SELECT " + orderColumns + " FROM orders o " + where
	if params.WithCustomer {
		query = "SELECT " + orderColumns + `, u.name AS customer_name
			FROM orders o LEFT JOIN users u ON u.id = o.user_id ` + where
	}
	query += " ORDER BY o.created_at DESC"

	orders := []Order{}
	if err := r.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Order, error) {
	var o Order
	err := r.db.GetContext(ctx, &o, "SELECT "+orderColumns+" FROM orders o WHERE o.id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get order: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &o, nil
}

func (r *repository) Create(ctx context.Context, o *Order) error {
	query := `
		WITH o AS (
			INSERT INTO orders (
				id, user_id, business_id, dress_type, fabric_type, price,
				status, urgency_level, delivery_date, notes
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::date, $10)
			RETURNING *
		)
		SELECT ` + orderColumns + ` FROM o`

	err := r.db.GetContext(ctx, o, query,
		o.ID,
		o.UserID,
		o.BusinessID,
		o.DressType,
		o.FabricType,
		o.Price,
		o.Status,
		o.UrgencyLevel,
		o.DeliveryDate,
		o.Notes,
	)
	if err != nil {
		if core.IsForeignKeyError(err) {
			return fmt.Errorf("create order: customer: %w", core.ErrNotFound)
		}
		if core.IsCheckViolation(err) {
			return fmt.Errorf("create order: %w", core.ErrInvalidInput)
		}
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, id, status string) (*Order, error) {
	query := `
		WITH o AS (
			UPDATE orders SET status = $2, updated_at = NOW()
			WHERE id = $1
			RETURNING *
		)
		SELECT ` + orderColumns + ` FROM o`

	var o Order
	err := r.db.GetContext(ctx, &o, query, id, status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("update order status: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	return &o, nil
}

func (r *repository) Delete(ctx context.Context, id string) (*Order, error) {
	query := `
		WITH o AS (
			DELETE FROM orders WHERE id = $1
			RETURNING *
		)
		SELECT ` + orderColumns + ` FROM o`

	var o Order
	err := r.db.GetContext(ctx, &o, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("delete order: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("delete order: %w", err)
	}
	return &o, nil
}

func (r *repository) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	query := `
		SELECT status, COUNT(*) AS count, COALESCE(SUM(price), 0)::float8 AS revenue
		FROM orders
		GROUP BY status`

	out := []StatusCount{}
	if err := r.db.SelectContext(ctx, &out, query); err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}
	return out, nil
}
