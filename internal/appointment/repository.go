// AngelaMos | 2026
// repository.go

package appointment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/carterperez-dev/tailorbook/internal/core"
)

type Repository interface {
	List(ctx context.Context, params ListParams) ([]Appointment, error)
	GetByID(ctx context.Context, id string) (*Appointment, error)
	Create(ctx context.Context, a *Appointment) error
	UpdateStatus(ctx context.Context, id, status string) (*Appointment, error)
	CountByStatus(ctx context.Context, status string) (int, error)
}

const appointmentColumns = `
	id, user_id, name, email, phone, service_type,
	preferred_date::text AS preferred_date, message, status, created_at, updated_at`

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context, params ListParams) ([]Appointment, error) {
	var (
		conditions []string
		args       []any
	)

	if params.OwnerID != "" {
		args = append(args, params.OwnerID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if params.Status != "" {
		args = append(args, params.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	query := "SELECT " + appointmentColumns + " FROM appointments"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	out := []Appointment{}
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return out, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	var a Appointment
	err := r.db.GetContext(ctx, &a, "SELECT "+appointmentColumns+" FROM appointments WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get appointment: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return &a, nil
}

func (r *repository) Create(ctx context.Context, a *Appointment) error {
	query := `
		WITH a AS (
			INSERT INTO appointments (
				id, user_id, name, email, phone, service_type,
				preferred_date, message, status
			) VALUES ($1, $2, $3, $4, $5, $6, $7::date, $8, $9)
			RETURNING *
		)
		SELECT ` + appointmentColumns + ` FROM a`

	err := r.db.GetContext(ctx, a, query,
		a.ID,
		a.UserID,
		a.Name,
		a.Email,
		a.Phone,
		a.ServiceType,
		a.PreferredDate,
		a.Message,
		a.Status,
	)
	if err != nil {
		if core.IsForeignKeyError(err) {
			return fmt.Errorf("create appointment: user: %w", core.ErrNotFound)
		}
		if core.IsCheckViolation(err) {
			return fmt.Errorf("create appointment: %w", core.ErrInvalidInput)
		}
		return fmt.Errorf("create appointment: %w", err)
	}
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, id, status string) (*Appointment, error) {
	query := `
		WITH a AS (
			UPDATE appointments SET status = $2, updated_at = NOW()
			WHERE id = $1
			RETURNING *
		)
		SELECT ` + appointmentColumns + ` FROM a`

	var a Appointment
	err := r.db.GetContext(ctx, &a, query, id, status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("update appointment: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("update appointment: %w", err)
	}
	return &a, nil
}

func (r *repository) CountByStatus(ctx context.Context, status string) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM appointments WHERE status = $1", status); err != nil {
		return 0, fmt.Errorf("count appointments: %w", err)
	}
	return n, nil
}
