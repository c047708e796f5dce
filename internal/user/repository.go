// AngelaMos | 2026
// repository.go

package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/carterperez-dev/tailorbook/internal/core"
)

type Repository interface {
	Insert(ctx context.Context, db core.DBTX, p *Profile) error
	GetByID(ctx context.Context, id string) (*Profile, error)
	GetByEmail(ctx context.Context, email string) (*Profile, error)
	Upsert(ctx context.Context, p *Profile) (inserted bool, err error)
	UpdateRole(ctx context.Context, id, role string) (*Profile, error)
	List(ctx context.Context, params ListParams) ([]Profile, int, error)
}

const profileColumns = `id, name, email, phone, role, business_id, created_at, updated_at`

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, db core.DBTX, p *Profile) error {
	query := `
		INSERT INTO users (id, name, email, phone, role)
		VALUES ($1, $2, lower($3), $4, $5)
		RETURNING ` + profileColumns

	if err := db.GetContext(ctx, p, query, p.ID, p.Name, p.Email, p.Phone, p.Role); err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf("insert profile: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (r *repository) get(ctx context.Context, op, where string, arg any) (*Profile, error) {
	var p Profile
	err := r.db.GetContext(ctx, &p, "SELECT "+profileColumns+" FROM users WHERE "+where, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &p, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Profile, error) {
	return r.get(ctx, "get profile", "id = $1", id)
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*Profile, error) {
	return r.get(ctx, "get profile by email", "lower(email) = $1",
		strings.ToLower(strings.TrimSpace(email)))
}

// Upsert writes name, email and phone. An existing row keeps its role and
// business; a new row is always a customer.
func (r *repository) Upsert(ctx context.Context, p *Profile) (bool, error) {
	query := `
		INSERT INTO users (id, name, email, phone, role)
		VALUES ($1, $2, lower($3), $4, 'customer')
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    email = EXCLUDED.email,
		    phone = EXCLUDED.phone,
		    updated_at = NOW()
		RETURNING ` + profileColumns + `, (xmax = 0) AS inserted`

	row := struct {
		Profile
		Inserted bool `db:"inserted"`
	}{}

	if err := r.db.GetContext(ctx, &row, query, p.ID, p.Name, p.Email, p.Phone); err != nil {
		if core.IsForeignKeyError(err) {
			return false, fmt.Errorf("upsert profile: %w", core.ErrNotFound)
		}
		return false, fmt.Errorf("upsert profile: %w", err)
	}

	*p = row.Profile
	return row.Inserted, nil
}

func (r *repository) UpdateRole(ctx context.Context, id, role string) (*Profile, error) {
	query := `
		UPDATE users SET role = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + profileColumns

	var p Profile
	err := r.db.GetContext(ctx, &p, query, id, role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("update role: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}
	return &p, nil
}

func (r *repository) List(ctx context.Context, params ListParams) ([]Profile, int, error) {
	params.Normalize()

	conditions := []string{"TRUE"}
	var args []any
	argIdx := 1

	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(email ILIKE $%d OR name ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+escapeLike(params.Search)+"%")
		argIdx++
	}

	if params.Role != "" {
		conditions = append(conditions, fmt.Sprintf("role = $%d", argIdx))
		args = append(args, params.Role)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM users WHERE "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count profiles: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM users
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		profileColumns, where, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	var profiles []Profile
	if err := r.db.SelectContext(ctx, &profiles, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list profiles: %w", err)
	}

	return profiles, total, nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
