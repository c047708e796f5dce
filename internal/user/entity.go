// AngelaMos | 2026
// entity.go

package user

import (
	"time"
)

// Profile is a row of the users table. Its id is the auth identity id.
type Profile struct {
	ID         string    `db:"id"          json:"id"`
	Name       string    `db:"name"        json:"name"`
	Email      string    `db:"email"       json:"email"`
	Phone      *string   `db:"phone"       json:"phone"`
	Role       string    `db:"role"        json:"role"`
	BusinessID *string   `db:"business_id" json:"business_id"`
	CreatedAt  time.Time `db:"created_at"  json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"  json:"updated_at"`
}

func (p *Profile) IsStaff() bool {
	return p.Role == RoleAdmin || p.Role == RoleSuperAdmin
}

const (
	RoleCustomer   = "customer"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

func ValidRole(role string) bool {
	switch role {
	case RoleCustomer, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}
