// AngelaMos | 2026
// entity.go

package auth

import (
	"time"
)

const (
	ProviderEmail  = "email"
	ProviderGoogle = "google"
)

// Identity is the credential record. The customer-facing profile lives in
// the users table and shares its id.
type Identity struct {
	ID              string    `db:"id"`
	Email           string    `db:"email"`
	PasswordHash    *string   `db:"password_hash"`
	Provider        string    `db:"provider"`
	ProviderSubject *string   `db:"provider_subject"`
	TokenVersion    int       `db:"token_version"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

type RefreshToken struct {
	ID           string     `db:"id"`
	UserID       string     `db:"user_id"`
	TokenHash    string     `db:"token_hash"`
	FamilyID     string     `db:"family_id"`
	ExpiresAt    time.Time  `db:"expires_at"`
	CreatedAt    time.Time  `db:"created_at"`
	IsUsed       bool       `db:"is_used"`
	UsedAt       *time.Time `db:"used_at"`
	RevokedAt    *time.Time `db:"revoked_at"`
	ReplacedByID *string    `db:"replaced_by_id"`
	UserAgent    string     `db:"user_agent"`
	IPAddress    string     `db:"ip_address"`
}

func (t *RefreshToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

func (t *RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

func (t *RefreshToken) IsValid(now time.Time) bool {
	return !t.IsExpired(now) && !t.IsRevoked() && !t.IsUsed
}
