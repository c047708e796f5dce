// AngelaMos | 2026
// repository.go

package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carterperez-dev/tailorbook/internal/core"
)

type IdentityRepository interface {
	Create(ctx context.Context, db core.DBTX, ident *Identity) error
	GetByID(ctx context.Context, id string) (*Identity, error)
	GetByEmail(ctx context.Context, email string) (*Identity, error)
	GetByProviderSubject(ctx context.Context, provider, subject string) (*Identity, error)
	LinkProvider(ctx context.Context, id, provider, subject string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	IncrementTokenVersion(ctx context.Context, id string) error
}

type TokenRepository interface {
	Create(ctx context.Context, token *RefreshToken) error
	FindByHash(ctx context.Context, tokenHash string) (*RefreshToken, error)
	MarkAsUsed(ctx context.Context, id, replacedByID string) error
	RevokeByID(ctx context.Context, id string) error
	RevokeByFamilyID(ctx context.Context, familyID string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	ActiveForUser(ctx context.Context, userID string) ([]RefreshToken, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

const identityColumns = `
	id, email, password_hash, provider, provider_subject, token_version,
	created_at, updated_at`

type identityRepository struct {
	db core.DBTX
}

func NewIdentityRepository(db core.DBTX) IdentityRepository {
	return &identityRepository{db: db}
}

// Create inserts through db so the caller can pair it with the profile
// insert in one transaction.
func (r *identityRepository) Create(
	ctx context.Context,
	db core.DBTX,
	ident *Identity,
) error {
	query := `
		INSERT INTO auth_identities (
			id, email, password_hash, provider, provider_subject
		) VALUES ($1, lower($2), $3, $4, $5)
		RETURNING email, token_version, created_at, updated_at`

	row := struct {
		Email        string    `db:"email"`
		TokenVersion int       `db:"token_version"`
		CreatedAt    time.Time `db:"created_at"`
		UpdatedAt    time.Time `db:"updated_at"`
	}{}

	err := db.GetContext(ctx, &row, query,
		ident.ID,
		ident.Email,
		ident.PasswordHash,
		ident.Provider,
		ident.ProviderSubject,
	)
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf("create identity: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create identity: %w", err)
	}

	ident.Email = row.Email
	ident.TokenVersion = row.TokenVersion
	ident.CreatedAt = row.CreatedAt
	ident.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *identityRepository) getOne(
	ctx context.Context,
	op, where string,
	args ...any,
) (*Identity, error) {
	query := "SELECT " + identityColumns + " FROM auth_identities WHERE " + where

	var ident Identity
	err := r.db.GetContext(ctx, &ident, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &ident, nil
}

func (r *identityRepository) GetByID(ctx context.Context, id string) (*Identity, error) {
	return r.getOne(ctx, "get identity", "id = $1", id)
}

func (r *identityRepository) GetByEmail(ctx context.Context, email string) (*Identity, error) {
	return r.getOne(ctx, "get identity by email", "email = $1",
		strings.ToLower(strings.TrimSpace(email)))
}

func (r *identityRepository) GetByProviderSubject(
	ctx context.Context,
	provider, subject string,
) (*Identity, error) {
	return r.getOne(ctx, "get identity by provider",
		"provider = $1 AND provider_subject = $2", provider, subject)
}

func (r *identityRepository) exec(ctx context.Context, op, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	return nil
}

func (r *identityRepository) LinkProvider(
	ctx context.Context,
	id, provider, subject string,
) error {
	return r.exec(ctx, "link provider", `
		UPDATE auth_identities
		SET provider_subject = $3, provider = $2, updated_at = NOW()
		WHERE id = $1 AND provider_subject IS NULL`,
		id, provider, subject)
}

func (r *identityRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.exec(ctx, "update password", `
		UPDATE auth_identities
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1`,
		id, passwordHash)
}

func (r *identityRepository) IncrementTokenVersion(ctx context.Context, id string) error {
	return r.exec(ctx, "increment token version", `
		UPDATE auth_identities
		SET token_version = token_version + 1, updated_at = NOW()
		WHERE id = $1`,
		id)
}

const tokenColumns = `
	id, user_id, token_hash, family_id, expires_at, created_at,
	is_used, used_at, revoked_at, replaced_by_id, user_agent, ip_address`

type tokenRepository struct {
	db core.DBTX
}

func NewTokenRepository(db core.DBTX) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) Create(ctx context.Context, token *RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (
			id, user_id, token_hash, family_id, expires_at,
			user_agent, ip_address
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &token.CreatedAt, query,
		token.ID,
		token.UserID,
		token.TokenHash,
		token.FamilyID,
		token.ExpiresAt,
		token.UserAgent,
		token.IPAddress,
	)
	if err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}

	return nil
}

func (r *tokenRepository) FindByHash(
	ctx context.Context,
	tokenHash string,
) (*RefreshToken, error) {
	query := "SELECT " + tokenColumns + " FROM refresh_tokens WHERE token_hash = $1"

	var token RefreshToken
	err := r.db.GetContext(ctx, &token, query, tokenHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find refresh token: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find refresh token: %w", err)
	}

	return &token, nil
}

func (r *tokenRepository) MarkAsUsed(ctx context.Context, id, replacedByID string) error {
	query := `
		UPDATE refresh_tokens
		SET is_used = true, used_at = NOW(), replaced_by_id = $2
		WHERE id = $1 AND is_used = false`

	result, err := r.db.ExecContext(ctx, query, id, replacedByID)
	if err != nil {
		return fmt.Errorf("mark refresh token used: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark refresh token used: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("mark refresh token used: %w", core.ErrNotFound)
	}

	return nil
}

func (r *tokenRepository) RevokeByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens SET revoked_at = NOW()
		WHERE id = $1 AND revoked_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

func (r *tokenRepository) RevokeByFamilyID(ctx context.Context, familyID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens SET revoked_at = NOW()
		WHERE family_id = $1 AND revoked_at IS NULL`, familyID)
	if err != nil {
		return fmt.Errorf("revoke token family: %w", err)
	}
	return nil
}

func (r *tokenRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens SET revoked_at = NOW()
		WHERE user_id = $1 AND revoked_at IS NULL`, userID)
	if err != nil {
		return fmt.Errorf("revoke all user tokens: %w", err)
	}
	return nil
}

func (r *tokenRepository) ActiveForUser(
	ctx context.Context,
	userID string,
) ([]RefreshToken, error) {
	query := "SELECT " + tokenColumns + ` FROM refresh_tokens
		WHERE user_id = $1
			AND revoked_at IS NULL
			AND is_used = false
			AND expires_at > NOW()
		ORDER BY created_at DESC`

	var tokens []RefreshToken
	if err := r.db.SelectContext(ctx, &tokens, query, userID); err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}

	return tokens, nil
}

func (r *tokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}

	return rows, nil
}
