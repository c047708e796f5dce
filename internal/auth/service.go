// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carterperez-dev/tailorbook/internal/core"
	"github.com/carterperez-dev/tailorbook/internal/metrics"
	"github.com/carterperez-dev/tailorbook/internal/middleware"
	"github.com/carterperez-dev/tailorbook/internal/realtime"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenReuse         = errors.New("token reuse detected")
	ErrEmailExists        = errors.New("email already exists")
)

// ProfileStore writes and reads the users table on behalf of auth. The
// profile insert runs on the caller's transaction.
type ProfileStore interface {
	CreateMinimal(ctx context.Context, db core.DBTX, p NewProfile) error
	RoleOf(ctx context.Context, id string) (string, error)
}

// KeyStore is the short-lived key/value state auth keeps outside Postgres:
// revoked access tokens, OAuth state and one-time exchange codes.
type KeyStore interface {
	PutOnce(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	TakeOnce(ctx context.Context, key string) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
}

type Service struct {
	identities IdentityRepository
	tokens     TokenRepository
	profiles   ProfileStore
	tx         core.TxRunner
	jwt        *JWTManager
	store      KeyStore
	publisher  realtime.Publisher
	oauth      *oauthFlow
	now        func() time.Time
}

func NewService(
	identities IdentityRepository,
	tokens TokenRepository,
	profiles ProfileStore,
	tx core.TxRunner,
	jwt *JWTManager,
	store KeyStore,
	publisher realtime.Publisher,
) *Service {
	return &Service{
		identities: identities,
		tokens:     tokens,
		profiles:   profiles,
		tx:         tx,
		jwt:        jwt,
		store:      store,
		publisher:  publisher,
		now:        time.Now,
	}
}

func (s *Service) Login(
	ctx context.Context,
	req PasswordGrantRequest,
	userAgent, ipAddress string,
) (resp *AuthResponse, err error) {
	defer func() { metrics.RecordAuth("password", err) }()

	ident, err := s.identities.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			//nolint:errcheck // timing only, the result is always false
			_, _, _ = core.VerifyPasswordTimingSafe(req.Password, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get identity: %w", err)
	}

	valid, rehash, err := core.VerifyPasswordTimingSafe(req.Password, ident.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return nil, ErrInvalidCredentials
	}

	if rehash != "" {
		if upErr := s.identities.UpdatePassword(ctx, ident.ID, rehash); upErr != nil {
			slog.WarnContext(ctx, "password rehash failed", "user_id", ident.ID, "error", upErr)
		}
	}

	return s.issue(ctx, ident, userAgent, ipAddress, "", nil)
}

// Register creates the identity and its minimal customer profile in one
// transaction, so a signed-in user always has a profile row.
func (s *Service) Register(
	ctx context.Context,
	req SignUpRequest,
	userAgent, ipAddress string,
) (resp *AuthResponse, err error) {
	defer func() { metrics.RecordAuth("signup", err) }()

	passwordHash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	ident := &Identity{
		ID:           uuid.New().String(),
		Email:        req.Email,
		PasswordHash: &passwordHash,
		Provider:     ProviderEmail,
	}

	profile, err := s.createIdentity(ctx, ident, strings.TrimSpace(req.Name), req.Phone)
	if err != nil {
		return nil, err
	}

	s.announceProfile(ctx, profile)

	return s.issue(ctx, ident, userAgent, ipAddress, "", nil)
}

func (s *Service) createIdentity(
	ctx context.Context,
	ident *Identity,
	name string,
	phone *string,
) (NewProfile, error) {
	var profile NewProfile

	err := s.tx.InTx(ctx, func(tx core.DBTX) error {
		if err := s.identities.Create(ctx, tx, ident); err != nil {
			return err
		}

		profile = NewProfile{
			ID:    ident.ID,
			Email: ident.Email,
			Name:  name,
			Phone: phone,
			Role:  middleware.RoleCustomer,
		}
		return s.profiles.CreateMinimal(ctx, tx, profile)
	})
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return NewProfile{}, ErrEmailExists
		}
		return NewProfile{}, fmt.Errorf("create identity: %w", err)
	}

	return profile, nil
}

func (s *Service) announceProfile(ctx context.Context, p NewProfile) {
	realtime.Notify(ctx, s.publisher, realtime.TableUsers, realtime.EventInsert,
		p, nil, map[string]string{"id": p.ID})
}

func (s *Service) Refresh(
	ctx context.Context,
	refreshToken, userAgent, ipAddress string,
) (resp *AuthResponse, err error) {
	defer func() { metrics.RecordAuth("refresh", err) }()

	stored, err := s.tokens.FindByHash(ctx, core.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("refresh: %w", core.ErrTokenInvalid)
		}
		return nil, fmt.Errorf("find token: %w", err)
	}

	if stored.IsUsed {
		if revErr := s.tokens.RevokeByFamilyID(ctx, stored.FamilyID); revErr != nil {
			slog.ErrorContext(ctx, "revoke reused token family",
				"family_id", stored.FamilyID,
				"error", revErr,
			)
		}
		return nil, ErrTokenReuse
	}

	if !stored.IsValid(s.now()) {
		if stored.IsRevoked() {
			return nil, fmt.Errorf("refresh: %w", core.ErrTokenRevoked)
		}
		return nil, fmt.Errorf("refresh: %w", core.ErrTokenExpired)
	}

	ident, err := s.identities.GetByID(ctx, stored.UserID)
	if err != nil {
		return nil, fmt.Errorf("get identity: %w", err)
	}

	return s.issue(ctx, ident, userAgent, ipAddress, stored.FamilyID, &stored.ID)
}

// VerifyAccessToken satisfies middleware.TokenVerifier. Beyond the
// signature it rejects tokens revoked by logout or logout-all.
func (s *Service) VerifyAccessToken(
	ctx context.Context,
	token string,
) (*middleware.AccessTokenClaims, error) {
	claims, err := s.jwt.ParseAccessToken(token)
	if err != nil {
		return nil, err
	}

	revoked, err := s.store.Exists(ctx, blacklistKey(claims.TokenID))
	if err != nil {
		return nil, fmt.Errorf("check blacklist: %w", err)
	}
	if revoked {
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenRevoked)
	}

	ident, err := s.identities.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
		}
		return nil, fmt.Errorf("get identity: %w", err)
	}
	if claims.TokenVersion < ident.TokenVersion {
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenRevoked)
	}

	return claims, nil
}

// Logout revokes the presented refresh token (when given) and the access
// token that authorized the call.
func (s *Service) Logout(
	ctx context.Context,
	claims *middleware.AccessTokenClaims,
	refreshToken string,
) error {
	if refreshToken != "" {
		stored, err := s.tokens.FindByHash(ctx, core.HashToken(refreshToken))
		switch {
		case errors.Is(err, core.ErrNotFound):
		case err != nil:
			return fmt.Errorf("find token: %w", err)
		case stored.UserID != claims.UserID:
			return fmt.Errorf("logout: %w", core.ErrForbidden)
		default:
			if err := s.tokens.RevokeByID(ctx, stored.ID); err != nil {
				return fmt.Errorf("revoke token: %w", err)
			}
		}
	}

	return s.revokeAccessToken(ctx, claims)
}

func (s *Service) LogoutAll(ctx context.Context, claims *middleware.AccessTokenClaims) error {
	if err := s.tokens.RevokeAllForUser(ctx, claims.UserID); err != nil {
		return fmt.Errorf("revoke all tokens: %w", err)
	}

	if err := s.identities.IncrementTokenVersion(ctx, claims.UserID); err != nil {
		return fmt.Errorf("increment token version: %w", err)
	}

	return s.revokeAccessToken(ctx, claims)
}

func blacklistKey(jti string) string {
	return "auth:blacklist:" + jti
}

func (s *Service) revokeAccessToken(ctx context.Context, claims *middleware.AccessTokenClaims) error {
	ttl := time.Unix(claims.ExpiresAt, 0).Sub(s.now())
	if ttl <= 0 || claims.TokenID == "" {
		return nil
	}

	if _, err := s.store.PutOnce(ctx, blacklistKey(claims.TokenID), "1", ttl); err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}
	return nil
}

func (s *Service) ActiveSessions(ctx context.Context, userID string) ([]SessionInfo, error) {
	tokens, err := s.tokens.ActiveForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get sessions: %w", err)
	}

	sessions := make([]SessionInfo, 0, len(tokens))
	for _, t := range tokens {
		sessions = append(sessions, SessionInfo{
			ID:        t.ID,
			UserAgent: t.UserAgent,
			IPAddress: t.IPAddress,
			CreatedAt: t.CreatedAt,
			ExpiresAt: t.ExpiresAt,
		})
	}

	return sessions, nil
}

func (s *Service) CurrentUser(ctx context.Context, userID string) (*UserResponse, error) {
	ident, err := s.identities.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	role, err := s.roleOf(ctx, ident.ID)
	if err != nil {
		return nil, err
	}

	return &UserResponse{
		ID:        ident.ID,
		Email:     ident.Email,
		Provider:  ident.Provider,
		Role:      role,
		CreatedAt: ident.CreatedAt,
	}, nil
}

// PurgeExpiredTokens removes refresh tokens that expired more than a day ago.
func (s *Service) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	return s.tokens.DeleteExpired(ctx, s.now().Add(-24*time.Hour))
}

// roleOf treats a missing profile as a customer.
func (s *Service) roleOf(ctx context.Context, id string) (string, error) {
	role, err := s.profiles.RoleOf(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return middleware.RoleCustomer, nil
	}
	if err != nil {
		return "", fmt.Errorf("get role: %w", err)
	}
	return role, nil
}

func (s *Service) issue(
	ctx context.Context,
	ident *Identity,
	userAgent, ipAddress, familyID string,
	oldTokenID *string,
) (*AuthResponse, error) {
	role, err := s.roleOf(ctx, ident.ID)
	if err != nil {
		return nil, err
	}

	access, err := s.jwt.CreateAccessToken(AccessTokenClaims{
		UserID:       ident.ID,
		Role:         role,
		TokenVersion: ident.TokenVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}

	refresh, err := s.jwt.CreateRefreshToken(familyID)
	if err != nil {
		return nil, fmt.Errorf("create refresh token: %w", err)
	}

	newTokenID := uuid.New().String()

	if err := s.tokens.Create(ctx, &RefreshToken{
		ID:        newTokenID,
		UserID:    ident.ID,
		TokenHash: refresh.Hash,
		FamilyID:  refresh.FamilyID,
		ExpiresAt: refresh.ExpiresAt,
		UserAgent: userAgent,
		IPAddress: ipAddress,
	}); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	if oldTokenID != nil {
		if err := s.tokens.MarkAsUsed(ctx, *oldTokenID, newTokenID); err != nil {
			slog.WarnContext(ctx, "mark rotated token used", "token_id", *oldTokenID, "error", err)
		}
	}

	return &AuthResponse{
		User: UserResponse{
			ID:        ident.ID,
			Email:     ident.Email,
			Provider:  ident.Provider,
			Role:      role,
			CreatedAt: ident.CreatedAt,
		},
		Tokens: TokenResponse{
			AccessToken:  access.Token,
			RefreshToken: refresh.Token,
			TokenType:    "Bearer",
			ExpiresIn:    int(s.jwt.AccessTokenTTL() / time.Second),
			ExpiresAt:    access.ExpiresAt,
		},
	}, nil
}
