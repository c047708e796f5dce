// AngelaMos | 2026
// provider.go

package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/carterperez-dev/tailorbook/internal/backend"
)

const (
	RoleCustomer   = "customer"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

func IsStaff(role string) bool {
	return role == RoleAdmin || role == RoleSuperAdmin
}

// HomeFor is where a signed-in user lands.
func HomeFor(role string) string {
	if IsStaff(role) {
		return "/admin"
	}
	return "/dashboard"
}

type State struct {
	User    *backend.User
	Profile *backend.Profile
	Session *backend.Session
	Loading bool
}

func (s State) SignedIn() bool { return s.User != nil }

// Role is empty when signed out. A signed-in user without a profile row
// counts as a customer.
func (s State) Role() string {
	switch {
	case s.User == nil:
		return ""
	case s.Profile == nil || s.Profile.Role == "":
		return RoleCustomer
	default:
		return s.Profile.Role
	}
}

// Provider owns one browser's identity: the backend session, the signed-in
// user and their profile row.
type Provider struct {
	conn   *backend.Conn
	logger *slog.Logger

	initOnce    sync.Once
	unsubscribe func()

	mu    sync.RWMutex
	state State
}

func NewProvider(conn *backend.Conn, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}

	p := &Provider{
		conn:   conn,
		logger: logger,
		state:  State{Loading: conn.Configured()},
	}
	p.unsubscribe = conn.Auth.OnAuthStateChange(p.onAuthChange)
	return p
}

func (p *Provider) Conn() *backend.Conn { return p.conn }

func (p *Provider) Snapshot() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// onAuthChange keeps user and session in step with the SDK. Profiles are
// loaded by the operation that caused the change; a different user drops
// the stale one.
func (p *Provider) onAuthChange(event backend.AuthEvent, s *backend.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if event == backend.SignedOut || s == nil {
		p.state.User, p.state.Session, p.state.Profile = nil, nil, nil
		return
	}

	u := s.User
	if p.state.User == nil || p.state.User.ID != u.ID {
		p.state.Profile = nil
	}
	p.state.User = &u
	p.state.Session = s
}

// Init restores a persisted session once. Loading clears when the attempt
// finishes, whatever its outcome.
func (p *Provider) Init(ctx context.Context, refreshToken string) {
	p.initOnce.Do(func() {
		defer p.setLoading(false)

		if !p.conn.Configured() || refreshToken == "" {
			return
		}

		if _, err := p.conn.Auth.Restore(ctx, refreshToken); err != nil {
			p.logger.Info("session restore failed", "error", err)
			return
		}
		p.loadProfile(ctx)
	})
}

func (p *Provider) setLoading(v bool) {
	p.mu.Lock()
	p.state.Loading = v
	p.mu.Unlock()
}

func (p *Provider) loadProfile(ctx context.Context) *backend.Profile {
	prof, err := p.conn.MyProfile(ctx)
	if err != nil {
		p.logger.Error("fetch profile", "error", err)
		return nil
	}

	p.mu.Lock()
	if p.state.User != nil && prof != nil && prof.ID == p.state.User.ID {
		p.state.Profile = prof
	}
	p.mu.Unlock()
	return prof
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (State, error) {
	if !p.conn.Configured() {
		return p.Snapshot(), backend.ErrNotConfigured
	}

	if _, err := p.conn.Auth.SignInWithPassword(ctx, strings.TrimSpace(email), password); err != nil {
		return p.Snapshot(), err
	}
	p.loadProfile(ctx)
	return p.Snapshot(), nil
}

// SignUp creates the account, then writes the name and phone onto the
// profile row and reads it back. Only the account creation can fail the
// call.
func (p *Provider) SignUp(ctx context.Context, email, password, name string, phone *string) error {
	if !p.conn.Configured() {
		return backend.ErrNotConfigured
	}

	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)

	if _, err := p.conn.Auth.SignUp(ctx, backend.SignUpParams{
		Email:    email,
		Password: password,
		Name:     name,
		Phone:    phone,
	}); err != nil {
		return err
	}

	if _, err := p.conn.UpsertProfile(ctx, backend.ProfileInput{
		Name:  name,
		Email: email,
		Phone: phone,
	}); err != nil {
		p.logger.Warn("profile upsert after sign-up failed", "email", email, "error", err)
		return nil
	}

	if prof := p.loadProfile(ctx); prof == nil || prof.Name != name {
		p.logger.Warn("profile not visible after sign-up", "email", email)
	}
	return nil
}

// SignInWithGoogle returns the consent URL to send the browser to.
func (p *Provider) SignInWithGoogle(ctx context.Context, redirectTo string) (string, error) {
	if !p.conn.Configured() {
		return "", backend.ErrNotConfigured
	}
	return p.conn.Auth.OAuthURL(ctx, "google", redirectTo)
}

// CompleteOAuth trades the one-time code from the callback for a session.
func (p *Provider) CompleteOAuth(ctx context.Context, code string) (State, error) {
	if !p.conn.Configured() {
		return p.Snapshot(), backend.ErrNotConfigured
	}
	if code == "" {
		return p.Snapshot(), errors.New("missing sign-in code")
	}

	if _, err := p.conn.Auth.ExchangeCode(ctx, code); err != nil {
		return p.Snapshot(), err
	}
	p.loadProfile(ctx)
	return p.Snapshot(), nil
}

// RefreshProfile re-reads the profile row, e.g. after a role change.
func (p *Provider) RefreshProfile(ctx context.Context) {
	if p.Snapshot().User == nil {
		return
	}
	p.loadProfile(ctx)
}

// SignOut clears local state even when the backend call fails.
func (p *Provider) SignOut(ctx context.Context) {
	if err := p.conn.Auth.SignOut(ctx); err != nil {
		p.logger.Warn("sign out", "error", err)
	}

	p.mu.Lock()
	p.state.User, p.state.Session, p.state.Profile = nil, nil, nil
	p.mu.Unlock()
}

// RefreshToken is what the browser cookie persists between requests.
func (p *Provider) RefreshToken() string {
	if s := p.conn.Auth.Current(); s != nil {
		return s.RefreshToken
	}
	return ""
}

func (p *Provider) Close() {
	if p.unsubscribe != nil {
		p.unsubscribe()
	}
}
