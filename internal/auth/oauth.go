// AngelaMos | 2026
// oauth.go

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/carterperez-dev/tailorbook/internal/config"
	"github.com/carterperez-dev/tailorbook/internal/core"
	"github.com/carterperez-dev/tailorbook/internal/metrics"
)

var (
	ErrProviderDisabled   = errors.New("oauth provider not enabled")
	ErrRedirectNotAllowed = errors.New("redirect target not allowed")
	ErrInvalidState       = errors.New("invalid or expired oauth state")
	ErrUnverifiedEmail    = errors.New("provider email is not verified")
)

const (
	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
	exchangeCodeTTL   = 2 * time.Minute
)

type ExternalIdentity struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// OAuthProvider is one federated sign-in provider.
type OAuthProvider interface {
	Name() string
	AuthCodeURL(state string) string
	Identify(ctx context.Context, code string) (*ExternalIdentity, error)
}

type GoogleProvider struct {
	conf        *oauth2.Config
	userInfoURL string
}

func NewGoogleProvider(cfg config.OAuthConfig) *GoogleProvider {
	return &GoogleProvider{
		conf: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		userInfoURL: googleUserInfoURL,
	}
}

func (g *GoogleProvider) Name() string { return ProviderGoogle }

func (g *GoogleProvider) AuthCodeURL(state string) string {
	return g.conf.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (g *GoogleProvider) Identify(ctx context.Context, code string) (*ExternalIdentity, error) {
	tok, err := g.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("google exchange: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("google userinfo request: %w", err)
	}

	resp, err := g.conf.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, fmt.Errorf("google userinfo: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google userinfo: status %d", resp.StatusCode)
	}

	var ext ExternalIdentity
	if err := json.NewDecoder(resp.Body).Decode(&ext); err != nil {
		return nil, fmt.Errorf("decode google userinfo: %w", err)
	}
	if ext.Subject == "" || ext.Email == "" {
		return nil, fmt.Errorf("google userinfo: missing subject or email")
	}

	return &ext, nil
}

type oauthFlow struct {
	provider         OAuthProvider
	allowedRedirects []string
	stateTTL         time.Duration
}

// EnableOAuth turns on federated sign-in through provider.
func (s *Service) EnableOAuth(provider OAuthProvider, cfg config.OAuthConfig) {
	s.oauth = &oauthFlow{
		provider:         provider,
		allowedRedirects: cfg.AllowedRedirects,
		stateTTL:         cfg.StateTTL,
	}
}

func stateKey(state string) string { return "auth:oauth_state:" + state }
func codeKey(code string) string   { return "auth:oauth_code:" + code }

// AuthorizeURL stores a single-use state bound to redirectTo and returns
// the provider's consent URL.
func (s *Service) AuthorizeURL(ctx context.Context, provider, redirectTo string) (string, error) {
	if s.oauth == nil || s.oauth.provider.Name() != provider {
		return "", ErrProviderDisabled
	}

	if !redirectAllowed(redirectTo, s.oauth.allowedRedirects) {
		return "", ErrRedirectNotAllowed
	}

	state, err := core.GenerateSecureToken(24)
	if err != nil {
		return "", err
	}

	if _, err := s.store.PutOnce(ctx, stateKey(state), redirectTo, s.oauth.stateTTL); err != nil {
		return "", fmt.Errorf("store oauth state: %w", err)
	}

	return s.oauth.provider.AuthCodeURL(state), nil
}

// Callback completes the provider round trip and returns the client URL to
// redirect to, carrying a one-time code for Exchange.
func (s *Service) Callback(ctx context.Context, state, code string) (target string, err error) {
	defer func() { metrics.RecordAuth("oauth", err) }()

	if s.oauth == nil {
		return "", ErrProviderDisabled
	}

	redirectTo, err := s.store.TakeOnce(ctx, stateKey(state))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return "", ErrInvalidState
		}
		return "", fmt.Errorf("load oauth state: %w", err)
	}

	ext, err := s.oauth.provider.Identify(ctx, code)
	if err != nil {
		return "", err
	}

	ident, err := s.findOrCreateFederated(ctx, s.oauth.provider.Name(), ext)
	if err != nil {
		return "", err
	}

	oneTime, err := core.GenerateSecureToken(32)
	if err != nil {
		return "", err
	}
	if _, err := s.store.PutOnce(ctx, codeKey(oneTime), ident.ID, exchangeCodeTTL); err != nil {
		return "", fmt.Errorf("store exchange code: %w", err)
	}

	u, err := url.Parse(redirectTo)
	if err != nil {
		return "", fmt.Errorf("parse redirect: %w", err)
	}
	q := u.Query()
	q.Set("code", oneTime)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func (s *Service) findOrCreateFederated(
	ctx context.Context,
	provider string,
	ext *ExternalIdentity,
) (*Identity, error) {
	ident, err := s.identities.GetByProviderSubject(ctx, provider, ext.Subject)
	if err == nil {
		return ident, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}

	ident, err = s.identities.GetByEmail(ctx, ext.Email)
	switch {
	case err == nil:
		if !ext.EmailVerified {
			return nil, ErrUnverifiedEmail
		}
		if err := s.identities.LinkProvider(ctx, ident.ID, provider, ext.Subject); err != nil {
			return nil, err
		}
		return ident, nil
	case !errors.Is(err, core.ErrNotFound):
		return nil, err
	}

	subject := ext.Subject
	ident = &Identity{
		ID:              uuid.New().String(),
		Email:           ext.Email,
		Provider:        provider,
		ProviderSubject: &subject,
	}

	name := strings.TrimSpace(ext.Name)
	if name == "" {
		name, _, _ = strings.Cut(ext.Email, "@")
	}

	profile, err := s.createIdentity(ctx, ident, name, nil)
	if err != nil {
		return nil, err
	}
	s.announceProfile(ctx, profile)

	return ident, nil
}

// Exchange trades a one-time callback code for a token pair.
func (s *Service) Exchange(
	ctx context.Context,
	code, userAgent, ipAddress string,
) (*AuthResponse, error) {
	id, err := s.store.TakeOnce(ctx, codeKey(code))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("exchange: %w", core.ErrTokenInvalid)
		}
		return nil, fmt.Errorf("load exchange code: %w", err)
	}

	ident, err := s.identities.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get identity: %w", err)
	}

	return s.issue(ctx, ident, userAgent, ipAddress, "", nil)
}

// redirectAllowed accepts a target whose scheme and host match one of the
// configured client origins.
func redirectAllowed(target string, allowed []string) bool {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return false
	}

	for _, a := range allowed {
		au, err := url.Parse(a)
		if err != nil {
			continue
		}
		if strings.EqualFold(au.Scheme, u.Scheme) && strings.EqualFold(au.Host, u.Host) {
			return true
		}
	}
	return false
}
