// AngelaMos | 2026
// auth.go

package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"
)

type AuthEvent string

const (
	SignedIn       AuthEvent = "SIGNED_IN"
	SignedOut      AuthEvent = "SIGNED_OUT"
	TokenRefreshed AuthEvent = "TOKEN_REFRESHED"
)

// refreshLeeway renews an access token slightly before it expires.
const refreshLeeway = 30 * time.Second

type authResponse struct {
	User   User `json:"user"`
	Tokens struct {
		AccessToken  string    `json:"access_token"`
		RefreshToken string    `json:"refresh_token"`
		ExpiresAt    time.Time `json:"expires_at"`
	} `json:"tokens"`
}

func (r *authResponse) session() *Session {
	return &Session{
		AccessToken:  r.Tokens.AccessToken,
		RefreshToken: r.Tokens.RefreshToken,
		ExpiresAt:    r.Tokens.ExpiresAt,
		User:         r.User,
	}
}

// Auth holds one browser's session against the backend and announces
// every change of it to registered listeners.
type Auth struct {
	client *Client
	now    func() time.Time

	mu        sync.Mutex
	session   *Session
	nextID    int
	listeners map[int]func(AuthEvent, *Session)
}

func (c *Client) NewAuth() *Auth {
	return &Auth{
		client:    c,
		now:       time.Now,
		listeners: make(map[int]func(AuthEvent, *Session)),
	}
}

// OnAuthStateChange registers fn and returns its unsubscribe func.
func (a *Auth) OnAuthStateChange(fn func(AuthEvent, *Session)) func() {
	a.mu.Lock()
	a.nextID++
	id := a.nextID
	a.listeners[id] = fn
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		delete(a.listeners, id)
		a.mu.Unlock()
	}
}

func (a *Auth) emit(event AuthEvent, s *Session) {
	a.mu.Lock()
	fns := make([]func(AuthEvent, *Session), 0, len(a.listeners))
	for _, fn := range a.listeners {
		fns = append(fns, fn)
	}
	a.mu.Unlock()

	for _, fn := range fns {
		fn(event, s)
	}
}

func (a *Auth) setSession(event AuthEvent, s *Session) {
	a.mu.Lock()
	a.session = s
	a.mu.Unlock()

	a.emit(event, s)
}

func (a *Auth) grant(ctx context.Context, path string, body any, event AuthEvent) (*Session, error) {
	var resp authResponse
	if err := a.client.do(ctx, http.MethodPost, path, nil, "", body, &resp); err != nil {
		return nil, err
	}

	s := resp.session()
	a.setSession(event, s)
	return s, nil
}

func (a *Auth) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	return a.grant(ctx, "/auth/token", map[string]string{
		"email":    email,
		"password": password,
	}, SignedIn)
}

func (a *Auth) SignUp(ctx context.Context, p SignUpParams) (*Session, error) {
	return a.grant(ctx, "/auth/signup", p, SignedIn)
}

// ExchangeCode completes federated sign-in with the one-time code the
// backend appended to the redirect.
func (a *Auth) ExchangeCode(ctx context.Context, code string) (*Session, error) {
	return a.grant(ctx, "/auth/exchange", map[string]string{"code": code}, SignedIn)
}

// Restore resumes a persisted session from its refresh token.
func (a *Auth) Restore(ctx context.Context, refreshToken string) (*Session, error) {
	return a.grant(ctx, "/auth/refresh", map[string]string{"refresh_token": refreshToken}, TokenRefreshed)
}

// OAuthURL asks the backend for the provider consent URL. The backend
// answers with a redirect that the browser cannot request itself because it
// needs the API key.
func (a *Auth) OAuthURL(ctx context.Context, provider, redirectTo string) (string, error) {
	q := url.Values{"provider": {provider}, "redirect_to": {redirectTo}}

	req, err := a.client.newRequest(ctx, http.MethodGet, "/auth/authorize", q, "", nil)
	if err != nil {
		return "", err
	}

	noFollow := *a.client.http
	noFollow.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	resp, err := noFollow.Do(req)
	if err != nil {
		return "", fmt.Errorf("authorize: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode != http.StatusFound {
		var env envelope
		apiErr := &APIError{Status: resp.StatusCode}
		if decodeErr := decodeEnvelope(resp, &env); decodeErr == nil && env.Error != nil {
			apiErr.Code, apiErr.Message = env.Error.Code, env.Error.Message
		}
		return "", apiErr
	}

	return resp.Header.Get("Location"), nil
}

// Current returns the held session without touching the network.
func (a *Auth) Current() *Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}

// GetSession returns the current session, refreshing it first when the
// access token is about to expire. A rejected refresh signs the user out
// and returns nil.
func (a *Auth) GetSession(ctx context.Context) (*Session, error) {
	s := a.Current()
	if s == nil {
		return nil, nil
	}
	if a.now().Add(refreshLeeway).Before(s.ExpiresAt) {
		return s, nil
	}

	fresh, err := a.Restore(ctx, s.RefreshToken)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			a.setSession(SignedOut, nil)
			return nil, nil
		}
		return nil, err
	}
	return fresh, nil
}

// AccessToken is empty for anonymous callers.
func (a *Auth) AccessToken(ctx context.Context) (string, error) {
	s, err := a.GetSession(ctx)
	if err != nil || s == nil {
		return "", err
	}
	return s.AccessToken, nil
}

// SignOut revokes the session on the backend and always clears it locally.
func (a *Auth) SignOut(ctx context.Context) error {
	s := a.Current()
	if s == nil {
		return nil
	}

	var err error
	if a.client.Configured() {
		err = a.client.do(ctx, http.MethodPost, "/auth/logout", nil, s.AccessToken,
			map[string]string{"refresh_token": s.RefreshToken}, nil)
	}

	a.setSession(SignedOut, nil)
	return err
}
