// AngelaMos | 2026
// auth_test.go

package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/carterperez-dev/tailorbook/internal/core"
)

type fakeVerifier struct {
	claims map[string]*AccessTokenClaims
}

func (f *fakeVerifier) VerifyAccessToken(
	_ context.Context,
	token string,
) (*AccessTokenClaims, error) {
	if token == "expired" {
		return nil, fmt.Errorf("verify: %w", core.ErrTokenExpired)
	}
	c, ok := f.claims[token]
	if !ok {
		return nil, fmt.Errorf("verify: %w", core.ErrTokenInvalid)
	}
	return c, nil
}

func newVerifier() *fakeVerifier {
	return &fakeVerifier{claims: map[string]*AccessTokenClaims{
		"customer-token": {UserID: "u-1", Role: RoleCustomer},
		"admin-token":    {UserID: "u-2", Role: RoleAdmin},
		"super-token":    {UserID: "u-3", Role: RoleSuperAdmin},
	}}
}

func TestAuthenticatorAndRoles(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-User", GetUserID(r.Context()))
		w.WriteHeader(http.StatusOK)
	})

	staffOnly := Authenticator(newVerifier())(RequireStaff(ok))
	superOnly := Authenticator(newVerifier())(RequireSuperAdmin(ok))

	tests := []struct {
		name    string
		handler http.Handler
		token   string
		want    int
	}{
		{"missing token", staffOnly, "", http.StatusUnauthorized},
		{"expired token", staffOnly, "expired", http.StatusUnauthorized},
		{"unknown token", staffOnly, "nope", http.StatusUnauthorized},
		{"customer denied staff route", staffOnly, "customer-token", http.StatusForbidden},
		{"admin allowed staff route", staffOnly, "admin-token", http.StatusOK},
		{"super admin allowed staff route", staffOnly, "super-token", http.StatusOK},
		{"admin denied super admin route", superOnly, "admin-token", http.StatusForbidden},
		{"super admin allowed super admin route", superOnly, "super-token", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()

			tt.handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestOptionalAuthPassesAnonymous(t *testing.T) {
	var seen string
	h := OptionalAuth(newVerifier())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetUserRole(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if seen != "" {
		t.Errorf("role = %q, want anonymous", seen)
	}
}

func TestExtractToken(t *testing.T) {
	tests := map[string]string{
		"Bearer abc":  "abc",
		"bearer  abc": "abc",
		"Basic abc":   "",
		"abc":         "",
		"":            "",
	}

	for header, want := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		if got := ExtractToken(req); got != want {
			t.Errorf("ExtractToken(%q) = %q, want %q", header, got, want)
		}
	}
}
