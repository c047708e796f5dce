// AngelaMos | 2026
// guard_test.go

package guard

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/carterperez-dev/tailorbook/internal/backend"
	"github.com/carterperez-dev/tailorbook/internal/session"
)

func signedIn(role string) session.State {
	s := session.State{User: &backend.User{ID: "u-1"}}
	if role != "" {
		s.Profile = &backend.Profile{ID: "u-1", Role: role}
	}
	return s
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		state    session.State
		req      Requirement
		outcome  Outcome
		location string
	}{
		{"public page while loading", session.State{Loading: true}, None, Render, ""},
		{"loading", session.State{Loading: true}, Customer, Placeholder, ""},
		{"anonymous customer page", session.State{}, Customer, RedirectLogin, "/login"},
		{"anonymous admin page", session.State{}, Staff, RedirectLogin, "/login"},
		{"customer on dashboard", signedIn(session.RoleCustomer), Customer, Render, ""},
		{"customer on admin", signedIn(session.RoleCustomer), Staff, RedirectHome, "/dashboard"},
		{"admin on admin", signedIn(session.RoleAdmin), Staff, Render, ""},
		{"super admin on admin", signedIn(session.RoleSuperAdmin), Staff, Render, ""},
		{"no profile row on admin", signedIn(""), Staff, RedirectHome, "/dashboard"},
		{"no profile row on dashboard", signedIn(""), Customer, Render, ""},
		{"admin on book", signedIn(session.RoleAdmin), Customer, RedirectHome, "/admin"},
		{"super admin on dashboard", signedIn(session.RoleSuperAdmin), Customer, RedirectHome, "/admin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Evaluate(tt.state, tt.req)
			if d.Outcome != tt.outcome || d.Location != tt.location {
				t.Errorf("Evaluate = %s %q, want %s %q", d.Outcome, d.Location, tt.outcome, tt.location)
			}
		})
	}
}

func TestRequireEvaluatesEveryRequest(t *testing.T) {
	state := session.State{}
	h := Require(Staff, func(*http.Request) session.State { return state })(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}),
	)

	serve := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
		return rec
	}

	if rec := serve(); rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
		t.Fatalf("anonymous: %d %s", rec.Code, rec.Header().Get("Location"))
	}

	state = session.State{Loading: true}
	if rec := serve(); rec.Code != http.StatusOK || rec.Header().Get("Refresh") == "" {
		t.Fatalf("loading: %d refresh=%q", rec.Code, rec.Header().Get("Refresh"))
	}

	state = signedIn(session.RoleAdmin)
	if rec := serve(); rec.Code != http.StatusTeapot {
		t.Fatalf("admin: %d", rec.Code)
	}

	state = signedIn(session.RoleCustomer)
	if rec := serve(); rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/dashboard" {
		t.Fatalf("demoted: %d %s", rec.Code, rec.Header().Get("Location"))
	}
}
