// AngelaMos | 2026
// handler_test.go

package message

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/tailorbook/internal/core"
	"github.com/carterperez-dev/tailorbook/internal/middleware"
	"github.com/carterperez-dev/tailorbook/internal/realtime"
)

type memRepo struct {
	mu        sync.Mutex
	rows      []ContactMessage
	lastLimit int
}

func (m *memRepo) Create(_ context.Context, msg *ContactMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, *msg)
	return nil
}

func (m *memRepo) List(_ context.Context, limit int) ([]ContactMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit = limit
	return m.rows, nil
}

func (m *memRepo) Count(context.Context) (int, error) {
	return len(m.rows), nil
}

type recorder struct {
	changes []realtime.Change
}

func (r *recorder) Publish(_ context.Context, c realtime.Change) error {
	r.changes = append(r.changes, c)
	return nil
}

// bearer authenticates requests carrying X-Test-Role and rejects the rest.
func bearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role := r.Header.Get("X-Test-Role")
		if role == "" {
			core.Unauthorized(w, "")
			return
		}
		ctx := middleware.WithClaims(r.Context(), &middleware.AccessTokenClaims{UserID: "u-1", Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func TestContactMessages(t *testing.T) {
	repo := &memRepo{}
	pub := &recorder{}
	r := chi.NewRouter()
	NewHandler(NewService(repo, pub)).RegisterRoutes(r, bearer)

	tests := []struct {
		name   string
		method string
		path   string
		role   string
		body   string
		status int
	}{
		{"visitor sends", http.MethodPost, "/contact-messages", "", `{"name":"Divya","email":"divya@example.com","message":"Do you stitch lehengas?"}`, http.StatusCreated},
		{"empty message", http.MethodPost, "/contact-messages", "", `{"name":"Divya","email":"divya@example.com","message":""}`, http.StatusBadRequest},
		{"visitor cannot read", http.MethodGet, "/contact-messages", "", "", http.StatusUnauthorized},
		{"customer cannot read", http.MethodGet, "/contact-messages", middleware.RoleCustomer, "", http.StatusForbidden},
		{"staff reads", http.MethodGet, "/contact-messages?limit=9999", middleware.RoleAdmin, "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.role != "" {
				req.Header.Set("X-Test-Role", tt.role)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body)
			}
		})
	}

	if len(repo.rows) != 1 || len(pub.changes) != 1 {
		t.Fatalf("rows = %d changes = %d, want 1/1", len(repo.rows), len(pub.changes))
	}
	if pub.changes[0].Table != realtime.TableContactMessages {
		t.Errorf("table = %q", pub.changes[0].Table)
	}
	if repo.lastLimit != maxLimit {
		t.Errorf("limit = %d, want clamp to %d", repo.lastLimit, maxLimit)
	}
}
