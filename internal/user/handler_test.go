// AngelaMos | 2026
// handler_test.go

package user

import (
	"context"
	"encoding/json"
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
	mu   sync.Mutex
	rows map[string]Profile
}

func (m *memRepo) Insert(_ context.Context, _ core.DBTX, p *Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[p.ID]; ok {
		return core.ErrDuplicateKey
	}
	m.rows[p.ID] = *p
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id string) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.rows[id]; ok {
		return &p, nil
	}
	return nil, core.ErrNotFound
}

func (m *memRepo) GetByEmail(_ context.Context, email string) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.rows {
		if strings.EqualFold(p.Email, email) {
			return &p, nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *memRepo) Upsert(_ context.Context, p *Profile) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.rows[p.ID]
	if ok {
		existing.Name, existing.Email, existing.Phone = p.Name, p.Email, p.Phone
		m.rows[p.ID] = existing
		*p = existing
		return false, nil
	}
	p.Role = RoleCustomer
	m.rows[p.ID] = *p
	return true, nil
}

func (m *memRepo) UpdateRole(_ context.Context, id, role string) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	p.Role = role
	m.rows[id] = p
	return &p, nil
}

func (m *memRepo) List(context.Context, ListParams) ([]Profile, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Profile, 0, len(m.rows))
	for _, p := range m.rows {
		out = append(out, p)
	}
	return out, len(out), nil
}

type countingPublisher struct {
	mu      sync.Mutex
	changes []realtime.Change
}

func (c *countingPublisher) Publish(_ context.Context, ch realtime.Change) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.changes = append(c.changes, ch)
	return nil
}

// asUser injects claims from X-Test-User / X-Test-Role in place of a JWT.
func asUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Test-User")
		if id == "" {
			core.Unauthorized(w, "")
			return
		}
		ctx := middleware.WithClaims(r.Context(), &middleware.AccessTokenClaims{
			UserID: id,
			Role:   r.Header.Get("X-Test-Role"),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func newTestRouter(repo *memRepo, pub *countingPublisher) http.Handler {
	r := chi.NewRouter()
	NewHandler(NewService(repo, pub)).RegisterRoutes(r, asUser)
	return r
}

func do(t *testing.T, h http.Handler, method, path, userID, role, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-Test-User", userID)
		req.Header.Set("X-Test-Role", role)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestUpsertMeNeverEscalatesRole(t *testing.T) {
	repo := &memRepo{rows: map[string]Profile{}}
	pub := &countingPublisher{}
	h := newTestRouter(repo, pub)

	rec := do(t, h, http.MethodPut, "/profiles/me", "u-1", RoleCustomer,
		`{"name":"Asha","email":"asha@example.com","phone":" 98765 ","role":"admin"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
	}

	got := repo.rows["u-1"]
	if got.Role != RoleCustomer {
		t.Errorf("role = %q, want customer", got.Role)
	}
	if got.Phone == nil || *got.Phone != "98765" {
		t.Errorf("phone = %v, want trimmed", got.Phone)
	}

	if len(pub.changes) != 1 || pub.changes[0].Type != realtime.EventInsert {
		t.Fatalf("changes = %+v, want one INSERT", pub.changes)
	}

	rec = do(t, h, http.MethodPut, "/profiles/me", "u-1", RoleCustomer,
		`{"name":"Asha R","email":"asha@example.com"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("second upsert status = %d", rec.Code)
	}
	if pub.changes[1].Type != realtime.EventUpdate {
		t.Errorf("second upsert type = %s, want UPDATE", pub.changes[1].Type)
	}
}

func TestUpsertMeValidation(t *testing.T) {
	h := newTestRouter(&memRepo{rows: map[string]Profile{}}, &countingPublisher{})

	rec := do(t, h, http.MethodPut, "/profiles/me", "u-1", RoleCustomer, `{"email":"x@example.com"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing name status = %d, want 400", rec.Code)
	}
}

func TestLookupByEmail(t *testing.T) {
	repo := &memRepo{rows: map[string]Profile{
		"c-1": {ID: "c-1", Name: "Kavya", Email: "kavya@example.com", Role: RoleCustomer},
	}}
	h := newTestRouter(repo, &countingPublisher{})

	tests := []struct {
		name   string
		role   string
		email  string
		status int
	}{
		{"customer forbidden", RoleCustomer, "kavya@example.com", http.StatusForbidden},
		{"admin finds", RoleAdmin, "KAVYA@example.com", http.StatusOK},
		{"super admin finds", RoleSuperAdmin, "kavya@example.com", http.StatusOK},
		{"unknown email", RoleAdmin, "nobody@example.com", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, "/profiles?email="+tt.email, "s-1", tt.role, "")
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.status != http.StatusOK {
				return
			}

			var body struct {
				Data []Profile `json:"data"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if len(body.Data) != 1 || body.Data[0].ID != "c-1" {
				t.Errorf("unexpected data %+v", body.Data)
			}
		})
	}
}

func TestUpdateRoleRequiresSuperAdmin(t *testing.T) {
	repo := &memRepo{rows: map[string]Profile{
		"c-1":  {ID: "c-1", Role: RoleCustomer},
		"sa-1": {ID: "sa-1", Role: RoleSuperAdmin},
	}}
	h := newTestRouter(repo, &countingPublisher{})

	rec := do(t, h, http.MethodPut, "/profiles/c-1/role", "a-1", RoleAdmin, `{"role":"admin"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("admin promoting status = %d, want 403", rec.Code)
	}

	rec = do(t, h, http.MethodPut, "/profiles/c-1/role", "sa-1", RoleSuperAdmin, `{"role":"admin"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("super admin promoting status = %d body=%s", rec.Code, rec.Body)
	}
	if repo.rows["c-1"].Role != RoleAdmin {
		t.Errorf("role = %q, want admin", repo.rows["c-1"].Role)
	}

	rec = do(t, h, http.MethodPut, "/profiles/sa-1/role", "sa-1", RoleSuperAdmin, `{"role":"customer"}`)
	if rec.Code != http.StatusForbidden {
		t.Errorf("self demotion status = %d, want 403", rec.Code)
	}

	rec = do(t, h, http.MethodPut, "/profiles/c-1/role", "sa-1", RoleSuperAdmin, `{"role":"owner"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid role status = %d, want 400", rec.Code)
	}
}
