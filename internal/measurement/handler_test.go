// AngelaMos | 2026
// handler_test.go

package measurement

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
	rows map[string]Measurement
}

func (m *memRepo) GetByUser(_ context.Context, userID string) (*Measurement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row, ok := m.rows[userID]; ok {
		return &row, nil
	}
	return nil, core.ErrNotFound
}

func (m *memRepo) Upsert(_ context.Context, row *Measurement) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.rows[row.UserID]
	if ok {
		row.ID = existing.ID
	}
	m.rows[row.UserID] = *row
	return !ok, nil
}

type recorder struct {
	changes []realtime.Change
}

func (r *recorder) Publish(_ context.Context, c realtime.Change) error {
	r.changes = append(r.changes, c)
	return nil
}

func asUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := middleware.WithClaims(r.Context(), &middleware.AccessTokenClaims{
			UserID: "cust-1",
			Role:   middleware.RoleCustomer,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func TestSaveInsertsThenUpdates(t *testing.T) {
	repo := &memRepo{rows: map[string]Measurement{}}
	pub := &recorder{}
	r := chi.NewRouter()
	NewHandler(NewService(repo, pub)).RegisterRoutes(r, asUser)

	send := func(method, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/measurements/me", strings.NewReader(body))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := send(http.MethodGet, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"data":null`) {
		t.Fatalf("empty GET = %d %s", rec.Code, rec.Body)
	}

	rec = send(http.MethodPut, `{"bust":34,"waist":28.5}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("first save = %d %s", rec.Code, rec.Body)
	}

	rec = send(http.MethodPut, `{"bust":35,"waist":28.5,"hip":38}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("second save = %d %s", rec.Code, rec.Body)
	}

	if len(repo.rows) != 1 {
		t.Fatalf("rows = %d, want one per customer", len(repo.rows))
	}

	rec = send(http.MethodGet, "")
	var body struct {
		Data Measurement `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Data.Bust == nil || *body.Data.Bust != 35 || body.Data.Shoulder != nil {
		t.Errorf("unexpected row %+v", body.Data)
	}

	if len(pub.changes) != 2 ||
		pub.changes[0].Type != realtime.EventInsert ||
		pub.changes[1].Type != realtime.EventUpdate {
		t.Errorf("changes = %+v", pub.changes)
	}
	if pub.changes[1].Keys["user_id"] != "cust-1" {
		t.Errorf("keys = %v", pub.changes[1].Keys)
	}

	if rec := send(http.MethodPut, `{"bust":-1}`); rec.Code != http.StatusBadRequest {
		t.Errorf("negative bust = %d, want 400", rec.Code)
	}
}
