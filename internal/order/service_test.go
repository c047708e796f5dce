// AngelaMos | 2026
// service_test.go

package order

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/tailorbook/internal/catalog"
	"github.com/carterperez-dev/tailorbook/internal/core"
	"github.com/carterperez-dev/tailorbook/internal/middleware"
	"github.com/carterperez-dev/tailorbook/internal/realtime"
	"github.com/carterperez-dev/tailorbook/internal/user"
)

type memRepo struct {
	mu         sync.Mutex
	rows       map[string]Order
	lastParams ListParams
	creates    int
}

func newMemRepo() *memRepo { return &memRepo{rows: map[string]Order{}} }

func (m *memRepo) List(_ context.Context, p ListParams) ([]Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastParams = p
	var out []Order
	for _, o := range m.rows {
		if p.OwnerID != "" && o.UserID != p.OwnerID {
			continue
		}
		if p.Status != "" && o.Status != p.Status {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (m *memRepo) GetByID(_ context.Context, id string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.rows[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &o, nil
}

func (m *memRepo) Create(_ context.Context, o *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	m.rows[o.ID] = *o
	return nil
}

func (m *memRepo) UpdateStatus(_ context.Context, id, status string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.rows[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	o.Status = status
	m.rows[id] = o
	return &o, nil
}

func (m *memRepo) Delete(_ context.Context, id string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.rows[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	delete(m.rows, id)
	return &o, nil
}

func (m *memRepo) CountByStatus(context.Context) ([]StatusCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := map[string]int{}
	var out []StatusCount
	for _, o := range m.rows {
		i, ok := idx[o.Status]
		if !ok {
			i = len(out)
			idx[o.Status] = i
			out = append(out, StatusCount{Status: o.Status})
		}
		out[i].Count++
		if o.Price != nil {
			out[i].Revenue += *o.Price
		}
	}
	return out, nil
}

type memDirectory map[string]user.Profile

func (d memDirectory) Get(_ context.Context, id string) (*user.Profile, error) {
	if p, ok := d[id]; ok {
		return &p, nil
	}
	return nil, core.ErrNotFound
}

func (d memDirectory) FindByEmail(_ context.Context, email string) (*user.Profile, error) {
	for _, p := range d {
		if strings.EqualFold(p.Email, email) {
			return &p, nil
		}
	}
	return nil, core.ErrNotFound
}

type recorder struct {
	mu      sync.Mutex
	changes []realtime.Change
}

func (r *recorder) Publish(_ context.Context, c realtime.Change) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
	return nil
}

var (
	staff    = middleware.Caller{ID: "staff-1", Role: middleware.RoleAdmin}
	customer = middleware.Caller{ID: "cust-1", Role: middleware.RoleCustomer}
)

func studio() memDirectory {
	biz := "biz-42"
	return memDirectory{
		"staff-1": {ID: "staff-1", Email: "owner@studio.example", Role: user.RoleAdmin, BusinessID: &biz},
		"cust-1":  {ID: "cust-1", Email: "customer@example.com", Role: user.RoleCustomer, Name: "Lakshmi"},
	}
}

func TestCreateForUnknownCustomerCreatesNothing(t *testing.T) {
	repo := newMemRepo()
	pub := &recorder{}
	svc := NewService(repo, studio(), pub)

	_, err := svc.Create(context.Background(), staff, CreateRequest{
		CustomerEmail: "ghost@example.com",
		DressType:     "Anarkali",
	})
	if !errors.Is(err, ErrCustomerNotFound) {
		t.Fatalf("err = %v, want ErrCustomerNotFound", err)
	}
	if repo.creates != 0 || len(pub.changes) != 0 {
		t.Errorf("creates = %d, changes = %d; want none", repo.creates, len(pub.changes))
	}
}

func TestCreateByEmailDefaults(t *testing.T) {
	repo := newMemRepo()
	pub := &recorder{}
	svc := NewService(repo, studio(), pub)

	blank := "  "
	price := 3200.0
	o, err := svc.Create(context.Background(), staff, CreateRequest{
		CustomerEmail: "Customer@Example.com",
		DressType:     " Silk blouse ",
		FabricType:    &blank,
		Price:         &price,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if o.UserID != "cust-1" {
		t.Errorf("user_id = %q", o.UserID)
	}
	if o.Status != catalog.StatusConfirmed || o.UrgencyLevel != catalog.UrgencyNormal {
		t.Errorf("status/urgency = %q/%q", o.Status, o.UrgencyLevel)
	}
	if o.DressType != "Silk blouse" || o.FabricType != nil {
		t.Errorf("dress/fabric = %q/%v", o.DressType, o.FabricType)
	}
	if o.BusinessID == nil || *o.BusinessID != "biz-42" {
		t.Errorf("business_id = %v, want staff business", o.BusinessID)
	}

	if len(pub.changes) != 1 {
		t.Fatalf("changes = %d, want 1", len(pub.changes))
	}
	c := pub.changes[0]
	if c.Type != realtime.EventInsert || c.Keys["user_id"] != "cust-1" {
		t.Errorf("unexpected change %+v", c)
	}
}

func TestListScopesByRole(t *testing.T) {
	repo := newMemRepo()
	repo.rows["o1"] = Order{ID: "o1", UserID: "cust-1", Status: catalog.StatusCutting}
	repo.rows["o2"] = Order{ID: "o2", UserID: "cust-2", Status: catalog.StatusCutting}
	svc := NewService(repo, studio(), nil)
	ctx := context.Background()

	got, err := svc.List(ctx, customer, "", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "o1" {
		t.Errorf("customer sees %+v, want only o1", got)
	}
	if repo.lastParams.WithCustomer {
		t.Error("customer listing should not join names")
	}

	got, _ = svc.List(ctx, staff, "", false)
	if len(got) != 2 || !repo.lastParams.WithCustomer {
		t.Errorf("staff sees %d rows, join=%v", len(got), repo.lastParams.WithCustomer)
	}

	_, _ = svc.List(ctx, staff, "", true)
	if repo.lastParams.WithCustomer {
		t.Error("basic listing should skip the join")
	}

	if _, err := svc.List(ctx, staff, "Lost", false); !errors.Is(err, core.ErrInvalidInput) {
		t.Errorf("unknown status err = %v", err)
	}
}

func TestUpdateStatusPublishesOldAndNew(t *testing.T) {
	repo := newMemRepo()
	repo.rows["o1"] = Order{ID: "o1", UserID: "cust-1", DressType: "Kurti", Status: catalog.StatusCutting}
	pub := &recorder{}
	svc := NewService(repo, studio(), pub)
	ctx := context.Background()

	if _, err := svc.UpdateStatus(ctx, customer, "o1", catalog.StatusTrial); !errors.Is(err, core.ErrForbidden) {
		t.Fatalf("customer update err = %v, want ErrForbidden", err)
	}

	o, err := svc.UpdateStatus(ctx, staff, "o1", catalog.StatusTrial)
	if err != nil {
		t.Fatal(err)
	}
	if o.Status != catalog.StatusTrial {
		t.Errorf("status = %q", o.Status)
	}

	c := pub.changes[0]
	var oldRow Order
	if err := json.Unmarshal(c.Old, &oldRow); err != nil {
		t.Fatal(err)
	}
	if c.Type != realtime.EventUpdate || oldRow.Status != catalog.StatusCutting {
		t.Errorf("change = %s old status %q", c.Type, oldRow.Status)
	}

	if err := svc.Delete(ctx, staff, "o1"); err != nil {
		t.Fatal(err)
	}
	if pub.changes[1].Type != realtime.EventDelete || pub.changes[1].Keys["id"] != "o1" {
		t.Errorf("delete change = %+v", pub.changes[1])
	}
}

func asCaller(c middleware.Caller) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := middleware.WithClaims(r.Context(), &middleware.AccessTokenClaims{UserID: c.ID, Role: c.Role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func TestHandlerCreate(t *testing.T) {
	tests := []struct {
		name    string
		caller  middleware.Caller
		body    string
		status  int
		message string
	}{
		{"customer forbidden", customer, `{"customer_email":"customer@example.com","dress_type":"Kurti"}`, http.StatusForbidden, ""},
		{"unknown customer", staff, `{"customer_email":"nobody@example.com","dress_type":"Kurti"}`, http.StatusNotFound, "Customer not found."},
		{"missing dress type", staff, `{"customer_email":"customer@example.com"}`, http.StatusBadRequest, ""},
		{"bad urgency", staff, `{"customer_email":"customer@example.com","dress_type":"Kurti","urgency_level":"Yesterday"}`, http.StatusBadRequest, ""},
		{"created", staff, `{"customer_email":"customer@example.com","dress_type":"Kurti","delivery_date":"2026-11-02"}`, http.StatusCreated, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			NewHandler(NewService(newMemRepo(), studio(), nil)).RegisterRoutes(r, asCaller(tt.caller))

			req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body)
			}
			if tt.message != "" {
				var resp core.Response
				if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
					t.Fatal(err)
				}
				if resp.Error == nil || resp.Error.Message != tt.message {
					t.Errorf("error = %+v, want %q", resp.Error, tt.message)
				}
			}
		})
	}
}

func TestSummaryBuckets(t *testing.T) {
	price := func(v float64) *float64 { return &v }
	repo := newMemRepo()
	repo.rows["a"] = Order{ID: "a", Status: catalog.StatusConfirmed, Price: price(1000)}
	repo.rows["b"] = Order{ID: "b", Status: catalog.StatusCutting, Price: price(2500)}
	repo.rows["c"] = Order{ID: "c", Status: catalog.StatusTrial}
	repo.rows["d"] = Order{ID: "d", Status: catalog.StatusDelivered, Price: price(4000)}

	sum, err := NewService(repo, studio(), nil).Summary(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if sum.Total != 4 || sum.Pending != 1 || sum.InProgress != 2 || sum.Completed != 1 {
		t.Errorf("buckets = %+v", sum)
	}
	if sum.Revenue != 7500 {
		t.Errorf("revenue = %v, want 7500", sum.Revenue)
	}
}
