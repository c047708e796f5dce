// AngelaMos | 2026
// handler_test.go

package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/tailorbook/internal/middleware"
	"github.com/carterperez-dev/tailorbook/internal/order"
	"github.com/carterperez-dev/tailorbook/internal/realtime"
)

type fakeOrders struct{ err error }

func (f fakeOrders) Summary(context.Context) (*order.Summary, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &order.Summary{Total: 3, Pending: 1, InProgress: 1, Completed: 1, Revenue: 12500}, nil
}

type countFunc func(context.Context) (int, error)

func (f countFunc) PendingCount(ctx context.Context) (int, error) { return f(ctx) }
func (f countFunc) Count(ctx context.Context) (int, error)        { return f(ctx) }

type fakeHub struct{}

func (fakeHub) Stats() realtime.Stats { return realtime.Stats{Subscribers: 4, Dropped: 1} }

func withRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := middleware.WithClaims(r.Context(), &middleware.AccessTokenClaims{UserID: "u-1", Role: role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func TestSystemStats(t *testing.T) {
	two := countFunc(func(context.Context) (int, error) { return 2, nil })

	tests := []struct {
		name        string
		role        string
		orders      OrderSummarizer
		status      int
		wantOrders  bool
		wantPending int
	}{
		{"customer forbidden", middleware.RoleCustomer, fakeOrders{}, http.StatusForbidden, false, 0},
		{"admin sees all", middleware.RoleAdmin, fakeOrders{}, http.StatusOK, true, 2},
		{"order query fails", middleware.RoleSuperAdmin, fakeOrders{err: errors.New("boom")}, http.StatusOK, false, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(HandlerConfig{
				Orders:       tt.orders,
				Appointments: two,
				Messages:     two,
				Realtime:     fakeHub{},
			})
			r := chi.NewRouter()
			h.RegisterRoutes(r, withRole(tt.role), middleware.RequireStaff)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/stats", nil))

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.status != http.StatusOK {
				return
			}

			var body struct {
				Data SystemStatsResponse `json:"data"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}

			b := body.Data.Business
			if (b.Orders != nil) != tt.wantOrders {
				t.Errorf("orders present = %v, want %v", b.Orders != nil, tt.wantOrders)
			}
			if b.PendingAppointments == nil || *b.PendingAppointments != tt.wantPending {
				t.Errorf("pending appointments = %v", b.PendingAppointments)
			}
			if body.Data.Realtime == nil || body.Data.Realtime.Subscribers != 4 {
				t.Errorf("realtime = %+v", body.Data.Realtime)
			}
		})
	}
}
