// AngelaMos | 2026
// handler_test.go

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func ok() Checker   { return pingFunc(func(context.Context) error { return nil }) }
func down() Checker { return pingFunc(func(context.Context) error { return errors.New("connection refused") }) }

func TestReadiness(t *testing.T) {
	tests := []struct {
		name     string
		deps     []Dependency
		shutdown bool
		status   int
		body     string
	}{
		{"all healthy", []Dependency{{"postgres", ok()}, {"redis", ok()}, {"realtime", ok()}}, false, http.StatusOK, "ok"},
		{"redis down", []Dependency{{"postgres", ok()}, {"redis", down()}}, false, http.StatusServiceUnavailable, "degraded"},
		{"missing checker", []Dependency{{"postgres", nil}}, false, http.StatusServiceUnavailable, "degraded"},
		{"shutting down", []Dependency{{"postgres", ok()}}, true, http.StatusServiceUnavailable, "shutting_down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(tt.deps...)
			h.SetShutdown(tt.shutdown)
			r := chi.NewRouter()
			h.RegisterRoutes(r)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}

			var resp ReadinessResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatal(err)
			}
			if resp.Status != tt.body {
				t.Errorf("status body = %q, want %q", resp.Status, tt.body)
			}
			if !tt.shutdown && len(resp.Checks) != len(tt.deps) {
				t.Errorf("checks = %d, want %d", len(resp.Checks), len(tt.deps))
			}
		})
	}
}

func TestLivenessIgnoresDependencies(t *testing.T) {
	h := NewHandler(Dependency{"postgres", down()})
	rec := httptest.NewRecorder()
	h.Liveness(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
