// AngelaMos | 2026
// ratelimit_test.go

package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/carterperez-dev/tailorbook/internal/core"
)

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/v1/orders/123e4567-e89b-12d3-a456-426614174000", "/v1/orders/{id}"},
		{"/v1/appointments/42/", "/v1/appointments/{id}"},
		{"/v1/auth/token", "/v1/auth/token"},
	}
	for _, tt := range tests {
		if got := normalizeEndpoint(tt.path); got != tt.want {
			t.Errorf("normalizeEndpoint(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestSensitiveEndpoints(t *testing.T) {
	match := SensitiveEndpoints("/v1/auth/token", "/v1/contact-messages")

	tests := []struct {
		method, path string
		want         bool
	}{
		{http.MethodPost, "/v1/auth/token", true},
		{http.MethodPost, "/v1/contact-messages/", true},
		{http.MethodGet, "/v1/contact-messages", false},
		{http.MethodPost, "/v1/orders", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(tt.method, tt.path, nil)
		if got := match(r); got != tt.want {
			t.Errorf("%s %s = %v, want %v", tt.method, tt.path, got, tt.want)
		}
	}
}

// Without Redis the limiter runs on its local buckets.
func TestRateLimiterLocalFallback(t *testing.T) {
	rl := NewRateLimiter(nil, RateLimitConfig{
		Limit:   PerWindow(2, 0, time.Minute),
		KeyFunc: KeyByIPAndEndpoint,
		Only:    SensitiveEndpoints("/v1/auth/token"),
	})
	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func(method, path, ip string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(method, path, nil)
		r.RemoteAddr = ip + ":5000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec
	}

	for i := range 2 {
		if rec := send(http.MethodPost, "/v1/auth/token", "10.0.0.1"); rec.Code != http.StatusNoContent {
			t.Fatalf("attempt %d status = %d", i+1, rec.Code)
		}
	}

	rec := send(http.MethodPost, "/v1/auth/token", "10.0.0.1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third attempt status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	var body core.Response
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Error == nil || body.Error.Code != "RATE_LIMITED" {
		t.Errorf("error = %+v", body.Error)
	}

	if rec := send(http.MethodPost, "/v1/auth/token", "10.0.0.2"); rec.Code != http.StatusNoContent {
		t.Errorf("other caller status = %d", rec.Code)
	}
	if rec := send(http.MethodGet, "/v1/orders", "10.0.0.1"); rec.Code != http.StatusNoContent {
		t.Errorf("unmatched route status = %d", rec.Code)
	}
}

func TestLocalLimiterSweepsIdleKeys(t *testing.T) {
	l := newLocalLimiter()
	limit := PerWindow(10, 0, time.Minute)
	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	l.allow("idle", limit, start)
	later := start.Add(localEntryTTL + time.Minute)
	for range localSweepEvery - 1 {
		l.allow("busy", limit, later)
	}

	if _, ok := l.entries["idle"]; ok {
		t.Error("idle key should be swept")
	}
	if _, ok := l.entries["busy"]; !ok {
		t.Error("busy key should remain")
	}
}
