// AngelaMos | 2026
// client_test.go

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/carterperez-dev/tailorbook/internal/config"
)

const testKey = "anon-key-for-tests-0123456789"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // test server
}

func fail(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   map[string]string{"code": code, "message": msg},
	})
}

func tokens(access string, expires time.Time) map[string]any {
	return map[string]any{
		"success": true,
		"data": map[string]any{
			"user": map[string]string{"id": "u-1", "email": "asha@example.com", "role": "customer"},
			"tokens": map[string]any{
				"access_token":  access,
				"refresh_token": "refresh-" + access,
				"expires_at":    expires,
			},
		},
	}
}

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(config.BackendConfig{URL: srv.URL, AnonKey: testKey}).WithHTTPClient(srv.Client())
}

func TestConfigured(t *testing.T) {
	tests := []struct {
		name string
		url  string
		key  string
		want bool
	}{
		{"valid", "https://api.example.com", testKey, true},
		{"empty url", "", testKey, false},
		{"not http", "ftp://api.example.com", testKey, false},
		{"garbage url", "::::", testKey, false},
		{"key of 20", "https://api.example.com", strings.Repeat("k", 20), false},
		{"key of 21", "https://api.example.com", strings.Repeat("k", 21), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(config.BackendConfig{URL: tt.url, AnonKey: tt.key})
			if got := c.Configured(); got != tt.want {
				t.Errorf("Configured() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNotConfiguredFailsFast(t *testing.T) {
	conn := New(config.BackendConfig{}).Connect()

	if _, err := conn.Auth.SignInWithPassword(context.Background(), "a@b.c", "secret"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("sign in err = %v", err)
	}
	if _, err := conn.ListOrders(context.Background(), OrderQuery{}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("list err = %v", err)
	}
	if ErrNotConfigured.Error() != "Backend is not configured. Please update .env with valid credentials." {
		t.Errorf("message = %q", ErrNotConfigured.Error())
	}
}

func TestSignInEmitsAndSurfacesBackendMessage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/auth/token", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("apikey") != testKey {
			fail(w, http.StatusUnauthorized, "INVALID_API_KEY", "missing apikey")
			return
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body) //nolint:errcheck // test server
		if body["password"] != "correct" {
			fail(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid login credentials")
			return
		}
		writeJSON(w, http.StatusOK, tokens("at-1", time.Now().Add(time.Hour)))
	})
	mux.HandleFunc("POST /v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-1" {
			fail(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing token")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	auth := newTestClient(t, mux).NewAuth()

	var (
		mu     sync.Mutex
		events []AuthEvent
	)
	unsubscribe := auth.OnAuthStateChange(func(e AuthEvent, _ *Session) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	})

	_, err := auth.SignInWithPassword(context.Background(), "asha@example.com", "wrong")
	if err == nil || err.Error() != "Invalid login credentials" {
		t.Fatalf("err = %v, want backend message", err)
	}
	if !IsStatus(err, http.StatusUnauthorized) {
		t.Errorf("status not carried: %v", err)
	}

	s, err := auth.SignInWithPassword(context.Background(), "asha@example.com", "correct")
	if err != nil {
		t.Fatal(err)
	}
	if s.User.ID != "u-1" || auth.Current() != s {
		t.Errorf("session not held: %+v", s)
	}

	unsubscribe()
	if err := auth.SignOut(context.Background()); err != nil {
		t.Errorf("sign out: %v", err)
	}
	if auth.Current() != nil {
		t.Error("sign out must clear the local session")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 1 || events[0] != SignedIn {
		t.Errorf("events = %v, want [SIGNED_IN] only", events)
	}
}

func TestGetSessionRefreshesNearExpiry(t *testing.T) {
	var refreshes int
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/auth/token", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, tokens("at-1", time.Now().Add(10*time.Second)))
	})
	mux.HandleFunc("POST /v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshes++
		if refreshes > 1 {
			fail(w, http.StatusUnauthorized, "TOKEN_REVOKED", "token has been revoked")
			return
		}
		writeJSON(w, http.StatusOK, tokens("at-2", time.Now().Add(10*time.Second)))
	})

	auth := newTestClient(t, mux).NewAuth()
	ctx := context.Background()

	var events []AuthEvent
	auth.OnAuthStateChange(func(e AuthEvent, _ *Session) { events = append(events, e) })

	if _, err := auth.SignInWithPassword(ctx, "asha@example.com", "x"); err != nil {
		t.Fatal(err)
	}

	token, err := auth.AccessToken(ctx)
	if err != nil || token != "at-2" {
		t.Fatalf("token = %q err = %v, want refreshed at-2", token, err)
	}

	s, err := auth.GetSession(ctx)
	if err != nil || s != nil {
		t.Fatalf("revoked refresh should sign out, got %+v %v", s, err)
	}

	want := []AuthEvent{SignedIn, TokenRefreshed, SignedOut}
	if fmt.Sprint(events) != fmt.Sprint(want) {
		t.Errorf("events = %v, want %v", events, want)
	}
}

func TestOAuthURLReadsRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/auth/authorize", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("provider") != "google" {
			fail(w, http.StatusBadRequest, "BAD_REQUEST", "Unsupported provider: provider is not enabled")
			return
		}
		http.Redirect(w, r, "https://accounts.google.com/o/oauth2/auth?state=abc", http.StatusFound)
	})

	auth := newTestClient(t, mux).NewAuth()

	got, err := auth.OAuthURL(context.Background(), "google", "http://localhost:3000/auth/callback")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(got, "https://accounts.google.com/") {
		t.Errorf("url = %q", got)
	}

	_, err = auth.OAuthURL(context.Background(), "github", "http://localhost:3000/auth/callback")
	if err == nil || !strings.Contains(err.Error(), "Unsupported provider") {
		t.Errorf("err = %v", err)
	}
}

func TestFindProfileByEmailMissing(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/profiles", func(w http.ResponseWriter, r *http.Request) {
		fail(w, http.StatusNotFound, "NOT_FOUND", "profile not found")
	})

	p, err := newTestClient(t, mux).Connect().FindProfileByEmail(context.Background(), "ghost@example.com")
	if err != nil || p != nil {
		t.Errorf("got %+v %v, want nil nil", p, err)
	}
}

func TestPing(t *testing.T) {
	healthy := true
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	c := newTestClient(t, mux)

	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	healthy = false
	if err := c.Ping(context.Background()); !IsStatus(err, http.StatusServiceUnavailable) {
		t.Errorf("err = %v, want 503", err)
	}

	if err := New(config.BackendConfig{}).Ping(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("unconfigured err = %v", err)
	}
}

func TestSubscribe(t *testing.T) {
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/realtime", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("table") == "contact_messages" {
			fail(w, http.StatusForbidden, "FORBIDDEN", "subscribe to contact_messages: forbidden")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "event: subscribed\ndata: {}\n\n: ping\n\n")
		fmt.Fprintf(w, "id: c1\nevent: change\ndata: {\"id\":\"c1\",\"table\":\"orders\",\"type\":\"UPDATE\",\"new\":{\"id\":\"o1\",\"status\":\"Trial\"}}\n\n")
		w.(http.Flusher).Flush()
		<-release
	})

	conn := newTestClient(t, mux).Connect()
	var once sync.Once
	stop := func() { once.Do(func() { close(release) }) }
	t.Cleanup(stop)

	_, err := conn.Subscribe(context.Background(), Channel{Table: "contact_messages"})
	if !IsStatus(err, http.StatusForbidden) {
		t.Fatalf("err = %v, want 403", err)
	}

	s, err := conn.Subscribe(context.Background(), Channel{Table: "orders", Filter: "user_id=eq.u-1"})
	if err != nil {
		t.Fatal(err)
	}

	select {
	case c := <-s.C():
		o, err := DecodeNew[Order](c)
		if err != nil || o.Status != "Trial" || c.Type != EventUpdate {
			t.Errorf("change = %+v order = %+v err = %v", c, o, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no change delivered")
	}

	stop()
	s.Close()
	if err := s.Err(); err != nil && !strings.Contains(err.Error(), "EOF") {
		t.Errorf("unexpected stream error %v", err)
	}
}
