// AngelaMos | 2026
// apikey.go

package middleware

import (
	"net/http"

	"github.com/carterperez-dev/tailorbook/internal/core"
)

const APIKeyHeader = "apikey"

// APIKey rejects requests that do not carry the public application key,
// either as a header or, for EventSource clients, as a query parameter.
func APIKey(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(APIKeyHeader)
			if key == "" {
				key = r.URL.Query().Get(APIKeyHeader)
			}

			if key == "" || !core.ConstantTimeEqual(key, expected) {
				core.JSONError(w, core.NewAppError(
					core.ErrUnauthorized,
					"invalid or missing api key",
					http.StatusUnauthorized,
					"INVALID_API_KEY",
				))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
