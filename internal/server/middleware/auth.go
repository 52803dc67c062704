package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// APIKey rejects requests whose Authorization bearer token does not
// match key. The comparison is constant-time. An empty key disables the
// check (local, trusted setups).
func APIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if subtle.ConstantTimeCompare([]byte(token), []byte(key)) != 1 {
				http.Error(w, `{"title":"Unauthorized","status":401,"detail":"missing or invalid API key"}`, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
