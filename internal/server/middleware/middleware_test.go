package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cptapp/cpt/internal/server/middleware"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// ---------------------------------------------------------------------------
// APIKey
// ---------------------------------------------------------------------------

func TestAPIKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		key    string
		header string
		want   int
	}{
		{"empty_key_disables_check", "", "", http.StatusOK},
		{"valid_bearer_token", "s3cret", "Bearer s3cret", http.StatusOK},
		{"missing_header", "s3cret", "", http.StatusUnauthorized},
		{"wrong_token", "s3cret", "Bearer nope", http.StatusUnauthorized},
		{"token_without_bearer_prefix", "s3cret", "s3cret", http.StatusOK},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler := middleware.APIKey(tt.key)(okHandler())
			req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

// ---------------------------------------------------------------------------
// RateLimitByIP
// ---------------------------------------------------------------------------

func TestRateLimitByIP(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Burst of 2: the third request from the same address must be shed.
	handler := middleware.RateLimitByIP(ctx, 0.01, 2)(okHandler())

	codes := make([]int, 3)
	for i := range codes {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
		req.RemoteAddr = "10.0.0.1:4000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes[i] = rec.Code
	}

	assert.Equal(t, http.StatusOK, codes[0])
	assert.Equal(t, http.StatusOK, codes[1])
	assert.Equal(t, http.StatusTooManyRequests, codes[2])
}

func TestRateLimitByIP_PerAddress(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := middleware.RateLimitByIP(ctx, 0.01, 1)(okHandler())

	for i, addr := range []string{"10.0.0.1:4000", "10.0.0.2:4000"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "address %d gets its own bucket", i)
	}
}
