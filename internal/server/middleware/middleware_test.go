package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voterstack/gateway/internal/server/middleware"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// ---------------------------------------------------------------------------
// AdminAuth
// ---------------------------------------------------------------------------

func TestAdminAuth(t *testing.T) {
	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{name: "valid token", authHeader: "Bearer secret-token", wantStatus: http.StatusOK},
		{name: "wrong token", authHeader: "Bearer other-token", wantStatus: http.StatusForbidden},
		{name: "missing header", authHeader: "", wantStatus: http.StatusForbidden},
		{name: "no bearer prefix", authHeader: "secret-token", wantStatus: http.StatusForbidden},
	}

	handler := middleware.AdminAuth("secret-token")(okHandler())

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/admin/usage/kerala", nil)
			if tc.authHeader != "" {
				r.Header.Set("Authorization", tc.authHeader)
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, r)
			assert.Equal(t, tc.wantStatus, rec.Code)

			if tc.wantStatus == http.StatusForbidden {
				assert.JSONEq(t, `{"error":"Forbidden","message":"valid admin token required"}`, rec.Body.String())
			}
		})
	}
}

// ---------------------------------------------------------------------------
// RateLimitByIP
// ---------------------------------------------------------------------------

func TestRateLimitByIP(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Burst of 2 with negligible refill: third hit from one IP is denied.
	handler := middleware.RateLimitByIP(ctx, 0.001, 2)(okHandler())

	doReq := func(ip string) int {
		r := httptest.NewRequest("GET", "/admin/flags/x", nil)
		r.RemoteAddr = ip
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, doReq("203.0.113.9:1000"))
	require.Equal(t, http.StatusOK, doReq("203.0.113.9:1000"))
	assert.Equal(t, http.StatusTooManyRequests, doReq("203.0.113.9:1000"))

	// A different IP has its own bucket.
	assert.Equal(t, http.StatusOK, doReq("198.51.100.7:1000"))
}
