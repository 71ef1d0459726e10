package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// AdminAuth guards the admin surface with a static bearer token.
// Comparison is constant-time. Token issuance is out of scope for the
// gateway; the token is operator-provisioned configuration.
func AdminAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(raw), []byte(token)) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"Forbidden","message":"valid admin token required"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
