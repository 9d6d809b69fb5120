package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/merlinthebtcwizard/allowance-app/internal/auth"
)

type contextKey struct{}

var identityKey contextKey

// RequireAuth verifies the Bearer token and stashes the caller's identity in
// the request context. Requests without a valid token get 401.
func RequireAuth(tokens *auth.TokenManager, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		identity, err := tokens.Parse(strings.TrimSpace(token))
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), identityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IdentityFrom extracts the verified identity RequireAuth stored, if any.
func IdentityFrom(ctx context.Context) (auth.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(auth.Identity)
	return identity, ok
}
