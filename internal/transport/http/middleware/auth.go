package middleware

import (
	"context"
	"net/http"
	"strings"

	jwtinfra "github.com/go-identity-worker/internal/infrastructure/jwt"
	"golang.org/x/crypto/bcrypt"
)

type contextKey string

const ClaimsKey contextKey = "claims"

// APIKeyHeader carries the shared secret configured on the bus connection.
const APIKeyHeader = "X-Api-Key"

// Ingress returns middleware that admits a request carrying either an API key matching
// apiKeyHash (bcrypt) or a bearer JWT accepted by verifier. Claims from a verified token
// are injected into the context. With neither configured every request is admitted.
func Ingress(verifier *jwtinfra.Verifier, apiKeyHash string) func(http.Handler) http.Handler {
	hash := []byte(apiKeyHash)
	return func(next http.Handler) http.Handler {
		if verifier == nil && len(hash) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key := r.Header.Get(APIKeyHeader); key != "" && len(hash) > 0 {
				if bcrypt.CompareHashAndPassword(hash, []byte(key)) == nil {
					next.ServeHTTP(w, r)
					return
				}
				writeJSONError(w, r, http.StatusUnauthorized, "invalid api key")
				return
			}

			authHeader := r.Header.Get("Authorization")
			if verifier == nil || !strings.HasPrefix(authHeader, "Bearer ") {
				writeJSONError(w, r, http.StatusUnauthorized, "missing credentials")
				return
			}
			claims, err := verifier.Verify(strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				writeJSONError(w, r, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			ctx := context.WithValue(r.Context(), ClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext extracts JWT claims from the request context.
func ClaimsFromContext(ctx context.Context) (*jwtinfra.Claims, bool) {
	c, ok := ctx.Value(ClaimsKey).(*jwtinfra.Claims)
	return c, ok
}
