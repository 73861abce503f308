package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"vendhub-portal-api/internal/domain"

	"github.com/rs/zerolog"
)

// TokenVerifier validates a bearer token and returns its claims.
type TokenVerifier interface {
	VerifyToken(token string) (*domain.AdminClaims, error)
}

type contextKey string

const adminClaimsKey contextKey = "admin_claims"

// AdminClaimsFromContext returns the verified admin claims set by AdminAuth,
// or nil outside a protected route.
func AdminClaimsFromContext(ctx context.Context) *domain.AdminClaims {
	claims, _ := ctx.Value(adminClaimsKey).(*domain.AdminClaims)
	return claims
}

// AdminAuth guards admin-only routes. A missing or malformed Authorization
// header, a bad signature, an expired token and a non-admin role all collapse
// to the same 401; the caller learns nothing about which check failed.
func AdminAuth(verifier TokenVerifier, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				unauthorized(w, "Unauthorized")
				return
			}

			token := strings.TrimPrefix(header, "Bearer ")
			claims, err := verifier.VerifyToken(token)
			if err != nil {
				logger.Debug().Err(err).Msg("Admin token rejected")
				unauthorized(w, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), adminClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
