package auth

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// RequireScope rejects requests without a valid bearer token carrying scope.
// With an empty secret every request passes.
func RequireScope(secret, scope string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}

			claims, err := Verify(parts[1], secret)
			if err != nil {
				logger.Debug("Rejected bearer token", zap.String("path", r.URL.Path), zap.Error(err))
				w.WriteHeader(http.StatusUnauthorized)
				return
			}

			if claims.Scope != scope {
				logger.Warn("Bearer token lacks scope",
					zap.String("subject", claims.Subject),
					zap.String("scope", claims.Scope),
					zap.String("required", scope))
				w.WriteHeader(http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
