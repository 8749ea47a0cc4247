package middleware

import (
	"net/http"
	"strings"

	"service-marketplace/internal/data/repository"
	"service-marketplace/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuthSession resolves "Authorization: Bearer <session token>" to the
// caller's user id and role and stores both in the request context.
func AuthSession(sessions repository.SessionRepository, logger *zap.Logger) func(http.Handler) http.Handler {
	log := logger.With(zap.String("middleware", "auth"))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				utils.ResponseUnauthorized(w, "Missing authorization token")
				return
			}

			parts := strings.Fields(authHeader)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				utils.ResponseUnauthorized(w, "Invalid token format. Use: Bearer <token>")
				return
			}
			token := parts[1]

			// session tokens are UUIDs, anything else cannot match
			if _, err := uuid.Parse(token); err != nil {
				log.Warn("Malformed session token", zap.String("token", utils.MaskSecret(token)))
				utils.ResponseUnauthorized(w, "Invalid or expired session")
				return
			}

			principal, err := sessions.FindPrincipal(r.Context(), token)
			if err != nil {
				log.Error("Failed to validate session",
					zap.String("token", utils.MaskSecret(token)),
					zap.Error(err))
				utils.ResponseInternalError(w, "Internal server error")
				return
			}
			if principal == nil {
				log.Warn("Invalid or expired session", zap.String("token", utils.MaskSecret(token)))
				utils.ResponseUnauthorized(w, "Invalid or expired session")
				return
			}

			ctx := utils.SetUserContext(r.Context(), principal.UserID, string(principal.Role))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole lets the request through only when AuthSession stored one
// of the given roles.
func RequireRole(logger *zap.Logger, roles ...string) func(http.Handler) http.Handler {
	log := logger.With(zap.String("middleware", "role"))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := utils.GetPrincipalFromContext(r.Context())
			if !ok {
				utils.ResponseUnauthorized(w, "Authentication required")
				return
			}

			for _, role := range roles {
				if principal.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			log.Warn("Role check failed",
				zap.String("user_id", principal.UserID.String()),
				zap.String("role", principal.Role),
				zap.String("path", r.URL.Path))
			utils.ResponseForbidden(w, "Insufficient permissions")
		})
	}
}
