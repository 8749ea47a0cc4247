package middleware

import (
	"net/http"
	"strings"

	"service-marketplace/pkg/utils"

	"go.uber.org/zap"
)

// Recover turns a handler panic into a 500 with the standard envelope.
// Webhook routes get the {error} body the gateway contract expects.
func Recover(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					logger.Error("PANIC recovered",
						zap.Any("error", err),
						zap.String("path", r.URL.Path),
						zap.String("method", r.Method),
						zap.Stack("stack"),
					)

					if strings.HasPrefix(r.URL.Path, "/api/webhooks/") {
						utils.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
						return
					}
					utils.ResponseInternalError(w, "Internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
