package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"canonreg/pkg/requestcontext"
)

// RequireAdminToken gates migration and approval endpoints behind a shared
// token. The registry has no end-user sessions; admins authenticate with the
// deployment-scoped token only.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-Admin-Token")
			// Use constant-time comparison to prevent timing attacks
			if subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", requestcontext.RequestID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"admin token required"}`))
				return
			}

			ctx := requestcontext.WithAdmin(r.Context(), "admin")
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
