package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/qwli7/meetbridge/internal/log"
)

// webhookAuth guards the submission endpoint with a shared-secret query
// parameter. When no token is configured the check is disabled entirely.
func webhookAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" {
				got := r.URL.Query().Get("auth")
				if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
					logger := log.WithComponentFromContext(r.Context(), "api")
					logger.Warn().
						Str("remote_addr", r.RemoteAddr).
						Msg("webhook auth token mismatch")
					writeUnauthorized(w)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
