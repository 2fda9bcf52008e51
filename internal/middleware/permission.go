// internal/middleware/permission.go
package middleware

import (
	"errors"
	"net/http"

	"github.com/saraspatika/absensi_backend/internal/pkg/response"
	"github.com/saraspatika/absensi_backend/internal/services/rbac"
)

// RequirePermission gates a route on the resolver's decision for the given
// resource/action pair. A resolver outage is surfaced as 503, never as a
// silent allow.
func RequirePermission(resolver *rbac.Resolver, resource, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := GetUserIDFromContext(r.Context())
			if !ok {
				response.RespondWithError(w, http.StatusUnauthorized, "User ID not found in context")
				return
			}

			allowed, err := resolver.Authorize(r.Context(), userID, resource, action)
			if err != nil {
				if errors.Is(err, rbac.ErrAuthzUnavailable) {
					response.RespondWithError(w, http.StatusServiceUnavailable, "Authorization temporarily unavailable")
					return
				}
				response.RespondWithError(w, http.StatusInternalServerError, "Authorization failed")
				return
			}
			if !allowed {
				response.RespondWithError(w, http.StatusForbidden, "Akses ditolak")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
