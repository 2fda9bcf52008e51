// handlers/admin/rbac.go
package admin

import (
	"net/http"

	"github.com/saraspatika/absensi_backend/internal/pkg/response"
	"github.com/saraspatika/absensi_backend/internal/services/rbac"
)

// InvalidatePermissionsHandler drops cached permission sets so role or
// override edits take effect before the TTL expires. With no user_id the
// whole cache is flushed.
func InvalidatePermissionsHandler(resolver *rbac.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("user_id")
		resolver.Invalidate(userID)

		payload := map[string]interface{}{"message": "Cache permission dibersihkan"}
		if userID != "" {
			payload["user_id"] = userID
		}
		response.Ok(w, http.StatusOK, payload)
	}
}
