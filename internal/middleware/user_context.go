// internal/middleware/user_context.go
package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/jwtauth/v5"
)

type contextKey string

const UserIDContextKey contextKey = "user_id"

// GetUserIDFromContext returns the user id placed by AddUserIDToContext.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	if val := ctx.Value(UserIDContextKey); val != nil {
		if id, ok := val.(string); ok && id != "" {
			return id, true
		}
	}
	return "", false
}

// AddUserIDToContext copies the user_id claim out of the verified JWT into
// the request context.
func AddUserIDToContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, claims, _ := jwtauth.FromContext(r.Context())
			if claims == nil {
				next.ServeHTTP(w, r)
				return
			}

			if id, ok := claims["user_id"].(string); ok && id != "" {
				ctx := context.WithValue(r.Context(), UserIDContextKey, id)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}
