package middleware

import (
	"log/slog"
	"net/http"

	"paie/internal/transport/http/api"
)

// PermissionChecker is satisfied by auth.RoleChecker.
type PermissionChecker interface {
	HasPermission(role, permission string) bool
}

// RequirePermission answers 401 to anonymous callers and 403 to users whose
// role lacks permission. Refusals are logged with the caller.
func RequirePermission(permission string, checker PermissionChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := GetRequestID(r.Context())
			user, ok := GetUser(r.Context())
			if !ok {
				api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
				return
			}
			if checker == nil || !checker.HasPermission(user.Role, permission) {
				slog.WarnContext(r.Context(), "permission denied", "userId", user.UserID, "role", user.Role, "permission", permission)
				api.Fail(w, http.StatusForbidden, "forbidden", "insufficient permissions", reqID)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
