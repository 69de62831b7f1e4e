package middleware

import (
	"net/http"

	"go.uber.org/zap"
)

// editorRoles are the identity-service roles allowed to mutate the catalog.
var editorRoles = map[string]bool{
	"editor": true,
	"admin":  true,
}

// RequireEditor ensures the authenticated identity carries an editor-capable
// role. It must run after EditorAuthMiddleware.
func RequireEditor(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := GetEditorRole(r.Context())
			if !ok {
				logger.Warn("Role not found in context")
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			if !editorRoles[role] {
				logger.Warn("Non-editor attempted a catalog write",
					zap.String("role", role),
				)
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
