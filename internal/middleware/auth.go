package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type contextKey string

const (
	EditorIDKey   contextKey = "editor_id"
	EditorRoleKey contextKey = "editor_role"
)

// EditorAuthMiddleware verifies the editor token issued by the identity
// service and attaches the editor identity to the request context. The
// catalog never issues tokens itself; a request without a valid one is
// uniformly a 401.
func EditorAuthMiddleware(jwtSecret string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Debug("Missing authorization header")
				RespondWithError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				logger.Debug("Invalid authorization header format")
				RespondWithError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			tokenString := parts[1]

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				// Validate signing method
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})

			if err != nil {
				logger.Debug("Token validation failed", zap.Error(err))
				if err == jwt.ErrTokenExpired {
					RespondWithError(w, http.StatusUnauthorized, "token expired")
				} else {
					RespondWithError(w, http.StatusUnauthorized, "invalid token")
				}
				return
			}

			if !token.Valid {
				logger.Debug("Invalid token")
				RespondWithError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				logger.Error("Failed to extract claims from token")
				RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
				return
			}

			editorID, ok := claims["editor_id"].(string)
			if !ok {
				logger.Error("Missing editor_id in token claims")
				RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
				return
			}

			role, ok := claims["role"].(string)
			if !ok {
				logger.Error("Missing role in token claims")
				RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
				return
			}

			ctx := context.WithValue(r.Context(), EditorIDKey, editorID)
			ctx = context.WithValue(ctx, EditorRoleKey, role)

			logger.Debug("Editor authenticated",
				zap.String("editor_id", editorID),
				zap.String("role", role),
			)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetEditorID extracts the editor identity from the request context. The
// second return is false when no editor is attached, which write handlers
// treat as unauthenticated.
func GetEditorID(ctx context.Context) (string, bool) {
	editorID, ok := ctx.Value(EditorIDKey).(string)
	return editorID, ok
}

// GetEditorRole extracts the editor role from the request context.
func GetEditorRole(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(EditorRoleKey).(string)
	return role, ok
}
