package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-builder/internal/shared/auth"
	"resume-builder/internal/shared/server/respond"
)

const (
	namespaceKey = "namespace"
	isGuestKey   = "isGuest"
	userEmailKey = "userEmail"
)

// Auth resolves the caller identity from a bearer token or the X-Guest-Id header.
// The identity doubles as the storage namespace for every resume the caller touches.
func Auth(tokens *auth.Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		path := c.Request.URL.Path
		if path == "/api/v1/health" || path == "/metrics" {
			c.Next()
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader != "" {
			if !strings.HasPrefix(authHeader, "Bearer ") || tokens == nil {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}
			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
			claims, err := tokens.Verify(token)
			if err != nil {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}

			c.Set(namespaceKey, "user:"+claims.Subject)
			if claims.Email != "" {
				c.Set(userEmailKey, claims.Email)
			}
			c.Set(isGuestKey, false)
			c.Next()
			return
		}

		guestID := strings.TrimSpace(c.GetHeader("X-Guest-Id"))
		if guestID == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
			return
		}
		if strings.ContainsAny(guestID, "/\\") {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid guest id", nil)
			return
		}

		c.Set(namespaceKey, "guest:"+guestID)
		c.Set(isGuestKey, true)
		c.Next()
	}
}

// NamespaceFromContext fetches the storage namespace set by the auth middleware.
func NamespaceFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(namespaceKey)
	if ns, ok := val.(string); ok {
		return ns
	}
	return ""
}

// UserEmailFromContext fetches the token email, if any.
func UserEmailFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userEmailKey)
	if email, ok := val.(string); ok {
		return email
	}
	return ""
}

// IsGuestFromContext reports whether the caller identified with X-Guest-Id.
func IsGuestFromContext(c *gin.Context) bool {
	if c == nil {
		return false
	}
	val, _ := c.Get(isGuestKey)
	guest, _ := val.(bool)
	return guest
}
