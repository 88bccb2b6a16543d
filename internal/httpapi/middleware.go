package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const userIDContextKey = "prepd.user_id"

// userAuthMiddleware resolves the caller's user ID from an upstream
// oauth2-proxy-style forwarded header, the same extraction priority the
// teacher's pkg/api/auth.go uses (X-Forwarded-User, then
// X-Forwarded-Email). Session cookies and OAuth consent flows are
// explicitly out of scope (spec.md §3); this middleware only trusts an
// identity a reverse proxy has already resolved.
func userAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-Forwarded-User")
		if userID == "" {
			userID = c.GetHeader("X-Forwarded-Email")
		}
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing caller identity"})
			return
		}
		c.Set(userIDContextKey, userID)
		c.Next()
	}
}

func userIDFromContext(c *gin.Context) string {
	v, _ := c.Get(userIDContextKey)
	id, _ := v.(string)
	return id
}

// corsMiddleware allows the configured origins, mirroring
// config.HTTPConfig.AllowedOrigins.
func corsMiddleware(allowed []string) gin.HandlerFunc {
	allowedSet := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		allowedSet[o] = true
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && allowedSet[origin] {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
