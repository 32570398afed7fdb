package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"trafficportal/internal/models"
)

// Require lets the request through when any of checks accepts the current
// session, for example session.IsSuperAdmin.
func Require(checks ...func(*models.Session) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := CurrentSession(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		for _, check := range checks {
			if check(&sess) {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}
